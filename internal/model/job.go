package model

import "time"

// JobState is the lifecycle state of one profile collection job.
type JobState string

const (
	JobInit            JobState = "init"
	JobResolvingFamily JobState = "resolving_family"
	JobMappingSources  JobState = "mapping_sources"
	JobFanningOut      JobState = "fanning_out"
	JobMerging         JobState = "merging"
	JobSynthesizing    JobState = "synthesizing"
	JobDone            JobState = "done"

	// JobFailed is reachable only from resolving_family, when the
	// registry is unreachable before even a synthetic family can be
	// built. All other stages tolerate partial results.
	JobFailed JobState = "failed"
)

// ProfileRequest identifies the institution to profile.
type ProfileRequest struct {
	Name     string `json:"name"`
	StrongID string `json:"strong_id,omitempty"` // LEI, when known
	Country  string `json:"country,omitempty"`   // expected jurisdiction, e.g. "US"
}

// StageResult records the outcome of one engine stage for observability.
type StageResult struct {
	Name     string         `json:"name"`
	Duration time.Duration  `json:"duration"`
	Error    string         `json:"error,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// ProfileResult is the complete output of one profile job. Callers always
// receive the full result set with explicit data-quality and
// skipped-source annotations; there is no silent data loss.
type ProfileResult struct {
	JobID   string         `json:"job_id"`
	Request ProfileRequest `json:"request"`
	State   JobState       `json:"state"`

	Family  *CorporateFamily             `json:"family,omitempty"`
	Results map[string]SourceResult      `json:"results,omitempty"`
	Records map[string]*AggregatedRecord `json:"records,omitempty"`
	Summary *Summary                     `json:"summary,omitempty"`

	// Narrative is prose produced by the out-of-process synthesis
	// collaborator from the Tier-2 summary; the engine never depends on
	// its content.
	Narrative string `json:"narrative,omitempty"`

	Stages    []StageResult `json:"stages,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}
