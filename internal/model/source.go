package model

import "time"

// SourceScope controls how the mapper selects entity keys for a source.
type SourceScope string

const (
	// ScopeFamily sources are called once with a single representative
	// entity (the parent when the queried entity is a subsidiary).
	ScopeFamily SourceScope = "family"

	// ScopeEntityList sources are called once per distinct entity name.
	ScopeEntityList SourceScope = "entity_list"

	// ScopeJurisdiction sources skip entities whose country is outside
	// the source's supported jurisdiction set.
	ScopeJurisdiction SourceScope = "jurisdiction_filtered"
)

// SourceCall is one unit of fan-out work against a single source.
type SourceCall struct {
	SourceID      string        `json:"source_id"`
	EntityKeys    []string      `json:"entity_keys"`
	Timeout       time.Duration `json:"timeout"`
	AttemptedAt   time.Time     `json:"attempted_at,omitempty"`
	MappedBy      string        `json:"mapped_by,omitempty"`      // "default" or "semantic"
	KeyAttributes []Entity      `json:"key_attributes,omitempty"` // entity behind each key, index-aligned
}

// SourceStatus is the terminal state of one source call.
type SourceStatus string

const (
	StatusOK      SourceStatus = "ok"
	StatusEmpty   SourceStatus = "empty"
	StatusError   SourceStatus = "error"
	StatusTimeout SourceStatus = "timeout"
)

// Payload is the stable shape every provider adapter converts into at its
// boundary. No provider wire format crosses into the aggregator.
type Payload struct {
	// CanonicalName is the provider's own canonical name for the record
	// set, used to deduplicate overlapping entity-scoped calls that
	// resolve to the same provider-side legal entity.
	CanonicalName string `json:"canonical_name,omitempty"`

	// ByYear holds per-year record counts. Additive under merge.
	ByYear map[int]float64 `json:"by_year,omitempty"`

	// Metrics holds simple counts, summable across entities. Derived
	// ratios are never stored here; they are recomputed after merge from
	// numerator/denominator pairs.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// Items are individual records kept for drill-down.
	Items []Item `json:"items,omitempty"`
}

// Item is one individual provider record (an article, complaint, filing,
// or docket entry).
type Item struct {
	Title string    `json:"title"`
	URL   string    `json:"url,omitempty"`
	Date  time.Time `json:"date,omitempty"`
	Kind  string    `json:"kind,omitempty"`
}

// Empty reports whether the payload carries no data at all.
func (p *Payload) Empty() bool {
	return p == nil || (len(p.ByYear) == 0 && len(p.Metrics) == 0 && len(p.Items) == 0)
}

// EntityPayload is one per-entity payload with its attribution.
type EntityPayload struct {
	EntityID     string       `json:"entity_id,omitempty"`
	EntityName   string       `json:"entity_name"`
	Relationship Relationship `json:"relationship"`
	Payload      Payload      `json:"payload"`
}

// SourceResult is the outcome of exactly one SourceCall. Every call
// produces one result, including on failure.
type SourceResult struct {
	SourceID    string          `json:"source_id"`
	Status      SourceStatus    `json:"status"`
	Attribution []EntityPayload `json:"attribution,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	Duration    time.Duration   `json:"duration"`
	FromCache   bool            `json:"from_cache,omitempty"`
}
