// Package profile wires the full collection job: family resolution,
// source mapping, concurrent fan-out, merge, and tiered synthesis.
package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/aggregate"
	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/mapper"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/orchestrator"
	"github.com/sells-group/profile-cli/internal/resolve"
	"github.com/sells-group/profile-cli/internal/synthesis"
)

// Engine runs profile collection jobs.
type Engine struct {
	resolver  *resolve.Resolver
	mapper    *mapper.Mapper
	collector *orchestrator.Collector
	merger    *aggregate.Merger
	analyzer  *synthesis.Analyzer
	narrator  synthesis.Narrator // may be nil
	registry  *catalog.Registry
}

// New creates an Engine with all dependencies. narrator may be nil, in
// which case no prose is generated.
func New(
	resolver *resolve.Resolver,
	m *mapper.Mapper,
	collector *orchestrator.Collector,
	merger *aggregate.Merger,
	analyzer *synthesis.Analyzer,
	narrator synthesis.Narrator,
	registry *catalog.Registry,
) *Engine {
	return &Engine{
		resolver:  resolver,
		mapper:    m,
		collector: collector,
		merger:    merger,
		analyzer:  analyzer,
		narrator:  narrator,
		registry:  registry,
	}
}

// Run executes one profile job end to end. Partial source failures
// degrade data quality but never fail the job; the only fatal path is the
// registry being unreachable during family resolution, before even a
// synthetic family can be built.
func (e *Engine) Run(ctx context.Context, req model.ProfileRequest) (*model.ProfileResult, error) {
	log := zap.L().With(zap.String("institution", req.Name))
	log.Info("profile: starting collection job")

	result := &model.ProfileResult{
		JobID:     uuid.New().String(),
		Request:   req,
		State:     model.JobInit,
		StartedAt: time.Now().UTC(),
	}

	setState := func(state model.JobState) {
		result.State = state
		log.Debug("profile: state transition", zap.String("state", string(state)))
	}

	trackStage := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		stage := model.StageResult{Name: name, Duration: time.Since(start)}
		if err != nil {
			stage.Error = err.Error()
			log.Error("profile: stage failed",
				zap.String("stage", name),
				zap.Duration("duration", stage.Duration),
				zap.Error(err),
			)
		} else {
			log.Info("profile: stage complete",
				zap.String("stage", name),
				zap.Duration("duration", stage.Duration),
			)
		}
		result.Stages = append(result.Stages, stage)
		return err
	}

	// ===== Resolve corporate family =====
	setState(model.JobResolvingFamily)
	err := trackStage("resolve_family", func() error {
		family, resolveErr := e.resolver.Resolve(ctx, resolve.Query{
			Name:             req.Name,
			ExpectedCountry:  req.Country,
			ExpectedCategory: resolve.CategoryBank,
		}, req.StrongID)
		if resolveErr != nil {
			return resolveErr
		}
		result.Family = family
		return nil
	})
	if err != nil {
		// The sole path to the failed terminal state.
		setState(model.JobFailed)
		result.Error = err.Error()
		result.Duration = time.Since(result.StartedAt)
		return result, eris.Wrap(err, "profile: resolve family")
	}

	// ===== Map sources =====
	setState(model.JobMappingSources)
	var calls map[string]model.SourceCall
	_ = trackStage("map_sources", func() error {
		calls = e.mapper.MapSources(ctx, result.Family, e.registry)
		return nil
	})

	// ===== Fan out =====
	setState(model.JobFanningOut)
	_ = trackStage("fan_out", func() error {
		result.Results = e.collector.Collect(ctx, calls)
		return nil
	})

	// ===== Merge =====
	setState(model.JobMerging)
	_ = trackStage("merge", func() error {
		result.Records = e.merger.Merge(result.Results, e.registry)
		return nil
	})

	// ===== Synthesize =====
	setState(model.JobSynthesizing)
	_ = trackStage("synthesize", func() error {
		findings := e.analyzer.AnalyzeAll(ctx, result.Records)
		result.Summary = synthesis.Compile(findings)
		return nil
	})

	if e.narrator != nil && result.Summary != nil {
		_ = trackStage("narrate", func() error {
			narrative, narrErr := e.narrator.Narrate(ctx, result.Summary)
			if narrErr != nil {
				// Prose is a bonus on top of the structured summary.
				log.Warn("profile: narrative unavailable", zap.Error(narrErr))
				return narrErr
			}
			result.Narrative = narrative
			return nil
		})
	}

	setState(model.JobDone)
	result.Duration = time.Since(result.StartedAt)

	log.Info("profile: collection job complete",
		zap.String("job_id", result.JobID),
		zap.Int("entities", len(result.Family.AllEntities)),
		zap.Int("sources", len(result.Results)),
		zap.Int("good", result.Summary.DataQuality.Good),
		zap.Int("partial", result.Summary.DataQuality.Partial),
		zap.Int("none", result.Summary.DataQuality.None),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
