package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/aggregate"
	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/mapper"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/orchestrator"
	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/internal/resolve"
	"github.com/sells-group/profile-cli/internal/synthesis"
)

// stubRegistry is a fixed-response RegistryClient.
type stubRegistry struct {
	records  map[string]resolve.RegistryRecord
	searches map[string][]resolve.RegistryRecord
	down     bool
}

func (s *stubRegistry) Lookup(_ context.Context, lei string) (*resolve.RegistryRecord, error) {
	if s.down {
		return nil, errors.New("registry unreachable")
	}
	if rec, ok := s.records[lei]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *stubRegistry) Search(_ context.Context, name string, _ int) ([]resolve.RegistryRecord, error) {
	if s.down {
		return nil, errors.New("registry unreachable")
	}
	return s.searches[name], nil
}

func (s *stubRegistry) UltimateParent(context.Context, string) (*resolve.RegistryRecord, error) {
	return nil, nil
}

func (s *stubRegistry) Children(context.Context, string) ([]resolve.RegistryRecord, error) {
	return nil, nil
}

// scriptedSource returns a fixed payload or error per entity key.
type scriptedSource struct {
	id       string
	category string
	payloads map[string]*model.Payload
	err      error
}

func (s *scriptedSource) ID() string               { return s.id }
func (s *scriptedSource) Category() string         { return s.category }
func (s *scriptedSource) Scope() model.SourceScope { return model.ScopeEntityList }
func (s *scriptedSource) Timeout() time.Duration   { return time.Second }
func (s *scriptedSource) Jurisdictions() []string  { return nil }

func (s *scriptedSource) Fetch(_ context.Context, key string) (*model.Payload, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.payloads[key]; ok {
		return p, nil
	}
	return &model.Payload{}, nil
}

func newTestEngine(registryClient resolve.RegistryClient, sources ...catalog.Source) *Engine {
	reg := catalog.NewRegistry()
	for _, src := range sources {
		reg.Register(src)
	}

	return New(
		resolve.NewResolver(registryClient, 10),
		mapper.New(nil, time.Second),
		orchestrator.New(reg, orchestrator.WithRetryPolicy(resilience.Policy{MaxAttempts: 1})),
		aggregate.NewMerger(),
		synthesis.NewAnalyzer(10, 2),
		nil,
		reg,
	)
}

func TestRun_EndToEnd(t *testing.T) {
	registryClient := &stubRegistry{
		searches: map[string][]resolve.RegistryRecord{
			"Alpha Bank": {{LEI: "Q", LegalName: "Alpha Bank", Country: "US", Category: resolve.CategoryBank}},
		},
	}

	news := &scriptedSource{id: "news_rss", category: catalog.CategoryNews, payloads: map[string]*model.Payload{
		"Alpha Bank": {CanonicalName: "Alpha Bank", ByYear: map[int]float64{2023: 4, 2024: 10}},
	}}
	courts := &scriptedSource{id: "courtlistener", category: catalog.CategoryLitigation,
		err: errors.New("provider 500")}

	engine := newTestEngine(registryClient, news, courts)
	result, err := engine.Run(context.Background(), model.ProfileRequest{Name: "Alpha Bank", Country: "US"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.JobID)
	assert.Equal(t, model.JobDone, result.State)
	require.NotNil(t, result.Family)
	assert.Equal(t, "Q", result.Family.Queried.ID)

	// One result per issued call, including the failed one.
	require.Len(t, result.Results, 2)
	assert.Equal(t, model.StatusOK, result.Results["news_rss"].Status)
	assert.Equal(t, model.StatusError, result.Results["courtlistener"].Status)

	// News merged; litigation degraded to an explicit no-data finding.
	require.NotNil(t, result.Summary)
	require.Len(t, result.Summary.Findings, 2)
	byCategory := make(map[string]model.Finding)
	for _, f := range result.Summary.Findings {
		byCategory[f.Category] = f
	}
	assert.True(t, byCategory[catalog.CategoryNews].HasData)
	assert.False(t, byCategory[catalog.CategoryLitigation].HasData)
	assert.Equal(t, 1, result.Summary.DataQuality.Good)
	assert.Equal(t, 1, result.Summary.DataQuality.None)

	// The rising news volume (4 -> 10) is flagged as a notable change.
	assert.Contains(t, byCategory[catalog.CategoryNews].Metrics, "yoy_change_pct")

	// Stage results cover the full lifecycle in order.
	var names []string
	for _, stage := range result.Stages {
		names = append(names, stage.Name)
	}
	assert.Equal(t, []string{"resolve_family", "map_sources", "fan_out", "merge", "synthesize"}, names)
}

func TestRun_UnknownInstitutionStillCompletes(t *testing.T) {
	news := &scriptedSource{id: "news_rss", category: catalog.CategoryNews}

	engine := newTestEngine(&stubRegistry{}, news)
	result, err := engine.Run(context.Background(), model.ProfileRequest{Name: "Ghost Bank"})
	require.NoError(t, err)

	assert.Equal(t, model.JobDone, result.State)
	require.NotNil(t, result.Family)
	assert.Len(t, result.Family.AllEntities, 1, "synthetic single-entity family")
	assert.Empty(t, result.Family.Queried.ID)
	assert.Equal(t, model.StatusEmpty, result.Results["news_rss"].Status)
}

func TestRun_RegistryDownIsTheOnlyFatalPath(t *testing.T) {
	news := &scriptedSource{id: "news_rss", category: catalog.CategoryNews}

	engine := newTestEngine(&stubRegistry{down: true}, news)
	result, err := engine.Run(context.Background(), model.ProfileRequest{Name: "Alpha Bank"})

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.JobFailed, result.State)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.Summary)
}

type stubNarrator struct {
	text string
	err  error
}

func (s *stubNarrator) Narrate(context.Context, *model.Summary) (string, error) {
	return s.text, s.err
}

func TestRun_NarratorFailureIsNonFatal(t *testing.T) {
	registryClient := &stubRegistry{
		searches: map[string][]resolve.RegistryRecord{
			"Alpha Bank": {{LEI: "Q", LegalName: "Alpha Bank", Country: "US", Category: resolve.CategoryBank}},
		},
	}
	news := &scriptedSource{id: "news_rss", category: catalog.CategoryNews, payloads: map[string]*model.Payload{
		"Alpha Bank": {ByYear: map[int]float64{2024: 1}},
	}}

	reg := catalog.NewRegistry()
	reg.Register(news)
	engine := New(
		resolve.NewResolver(registryClient, 10),
		mapper.New(nil, time.Second),
		orchestrator.New(reg, orchestrator.WithRetryPolicy(resilience.Policy{MaxAttempts: 1})),
		aggregate.NewMerger(),
		synthesis.NewAnalyzer(10, 2),
		&stubNarrator{err: errors.New("model overloaded")},
		reg,
	)

	result, err := engine.Run(context.Background(), model.ProfileRequest{Name: "Alpha Bank"})
	require.NoError(t, err)
	assert.Equal(t, model.JobDone, result.State)
	assert.Empty(t, result.Narrative)
}

func TestRun_NarratorProseAttached(t *testing.T) {
	registryClient := &stubRegistry{
		searches: map[string][]resolve.RegistryRecord{
			"Alpha Bank": {{LEI: "Q", LegalName: "Alpha Bank", Country: "US", Category: resolve.CategoryBank}},
		},
	}
	news := &scriptedSource{id: "news_rss", category: catalog.CategoryNews, payloads: map[string]*model.Payload{
		"Alpha Bank": {ByYear: map[int]float64{2024: 1}},
	}}

	reg := catalog.NewRegistry()
	reg.Register(news)
	engine := New(
		resolve.NewResolver(registryClient, 10),
		mapper.New(nil, time.Second),
		orchestrator.New(reg, orchestrator.WithRetryPolicy(resilience.Policy{MaxAttempts: 1})),
		aggregate.NewMerger(),
		synthesis.NewAnalyzer(10, 2),
		&stubNarrator{text: "A concise brief."},
		reg,
	)

	result, err := engine.Run(context.Background(), model.ProfileRequest{Name: "Alpha Bank"})
	require.NoError(t, err)
	assert.Equal(t, "A concise brief.", result.Narrative)
}
