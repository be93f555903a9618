package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/model"
)

// stubSource carries only the catalog metadata the merger reads.
type stubSource struct {
	id       string
	category string
}

func (s *stubSource) ID() string               { return s.id }
func (s *stubSource) Category() string         { return s.category }
func (s *stubSource) Scope() model.SourceScope { return model.ScopeEntityList }
func (s *stubSource) Timeout() time.Duration   { return time.Second }
func (s *stubSource) Jurisdictions() []string  { return nil }
func (s *stubSource) Fetch(context.Context, string) (*model.Payload, error) {
	return &model.Payload{}, nil
}

func newsRegistry(ids ...string) *catalog.Registry {
	reg := catalog.NewRegistry()
	for _, id := range ids {
		reg.Register(&stubSource{id: id, category: catalog.CategoryNews})
	}
	return reg
}

func attributed(id, name string, rel model.Relationship, byYear map[int]float64) model.EntityPayload {
	return model.EntityPayload{
		EntityID:     id,
		EntityName:   name,
		Relationship: rel,
		Payload:      model.Payload{ByYear: byYear},
	}
}

func TestMerge_CrossSourceAttribution(t *testing.T) {
	reg := newsRegistry("wire", "archive")

	// The queried entity is reported by both sources; the subsidiary by
	// one. All three attributions must survive with their own counts.
	results := map[string]model.SourceResult{
		"wire": {SourceID: "wire", Status: model.StatusOK, Attribution: []model.EntityPayload{
			attributed("Q", "Alpha Bank", model.RelationshipQueried, map[int]float64{2024: 100}),
			attributed("S", "Alpha Mortgage", model.RelationshipSubsidiary, map[int]float64{2024: 40}),
		}},
		"archive": {SourceID: "archive", Status: model.StatusOK, Attribution: []model.EntityPayload{
			attributed("Q", "Alpha Bank", model.RelationshipQueried, map[int]float64{2024: 60}),
		}},
	}

	records := NewMerger().Merge(results, reg)
	rec := records[catalog.CategoryNews]
	require.NotNil(t, rec)

	assert.Equal(t, 200.0, rec.ByYear[2024])
	assert.Equal(t, 200.0, rec.Totals["count"])
	assert.Equal(t, []string{"wire", "archive"}, rec.Sources)

	require.Len(t, rec.ByEntity, 3, "no attribution is lost when one entity appears via two sources")
	assert.Equal(t, 100.0, rec.ByEntity["Q"].Payload.ByYear[2024])
	assert.Equal(t, 40.0, rec.ByEntity["S"].Payload.ByYear[2024])
	assert.Equal(t, 60.0, rec.ByEntity["Q|archive"].Payload.ByYear[2024])
}

func TestMerge_TotalsEqualSumOfEntities(t *testing.T) {
	reg := newsRegistry("wire")
	results := map[string]model.SourceResult{
		"wire": {SourceID: "wire", Status: model.StatusOK, Attribution: []model.EntityPayload{
			attributed("A", "Alpha Bank", model.RelationshipQueried, map[int]float64{2023: 5, 2024: 7}),
			attributed("B", "Beta Trust", model.RelationshipSibling, map[int]float64{2024: 3}),
		}},
	}

	rec := NewMerger().Merge(results, reg)[catalog.CategoryNews]

	var sum float64
	for _, ep := range rec.ByEntity {
		for _, v := range ep.Payload.ByYear {
			sum += v
		}
	}
	assert.Equal(t, sum, rec.Totals["count"])
	assert.Equal(t, 5.0, rec.ByYear[2023])
	assert.Equal(t, 10.0, rec.ByYear[2024])
}

func TestMerge_CanonicalDedup(t *testing.T) {
	reg := newsRegistry("wire")

	// Two family names resolve to the same provider-side legal entity.
	results := map[string]model.SourceResult{
		"wire": {SourceID: "wire", Status: model.StatusOK, Attribution: []model.EntityPayload{
			{EntityID: "Q", EntityName: "Alpha Bank", Relationship: model.RelationshipQueried,
				Payload: model.Payload{CanonicalName: "Alpha Bank N.A.", ByYear: map[int]float64{2024: 50}}},
			{EntityID: "S", EntityName: "Alpha Bank USA", Relationship: model.RelationshipSubsidiary,
				Payload: model.Payload{CanonicalName: "ALPHA BANK NA", ByYear: map[int]float64{2024: 50}}},
		}},
	}

	rec := NewMerger().Merge(results, reg)[catalog.CategoryNews]
	assert.Equal(t, 50.0, rec.ByYear[2024], "same canonical record must not double-count")
	assert.Len(t, rec.ByEntity, 1)
}

func TestMerge_SkippedSourcesRecorded(t *testing.T) {
	reg := newsRegistry("wire", "archive", "tape")
	results := map[string]model.SourceResult{
		"wire": {SourceID: "wire", Status: model.StatusOK, Attribution: []model.EntityPayload{
			attributed("Q", "Alpha Bank", model.RelationshipQueried, map[int]float64{2024: 9}),
		}},
		"archive": {SourceID: "archive", Status: model.StatusTimeout, ErrorDetail: "timeout after 30s"},
		"tape":    {SourceID: "tape", Status: model.StatusEmpty},
	}

	rec := NewMerger().Merge(results, reg)[catalog.CategoryNews]
	assert.Equal(t, 9.0, rec.ByYear[2024])
	require.Len(t, rec.SkippedSources, 2)
	assert.Equal(t, "archive", rec.SkippedSources[0].SourceID)
	assert.Equal(t, model.StatusTimeout, rec.SkippedSources[0].Status)
	assert.Equal(t, model.StatusEmpty, rec.SkippedSources[1].Status)
}

func TestMerge_CategoryWithNoDataStillGetsRecord(t *testing.T) {
	reg := newsRegistry("wire")
	results := map[string]model.SourceResult{
		"wire": {SourceID: "wire", Status: model.StatusError, ErrorDetail: "boom"},
	}

	records := NewMerger().Merge(results, reg)
	rec := records[catalog.CategoryNews]
	require.NotNil(t, rec)
	assert.False(t, rec.HasData())
	assert.Len(t, rec.SkippedSources, 1)
}

func TestMerge_DerivedRatioRecomputedFromMergedCounts(t *testing.T) {
	reg := catalog.NewRegistry()
	reg.Register(&stubSource{id: "cfpb", category: catalog.CategoryComplaints})

	// 10% and 50% per-entity dispute rates over very different volumes
	// must merge to the volume-weighted rate, not the average.
	results := map[string]model.SourceResult{
		"cfpb": {SourceID: "cfpb", Status: model.StatusOK, Attribution: []model.EntityPayload{
			{EntityID: "BIG", EntityName: "Big Bank", Relationship: model.RelationshipQueried,
				Payload: model.Payload{Metrics: map[string]float64{"complaints": 1000, "disputed": 100, "timely_responses": 990}}},
			{EntityID: "SMALL", EntityName: "Small Sub", Relationship: model.RelationshipSubsidiary,
				Payload: model.Payload{Metrics: map[string]float64{"complaints": 2, "disputed": 1, "timely_responses": 2}}},
		}},
	}

	rec := NewMerger().Merge(results, reg)[catalog.CategoryComplaints]
	assert.InDelta(t, 10.08, rec.Totals["dispute_rate_pct"], 0.01)
	assert.InDelta(t, 99.0, rec.Totals["timely_response_rate_pct"], 0.01)
	assert.Empty(t, rec.Undefined)
}

func TestMerge_ZeroDenominatorIsUndefinedNotError(t *testing.T) {
	reg := catalog.NewRegistry()
	reg.Register(&stubSource{id: "courts", category: catalog.CategoryLitigation})

	results := map[string]model.SourceResult{
		"courts": {SourceID: "courts", Status: model.StatusOK, Attribution: []model.EntityPayload{
			{EntityID: "Q", EntityName: "Alpha Bank", Relationship: model.RelationshipQueried,
				Payload: model.Payload{ByYear: map[int]float64{2024: 1}, Metrics: map[string]float64{"open_cases": 1}}},
		}},
	}

	rec := NewMerger().Merge(results, reg)[catalog.CategoryLitigation]
	assert.Equal(t, 0.0, rec.Totals["open_case_rate_pct"])
	assert.Equal(t, []string{"open_case_rate_pct"}, rec.Undefined)
}

func TestMerge_AdapterProvidedRatioIgnored(t *testing.T) {
	reg := catalog.NewRegistry()
	reg.Register(&stubSource{id: "cfpb", category: catalog.CategoryComplaints})

	results := map[string]model.SourceResult{
		"cfpb": {SourceID: "cfpb", Status: model.StatusOK, Attribution: []model.EntityPayload{
			{EntityID: "Q", EntityName: "Alpha Bank", Relationship: model.RelationshipQueried,
				Payload: model.Payload{Metrics: map[string]float64{
					"complaints":       10,
					"disputed":         5,
					"dispute_rate_pct": 99, // adapters must not pre-compute ratios
				}}},
		}},
	}

	rec := NewMerger().Merge(results, reg)[catalog.CategoryComplaints]
	assert.InDelta(t, 50.0, rec.Totals["dispute_rate_pct"], 0.001)
}

func TestMerge_Deterministic(t *testing.T) {
	reg := newsRegistry("wire", "archive")
	results := map[string]model.SourceResult{
		"wire": {SourceID: "wire", Status: model.StatusOK, Attribution: []model.EntityPayload{
			attributed("Q", "Alpha Bank", model.RelationshipQueried, map[int]float64{2024: 100}),
		}},
		"archive": {SourceID: "archive", Status: model.StatusOK, Attribution: []model.EntityPayload{
			attributed("Q", "Alpha Bank", model.RelationshipQueried, map[int]float64{2024: 60}),
		}},
	}

	m := NewMerger()
	first := m.Merge(results, reg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Merge(results, reg))
	}
}
