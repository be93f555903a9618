package synthesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/model"
)

func TestAnalyze_NoDataFinding(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category: catalog.CategoryNews,
		SkippedSources: []model.SkippedSource{
			{SourceID: "news_rss", Status: model.StatusTimeout},
		},
	}

	finding := a.Analyze(catalog.CategoryNews, rec)
	assert.False(t, finding.HasData)
	assert.Equal(t, model.QualityNone, finding.DataQuality)
	assert.Equal(t, []string{"news_rss"}, finding.SourceIDs)
	assert.Equal(t, []string{"no news data available"}, finding.KeyFindings)
	assert.Empty(t, finding.RiskFlags)
}

func TestAnalyze_NilRecord(t *testing.T) {
	a := NewAnalyzer(10, 4)
	finding := a.Analyze(catalog.CategoryFilings, nil)
	assert.False(t, finding.HasData)
	assert.Equal(t, model.QualityNone, finding.DataQuality)
}

func TestAnalyze_RisingComplaintsIsRisk(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category: catalog.CategoryComplaints,
		Sources:  []string{"cfpb"},
		ByYear:   map[int]float64{2022: 90, 2023: 100, 2024: 150},
		ByEntity: map[string]model.EntityPayload{"Q": {}},
		Totals:   map[string]float64{"count": 340, "complaints": 340},
	}

	finding := a.Analyze(catalog.CategoryComplaints, rec)
	assert.True(t, finding.HasData)
	assert.Equal(t, model.QualityGood, finding.DataQuality)
	assert.InDelta(t, 50.0, finding.Metrics["yoy_change_pct"], 0.001)
	require.Len(t, finding.RiskFlags, 1)
	assert.Contains(t, finding.RiskFlags[0], "+50.0%")
	assert.Contains(t, finding.RiskFlags[0], "2023 to 2024")
}

func TestAnalyze_FallingComplaintsIsPositive(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category: catalog.CategoryComplaints,
		Sources:  []string{"cfpb"},
		ByYear:   map[int]float64{2023: 200, 2024: 100},
		ByEntity: map[string]model.EntityPayload{"Q": {}},
		Totals:   map[string]float64{"count": 300},
	}

	finding := a.Analyze(catalog.CategoryComplaints, rec)
	assert.Empty(t, finding.RiskFlags)
	require.Len(t, finding.PositiveIndicators, 1)
	assert.Contains(t, finding.PositiveIndicators[0], "-50.0%")
}

func TestAnalyze_ChangeWithinThresholdNotFlagged(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category: catalog.CategoryComplaints,
		ByYear:   map[int]float64{2023: 100, 2024: 105},
		ByEntity: map[string]model.EntityPayload{"Q": {}},
		Totals:   map[string]float64{"count": 205},
	}

	finding := a.Analyze(catalog.CategoryComplaints, rec)
	assert.InDelta(t, 5.0, finding.Metrics["yoy_change_pct"], 0.001)
	assert.Empty(t, finding.RiskFlags)
	assert.Empty(t, finding.PositiveIndicators)
}

func TestAnalyze_NonConsecutiveYearsNoTrend(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category: catalog.CategoryNews,
		ByYear:   map[int]float64{2020: 10, 2024: 100},
		ByEntity: map[string]model.EntityPayload{"Q": {}},
		Totals:   map[string]float64{"count": 110},
	}

	finding := a.Analyze(catalog.CategoryNews, rec)
	assert.NotContains(t, finding.Metrics, "yoy_change_pct")
	assert.Empty(t, finding.RiskFlags)
}

func TestAnalyze_MetricThresholds(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category: catalog.CategoryComplaints,
		Sources:  []string{"cfpb"},
		ByYear:   map[int]float64{2024: 100},
		ByEntity: map[string]model.EntityPayload{"Q": {}},
		Totals: map[string]float64{
			"count":                    100,
			"complaints":               100,
			"dispute_rate_pct":         25,
			"timely_response_rate_pct": 85,
		},
	}

	finding := a.Analyze(catalog.CategoryComplaints, rec)
	require.Len(t, finding.RiskFlags, 2)
	assert.Contains(t, finding.RiskFlags[0], "dispute rate above 20%")
	assert.Contains(t, finding.RiskFlags[1], "timely response rate below 90%")
}

func TestAnalyze_UndefinedMetricSkippedByRules(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category:  catalog.CategoryLitigation,
		Sources:   []string{"courts"},
		ByYear:    map[int]float64{2024: 1},
		ByEntity:  map[string]model.EntityPayload{"Q": {}},
		Totals:    map[string]float64{"count": 1, "open_cases": 1, "open_case_rate_pct": 0},
		Undefined: []string{"open_case_rate_pct"},
	}

	finding := a.Analyze(catalog.CategoryLitigation, rec)
	assert.Equal(t, model.QualityPartial, finding.DataQuality)
	assert.Empty(t, finding.RiskFlags, "undefined ratios never trigger threshold rules")
	assert.Contains(t, finding.KeyFindings, "open_case_rate_pct is undefined (zero denominator after merge)")
}

func TestAnalyze_SkippedSourceDowngradesQuality(t *testing.T) {
	a := NewAnalyzer(10, 4)

	rec := &model.AggregatedRecord{
		Category: catalog.CategoryNews,
		Sources:  []string{"wire"},
		ByYear:   map[int]float64{2024: 10},
		ByEntity: map[string]model.EntityPayload{"Q": {}},
		Totals:   map[string]float64{"count": 10},
		SkippedSources: []model.SkippedSource{
			{SourceID: "archive", Status: model.StatusError, Detail: "boom"},
		},
	}

	finding := a.Analyze(catalog.CategoryNews, rec)
	assert.Equal(t, model.QualityPartial, finding.DataQuality)
	assert.Contains(t, finding.KeyFindings, "source archive skipped (error)")
}

func TestAnalyzeAll_EveryCategoryYieldsFinding(t *testing.T) {
	a := NewAnalyzer(10, 2)

	records := map[string]*model.AggregatedRecord{
		catalog.CategoryNews: {
			Category: catalog.CategoryNews,
			ByYear:   map[int]float64{2024: 5},
			ByEntity: map[string]model.EntityPayload{"Q": {}},
			Totals:   map[string]float64{"count": 5},
		},
		catalog.CategoryComplaints: {Category: catalog.CategoryComplaints},
		catalog.CategoryFilings:    {Category: catalog.CategoryFilings},
		catalog.CategoryLitigation: {Category: catalog.CategoryLitigation},
	}

	findings := a.AnalyzeAll(context.Background(), records)
	require.Len(t, findings, 4)

	// Sorted by category.
	assert.Equal(t, catalog.CategoryComplaints, findings[0].Category)
	assert.Equal(t, catalog.CategoryFilings, findings[1].Category)
	assert.Equal(t, catalog.CategoryLitigation, findings[2].Category)
	assert.Equal(t, catalog.CategoryNews, findings[3].Category)

	assert.True(t, findings[3].HasData)
	assert.False(t, findings[0].HasData)
}
