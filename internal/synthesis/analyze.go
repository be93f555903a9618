// Package synthesis turns aggregated records into standardized findings
// (Tier-1, one independent unit per category) and compiles them into a
// single cross-source summary (Tier-2).
package synthesis

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/orchestrator"
)

// metricRule flags a derived metric crossing a threshold.
type metricRule struct {
	metric    string
	above     bool // true: flag when value > threshold; false: when value < threshold
	threshold float64
	risk      bool // risk flag vs positive indicator
	message   string
}

// categoryRules holds the per-category analysis thresholds.
type categoryRules struct {
	increaseIsRisk bool // a rising year-over-year trend is adverse
	metricRules    []metricRule
}

var rulesByCategory = map[string]categoryRules{
	catalog.CategoryComplaints: {
		increaseIsRisk: true,
		metricRules: []metricRule{
			{metric: "dispute_rate_pct", above: true, threshold: 20, risk: true,
				message: "consumer dispute rate above 20%%: %.1f%%"},
			{metric: "timely_response_rate_pct", above: false, threshold: 90, risk: true,
				message: "timely response rate below 90%%: %.1f%%"},
			{metric: "timely_response_rate_pct", above: true, threshold: 97, risk: false,
				message: "timely response rate %.1f%%"},
		},
	},
	catalog.CategoryLitigation: {
		increaseIsRisk: true,
		metricRules: []metricRule{
			{metric: "open_case_rate_pct", above: true, threshold: 50, risk: true,
				message: "more than half of located cases remain open: %.1f%%"},
		},
	},
	catalog.CategoryNews:    {},
	catalog.CategoryFilings: {},
}

// Analyzer produces Tier-1 findings from aggregated records.
type Analyzer struct {
	trendThresholdPct float64
	concurrency       int
}

// NewAnalyzer creates an analyzer. trendThresholdPct is the absolute
// year-over-year change (in percent) that triggers a trend flag; values
// <= 0 default to 10. concurrency bounds the Tier-1 worker pool.
func NewAnalyzer(trendThresholdPct float64, concurrency int) *Analyzer {
	if trendThresholdPct <= 0 {
		trendThresholdPct = 10
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Analyzer{trendThresholdPct: trendThresholdPct, concurrency: concurrency}
}

// AnalyzeAll runs Tier-1 analysis for every category on a bounded worker
// pool and returns findings sorted by category. Every category yields a
// finding, including those with no surviving data.
func (a *Analyzer) AnalyzeAll(ctx context.Context, records map[string]*model.AggregatedRecord) []model.Finding {
	categories := make([]string, 0, len(records))
	for category := range records {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	findings := make([]model.Finding, len(categories))
	tasks := make([]func(context.Context), len(categories))
	for i, category := range categories {
		tasks[i] = func(context.Context) {
			findings[i] = a.Analyze(category, records[category])
		}
	}
	orchestrator.RunLimited(ctx, a.concurrency, tasks)

	return findings
}

// Analyze converts one category's aggregated record into a standardized
// finding by applying the category's thresholds.
func (a *Analyzer) Analyze(category string, rec *model.AggregatedRecord) model.Finding {
	finding := model.Finding{Category: category}

	if !rec.HasData() {
		finding.HasData = false
		finding.DataQuality = model.QualityNone
		if rec != nil {
			for _, skipped := range rec.SkippedSources {
				finding.SourceIDs = append(finding.SourceIDs, skipped.SourceID)
			}
		}
		finding.KeyFindings = []string{fmt.Sprintf("no %s data available", category)}
		return finding
	}

	finding.HasData = true
	finding.SourceIDs = rec.Sources
	finding.DataQuality = grade(rec)
	finding.Metrics = make(map[string]float64, len(rec.Totals)+1)
	for metric, value := range rec.Totals {
		finding.Metrics[metric] = value
	}

	finding.KeyFindings = append(finding.KeyFindings, volumeSummary(category, rec))

	a.applyTrendRules(category, rec, &finding)
	applyMetricRules(category, rec, &finding)

	for _, metric := range rec.Undefined {
		finding.KeyFindings = append(finding.KeyFindings,
			fmt.Sprintf("%s is undefined (zero denominator after merge)", metric))
	}
	for _, skipped := range rec.SkippedSources {
		finding.KeyFindings = append(finding.KeyFindings,
			fmt.Sprintf("source %s skipped (%s)", skipped.SourceID, skipped.Status))
	}

	zap.L().Debug("analyze: finding produced",
		zap.String("category", category),
		zap.String("quality", string(finding.DataQuality)),
		zap.Int("risk_flags", len(finding.RiskFlags)),
	)
	return finding
}

// applyTrendRules flags a year-over-year change beyond the threshold on
// the most recent pair of consecutive years.
func (a *Analyzer) applyTrendRules(category string, rec *model.AggregatedRecord, finding *model.Finding) {
	cur, prev, ok := latestYearPair(rec.ByYear)
	if !ok {
		return
	}
	prevCount := rec.ByYear[prev]
	if prevCount == 0 {
		return
	}
	changePct := (rec.ByYear[cur] - prevCount) / prevCount * 100
	finding.Metrics["yoy_change_pct"] = changePct

	if changePct < -a.trendThresholdPct || changePct > a.trendThresholdPct {
		msg := fmt.Sprintf("%s volume changed %+.1f%% from %d to %d", category, changePct, prev, cur)
		rising := changePct > 0
		if rulesByCategory[category].increaseIsRisk == rising {
			finding.RiskFlags = append(finding.RiskFlags, msg)
		} else {
			finding.PositiveIndicators = append(finding.PositiveIndicators, msg)
		}
	}
}

func applyMetricRules(category string, rec *model.AggregatedRecord, finding *model.Finding) {
	undefined := make(map[string]bool, len(rec.Undefined))
	for _, metric := range rec.Undefined {
		undefined[metric] = true
	}

	for _, rule := range rulesByCategory[category].metricRules {
		value, ok := rec.Totals[rule.metric]
		if !ok || undefined[rule.metric] {
			continue
		}
		crossed := value > rule.threshold
		if !rule.above {
			crossed = value < rule.threshold
		}
		if !crossed {
			continue
		}
		msg := fmt.Sprintf(rule.message, value)
		if rule.risk {
			finding.RiskFlags = append(finding.RiskFlags, msg)
		} else {
			finding.PositiveIndicators = append(finding.PositiveIndicators, msg)
		}
	}
}

// grade scores data quality: good when every mapped source contributed
// and no derived metric came out undefined, partial otherwise.
func grade(rec *model.AggregatedRecord) model.DataQuality {
	if len(rec.SkippedSources) == 0 && len(rec.Undefined) == 0 {
		return model.QualityGood
	}
	return model.QualityPartial
}

func volumeSummary(category string, rec *model.AggregatedRecord) string {
	total := rec.Totals["count"]
	if first, last, ok := yearSpan(rec.ByYear); ok {
		return fmt.Sprintf("%.0f %s records across %d entities (%d-%d)",
			total, category, len(rec.ByEntity), first, last)
	}
	return fmt.Sprintf("%s data present for %d entities", category, len(rec.ByEntity))
}

func latestYearPair(byYear map[int]float64) (cur, prev int, ok bool) {
	years := sortedYears(byYear)
	for i := len(years) - 1; i > 0; i-- {
		if years[i-1] == years[i]-1 {
			return years[i], years[i-1], true
		}
	}
	return 0, 0, false
}

func yearSpan(byYear map[int]float64) (first, last int, ok bool) {
	years := sortedYears(byYear)
	if len(years) == 0 {
		return 0, 0, false
	}
	return years[0], years[len(years)-1], true
}

func sortedYears(byYear map[int]float64) []int {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
