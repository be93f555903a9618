package aggregate

import "github.com/sells-group/profile-cli/internal/catalog"

// DerivedMetric declares a ratio recomputed from merged numerator and
// denominator totals after all additive merging completes. Pre-computed
// per-entity rates are never averaged: a 50% rate on 2 records must not
// weigh the same as a 50% rate on 200,000.
type DerivedMetric struct {
	Name        string
	Numerator   string
	Denominator string
	AsPercent   bool
}

// defaultDerived maps each category to its derived metrics.
var defaultDerived = map[string][]DerivedMetric{
	catalog.CategoryComplaints: {
		{Name: "dispute_rate_pct", Numerator: "disputed", Denominator: "complaints", AsPercent: true},
		{Name: "timely_response_rate_pct", Numerator: "timely_responses", Denominator: "complaints", AsPercent: true},
	},
	catalog.CategoryLitigation: {
		{Name: "open_case_rate_pct", Numerator: "open_cases", Denominator: "cases", AsPercent: true},
	},
}
