package resolve

import (
	"sort"
	"strings"
)

// Query carries the caller's expectations when scoring candidates.
type Query struct {
	Name             string
	ExpectedCountry  string // expected jurisdiction, e.g. "US"
	ExpectedCategory string // expected entity category, e.g. CategoryBank
}

// scoreRule is one condition → weight entry in the candidate scoring
// table. Keeping the rules as data makes each independently testable and
// extension a one-line change.
type scoreRule struct {
	name   string
	weight int
	match  func(q Query, rec RegistryRecord) bool
}

var scoreRules = []scoreRule{
	{
		name:   "exact_name",
		weight: 100,
		match: func(q Query, rec RegistryRecord) bool {
			return strings.EqualFold(strings.TrimSpace(q.Name), strings.TrimSpace(rec.LegalName)) ||
				NormalizeName(q.Name) == NormalizeName(rec.LegalName)
		},
	},
	{
		name:   "expected_category",
		weight: 50,
		match: func(q Query, rec RegistryRecord) bool {
			return q.ExpectedCategory != "" && rec.Category == q.ExpectedCategory
		},
	},
	{
		name:   "country_match",
		weight: 30,
		match: func(q Query, rec RegistryRecord) bool {
			return q.ExpectedCountry != "" && strings.EqualFold(rec.Country, q.ExpectedCountry)
		},
	},
	{
		name:   "name_substring",
		weight: 20,
		match: func(q Query, rec RegistryRecord) bool {
			qn, cn := NormalizeName(q.Name), NormalizeName(rec.LegalName)
			return qn != "" && qn != cn && strings.Contains(cn, qn)
		},
	},
	{
		name:   "branch_indicator",
		weight: -40,
		match: func(q Query, rec RegistryRecord) bool {
			return looksLikeBranch(rec)
		},
	},
	{
		name:   "foreign_branch_suffix",
		weight: -30,
		match: func(q Query, rec RegistryRecord) bool {
			return hasForeignBranchSuffix(rec, q.ExpectedCountry)
		},
	},
}

// ScoreCandidate applies the rule table and returns the total score plus
// the names of the rules that fired.
func ScoreCandidate(q Query, rec RegistryRecord) (int, []string) {
	total := 0
	var fired []string
	for _, rule := range scoreRules {
		if rule.match(q, rec) {
			total += rule.weight
			fired = append(fired, rule.name)
		}
	}
	return total, fired
}

// scoredCandidate pairs a candidate with its score for selection.
type scoredCandidate struct {
	rec   RegistryRecord
	score int
	rules []string
}

// selectBest returns the highest-scoring candidate. Ties break toward the
// shortest legal name, preferring the more canonical form; equal lengths
// fall back to lexical order so selection is deterministic regardless of
// catalog order.
func selectBest(q Query, candidates []RegistryRecord) (scoredCandidate, bool) {
	if len(candidates) == 0 {
		return scoredCandidate{}, false
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, rec := range candidates {
		score, rules := ScoreCandidate(q, rec)
		scored = append(scored, scoredCandidate{rec: rec, score: score, rules: rules})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		li, lj := len(scored[i].rec.LegalName), len(scored[j].rec.LegalName)
		if li != lj {
			return li < lj
		}
		return scored[i].rec.LegalName < scored[j].rec.LegalName
	})

	return scored[0], true
}
