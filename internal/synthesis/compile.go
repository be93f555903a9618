package synthesis

import (
	"sort"
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
)

// Compile is the Tier-2 pass: it folds all Tier-1 findings into a single
// cross-source summary with deduplicated flag lists and an overall
// data-quality tally.
func Compile(findings []model.Finding) *model.Summary {
	sorted := make([]model.Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Category < sorted[j].Category })

	summary := &model.Summary{Findings: sorted}

	for _, f := range sorted {
		summary.KeyFindings = appendUnique(summary.KeyFindings, f.KeyFindings)
		summary.RiskFlags = appendUnique(summary.RiskFlags, f.RiskFlags)
		summary.PositiveIndicators = appendUnique(summary.PositiveIndicators, f.PositiveIndicators)

		switch f.DataQuality {
		case model.QualityGood:
			summary.DataQuality.Good++
		case model.QualityPartial:
			summary.DataQuality.Partial++
		default:
			summary.DataQuality.None++
		}
	}

	return summary
}

// appendUnique appends items not already present, case-insensitively,
// preserving first-seen order.
func appendUnique(dst []string, items []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[strings.ToLower(s)] = true
	}
	for _, s := range items {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, s)
	}
	return dst
}
