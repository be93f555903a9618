package model

// SkippedSource records one source excluded from arithmetic aggregation.
type SkippedSource struct {
	SourceID string       `json:"source_id"`
	Status   SourceStatus `json:"status"`
	Detail   string       `json:"detail,omitempty"`
}

// AggregatedRecord merges all successful payloads for one data category.
// Invariant: Totals[metric] equals the sum of the same metric across
// ByEntity for every simple-count metric; derived ratios are recomputed
// from merged numerators and denominators, never summed.
type AggregatedRecord struct {
	Category string `json:"category"`

	// Sources lists the source IDs that contributed merged data, in
	// catalog order.
	Sources []string `json:"sources,omitempty"`

	ByYear   map[int]float64          `json:"by_year,omitempty"`
	ByEntity map[string]EntityPayload `json:"by_entity,omitempty"` // keyed by entity id, falling back to name
	Totals   map[string]float64       `json:"totals,omitempty"`

	// Undefined lists derived metrics whose denominator merged to zero;
	// their Totals value is recorded as 0 rather than raising a division
	// error.
	Undefined []string `json:"undefined,omitempty"`

	SkippedSources []SkippedSource `json:"skipped_sources,omitempty"`
}

// HasData reports whether any arithmetic data survived the merge.
func (r *AggregatedRecord) HasData() bool {
	return r != nil && (len(r.ByYear) > 0 || len(r.ByEntity) > 0)
}
