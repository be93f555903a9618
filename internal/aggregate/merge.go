// Package aggregate merges per-call source results into unified
// cross-entity, cross-year records with per-entity attribution. The merge
// is commutative and associative over year keys and count metrics, so
// completion order never affects the result.
package aggregate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resolve"
)

// Merger combines source results per data category.
type Merger struct {
	derived map[string][]DerivedMetric
}

// NewMerger creates a merger with the default derived-metric table.
func NewMerger() *Merger {
	return &Merger{derived: defaultDerived}
}

// WithDerived replaces the derived-metric table. Used by tests.
func (m *Merger) WithDerived(derived map[string][]DerivedMetric) *Merger {
	m.derived = derived
	return m
}

// Merge produces one AggregatedRecord per catalog category. Failed,
// timed-out, and empty results are excluded from arithmetic but listed in
// the record's SkippedSources; a category left with no data still gets a
// record so downstream analysis can report the absence.
//
// Sources are visited in catalog registration order and payloads in
// attribution order, so the output is deterministic regardless of the
// completion order baked into the results map.
func (m *Merger) Merge(results map[string]model.SourceResult, reg *catalog.Registry) map[string]*model.AggregatedRecord {
	records := make(map[string]*model.AggregatedRecord)

	for _, category := range reg.Categories() {
		rec := &model.AggregatedRecord{
			Category: category,
			ByYear:   make(map[int]float64),
			ByEntity: make(map[string]model.EntityPayload),
			Totals:   make(map[string]float64),
		}

		// Canonical keys already merged in this category. Two subsidiary
		// names resolving to the same provider-side legal entity must not
		// double-count.
		mergedCanonical := make(map[string]bool)

		for _, src := range reg.ByCategory(category) {
			result, ok := results[src.ID()]
			if !ok {
				continue // mapper never issued the call
			}

			if result.Status != model.StatusOK {
				rec.SkippedSources = append(rec.SkippedSources, model.SkippedSource{
					SourceID: src.ID(),
					Status:   result.Status,
					Detail:   result.ErrorDetail,
				})
				continue
			}

			rec.Sources = append(rec.Sources, src.ID())

			for _, ep := range result.Attribution {
				if key := resolve.NormalizeName(ep.Payload.CanonicalName); key != "" {
					if mergedCanonical[key] {
						zap.L().Debug("merge: duplicate canonical record skipped",
							zap.String("category", category),
							zap.String("source_id", src.ID()),
							zap.String("canonical", ep.Payload.CanonicalName),
							zap.String("entity", ep.EntityName),
						)
						continue
					}
					mergedCanonical[key] = true
				}
				m.mergePayload(rec, src.ID(), ep)
			}
		}

		m.computeDerived(rec)
		records[category] = rec
	}

	return records
}

// mergePayload folds one entity payload into the record. Year counts and
// simple metrics add; the pre-merge payload is kept under ByEntity for
// provenance and drill-down.
func (m *Merger) mergePayload(rec *model.AggregatedRecord, sourceID string, ep model.EntityPayload) {
	derivedNames := m.derivedNames(rec.Category)

	for year, count := range ep.Payload.ByYear {
		rec.ByYear[year] += count
	}

	if len(ep.Payload.ByYear) > 0 {
		yearTotal := 0.0
		for _, count := range ep.Payload.ByYear {
			yearTotal += count
		}
		rec.Totals["count"] += yearTotal
	}

	for metric, value := range ep.Payload.Metrics {
		// "count" is reserved: it is always derived from ByYear above.
		if metric == "count" {
			continue
		}
		// Refuse pre-computed ratios from adapters; derived metrics are
		// recomputed from merged numerators and denominators only.
		if derivedNames[metric] {
			zap.L().Warn("merge: adapter sent a derived metric, ignoring",
				zap.String("category", rec.Category),
				zap.String("source_id", sourceID),
				zap.String("metric", metric),
			)
			continue
		}
		rec.Totals[metric] += value
	}

	rec.ByEntity[entityKey(rec, ep, sourceID)] = ep
}

// entityKey keys ByEntity by entity ID (falling back to name). When one
// entity is attributed by several sources in the same category, later
// entries are qualified by source so no attribution is lost.
func entityKey(rec *model.AggregatedRecord, ep model.EntityPayload, sourceID string) string {
	key := ep.EntityID
	if key == "" {
		key = ep.EntityName
	}
	if _, taken := rec.ByEntity[key]; taken {
		key = key + "|" + sourceID
	}
	return key
}

func (m *Merger) derivedNames(category string) map[string]bool {
	names := make(map[string]bool)
	for _, d := range m.derived[category] {
		names[d.Name] = true
	}
	return names
}

// computeDerived recomputes ratios from merged totals. A zero denominator
// records 0 and flags the metric undefined rather than raising a
// division error.
func (m *Merger) computeDerived(rec *model.AggregatedRecord) {
	for _, d := range m.derived[rec.Category] {
		den := rec.Totals[d.Denominator]
		if den == 0 {
			if _, hasNum := rec.Totals[d.Numerator]; !hasNum && !rec.HasData() {
				continue // nothing merged at all, leave the record bare
			}
			rec.Totals[d.Name] = 0
			rec.Undefined = append(rec.Undefined, d.Name)
			continue
		}
		ratio := rec.Totals[d.Numerator] / den
		if d.AsPercent {
			ratio *= 100
		}
		rec.Totals[d.Name] = ratio
	}
	sort.Strings(rec.Undefined)
}
