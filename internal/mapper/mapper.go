// Package mapper decides, per source, which entity keys are actually
// queried during fan-out. Not every source sees every entity: some are
// family-scoped, some key off names, some only cover certain
// jurisdictions.
package mapper

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/model"
)

// KeySelection is a semantic collaborator's preferred keys for one source.
type KeySelection struct {
	Keys      []string `json:"keys"`
	Rationale string   `json:"rationale,omitempty"`
}

// SemanticMapper is an optional external capability that overrides the
// deterministic scope rules per source (e.g., selecting consumer-facing
// brand names rather than every legal subsidiary name). When absent or
// failing, the default rules apply.
type SemanticMapper interface {
	ResolveEntityMapping(ctx context.Context, family *model.CorporateFamily) (map[string]KeySelection, error)
}

// Mapper builds the fan-out plan for a corporate family.
type Mapper struct {
	semantic       SemanticMapper // may be nil
	defaultTimeout time.Duration
}

// New creates a mapper. semantic may be nil. defaultTimeout backs any
// source that declares no budget of its own.
func New(semantic SemanticMapper, defaultTimeout time.Duration) *Mapper {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &Mapper{semantic: semantic, defaultTimeout: defaultTimeout}
}

// MapSources produces one SourceCall per source that has anything to
// query. Jurisdiction-filtered sources with no eligible entity are
// omitted entirely rather than called with an empty key set.
func (m *Mapper) MapSources(ctx context.Context, family *model.CorporateFamily, reg *catalog.Registry) map[string]model.SourceCall {
	overrides := m.semanticOverrides(ctx, family)

	calls := make(map[string]model.SourceCall)
	for _, src := range reg.All() {
		var keys []string
		mappedBy := "default"

		if sel, ok := overrides[src.ID()]; ok && len(sel.Keys) > 0 {
			keys = sel.Keys
			mappedBy = "semantic"
		} else {
			keys = m.defaultKeys(family, src)
		}

		if len(keys) == 0 {
			zap.L().Debug("mapper: source skipped, no eligible keys",
				zap.String("source_id", src.ID()),
				zap.String("scope", string(src.Scope())),
			)
			continue
		}

		timeout := src.Timeout()
		if timeout <= 0 {
			timeout = m.defaultTimeout
		}

		calls[src.ID()] = model.SourceCall{
			SourceID:      src.ID(),
			EntityKeys:    keys,
			Timeout:       timeout,
			MappedBy:      mappedBy,
			KeyAttributes: attributeKeys(family, keys),
		}
	}
	return calls
}

// defaultKeys applies the deterministic scope rules.
func (m *Mapper) defaultKeys(family *model.CorporateFamily, src catalog.Source) []string {
	switch src.Scope() {
	case model.ScopeFamily:
		// One representative entity; subsidiaries rarely file on their own.
		return []string{family.Representative().Name}

	case model.ScopeEntityList:
		return family.DistinctNames()

	case model.ScopeJurisdiction:
		supported := src.Jurisdictions()
		var keys []string
		seen := make(map[string]bool)
		for _, e := range family.AllEntities {
			// Entities with no recorded country are given the benefit of
			// the doubt; querying a source for an entity it cannot cover
			// is the only thing filtered here.
			if e.Country != "" && !containsFold(supported, e.Country) {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(e.Name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, e.Name)
		}
		return keys

	default:
		return nil
	}
}

func (m *Mapper) semanticOverrides(ctx context.Context, family *model.CorporateFamily) map[string]KeySelection {
	if m.semantic == nil {
		return nil
	}
	overrides, err := m.semantic.ResolveEntityMapping(ctx, family)
	if err != nil {
		zap.L().Warn("mapper: semantic mapping unavailable, using default scope rules", zap.Error(err))
		return nil
	}
	return overrides
}

// attributeKeys aligns each key with its family entity when one matches,
// so downstream attribution carries the relationship. Semantic keys with
// no family match fall back to a related-entity tag.
func attributeKeys(family *model.CorporateFamily, keys []string) []model.Entity {
	out := make([]model.Entity, len(keys))
	for i, key := range keys {
		if e, ok := family.ByKey(key); ok {
			out[i] = e
			continue
		}
		out[i] = model.Entity{Name: key, Relationship: model.RelationshipRelated}
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
