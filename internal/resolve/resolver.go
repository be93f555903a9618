package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
)

// Resolver builds corporate families from the LEI registry.
type Resolver struct {
	registry      RegistryClient
	maxCandidates int
}

// NewResolver creates a resolver. maxCandidates bounds the registry
// search; values <= 0 default to 10.
func NewResolver(registry RegistryClient, maxCandidates int) *Resolver {
	if maxCandidates <= 0 {
		maxCandidates = 10
	}
	return &Resolver{registry: registry, maxCandidates: maxCandidates}
}

// Resolve determines the corporate family for an institution. A missing
// candidate is not an error: the resolver returns a synthetic
// single-entity family and downstream stages tolerate it. The only error
// path is the registry itself being unreachable.
func (r *Resolver) Resolve(ctx context.Context, q Query, strongID string) (*model.CorporateFamily, error) {
	log := zap.L().With(zap.String("name", q.Name), zap.String("strong_id", strongID))

	selected, err := r.selectEntity(ctx, q, strongID)
	if err != nil {
		return nil, err
	}
	if selected == nil {
		log.Info("resolve: no candidate found, using synthetic family")
		queried := model.Entity{Name: q.Name, Country: q.ExpectedCountry, Relationship: model.RelationshipQueried}
		return &model.CorporateFamily{
			Queried:     queried,
			AllEntities: []model.Entity{queried},
		}, nil
	}

	queried := toEntity(*selected, model.RelationshipQueried)
	family := &model.CorporateFamily{Queried: queried}
	entities := []model.Entity{queried}

	// Hierarchy expansion is best-effort: a failing relationship endpoint
	// degrades the family rather than failing the resolve.
	parent := r.lookupParent(ctx, selected.LEI)
	if parent != nil && parent.LEI != selected.LEI {
		pe := toEntity(*parent, model.RelationshipUltimateParent)
		family.UltimateParent = &pe
		entities = append(entities, pe)
	}

	for _, child := range r.lookupChildren(ctx, selected.LEI) {
		entities = append(entities, toEntity(child, model.RelationshipSubsidiary))
	}

	if family.UltimateParent != nil {
		for _, sibling := range r.lookupChildren(ctx, family.UltimateParent.ID) {
			if sibling.LEI == selected.LEI {
				continue
			}
			entities = append(entities, toEntity(sibling, model.RelationshipSibling))
		}
	}

	family.AllEntities = model.DedupeEntities(entities)

	log.Info("resolve: family resolved",
		zap.String("lei", selected.LEI),
		zap.Int("entities", len(family.AllEntities)),
		zap.Bool("has_parent", family.UltimateParent != nil),
	)
	return family, nil
}

// selectEntity picks the canonical record, by strong identifier when
// present, otherwise by scored name search. Returns nil when nothing
// matched.
func (r *Resolver) selectEntity(ctx context.Context, q Query, strongID string) (*RegistryRecord, error) {
	if strongID != "" {
		rec, err := r.registry.Lookup(ctx, strongID)
		if err != nil {
			return nil, eris.Wrapf(err, "resolve: lookup %s", strongID)
		}
		if rec != nil {
			return rec, nil
		}
		zap.L().Warn("resolve: strong identifier unknown, falling back to name search",
			zap.String("strong_id", strongID))
	}

	candidates, err := r.registry.Search(ctx, q.Name, r.maxCandidates)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: search %q", q.Name)
	}

	best, ok := selectBest(q, candidates)
	if !ok {
		return nil, nil
	}

	zap.L().Debug("resolve: candidate selected",
		zap.String("lei", best.rec.LEI),
		zap.String("legal_name", best.rec.LegalName),
		zap.Int("score", best.score),
		zap.Strings("rules", best.rules),
	)
	return &best.rec, nil
}

func (r *Resolver) lookupParent(ctx context.Context, lei string) *RegistryRecord {
	parent, err := r.registry.UltimateParent(ctx, lei)
	if err != nil {
		zap.L().Warn("resolve: ultimate parent lookup failed", zap.String("lei", lei), zap.Error(err))
		return nil
	}
	return parent
}

func (r *Resolver) lookupChildren(ctx context.Context, lei string) []RegistryRecord {
	children, err := r.registry.Children(ctx, lei)
	if err != nil {
		zap.L().Warn("resolve: children lookup failed", zap.String("lei", lei), zap.Error(err))
		return nil
	}
	return children
}

func toEntity(rec RegistryRecord, rel model.Relationship) model.Entity {
	return model.Entity{
		ID:           rec.LEI,
		Name:         rec.LegalName,
		Country:      rec.Country,
		LegalForm:    rec.LegalForm,
		Relationship: rel,
	}
}
