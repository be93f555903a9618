package model

import "strings"

// Relationship describes how an entity relates to the queried institution.
type Relationship string

const (
	RelationshipQueried        Relationship = "queried"
	RelationshipUltimateParent Relationship = "ultimate_parent"
	RelationshipSibling        Relationship = "sibling"
	RelationshipSubsidiary     Relationship = "subsidiary"
	RelationshipRelated        Relationship = "related"
)

// Entity is one legally distinct organization in a corporate family.
type Entity struct {
	ID           string       `json:"id,omitempty"` // strong identifier (LEI); may be empty
	Name         string       `json:"name"`
	Country      string       `json:"country,omitempty"`
	LegalForm    string       `json:"legal_form,omitempty"`
	Relationship Relationship `json:"relationship"`
}

// CorporateFamily is the queried entity plus its resolved parent, siblings,
// and subsidiaries. It is immutable after resolution and safe to share
// across concurrent fan-out calls.
type CorporateFamily struct {
	Queried        Entity   `json:"queried"`
	UltimateParent *Entity  `json:"ultimate_parent,omitempty"`
	AllEntities    []Entity `json:"all_entities"`
}

// DedupeEntities merges an entity list keeping at most one entity per
// non-empty ID. Entities without an ID are kept only if their name is not
// already present (case-insensitive). Earlier entries win, so callers
// should append in relationship-priority order.
func DedupeEntities(entities []Entity) []Entity {
	seenID := make(map[string]bool, len(entities))
	seenName := make(map[string]bool, len(entities))

	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if e.ID != "" {
			if seenID[e.ID] {
				continue
			}
			seenID[e.ID] = true
			seenName[name] = true
			out = append(out, e)
			continue
		}
		if name == "" || seenName[name] {
			continue
		}
		seenName[name] = true
		out = append(out, e)
	}
	return out
}

// DistinctNames returns the unique entity names across the family,
// preserving first-seen order. Name comparison is case-insensitive.
func (f *CorporateFamily) DistinctNames() []string {
	seen := make(map[string]bool, len(f.AllEntities))
	var names []string
	for _, e := range f.AllEntities {
		key := strings.ToLower(strings.TrimSpace(e.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, e.Name)
	}
	return names
}

// Representative returns the entity a family-scoped source should query:
// the ultimate parent when the queried entity is a subsidiary, otherwise
// the queried entity itself. Subsidiaries rarely file independently.
func (f *CorporateFamily) Representative() Entity {
	if f.UltimateParent != nil && f.Queried.ID != f.UltimateParent.ID &&
		f.Queried.Relationship != RelationshipUltimateParent {
		return *f.UltimateParent
	}
	return f.Queried
}

// ByKey returns the family entity whose ID or name matches key, if any.
func (f *CorporateFamily) ByKey(key string) (Entity, bool) {
	for _, e := range f.AllEntities {
		if e.ID != "" && e.ID == key {
			return e, true
		}
	}
	for _, e := range f.AllEntities {
		if strings.EqualFold(e.Name, key) {
			return e, true
		}
	}
	return Entity{}, false
}
