// Package catalog defines the source catalog: what sources exist, what
// category they feed, how they are scoped, and their timeout budgets.
package catalog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
)

// Data categories fed by the catalog sources. One category may draw from
// several sources.
const (
	CategoryNews       = "news"
	CategoryComplaints = "complaints"
	CategoryFilings    = "filings"
	CategoryLitigation = "litigation"
)

// Source is one external data provider. Implementations convert their
// wire format into model.Payload at this boundary; nothing dynamic
// crosses into the aggregator.
type Source interface {
	// ID returns the unique source identifier (e.g., "news_rss", "cfpb").
	ID() string

	// Category returns the data category this source feeds.
	Category() string

	// Scope returns how the mapper selects entity keys for this source.
	Scope() model.SourceScope

	// Timeout returns this source's per-call budget. Slow sources (full
	// document retrieval) declare a longer budget here rather than at
	// call sites.
	Timeout() time.Duration

	// Jurisdictions returns the supported country codes for
	// jurisdiction-filtered sources. Empty means unrestricted.
	Jurisdictions() []string

	// Fetch retrieves data for one entity key. It must respect ctx
	// cancellation and return promptly when the deadline expires.
	Fetch(ctx context.Context, entityKey string) (*model.Payload, error)
}

// Registry maps source IDs to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	id := s.ID()
	if _, exists := r.sources[id]; !exists {
		r.order = append(r.order, id)
	}
	r.sources[id] = s
}

// Get returns a source by ID.
func (r *Registry) Get(id string) (Source, error) {
	s, ok := r.sources[id]
	if !ok {
		return nil, eris.Errorf("catalog: unknown source %q", id)
	}
	return s, nil
}

// All returns all sources in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out
}

// ByCategory returns all sources feeding the given category, in
// registration order.
func (r *Registry) ByCategory(category string) []Source {
	var out []Source
	for _, id := range r.order {
		if r.sources[id].Category() == category {
			out = append(out, r.sources[id])
		}
	}
	return out
}

// Categories returns the distinct categories across all registered
// sources, in first-seen order.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.order {
		c := r.sources[id].Category()
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// AllIDs returns all registered source IDs in registration order.
func (r *Registry) AllIDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
