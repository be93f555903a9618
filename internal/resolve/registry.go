// Package resolve determines the corporate family of a queried
// institution: the entity itself, its ultimate parent, siblings, and
// subsidiaries, as a canonical deduplicated entity list.
package resolve

import "context"

// Entity categories reported by the LEI registry.
const (
	CategoryBank    = "BANK"
	CategoryBranch  = "BRANCH"
	CategoryFund    = "FUND"
	CategoryGeneral = "GENERAL"
)

// RegistryRecord is one canonical record from the LEI registry.
type RegistryRecord struct {
	LEI       string `json:"lei"`
	LegalName string `json:"legal_name"`
	Country   string `json:"country"`
	LegalForm string `json:"legal_form,omitempty"`
	Category  string `json:"category,omitempty"` // BANK, BRANCH, FUND, GENERAL
	Status    string `json:"status,omitempty"`
}

// RegistryClient is the identity provider the resolver queries. Backed by
// pkg/gleif in production and by mocks in tests.
type RegistryClient interface {
	// Lookup fetches the canonical record for a strong identifier.
	// Returns nil without error when the identifier is unknown.
	Lookup(ctx context.Context, lei string) (*RegistryRecord, error)

	// Search returns up to limit candidate records matching a name.
	Search(ctx context.Context, name string, limit int) ([]RegistryRecord, error)

	// UltimateParent returns the ultimate parent record, or nil when the
	// entity reports no parent.
	UltimateParent(ctx context.Context, lei string) (*RegistryRecord, error)

	// Children returns the direct subsidiaries of an entity.
	Children(ctx context.Context, lei string) ([]RegistryRecord, error)
}
