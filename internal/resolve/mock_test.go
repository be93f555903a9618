package resolve

import (
	"context"
	"errors"
)

// mockRegistry implements RegistryClient for testing.
type mockRegistry struct {
	records     map[string]RegistryRecord   // by LEI
	searches    map[string][]RegistryRecord // by query name
	parents     map[string]string           // child LEI -> parent LEI
	children    map[string][]string         // parent LEI -> child LEIs
	lookupErr   error
	searchErr   error
	parentErr   error
	childrenErr error

	searchCalls int
}

func (m *mockRegistry) Lookup(_ context.Context, lei string) (*RegistryRecord, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if rec, ok := m.records[lei]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *mockRegistry) Search(_ context.Context, name string, _ int) ([]RegistryRecord, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searches[name], nil
}

func (m *mockRegistry) UltimateParent(_ context.Context, lei string) (*RegistryRecord, error) {
	if m.parentErr != nil {
		return nil, m.parentErr
	}
	parentLEI, ok := m.parents[lei]
	if !ok {
		return nil, nil
	}
	rec := m.records[parentLEI]
	return &rec, nil
}

func (m *mockRegistry) Children(_ context.Context, lei string) ([]RegistryRecord, error) {
	if m.childrenErr != nil {
		return nil, m.childrenErr
	}
	var out []RegistryRecord
	for _, childLEI := range m.children[lei] {
		out = append(out, m.records[childLEI])
	}
	return out, nil
}

var errRegistryDown = errors.New("registry unreachable")
