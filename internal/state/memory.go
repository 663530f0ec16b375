package state

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Scope]map[Source]ScopedState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Scope]map[Source]ScopedState)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, scope Scope, source Source) (ScopedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.records[scope][source]
	return ScopedState{LastGeneratedKitNames: slices.Clone(st.LastGeneratedKitNames)}, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, scope Scope, source Source, st ScopedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[scope] == nil {
		m.records[scope] = make(map[Source]ScopedState)
	}
	m.records[scope][source] = ScopedState{LastGeneratedKitNames: slices.Clone(st.LastGeneratedKitNames)}
	return nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(_ context.Context, scope Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, scope)
	return nil
}

// Scopes implements Store.
func (m *MemoryStore) Scopes(context.Context) ([]Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scopes := make([]Scope, 0, len(m.records))
	for s := range m.records {
		scopes = append(scopes, s)
	}
	sortScopes(scopes)
	return scopes, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
