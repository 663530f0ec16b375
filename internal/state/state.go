package state

import (
	"context"
	"slices"
	"strings"

	"github.com/thoreinstein/qtkit/internal/errors"
)

// Scope is the namespace a registry and its state belong to: the global
// registry or one workspace folder.
type Scope struct {
	// Folder is the workspace folder. Empty means the global scope.
	Folder string
}

// Global is the scope of the per-user kit registry.
var Global = Scope{}

// Workspace returns the scope of a workspace folder.
func Workspace(folder string) Scope {
	return Scope{Folder: folder}
}

// IsGlobal reports whether s is the global scope.
func (s Scope) IsGlobal() bool {
	return s.Folder == ""
}

const (
	globalKey       = "global"
	workspacePrefix = "workspace:"
)

// Key returns the storage key of s.
func (s Scope) Key() string {
	if s.IsGlobal() {
		return globalKey
	}
	return workspacePrefix + s.Folder
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	if s.IsGlobal() {
		return globalKey
	}
	return s.Folder
}

// ParseScopeKey is the inverse of Scope.Key.
func ParseScopeKey(key string) (Scope, error) {
	if key == globalKey {
		return Global, nil
	}
	if folder, ok := strings.CutPrefix(key, workspacePrefix); ok && folder != "" {
		return Workspace(folder), nil
	}
	return Scope{}, errors.Newf("invalid scope key %q", key)
}

// Source distinguishes the two independent generators that write into one
// registry: installations found under a root and installations registered
// by qtpaths.
type Source string

// Kit sources.
const (
	SourceInstallations Source = "installations"
	SourceQtPaths       Source = "qtpaths"
)

// Sources lists every kit source.
func Sources() []Source {
	return []Source{SourceInstallations, SourceQtPaths}
}

// ScopedState is what is remembered for one scope and source.
type ScopedState struct {
	LastGeneratedKitNames []string `json:"lastGeneratedKitNames"`
}

// NewScopedState returns a state for names with duplicates removed.
func NewScopedState(names []string) ScopedState {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return ScopedState{LastGeneratedKitNames: out}
}

// Contains reports whether name was generated last time.
func (s ScopedState) Contains(name string) bool {
	return slices.Contains(s.LastGeneratedKitNames, name)
}

// NameSet returns the names as a set.
func (s ScopedState) NameSet() map[string]bool {
	set := make(map[string]bool, len(s.LastGeneratedKitNames))
	for _, n := range s.LastGeneratedKitNames {
		set[n] = true
	}
	return set
}

// Store persists ScopedState records. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the state for scope and source. A missing record is an
	// empty state, not an error.
	Get(ctx context.Context, scope Scope, source Source) (ScopedState, error)

	// Set replaces the state for scope and source.
	Set(ctx context.Context, scope Scope, source Source, st ScopedState) error

	// Reset forgets every source of scope.
	Reset(ctx context.Context, scope Scope) error

	// Scopes lists the scopes that have state, global first.
	Scopes(ctx context.Context) ([]Scope, error)

	// Close releases the backend.
	Close() error
}

// sortScopes orders scopes global first, then by folder.
func sortScopes(scopes []Scope) {
	slices.SortFunc(scopes, func(a, b Scope) int {
		switch {
		case a.IsGlobal() && !b.IsGlobal():
			return -1
		case !a.IsGlobal() && b.IsGlobal():
			return 1
		}
		return strings.Compare(a.Folder, b.Folder)
	})
}
