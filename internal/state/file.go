package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/paths"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

// fileVersion is the schema version of the state document.
const fileVersion = 1

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Version int                               `json:"version"`
	Scopes  map[string]map[Source]ScopedState `json:"scopes"`
}

// FileStore keeps state in a JSON document. Every operation reads the file,
// so several qtkit processes see each other's writes.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore backed by path. The file is created on
// the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() (*fileDocument, error) {
	doc := &fileDocument{Version: fileVersion, Scopes: make(map[string]map[Source]ScopedState)}

	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return doc, nil
	}
	data, err := fileutil.ReadFileWithLimit(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading state file %s", f.path)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "parsing state file %s", f.path)
	}
	if doc.Scopes == nil {
		doc.Scopes = make(map[string]map[Source]ScopedState)
	}
	return doc, nil
}

func (f *FileStore) save(doc *fileDocument) error {
	if err := paths.EnsureDir(filepath.Dir(f.path), paths.DefaultDirPerm); err != nil {
		return errors.Wrap(err, "creating state directory")
	}
	doc.Version = fileVersion
	return errors.Wrapf(fileutil.AtomicWriteJSON(f.path, doc), "writing state file %s", f.path)
}

// Get implements Store.
func (f *FileStore) Get(_ context.Context, scope Scope, source Source) (ScopedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return ScopedState{}, err
	}
	return doc.Scopes[scope.Key()][source], nil
}

// Set implements Store.
func (f *FileStore) Set(_ context.Context, scope Scope, source Source, st ScopedState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	key := scope.Key()
	if doc.Scopes[key] == nil {
		doc.Scopes[key] = make(map[Source]ScopedState)
	}
	if st.LastGeneratedKitNames == nil {
		st.LastGeneratedKitNames = []string{}
	}
	doc.Scopes[key][source] = st
	return f.save(doc)
}

// Reset implements Store.
func (f *FileStore) Reset(_ context.Context, scope Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Scopes[scope.Key()]; !ok {
		return nil
	}
	delete(doc.Scopes, scope.Key())
	return f.save(doc)
}

// Scopes implements Store.
func (f *FileStore) Scopes(context.Context) ([]Scope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	scopes := make([]Scope, 0, len(doc.Scopes))
	for key := range doc.Scopes {
		s, err := ParseScopeKey(key)
		if err != nil {
			continue
		}
		scopes = append(scopes, s)
	}
	sortScopes(scopes)
	return scopes, nil
}

// Close implements Store.
func (f *FileStore) Close() error {
	return nil
}
