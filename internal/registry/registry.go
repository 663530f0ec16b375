package registry

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/tailscale/hujson"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/paths"
	"github.com/thoreinstein/qtkit/internal/state"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

// ErrMalformed indicates a registry file that is not a JSON array.
var ErrMalformed = errors.New("malformed kit registry")

// Entry is one element of a registry.
type Entry struct {
	// Name is the entry's "name" field, empty if absent.
	Name string
	// Raw is the entry as standardized JSON, written back unchanged.
	Raw json.RawMessage
}

// Kit decodes the entry. ok is false for entries that are not kit objects.
func (e Entry) Kit() (kit.Kit, bool) {
	var k kit.Kit
	if err := json.Unmarshal(e.Raw, &k); err != nil {
		return kit.Kit{}, false
	}
	return k, true
}

// Registry is the ordered content of one registry file.
type Registry struct {
	Path    string
	Entries []Entry

	// Exists is true when the file was present on disk.
	Exists bool
	// Extended is true when the file used comments or trailing commas.
	Extended bool
}

// Load reads the registry at path. A missing file is an empty registry. A
// file that cannot be parsed yields an empty registry together with an
// error wrapping ErrMalformed, so callers can log and continue.
func Load(path string) (*Registry, error) {
	reg := &Registry{Path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return reg, nil
	}
	reg.Exists = true

	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return reg, errors.Wrapf(err, "reading kit registry %s", path)
	}

	entries, extended, err := Parse(data)
	if err != nil {
		return reg, errors.Wrapf(err, "parsing kit registry %s", path)
	}
	reg.Entries = entries
	reg.Extended = extended
	return reg, nil
}

// Parse decodes registry content. Empty content is an empty registry.
func Parse(data []byte) (entries []Entry, extended bool, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	v, err := hujson.Parse(data)
	if err != nil {
		return nil, false, errors.Mark(errors.Wrap(err, "invalid JSON"), ErrMalformed)
	}
	extended = !v.IsStandard()
	v.Standardize()

	var raws []json.RawMessage
	if err := json.Unmarshal(v.Pack(), &raws); err != nil {
		return nil, extended, errors.Mark(errors.Wrap(err, "expected an array of kits"), ErrMalformed)
	}

	entries = make([]Entry, 0, len(raws))
	for _, raw := range raws {
		entries = append(entries, newEntry(raw))
	}
	return entries, extended, nil
}

func newEntry(raw json.RawMessage) Entry {
	var named struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &named)
	return Entry{Name: named.Name, Raw: bytes.TrimSpace(raw)}
}

// Kits decodes every kit entry in order, skipping entries that are not kits.
func (r *Registry) Kits() []kit.Kit {
	kits := make([]kit.Kit, 0, len(r.Entries))
	for _, e := range r.Entries {
		if k, ok := e.Kit(); ok {
			kits = append(kits, k)
		}
	}
	return kits
}

// ToolsetKits returns the kits not generated by qtkit: the compiler kits
// CMake Tools detected or the user wrote, used as MSVC matching input.
func (r *Registry) ToolsetKits() []kit.Kit {
	var out []kit.Kit
	for _, k := range r.Kits() {
		if !kit.IsGenerated(k) {
			out = append(out, k)
		}
	}
	return out
}

// Names returns the entry names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Name)
	}
	return names
}

// Append adds kits at the end.
func (r *Registry) Append(kits ...kit.Kit) error {
	for _, k := range kits {
		raw, err := fileutil.MarshalJSONIndent(k)
		if err != nil {
			return errors.Wrapf(err, "encoding kit %q", k.Name)
		}
		r.Entries = append(r.Entries, Entry{Name: k.Name, Raw: bytes.TrimSpace(raw)})
	}
	return nil
}

// Without returns a copy of r minus the entries whose names are in drop,
// together with the names that were removed.
func (r *Registry) Without(drop map[string]bool) (*Registry, []string) {
	out := &Registry{Path: r.Path, Exists: r.Exists, Extended: r.Extended}
	var removed []string
	for _, e := range r.Entries {
		if drop[e.Name] {
			removed = append(removed, e.Name)
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out, removed
}

// Marshal renders the registry as a two-space indented JSON array with a
// trailing newline.
func (r *Registry) Marshal() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(r.Entries))
	for _, e := range r.Entries {
		raws = append(raws, e.Raw)
	}
	return fileutil.MarshalJSONIndent(raws)
}

// Save writes the registry atomically, creating parent directories.
func (r *Registry) Save() error {
	data, err := r.Marshal()
	if err != nil {
		return errors.Wrap(err, "encoding kit registry")
	}
	if err := fileutil.AtomicWriteFileMkdir(r.Path, data, 0o644); err != nil {
		return errors.Mark(errors.Wrapf(err, "writing %s", r.Path), errors.ErrRegistryWrite)
	}
	r.Exists = true
	return nil
}

// GlobalPath is the per-user registry CMake Tools reads.
func GlobalPath() string {
	return paths.GlobalKitsPath()
}

// WorkspacePath is the registry of a workspace folder.
func WorkspacePath(folder string) string {
	return paths.WorkspaceKitsPath(folder)
}

// PathFor returns the registry path of scope. globalOverride replaces
// GlobalPath when set.
func PathFor(scope state.Scope, globalOverride string) string {
	if !scope.IsGlobal() {
		return WorkspacePath(scope.Folder)
	}
	if globalOverride != "" {
		return globalOverride
	}
	return GlobalPath()
}
