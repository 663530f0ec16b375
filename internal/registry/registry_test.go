package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
	"github.com/thoreinstein/qtkit/internal/state"
)

func genKit(name string) kit.Kit {
	return kit.Kit{
		Name:                 name,
		Generator:            &kit.Generator{Name: "Ninja"},
		EnvironmentVariables: map[string]string{kit.EnvInstallation: "/opt/Qt/6.5.0/" + name},
		IsTrusted:            true,
	}
}

func newReconciler(t *testing.T, opts ...Option) (*Reconciler, state.Store) {
	t.Helper()
	store := state.NewMemoryStore()
	opts = append([]Option{WithLogger(logging.NewDiscard())}, opts...)
	return NewReconciler(store, opts...), store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func loadNames(t *testing.T, path string) []string {
	t.Helper()
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}
	return reg.Names()
}

func wantNames(t *testing.T, path string, want ...string) {
	t.Helper()
	if got := loadNames(t, path); !slices.Equal(got, want) {
		t.Errorf("registry names = %v, want %v", got, want)
	}
}

// sameJSON reports whether a and b decode to equal values.
func sameJSON(t *testing.T, a, b string) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal([]byte(a), &va); err != nil {
		t.Fatalf("decode %s: %v", a, err)
	}
	if err := json.Unmarshal([]byte(b), &vb); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return reflect.DeepEqual(va, vb)
}

func run(t *testing.T, r *Reconciler, scope state.Scope, source state.Source, path string, kits ...kit.Kit) *Event {
	t.Helper()
	ev, err := r.Run(t.Context(), scope, source, path, kits)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return ev
}

func TestParse(t *testing.T) {
	entries, extended, err := Parse([]byte(`[
  // detected by CMake Tools
  {"name": "GCC 12", "compilers": {"C": "/usr/bin/gcc"}},
  {"name": "Clang", "extra": [1, 2, 3],},
]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !extended {
		t.Error("Parse() should report the extended syntax")
	}
	if len(entries) != 2 {
		t.Fatalf("Parse() returned %d entries, want 2", len(entries))
	}
	if entries[0].Name != "GCC 12" {
		t.Errorf("entries[0].Name = %q, want GCC 12", entries[0].Name)
	}
	if !sameJSON(t, `{"name": "Clang", "extra": [1, 2, 3]}`, string(entries[1].Raw)) {
		t.Errorf("entries[1].Raw = %s", entries[1].Raw)
	}

	k, ok := entries[0].Kit()
	if !ok {
		t.Fatal("entries[0].Kit() failed")
	}
	if got := k.Compilers["C"]; got != "/usr/bin/gcc" {
		t.Errorf("Compilers[C] = %q, want /usr/bin/gcc", got)
	}
}

func TestParse_Errors(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":     `[{"name": }`,
		"not array":  `{"name": "x"}`,
		"unbalanced": `[`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, _, err := Parse([]byte(content)); !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformed", content, err)
			}
		})
	}

	entries, _, err := Parse([]byte("  \n"))
	if err != nil || len(entries) != 0 {
		t.Errorf("Parse(blank) = %v, %v, want no entries", entries, err)
	}
}

func TestLoad_Missing(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Exists {
		t.Error("Exists = true for a missing file")
	}
	if len(reg.Entries) != 0 {
		t.Errorf("Entries = %v, want none", reg.Entries)
	}
}

func TestToolsetKits(t *testing.T) {
	reg := &Registry{}
	if err := reg.Append(genKit("Qt-6.5.0-macos"), kit.Kit{Name: "Visual Studio 2019 Release - amd64"}); err != nil {
		t.Fatal(err)
	}
	if got, want := kit.Names(reg.ToolsetKits()), []string{"Visual Studio 2019 Release - amd64"}; !slices.Equal(got, want) {
		t.Errorf("ToolsetKits() = %v, want %v", got, want)
	}
	if n := len(reg.Kits()); n != 2 {
		t.Errorf("len(Kits()) = %d, want 2", n)
	}
}

func TestMarshal_Format(t *testing.T) {
	reg := &Registry{}
	if err := reg.Append(kit.Kit{Name: "a&b", IsTrusted: true}); err != nil {
		t.Fatal(err)
	}
	data, err := reg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := "[\n  {\n    \"name\": \"a&b\",\n    \"isTrusted\": true\n  }\n]\n"; string(data) != want {
		t.Errorf("Marshal() = %q, want %q", data, want)
	}
}

func TestPathFor(t *testing.T) {
	tests := []struct {
		scope    state.Scope
		override string
		want     string
	}{
		{state.Global, "", GlobalPath()},
		{state.Global, "/custom.json", "/custom.json"},
		{state.Workspace("/w"), "/custom.json", filepath.Join("/w", ".vscode", "cmake-kits.json")},
	}
	for _, tt := range tests {
		if got := PathFor(tt.scope, tt.override); got != tt.want {
			t.Errorf("PathFor(%v, %q) = %q, want %q", tt.scope, tt.override, got, tt.want)
		}
	}
}

func TestReconcile_ExternalEntryOrder(t *testing.T) {
	ctx := t.Context()
	r, store := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")

	// registry {A, B, D}, D authored outside qtkit, previous generation {A, B}
	writeFile(t, path, `[
  {"name": "A"},
  {"name": "B"},
  {"zeta": 1, "name": "D", "alpha": {"nested": true}}
]`)
	if err := store.Set(ctx, state.Global, state.SourceInstallations, state.NewScopedState([]string{"A", "B"})); err != nil {
		t.Fatal(err)
	}

	ev := run(t, r, state.Global, state.SourceInstallations, path, genKit("B"), genKit("C"))

	wantNames(t, path, "D", "B", "C")
	if want := []string{"A", "B"}; !slices.Equal(ev.Removed, want) {
		t.Errorf("Removed = %v, want %v", ev.Removed, want)
	}
	if want := []string{"B", "C"}; !slices.Equal(ev.Names, want) {
		t.Errorf("Names = %v, want %v", ev.Names, want)
	}
	if !ev.Written {
		t.Error("Written = false, want true")
	}

	st, err := store.Get(ctx, state.Global, state.SourceInstallations)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"B", "C"}; !slices.Equal(st.LastGeneratedKitNames, want) {
		t.Errorf("LastGeneratedKitNames = %v, want %v", st.LastGeneratedKitNames, want)
	}

	// D keeps its own key order and fields
	if data := readFile(t, path); !strings.Contains(data, "\"zeta\": 1,\n    \"name\": \"D\",\n    \"alpha\": {\n      \"nested\": true\n    }") {
		t.Errorf("external entry was reformatted:\n%s", data)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")
	writeFile(t, path, `[{"name": "GCC 12"}]`)
	kits := []kit.Kit{genKit("Qt-6.5.0-macos"), genKit("Qt-6.5.0-ios")}

	run(t, r, state.Global, state.SourceInstallations, path, kits...)
	first := readFile(t, path)
	run(t, r, state.Global, state.SourceInstallations, path, kits...)
	second := readFile(t, path)

	if first != second {
		t.Errorf("second run changed the registry:\n%s\nvs\n%s", first, second)
	}
	wantNames(t, path, "GCC 12", "Qt-6.5.0-macos", "Qt-6.5.0-ios")
}

func TestReconcile_NonDestructive(t *testing.T) {
	ctx := t.Context()
	external := `{"name": "Qt-6.5.0-macos", "note": "hand written"}`
	batches := [][]kit.Kit{
		nil,
		{genKit("X")},
		{genKit("Qt-6.5.0-macos")},
	}
	for i, kits := range batches {
		r, store := newReconciler(t)
		path := filepath.Join(t.TempDir(), "cmake-kits.json")
		writeFile(t, path, "["+external+"]")
		// previous generation never contained the external name
		if err := store.Set(ctx, state.Global, state.SourceInstallations, state.NewScopedState([]string{"Y"})); err != nil {
			t.Fatal(err)
		}

		if _, err := r.Run(ctx, state.Global, state.SourceInstallations, path, kits); err != nil {
			t.Fatalf("batch %d: Run() error = %v", i, err)
		}

		reg, err := Load(path)
		if err != nil {
			t.Fatalf("batch %d: Load() error = %v", i, err)
		}
		if len(reg.Entries) == 0 {
			t.Fatalf("batch %d: registry is empty", i)
		}
		if !sameJSON(t, external, string(reg.Entries[0].Raw)) {
			t.Errorf("batch %d: first entry = %s, want %s", i, reg.Entries[0].Raw, external)
		}
	}
}

func TestReconcile_Replacement(t *testing.T) {
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")

	run(t, r, state.Global, state.SourceInstallations, path, genKit("X"), genKit("Y"))

	// X replaced not duplicated, Y removed
	changed := genKit("X")
	changed.ToolchainFile = "/new/toolchain.cmake"
	run(t, r, state.Global, state.SourceInstallations, path, changed)

	reg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reg.Names(); !slices.Equal(got, []string{"X"}) {
		t.Fatalf("registry names = %v, want [X]", got)
	}
	k, ok := reg.Entries[0].Kit()
	if !ok {
		t.Fatal("entry X does not decode as a kit")
	}
	if k.ToolchainFile != "/new/toolchain.cmake" {
		t.Errorf("ToolchainFile = %q, want /new/toolchain.cmake", k.ToolchainFile)
	}

	// pure removal still rewrites the existing file
	if ev := run(t, r, state.Global, state.SourceInstallations, path); !ev.Written {
		t.Error("Written = false after removing every kit")
	}
	wantNames(t, path)
	if data := readFile(t, path); data != "[]\n" {
		t.Errorf("registry = %q, want %q", data, "[]\n")
	}
}

func TestReconcile_EmptyWithoutFileIsNoop(t *testing.T) {
	r, store := newReconciler(t)
	path := filepath.Join(t.TempDir(), ".vscode", "cmake-kits.json")

	if ev := run(t, r, state.Workspace("/w"), state.SourceInstallations, path); ev.Written {
		t.Error("Written = true for an empty generation without a registry")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat(%q) error = %v, want not exist", path, err)
	}

	scopes, err := store.Scopes(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if want := []state.Scope{state.Workspace("/w")}; !slices.Equal(scopes, want) {
		t.Errorf("Scopes() = %v, want %v", scopes, want)
	}
}

func TestReconcile_CreatesParentDirectory(t *testing.T) {
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "ws", ".vscode", "cmake-kits.json")

	run(t, r, state.Workspace("/ws"), state.SourceInstallations, path, genKit("A"))
	wantNames(t, path, "A")
}

func TestReconcile_MalformedRegistrySelfHeals(t *testing.T) {
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")
	writeFile(t, path, "{ definitely not kits")

	if ev := run(t, r, state.Global, state.SourceInstallations, path, genKit("A")); !ev.Written {
		t.Error("Written = false over a malformed registry")
	}
	wantNames(t, path, "A")
}

func TestReconcile_CommentsAccepted(t *testing.T) {
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")
	writeFile(t, path, "[\n  // mine\n  {\"name\": \"Mine\"},\n]\n")

	run(t, r, state.Global, state.SourceInstallations, path, genKit("A"))
	wantNames(t, path, "Mine", "A")
}

func TestReconcile_WriteFailureKeepsState(t *testing.T) {
	ctx := t.Context()
	r, store := newReconciler(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	writeFile(t, blocker, "x")
	path := filepath.Join(blocker, "cmake-kits.json")

	if err := store.Set(ctx, state.Global, state.SourceInstallations, state.NewScopedState([]string{"old"})); err != nil {
		t.Fatal(err)
	}

	var events int
	r.Subscribe(func(Event) { events++ })

	_, err := r.Run(ctx, state.Global, state.SourceInstallations, path, []kit.Kit{genKit("new")})
	if !errors.Is(err, errors.ErrRegistryWrite) {
		t.Fatalf("Run() error = %v, want ErrRegistryWrite", err)
	}
	if events != 0 {
		t.Errorf("observers saw %d events, want 0", events)
	}

	st, err := store.Get(ctx, state.Global, state.SourceInstallations)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"old"}; !slices.Equal(st.LastGeneratedKitNames, want) {
		t.Errorf("LastGeneratedKitNames = %v, want %v", st.LastGeneratedKitNames, want)
	}
}

func TestReconcile_SourcesAreIndependent(t *testing.T) {
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")

	run(t, r, state.Global, state.SourceInstallations, path, genKit("I"))
	run(t, r, state.Global, state.SourceQtPaths, path, genKit("Q"))
	run(t, r, state.Global, state.SourceInstallations, path, genKit("I2"))

	wantNames(t, path, "Q", "I2")
}

func TestReconcile_StalePassDiscarded(t *testing.T) {
	ctx := t.Context()
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")

	older := r.Begin(state.Global, state.SourceInstallations, path)
	newer := r.Begin(state.Global, state.SourceInstallations, path)

	if _, err := r.Reconcile(ctx, newer, []kit.Kit{genKit("fresh")}); err != nil {
		t.Fatalf("Reconcile(newer) error = %v", err)
	}
	if _, err := r.Reconcile(ctx, older, []kit.Kit{genKit("stale")}); !errors.Is(err, ErrStalePass) {
		t.Fatalf("Reconcile(older) error = %v, want ErrStalePass", err)
	}

	wantNames(t, path, "fresh")
}

func TestReconcile_InOrderPassesBothApply(t *testing.T) {
	ctx := t.Context()
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")

	first := r.Begin(state.Global, state.SourceInstallations, path)
	second := r.Begin(state.Global, state.SourceInstallations, path)

	if _, err := r.Reconcile(ctx, first, []kit.Kit{genKit("one")}); err != nil {
		t.Fatalf("Reconcile(first) error = %v", err)
	}
	if _, err := r.Reconcile(ctx, second, []kit.Kit{genKit("two")}); err != nil {
		t.Fatalf("Reconcile(second) error = %v", err)
	}

	wantNames(t, path, "two")
}

type recordingBackup struct {
	paths []string
}

func (b *recordingBackup) Backup(_ context.Context, _ state.Scope, path string) error {
	b.paths = append(b.paths, path)
	return nil
}

func TestReconcile_BackupAndObservers(t *testing.T) {
	b := &recordingBackup{}
	var got []Event
	r, _ := newReconciler(t, WithBackup(b), WithObserver(func(e Event) { got = append(got, e) }))
	path := filepath.Join(t.TempDir(), "cmake-kits.json")

	run(t, r, state.Global, state.SourceInstallations, path, genKit("A"))
	if len(b.paths) != 0 {
		t.Errorf("backed up %v before the registry existed", b.paths)
	}

	run(t, r, state.Global, state.SourceInstallations, path, genKit("B"))
	if want := []string{path}; !slices.Equal(b.paths, want) {
		t.Errorf("backed up %v, want %v", b.paths, want)
	}

	if len(got) != 2 {
		t.Fatalf("observers saw %d events, want 2", len(got))
	}
	last := got[1]
	if !slices.Equal(last.Names, []string{"B"}) || !slices.Equal(last.Removed, []string{"A"}) || last.Path != path {
		t.Errorf("last event = %+v, want B written over A at %s", last, path)
	}
}

func TestReconcile_Concurrent(t *testing.T) {
	ctx := t.Context()
	r, _ := newReconciler(t)
	path := filepath.Join(t.TempDir(), "cmake-kits.json")

	done := make(chan error, 10)
	for i := range 10 {
		go func() {
			name := "kit-" + strings.Repeat("x", i)
			_, err := r.Run(ctx, state.Global, state.SourceInstallations, path, []kit.Kit{genKit(name)})
			if errors.Is(err, ErrStalePass) {
				err = nil
			}
			done <- err
		}()
	}
	for range 10 {
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}

	// exactly one generation survives
	if names := loadNames(t, path); len(names) != 1 {
		t.Fatalf("registry names = %v, want exactly one", names)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(readFile(t, path)), &raws); err != nil {
		t.Errorf("registry is not valid JSON: %v", err)
	}
}
