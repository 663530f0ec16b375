package doctor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/state"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRegistryCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		content *string
		status  Severity
	}{
		{name: "missing", content: nil, status: SeverityPass},
		{name: "standard", content: ptr(`[{"name":"a","environmentVariables":{"VSCODE_QT_INSTALLATION":"/q"}},{"name":"b"}]`), status: SeverityPass},
		{name: "extended", content: ptr("[\n  // host kit\n  {\"name\": \"a\"},\n]"), status: SeverityInfo},
		{name: "malformed", content: ptr(`{"name":`), status: SeverityError},
		{name: "not an array", content: ptr(`{"name":"a"}`), status: SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cmake-kits.json")
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}

			c := &RegistryCheck{Scope: state.Global, Path: path}
			res := c.Run(ctx)

			assert.Equal(t, "registry:global", res.Name)
			assert.Equal(t, CategoryRegistry, res.Category)
			assert.Equal(t, tt.status, res.Status, res.Message)
		})
	}
}

func TestRegistryCheck_Counts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmake-kits.json")
	writeFile(t, path, `[{"name":"a","environmentVariables":{"VSCODE_QT_QTPATHS_EXE":"/q/bin/qtpaths"}},{"name":"b"}]`)

	res := (&RegistryCheck{Scope: state.Workspace("/w"), Path: path}).Run(context.Background())
	assert.Equal(t, SeverityPass, res.Status)
	assert.Equal(t, 2, res.Details["entries"])
	assert.Equal(t, 1, res.Details["generated"])
	assert.Equal(t, "2 kit(s), 1 generated", res.Message)
}

func TestInstallationRootCheck(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("installation markers carry .exe on Windows")
	}
	ctx := context.Background()

	t.Run("unset", func(t *testing.T) {
		res := (&InstallationRootCheck{}).Run(ctx)
		assert.Equal(t, SeverityWarning, res.Status)
		assert.NotEmpty(t, res.FixHint)
	})

	t.Run("missing", func(t *testing.T) {
		res := (&InstallationRootCheck{Root: filepath.Join(t.TempDir(), "nope")}).Run(ctx)
		assert.Equal(t, SeverityError, res.Status)
	})

	t.Run("empty", func(t *testing.T) {
		root := t.TempDir()
		res := (&InstallationRootCheck{Root: root}).Run(ctx)
		assert.Equal(t, SeverityWarning, res.Status)
		assert.Equal(t, "Cannot find a Qt installation in "+root, res.Message)
	})

	t.Run("found", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "6.5.0", "gcc_64", "bin", "qmake"), "")
		writeFile(t, filepath.Join(root, "6.6.1", "gcc_64", "bin", "qtpaths"), "")
		writeFile(t, filepath.Join(root, "Tools", "CMake", "bin", "cmake"), "")

		res := (&InstallationRootCheck{Root: root}).Run(ctx)
		assert.Equal(t, SeverityPass, res.Status)
		assert.Equal(t, "Found 2 Qt installation(s) in "+root, res.Message)
		assert.Len(t, res.Details["installations"], 2)
	})
}

type fakeFinder struct {
	onPath map[string]bool
	cmake  string
	ninja  string
}

func (f fakeFinder) OnPath(tool string) bool { return f.onPath[tool] }
func (f fakeFinder) CMake(string) (string, bool) {
	return f.cmake, f.cmake != ""
}
func (f fakeFinder) Ninja(string) (string, bool) {
	return f.ninja, f.ninja != ""
}

func TestToolCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		tool   string
		root   string
		finder fakeFinder
		status Severity
	}{
		{name: "on path", tool: "cmake", finder: fakeFinder{onPath: map[string]bool{"cmake": true}}, status: SeverityPass},
		{name: "qt tools cmake", tool: "cmake", root: "/qt", finder: fakeFinder{cmake: "/qt/Tools/CMake/bin/cmake"}, status: SeverityInfo},
		{name: "qt tools ninja", tool: "ninja", root: "/qt", finder: fakeFinder{ninja: "/qt/Tools/Ninja/ninja"}, status: SeverityInfo},
		{name: "no root", tool: "ninja", finder: fakeFinder{ninja: "/qt/Tools/Ninja/ninja"}, status: SeverityWarning},
		{name: "absent", tool: "cmake", root: "/qt", finder: fakeFinder{}, status: SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &ToolCheck{Tool: tt.tool, Root: tt.root, Finder: tt.finder}
			res := c.Run(ctx)
			assert.Equal(t, "tool:"+tt.tool, res.Name)
			assert.Equal(t, tt.status, res.Status, res.Message)
		})
	}
}

func TestStateCheck(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "global.json")
	wsPath := filepath.Join(dir, "ws.json")
	pathFor := func(s state.Scope) string {
		if s.IsGlobal() {
			return globalPath
		}
		return wsPath
	}

	t.Run("empty store", func(t *testing.T) {
		res := (&StateCheck{Store: state.NewMemoryStore(), PathFor: pathFor}).Run(ctx)
		assert.Equal(t, SeverityPass, res.Status)
		assert.Equal(t, 0, res.Details["scopes"])
	})

	t.Run("consistent", func(t *testing.T) {
		store := state.NewMemoryStore()
		require.NoError(t, store.Set(ctx, state.Global, state.SourceInstallations, state.NewScopedState([]string{"a"})))
		writeFile(t, globalPath, `[{"name":"a"},{"name":"host"}]`)

		res := (&StateCheck{Store: store, PathFor: pathFor}).Run(ctx)
		assert.Equal(t, SeverityPass, res.Status)
	})

	t.Run("stale names", func(t *testing.T) {
		store := state.NewMemoryStore()
		require.NoError(t, store.Set(ctx, state.Workspace("/w"), state.SourceQtPaths, state.NewScopedState([]string{"gone", "kept"})))
		writeFile(t, wsPath, `[{"name":"kept"}]`)

		res := (&StateCheck{Store: store, PathFor: pathFor}).Run(ctx)
		assert.Equal(t, SeverityInfo, res.Status)
		assert.Equal(t, []string{"/w: gone"}, res.Details["missing"])
	})
}

func TestPermissionCheck(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "cmake-kits.json")
	writeFile(t, file, "[]")
	require.NoError(t, os.Chmod(file, 0o666))

	c := &PermissionCheck{Paths: []string{file, filepath.Join(dir, "missing.json")}}
	res := c.Run(ctx)
	require.Equal(t, SeverityWarning, res.Status)
	assert.True(t, res.Fixable)
	require.True(t, c.CanFix())
	assert.Equal(t, 1, c.CountFixable())

	fixes := c.Fix()
	require.Len(t, fixes, 1)
	assert.True(t, fixes[0].Fixed)
	assert.NoError(t, fixes[0].Error)

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	res = c.Run(ctx)
	assert.Equal(t, SeverityPass, res.Status)
	assert.False(t, c.CanFix())
}

func TestPermissionCheck_Windows(t *testing.T) {
	c := &PermissionCheck{Paths: []string{"C:\\x"}, goos: "windows"}
	assert.Equal(t, SeverityPass, c.Run(context.Background()).Status)
	assert.False(t, c.CanFix())
}

func ptr(s string) *string { return &s }

func TestEnvironmentCheck(t *testing.T) {
	c := &EnvironmentCheck{Environ: func() []string {
		return []string{
			"HOME=/home/u",
			"VCPKG_ROOT=/opt/vcpkg",
			"QTKIT_GENERATOR=Ninja",
			"QTKIT_REGISTRY_TOKEN=ghp_abcdefgh1234",
			"QTKIT_STATE_REDIS_ADDR=redis://:hunter22@cache:6379/0",
		}
	}}

	res := c.Run(context.Background())
	assert.Equal(t, SeverityPass, res.Status)
	assert.Equal(t, "4 relevant variable(s) set", res.Message)

	env, ok := res.Details["env"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "/opt/vcpkg", env["VCPKG_ROOT"])
	assert.Equal(t, "Ninja", env["QTKIT_GENERATOR"])
	assert.Equal(t, "****1234", env["QTKIT_REGISTRY_TOKEN"])
	assert.NotContains(t, env["QTKIT_STATE_REDIS_ADDR"], "hunter22")
	assert.NotContains(t, env, "HOME")
}

func TestConfigCheck(t *testing.T) {
	ctx := context.Background()

	ok := (&ConfigCheck{Path: "/etc/qtkit.yaml"}).Run(ctx)
	assert.Equal(t, SeverityPass, ok.Status)
	assert.Equal(t, "/etc/qtkit.yaml", ok.Details["path"])

	err := errors.WithDetail(errors.Wrap(errors.New("generator: missing value"), "validating config"), "version: unsupported")
	res := (&ConfigCheck{Err: errors.Mark(err, errors.ErrInvalidConfig)}).Run(ctx)
	assert.Equal(t, SeverityError, res.Status)
	assert.Equal(t, "validating config: generator: missing value", res.Message)
	assert.Equal(t, []string{"version: unsupported"}, res.Details["problems"])

	missing := (&ConfigCheck{Err: errors.Mark(errors.New("config file not found"), errors.ErrNotFound)}).Run(ctx)
	assert.Contains(t, missing.FixHint, "config init")
}
