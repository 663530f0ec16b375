package doctor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
	"github.com/thoreinstein/qtkit/internal/registry"
	"github.com/thoreinstein/qtkit/internal/state"
)

// RegistryCheck validates the syntax of one kit registry file.
type RegistryCheck struct {
	Scope state.Scope
	Path  string
}

var _ Check = (*RegistryCheck)(nil)

// Name returns the check identifier, one per scope.
func (c *RegistryCheck) Name() string {
	return "registry:" + c.Scope.Key()
}

// Category returns the check category.
func (c *RegistryCheck) Category() string {
	return CategoryRegistry
}

// Run loads the registry and reports its shape.
func (c *RegistryCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.Path},
	}

	reg, err := registry.Load(c.Path)
	switch {
	case err != nil && errors.Is(err, registry.ErrMalformed):
		result.Status = SeverityError
		result.Message = "kit registry cannot be parsed"
		result.Details["error"] = err.Error()
		result.FixHint = "fix the JSON in " + c.Path + " or move it aside and run qtkit sync"
		return result
	case err != nil:
		result.Status = SeverityError
		result.Message = "kit registry cannot be read"
		result.Details["error"] = err.Error()
		return result
	case !reg.Exists:
		result.Status = SeverityPass
		result.Message = "kit registry not created yet"
		return result
	}

	generated := 0
	for _, k := range reg.Kits() {
		if kit.IsGenerated(k) {
			generated++
		}
	}
	result.Details["entries"] = len(reg.Entries)
	result.Details["generated"] = generated

	if reg.Extended {
		result.Status = SeverityInfo
		result.Message = "kit registry uses comments or trailing commas, which are dropped on rewrite"
		return result
	}
	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%d kit(s), %d generated", len(reg.Entries), generated)
	return result
}

// InstallationRootCheck verifies that the configured installation root
// exists and contains Qt installations.
type InstallationRootCheck struct {
	Root string
}

var _ Check = (*InstallationRootCheck)(nil)

// Name returns the check identifier.
func (c *InstallationRootCheck) Name() string {
	return "installation-root"
}

// Category returns the check category.
func (c *InstallationRootCheck) Category() string {
	return CategoryQt
}

// Run discovers installations under the root.
func (c *InstallationRootCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"root": c.Root},
	}

	if c.Root == "" {
		result.Status = SeverityWarning
		result.Message = "no Qt installation root configured"
		result.FixHint = "run qtkit root detect or set installation_root in the config file"
		return result
	}

	info, err := os.Stat(c.Root)
	if err != nil || !info.IsDir() {
		result.Status = SeverityError
		result.Message = "installation root does not exist"
		result.FixHint = "point installation_root at the directory the Qt installer created"
		return result
	}

	found, err := installation.Discover(c.Root)
	if err != nil {
		result.Status = SeverityError
		result.Message = "cannot scan installation root"
		result.Details["error"] = err.Error()
		return result
	}
	result.Details["installations"] = found

	if len(found) == 0 {
		result.Status = SeverityWarning
		result.Message = "Cannot find a Qt installation in " + c.Root
		return result
	}
	result.Status = SeverityPass
	result.Message = fmt.Sprintf("Found %d Qt installation(s) in %s", len(found), c.Root)
	return result
}

// ToolFinder locates build tools. *installation.FSLocator satisfies it.
type ToolFinder interface {
	OnPath(tool string) bool
	CMake(root string) (string, bool)
	Ninja(root string) (string, bool)
}

// ToolCheck reports whether a build tool generated kits rely on can be
// found, either on PATH or under the installation root's Tools directory.
type ToolCheck struct {
	Tool   string
	Root   string
	Finder ToolFinder
}

var _ Check = (*ToolCheck)(nil)

// Name returns the check identifier.
func (c *ToolCheck) Name() string {
	return "tool:" + c.Tool
}

// Category returns the check category.
func (c *ToolCheck) Category() string {
	return CategoryTools
}

// Run looks up the tool.
func (c *ToolCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
	}

	finder := c.Finder
	if finder == nil {
		finder = installation.NewFSLocator()
	}

	if finder.OnPath(c.Tool) {
		result.Status = SeverityPass
		result.Message = c.Tool + " found on PATH"
		return result
	}

	var (
		p  string
		ok bool
	)
	if c.Root != "" {
		switch c.Tool {
		case "cmake":
			p, ok = finder.CMake(c.Root)
		case "ninja":
			p, ok = finder.Ninja(c.Root)
		}
	}
	if ok {
		result.Status = SeverityInfo
		result.Message = c.Tool + " found in the Qt Tools directory only"
		result.Details = map[string]any{"path": p}
		return result
	}

	result.Status = SeverityWarning
	result.Message = c.Tool + " not found"
	result.FixHint = "install " + c.Tool + " or add it with the Qt maintenance tool"
	return result
}

// StateCheck verifies that the reconciliation state store is reachable and
// that the kits it remembers still exist in their registries.
type StateCheck struct {
	Store state.Store
	// PathFor maps a scope to its registry file.
	PathFor func(state.Scope) string
}

var _ Check = (*StateCheck)(nil)

// Name returns the check identifier.
func (c *StateCheck) Name() string {
	return "state"
}

// Category returns the check category.
func (c *StateCheck) Category() string {
	return CategoryState
}

// Run walks every recorded scope.
func (c *StateCheck) Run(ctx context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{},
	}

	scopes, err := c.Store.Scopes(ctx)
	if err != nil {
		result.Status = SeverityError
		result.Message = "state store unreachable"
		result.Details["error"] = err.Error()
		return result
	}
	result.Details["scopes"] = len(scopes)

	var missing []string
	for _, scope := range scopes {
		var present []string
		if c.PathFor != nil {
			reg, _ := registry.Load(c.PathFor(scope))
			present = reg.Names()
		}
		for _, src := range state.Sources() {
			st, err := c.Store.Get(ctx, scope, src)
			if err != nil {
				result.Status = SeverityError
				result.Message = "cannot read state for " + scope.String()
				result.Details["error"] = err.Error()
				return result
			}
			for _, name := range st.LastGeneratedKitNames {
				if !slices.Contains(present, name) {
					missing = append(missing, scope.String()+": "+name)
				}
			}
		}
	}

	if len(missing) > 0 {
		result.Status = SeverityInfo
		result.Message = fmt.Sprintf("%d remembered kit(s) no longer in the registry", len(missing))
		result.Details["missing"] = missing
		result.FixHint = "run qtkit sync to regenerate them"
		return result
	}
	result.Status = SeverityPass
	result.Message = fmt.Sprintf("state covers %d scope(s)", len(scopes))
	return result
}

// pathIssue is a permission problem on a registry file or directory.
type pathIssue struct {
	Path    string
	IsDir   bool
	Problem string
	Fixable bool
}

// PermissionCheck flags world-writable registry files and directories.
// The registry steers which compilers and environments a build uses.
type PermissionCheck struct {
	PermissionFixer

	Paths []string
	goos  string
}

var (
	_ Check = (*PermissionCheck)(nil)
	_ Fixer = (*PermissionCheck)(nil)
)

// Name returns the check identifier.
func (c *PermissionCheck) Name() string {
	return "registry-permissions"
}

// Category returns the check category.
func (c *PermissionCheck) Category() string {
	return CategoryRegistry
}

// Run inspects every path that exists.
func (c *PermissionCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
	}

	goos := c.goos
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		result.Status = SeverityPass
		result.Message = "permission checks do not apply on Windows"
		return result
	}

	var issues []pathIssue
	for _, p := range c.Paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o002 != 0 {
			issues = append(issues, pathIssue{
				Path:    p,
				IsDir:   info.IsDir(),
				Problem: "world-writable",
				Fixable: true,
			})
		}
	}
	c.issues = issues

	if len(issues) == 0 {
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d path(s) checked", len(c.Paths))
		return result
	}

	paths := make([]string, 0, len(issues))
	for _, issue := range issues {
		paths = append(paths, issue.Path+" ("+issue.Problem+")")
	}
	result.Status = SeverityWarning
	result.Message = fmt.Sprintf("%d path(s) with unsafe permissions", len(issues))
	result.Details = map[string]any{"issues": paths}
	result.Fixable = true
	result.FixHint = "run qtkit doctor --fix"
	return result
}

// EnvironmentCheck reports the environment variables that influence kit
// generation. Values that look like credentials are masked.
type EnvironmentCheck struct {
	// Environ defaults to os.Environ.
	Environ func() []string
}

var _ Check = (*EnvironmentCheck)(nil)

// Name returns the check identifier.
func (c *EnvironmentCheck) Name() string {
	return "environment"
}

// Category returns the check category.
func (c *EnvironmentCheck) Category() string {
	return CategoryQt
}

// Run collects QTKIT_* variables and VCPKG_ROOT.
func (c *EnvironmentCheck) Run(context.Context) *CheckResult {
	environ := c.Environ
	if environ == nil {
		environ = os.Environ
	}

	env := make(map[string]string)
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(k, "QTKIT_") || k == "VCPKG_ROOT" {
			env[k] = v
		}
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Message:  fmt.Sprintf("%d relevant variable(s) set", len(env)),
	}
	if len(env) > 0 {
		masked := logging.MaskSecrets(env)
		if url, ok := masked["QTKIT_STATE_REDIS_ADDR"]; ok {
			masked["QTKIT_STATE_REDIS_ADDR"] = logging.MaskURL(url)
		}
		result.Details = map[string]any{"env": masked}
	}
	return result
}

// ConfigCheck reports the outcome of loading the config file. Err is the
// error Load returned, nil when the file was read and validated.
type ConfigCheck struct {
	Path string
	Err  error
}

var _ Check = (*ConfigCheck)(nil)

// Name returns the check identifier.
func (c *ConfigCheck) Name() string {
	return "config"
}

// Category returns the check category.
func (c *ConfigCheck) Category() string {
	return CategoryConfig
}

// Run reports Err, listing every validation problem.
func (c *ConfigCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
	}
	if c.Path != "" {
		result.Details = map[string]any{"path": c.Path}
	}

	if c.Err == nil {
		result.Status = SeverityPass
		result.Message = "configuration is valid"
		return result
	}

	result.Status = SeverityError
	result.Message = c.Err.Error()
	if details := errors.GetAllDetails(c.Err); len(details) > 0 {
		if result.Details == nil {
			result.Details = map[string]any{}
		}
		result.Details["problems"] = details
	}
	if errors.Is(c.Err, errors.ErrNotFound) {
		result.FixHint = "create the file with qtkit config init or drop --config"
	} else {
		result.FixHint = "fix the reported fields in the config file"
	}
	return result
}
