// Package kit defines the CMake Tools kit descriptor qtkit generates and the
// helpers shared by the synthesis and reconciliation code.
package kit

import (
	"maps"
	"strings"
)

// DefaultGenerator is the CMake generator used when none is configured.
const DefaultGenerator = "Ninja"

// Environment variables that mark a kit as generated by qtkit.
const (
	// EnvInstallation holds the Qt installation a kit was generated for.
	EnvInstallation = "VSCODE_QT_INSTALLATION"

	// EnvQtPathsExe holds the qtpaths binary a kit was generated from.
	EnvQtPathsExe = "VSCODE_QT_QTPATHS_EXE"

	// EnvPathReference expands to the ambient PATH inside the host tool.
	EnvPathReference = "${env:PATH}"
)

// Generator is the preferred CMake generator of a kit.
type Generator struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Toolset  string `json:"toolset,omitempty" yaml:"toolset,omitempty" toml:"toolset,omitempty"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty" toml:"platform,omitempty"`
}

// IsNinja reports whether the generator belongs to the Ninja family
// ("Ninja", "Ninja Multi-Config"). Ninja accepts no platform or toolset.
func (g *Generator) IsNinja() bool {
	return g != nil && strings.HasPrefix(g.Name, "Ninja")
}

// Kit is a named build configuration profile consumed by CMake Tools.
// Field names follow the host's cmake-kits.json schema.
type Kit struct {
	Name                     string            `json:"name" yaml:"name" toml:"name"`
	Description              string            `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Generator                *Generator        `json:"preferredGenerator,omitempty" yaml:"preferredGenerator,omitempty" toml:"preferredGenerator,omitempty"`
	CMakeSettings            map[string]string `json:"cmakeSettings,omitempty" yaml:"cmakeSettings,omitempty" toml:"cmakeSettings,omitempty"`
	EnvironmentVariables     map[string]string `json:"environmentVariables,omitempty" yaml:"environmentVariables,omitempty" toml:"environmentVariables,omitempty"`
	Compilers                map[string]string `json:"compilers,omitempty" yaml:"compilers,omitempty" toml:"compilers,omitempty"`
	VisualStudio             string            `json:"visualStudio,omitempty" yaml:"visualStudio,omitempty" toml:"visualStudio,omitempty"`
	VisualStudioArchitecture string            `json:"visualStudioArchitecture,omitempty" yaml:"visualStudioArchitecture,omitempty" toml:"visualStudioArchitecture,omitempty"`
	EnvironmentSetupScript   string            `json:"environmentSetupScript,omitempty" yaml:"environmentSetupScript,omitempty" toml:"environmentSetupScript,omitempty"`
	ToolchainFile            string            `json:"toolchainFile,omitempty" yaml:"toolchainFile,omitempty" toml:"toolchainFile,omitempty"`
	Keep                     *bool             `json:"keep,omitempty" yaml:"keep,omitempty" toml:"keep,omitempty"`
	IsTrusted                bool              `json:"isTrusted" yaml:"isTrusted" toml:"isTrusted"`
}

// Clone returns a deep copy of k. Kits derived from one template must never
// share maps or generators.
func (k Kit) Clone() Kit {
	out := k
	if k.Generator != nil {
		g := *k.Generator
		out.Generator = &g
	}
	out.CMakeSettings = maps.Clone(k.CMakeSettings)
	out.EnvironmentVariables = maps.Clone(k.EnvironmentVariables)
	out.Compilers = maps.Clone(k.Compilers)
	if k.Keep != nil {
		keep := *k.Keep
		out.Keep = &keep
	}
	return out
}

// SetEnv sets an environment variable, allocating the map on first use.
func (k *Kit) SetEnv(key, value string) {
	if k.EnvironmentVariables == nil {
		k.EnvironmentVariables = make(map[string]string)
	}
	k.EnvironmentVariables[key] = value
}

// IsGenerated reports whether k was generated by qtkit rather than authored
// by the host or the user.
func IsGenerated(k Kit) bool {
	if k.EnvironmentVariables == nil {
		return false
	}
	if k.EnvironmentVariables[EnvInstallation] != "" {
		return true
	}
	return k.EnvironmentVariables[EnvQtPathsExe] != ""
}

// Names returns the names of kits in order.
func Names(kits []Kit) []string {
	names := make([]string, 0, len(kits))
	for _, k := range kits {
		names = append(names, k.Name)
	}
	return names
}

// CloneAll deep-copies every kit in kits.
func CloneAll(kits []Kit) []Kit {
	if kits == nil {
		return nil
	}
	out := make([]Kit, len(kits))
	for i, k := range kits {
		out[i] = k.Clone()
	}
	return out
}

// Find returns the first kit named name.
func Find(kits []Kit, name string) (Kit, bool) {
	for _, k := range kits {
		if k.Name == name {
			return k, true
		}
	}
	return Kit{}, false
}
