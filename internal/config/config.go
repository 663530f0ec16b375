// Package config provides configuration management for qtkit using Viper.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/thoreinstein/qtkit/internal/backup"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/paths"
	"github.com/thoreinstein/qtkit/internal/state"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

// EnvPrefix is the prefix of environment variables that override config
// keys, e.g. QTKIT_INSTALLATION_ROOT or QTKIT_STATE_BACKEND.
const EnvPrefix = "QTKIT"

// envConfigDir overrides the directory searched for config.yaml.
const envConfigDir = EnvPrefix + "_CONFIG_DIR"

// FileName is the config file name inside the config directory.
const FileName = "config.yaml"

// Config represents the top-level configuration structure.
type Config struct {
	Version          int                           `mapstructure:"version" yaml:"version" json:"version"`
	InstallationRoot string                        `mapstructure:"installation_root" yaml:"installation_root,omitempty" json:"installation_root,omitempty"`
	AdditionalPaths  []installation.AdditionalPath `mapstructure:"additional_paths" yaml:"additional_paths,omitempty" json:"additional_paths,omitempty"`
	Generator        string                        `mapstructure:"generator" yaml:"generator" json:"generator"`
	KitsFile         string                        `mapstructure:"kits_file" yaml:"kits_file,omitempty" json:"kits_file,omitempty"`
	Workspaces       map[string]Workspace          `mapstructure:"workspaces" yaml:"workspaces,omitempty" json:"workspaces,omitempty"`
	State            state.Config                  `mapstructure:"state" yaml:"state" json:"state"`
	Backup           Backup                        `mapstructure:"backup" yaml:"backup" json:"backup"`
}

// Workspace is a folder with its own kit registry. Empty fields fall back
// to the top-level values.
type Workspace struct {
	Folder           string                        `mapstructure:"folder" yaml:"folder" json:"folder"`
	InstallationRoot string                        `mapstructure:"installation_root" yaml:"installation_root,omitempty" json:"installation_root,omitempty"`
	AdditionalPaths  []installation.AdditionalPath `mapstructure:"additional_paths" yaml:"additional_paths,omitempty" json:"additional_paths,omitempty"`
}

// Backup controls registry snapshots taken before each rewrite.
type Backup struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Retention int  `mapstructure:"retention" yaml:"retention" json:"retention"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Version:   1,
		Generator: kit.DefaultGenerator,
		State:     state.Config{Backend: state.BackendFile},
		Backup: Backup{
			Enabled:   true,
			Retention: backup.DefaultRetentionCount,
		},
	}
}

// Dir returns the directory config.yaml is searched in, honouring
// QTKIT_CONFIG_DIR.
func Dir() string {
	if dir := os.Getenv(envConfigDir); dir != "" {
		return dir
	}
	return paths.ConfigDir()
}

// DefaultPath returns the path `qtkit config init` writes to.
func DefaultPath() string {
	return filepath.Join(Dir(), FileName)
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
// Calling it again starts over: search paths, explicit values and any
// config file chosen by Load are discarded.
func Init() {
	viper.Reset()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".")
	viper.AddConfigPath(Dir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Every key needs a default so AutomaticEnv applies during Unmarshal.
	def := Default()
	viper.SetDefault("version", def.Version)
	viper.SetDefault("installation_root", "")
	viper.SetDefault("generator", def.Generator)
	viper.SetDefault("kits_file", "")
	viper.SetDefault("state.backend", def.State.Backend)
	viper.SetDefault("state.path", "")
	viper.SetDefault("state.redis_addr", "")
	viper.SetDefault("state.redis_db", 0)
	viper.SetDefault("backup.enabled", def.Backup.Enabled)
	viper.SetDefault("backup.retention", def.Backup.Retention)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations and falls back to
// defaults when no file is found.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// Implicit load, defaults apply.
		case errors.As(err, &notFound), os.IsNotExist(err):
			return nil, errors.Mark(errors.Wrapf(err, "config file not found at %s", path), errors.ErrNotFound)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "unmarshaling config"), errors.ErrInvalidConfig)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		err := errors.Wrap(errs[0], "validating config")
		for _, e := range errs[1:] {
			err = errors.WithDetail(err, e.Error())
		}
		return nil, errors.Mark(err, errors.ErrInvalidConfig)
	}

	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := paths.EnsureDir(filepath.Dir(path), 0); err != nil {
		return errors.Wrapf(err, "creating config directory %s", filepath.Dir(path))
	}
	return fileutil.AtomicWriteYAML(path, cfg)
}

// WorkspaceNames returns the configured workspace names, sorted.
func (c *Config) WorkspaceNames() []string {
	names := make([]string, 0, len(c.Workspaces))
	for name := range c.Workspaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupWorkspace returns the workspace with the given name.
func (c *Config) LookupWorkspace(name string) (Workspace, bool) {
	ws, ok := c.Workspaces[name]
	return ws, ok
}

// RootFor returns the installation root for ws, falling back to the
// top-level root.
func (c *Config) RootFor(ws Workspace) string {
	if ws.InstallationRoot != "" {
		return ws.InstallationRoot
	}
	return c.InstallationRoot
}

// AdditionalPathsFor returns the qtpaths/qmake entries for ws, falling back
// to the top-level list.
func (c *Config) AdditionalPathsFor(ws Workspace) []installation.AdditionalPath {
	if ws.AdditionalPaths != nil {
		return ws.AdditionalPaths
	}
	return c.AdditionalPaths
}
