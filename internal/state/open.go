package state

import (
	"path/filepath"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/paths"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Default file names under paths.StateDir.
const (
	DefaultFileName   = "state.json"
	DefaultSQLiteName = "state.db"
)

// Config selects and configures a backend.
type Config struct {
	Backend   string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Path      string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisDB   int    `mapstructure:"redis_db" yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
}

// Backends lists the valid backend names.
func Backends() []string {
	return []string{BackendFile, BackendSQLite, BackendRedis, BackendMemory}
}

// Open returns the store cfg describes.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		p := cfg.Path
		if p == "" {
			p = filepath.Join(paths.StateDir(), DefaultFileName)
		}
		return NewFileStore(p), nil

	case BackendSQLite:
		p := cfg.Path
		if p == "" {
			p = filepath.Join(paths.StateDir(), DefaultSQLiteName)
		}
		return OpenSQLite(p)

	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.WithDetail(errors.ErrInvalidConfig, "state.redis_addr is required for the redis backend")
		}
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB), nil

	case BackendMemory:
		return NewMemoryStore(), nil
	}

	return nil, errors.WithDetailf(errors.ErrInvalidConfig, "unknown state backend %q", cfg.Backend)
}
