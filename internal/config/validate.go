package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/state"
)

// Validation errors for configuration fields.
var (
	// ErrUnsupportedVersion indicates the version field is not 1.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrInvalidValue indicates a field holds a value outside its domain.
	ErrInvalidValue = errors.New("invalid value")

	// ErrMissingValue indicates a required field is empty.
	ErrMissingValue = errors.New("missing value")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, &FieldError{
			Field: "version",
			Value: fmt.Sprint(cfg.Version),
			Err:   ErrUnsupportedVersion,
		})
	}

	if strings.TrimSpace(cfg.Generator) == "" {
		errs = append(errs, &FieldError{Field: "generator", Err: ErrMissingValue})
	}

	if !slices.Contains(state.Backends(), cfg.State.Backend) {
		errs = append(errs, &FieldError{
			Field: "state.backend",
			Value: cfg.State.Backend,
			Err:   ErrInvalidValue,
		})
	}
	if cfg.State.Backend == state.BackendRedis && cfg.State.RedisAddr == "" {
		errs = append(errs, &FieldError{Field: "state.redis_addr", Err: ErrMissingValue})
	}

	if cfg.Backup.Retention < 0 {
		errs = append(errs, &FieldError{
			Field: "backup.retention",
			Value: fmt.Sprint(cfg.Backup.Retention),
			Err:   ErrInvalidValue,
		})
	}

	errs = appendPathError(errs, "installation_root", cfg.InstallationRoot)
	errs = appendPathError(errs, "kits_file", cfg.KitsFile)
	errs = appendPathError(errs, "state.path", cfg.State.Path)
	errs = append(errs, validateAdditionalPaths("additional_paths", cfg.AdditionalPaths)...)

	for _, name := range cfg.WorkspaceNames() {
		ws := cfg.Workspaces[name]
		prefix := "workspaces." + name
		if ws.Folder == "" {
			errs = append(errs, &FieldError{Field: prefix + ".folder", Err: ErrMissingValue})
		} else {
			errs = appendPathError(errs, prefix+".folder", ws.Folder)
		}
		errs = appendPathError(errs, prefix+".installation_root", ws.InstallationRoot)
		errs = append(errs, validateAdditionalPaths(prefix+".additional_paths", ws.AdditionalPaths)...)
	}

	return errs
}

func validateAdditionalPaths(field string, aps []installation.AdditionalPath) []error {
	var errs []error
	for i, ap := range aps {
		name := fmt.Sprintf("%s[%d].path", field, i)
		if ap.Path == "" {
			errs = append(errs, &FieldError{Field: name, Err: ErrMissingValue})
			continue
		}
		errs = appendPathError(errs, name, ap.Path)
	}
	return errs
}

func appendPathError(errs []error, field, path string) []error {
	if err := validatePath(path); err != nil {
		errs = append(errs, &PathError{Field: field, Path: path, Err: err})
	}
	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// FieldError represents an invalid value for a specific config key.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return e.Field + ": " + e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error() + ": " + e.Value
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}
