package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Process exit codes. Bad input or configuration is ExitUser; a failure
// writing registries, state or backups is ExitSystem.
const (
	ExitSuccess = 0
	ExitUser    = 1
	ExitSystem  = 2
)

// Sentinel errors for common failure conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidConfig indicates configuration validation failed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedPlatform indicates the host operating system is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported host platform")

	// ErrRegistryWrite indicates a kit registry could not be persisted.
	ErrRegistryWrite = errors.New("writing kit registry")
)

// Re-exports of github.com/cockroachdb/errors so callers only import this package.
var (
	New           = errors.New
	Newf          = errors.Newf
	Wrap          = errors.Wrap
	Wrapf         = errors.Wrapf
	WithDetail    = errors.WithDetail
	WithDetailf   = errors.WithDetailf
	Is            = errors.Is
	As            = errors.As
	Mark          = errors.Mark
	GetAllDetails = errors.GetAllDetails
	Join          = errors.Join
)

// ExitError carries the exit code for an error returned from a command,
// plus an optional next step printed under the message.
type ExitError struct {
	Err        error
	Code       int
	Suggestion string
}

// NewExitError sets the exit code of err without a suggestion.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// NewUserError reports a problem the user can fix, e.g. an unknown
// workspace or a malformed registry.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitUser, Suggestion: suggestion}
}

// NewSystemError reports an I/O failure.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitSystem, Suggestion: suggestion}
}

// NewConfigError reports an unusable configuration and points at doctor.
func NewConfigError(err error) *ExitError {
	return NewUserError(err, "Run: qtkit doctor")
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to a process exit code. Errors without an ExitError in
// their chain are user errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUser
}
