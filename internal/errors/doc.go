// Package errors provides error handling conventions for the qtkit CLI.
//
// It re-exports the constructors of github.com/cockroachdb/errors so that
// the rest of the module wraps errors with stack traces and details through
// a single import, and defines sentinel errors plus an ExitError type for
// CLI exit code handling.
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, permissions, etc.)
//
// A failed kit registry write surfaces as an ExitSystem error:
//
//	err := qtkiterrors.NewSystemError(err, "Check permissions of the kits file")
//	os.Exit(qtkiterrors.ExitCode(err))
package errors
