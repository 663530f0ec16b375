// Package logging provides structured logging for qtkit using slog.
//
// Text output goes through a TTY-aware handler that colours levels with
// github.com/fatih/color and masks values whose keys look like secrets.
// JSON output uses the standard library handler. Loggers travel through
// context.Context with [NewContext] and [FromContext]; engine packages tag
// their records with [Component].
//
//	logger := logging.Component(logging.FromContext(ctx), "reconciler")
//	logger.Info("wrote kits", "path", path, "count", len(kits))
//
// Tests use [ForTest] so records only show up for failing tests or -v.
package logging
