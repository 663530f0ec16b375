// Package commands implements the CLI commands for qtkit.
package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd"
	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/backup"
	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/kits"
	internalbackup "github.com/thoreinstein/qtkit/internal/backup"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/logging"
)

// Global flags shared by every command.
var (
	verbosity int
	quiet     bool
	logFormat string
	logFile   string
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(flags.ConfigPathVar(), "config", "",
		"config file (default: ./config.yaml or <config dir>/qtkit/config.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")

	build := cmd.Info()
	rootCmd.Version = build.Version
	rootCmd.SetVersionTemplate("qtkit version {{.Version}}\n")

	// main prints errors with their suggestion and picks the exit code.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(kits.Cmd)
	rootCmd.AddCommand(backup.Cmd)

	internalbackup.Version = build.Version
}

func initConfig() {
	config.Init()
	flags.SetConfig(config.Load(flags.ConfigPath()))
}

var rootCmd = &cobra.Command{
	Use:   "qtkit",
	Short: "Generate CMake kits for Qt installations",
	Long: `qtkit keeps the CMake Tools kit registries in sync with the Qt
installations on this machine.

It scans the configured installation root for Qt installations, queries
qtpaths/qmake binaries listed as additional paths, and writes one kit per
installation (several for MSVC builds, one per matching Visual Studio
toolset) into the user-wide kit registry and into each configured
workspace's .vscode/cmake-kits.json. Kits written by other tools are left
untouched; only kits qtkit generated earlier are replaced.`,
	Example: `  # Generate kits for every configured scope
  qtkit sync

  # Keep kits current while installations change
  qtkit watch

  # Check the setup
  qtkit doctor

  See Also: qtkit kits list, qtkit root detect, qtkit config show`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// debugEnv raises the log level when no -v flag is given: 1 or true for
// Debug, 2 for Trace.
const debugEnv = "QTKIT_DEBUG"

// logLevel resolves the level from -q, -v and QTKIT_DEBUG. Flags win over
// the environment.
func logLevel() (slog.Level, error) {
	if quiet && verbosity > 0 {
		return 0, errors.NewUserError(errors.New("conflicting flags"), "cannot use --quiet and --verbose together")
	}
	if quiet {
		return slog.LevelError, nil
	}
	v := verbosity
	if v == 0 {
		switch os.Getenv(debugEnv) {
		case "1", "true":
			v = 2
		case "2":
			v = 3
		}
	}
	return logging.LevelFromVerbosity(v), nil
}

// setupLogging installs the default logger for the command: text or JSON on
// stderr, plus a JSON copy in --log-file. The file always records Debug so a
// bug report carries the scan details even when the terminal was quiet.
func setupLogging(cmd *cobra.Command) error {
	level, err := logLevel()
	if err != nil {
		return err
	}
	logging.ConfigureColor(cmd.OutOrStdout())

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logging.Format(logFormat) == logging.FormatJSON {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return errors.NewUserError(err, "failed to create log file directory")
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		handler = logging.NewMultiHandler(handler, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: min(level, slog.LevelDebug),
		}))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
