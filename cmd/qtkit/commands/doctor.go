package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/cli"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/doctor"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/registry"
	"github.com/thoreinstein/qtkit/internal/state"
)

var (
	doctorJSON bool
	doctorFix  bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"repair fixable issues (registry permissions)")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration issues",
	Long: `Run diagnostic checks on the qtkit configuration, the kit registries,
the Qt installation roots and the state store.

Output modes:
  (default)   Show errors and warnings
  -v          Show all checks including passed ones
  -q          No output, exit code only
  --json      Machine-readable JSON output

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Args:    cobra.NoArgs,
	PreRunE: validateDoctorFlags,
	RunE:    runDoctor,
}

// validateDoctorFlags ensures output flags are mutually exclusive.
func validateDoctorFlags(_ *cobra.Command, _ []string) error {
	if doctorJSON && (quiet || verbosity > 0) {
		return errors.NewUserError(errors.New("conflicting flags"), "--json cannot be combined with --quiet or --verbose")
	}
	return nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	runner := doctor.NewRunner()

	cfgPath := flags.ConfigPath()
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	runner.AddCheck(&doctor.ConfigCheck{Path: cfgPath, Err: flags.LoadError()})

	// Checks past this point inspect what the config describes, so a
	// broken config falls back to defaults rather than skipping them.
	cfg, err := flags.Config()
	if err != nil {
		cfg = config.Default()
	}

	var fixers []doctor.Fixer
	sess, err := cli.Open(cfg, nil)
	if err != nil {
		return errors.NewSystemError(err, "check the state section of the config file")
	}
	defer sess.Close()

	targets := sess.Manager.Targets()
	var roots, registryPaths []string
	for _, t := range targets {
		runner.AddCheck(&doctor.RegistryCheck{Scope: t.Scope, Path: t.Path})
		if !slices.Contains(roots, t.InstallationRoot) {
			roots = append(roots, t.InstallationRoot)
		}
		registryPaths = append(registryPaths, t.Path, filepath.Dir(t.Path))
	}
	for _, r := range roots {
		runner.AddCheck(&doctor.InstallationRootCheck{Root: r})
	}

	locator := installation.NewFSLocator()
	for _, tool := range []string{"cmake", "ninja"} {
		runner.AddCheck(&doctor.ToolCheck{Tool: tool, Root: cfg.InstallationRoot, Finder: locator})
	}

	runner.AddCheck(&doctor.StateCheck{
		Store: sess.Store,
		PathFor: func(s state.Scope) string {
			return registry.PathFor(s, cfg.KitsFile)
		},
	})

	perms := &doctor.PermissionCheck{Paths: registryPaths}
	runner.AddCheck(perms)
	fixers = append(fixers, perms)

	runner.AddCheck(&doctor.EnvironmentCheck{})

	report := runner.Run(cmd.Context())

	w := cmd.OutOrStdout()
	switch {
	case doctorJSON:
		if err := writeJSON(w, report); err != nil {
			return err
		}
	case !quiet:
		printDoctorReport(w, report, verbosity > 0)
	}

	if doctorFix {
		applyFixes(w, fixers)
	}

	if report.HasErrors() {
		return errors.NewExitError(errDoctorErrors, errors.ExitSystem)
	}
	if report.HasWarnings() {
		return errors.NewExitError(errDoctorWarnings, errors.ExitUser)
	}
	return nil
}

func printDoctorReport(w io.Writer, report *doctor.DoctorReport, showAll bool) {
	hasOutput := false
	for _, result := range report.Results {
		if !showAll && result.Status != doctor.SeverityError && result.Status != doctor.SeverityWarning {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)

		if result.FixHint != "" && (result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning) {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func applyFixes(w io.Writer, fixers []doctor.Fixer) {
	for _, f := range fixers {
		if !f.CanFix() {
			continue
		}
		for _, res := range f.Fix() {
			if res.Fixed {
				fmt.Fprintf(w, "%s %s: %s\n", color.GreenString("✓"), res.Path, res.Description)
			} else {
				fmt.Fprintf(w, "%s %s: %s\n", color.RedString("✗"), res.Path, res.Description)
			}
		}
	}
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.BlueString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}

// errDoctorWarnings is a sentinel error for exit code 1.
var errDoctorWarnings = errors.New("warnings found")

// errDoctorErrors is a sentinel error for exit code 2.
var errDoctorErrors = errors.New("errors found")
