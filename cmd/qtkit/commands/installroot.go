package commands

import (
	"fmt"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
)

var rootSave bool

func init() {
	rootDetectCmd.Flags().BoolVar(&rootSave, "save", false, "write the detected root to the config file")
	installRootCmd.AddCommand(rootDetectCmd)
	rootCmd.AddCommand(installRootCmd)
}

var installRootCmd = &cobra.Command{
	Use:   "root",
	Short: "Inspect the Qt installation root",
}

var rootDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Look for a Qt installation root in the default locations",
	Long: `Check the default Qt installation locations for this platform and report
which exist and how many Qt installations each holds.

With --save the first existing location is written to the config file as
installation_root, unless one is already configured.`,
	Example: `  qtkit root detect
  qtkit root detect --save`,
	Args: cobra.NoArgs,
	RunE: runRootDetect,
}

func runRootDetect(cmd *cobra.Command, _ []string) error {
	cfg, err := flags.Config()
	if err != nil {
		return err
	}

	roots, err := installation.DefaultRoots(runtime.GOOS)
	if err != nil {
		return errors.NewConfigError(err)
	}

	w := cmd.OutOrStdout()
	for _, r := range roots {
		if info, serr := os.Stat(r); serr != nil || !info.IsDir() {
			fmt.Fprintf(w, "%s %s\n", color.HiBlackString("-"), r)
			continue
		}
		found, derr := installation.Discover(r)
		if derr != nil {
			fmt.Fprintf(w, "%s %s: %v\n", color.YellowString("!"), r, derr)
			continue
		}
		fmt.Fprintf(w, "%s %s (%d installation(s))\n", color.GreenString("✓"), r, len(found))
	}

	detected, err := installation.FindDefaultRoot()
	if err != nil {
		return errors.NewSystemError(err, "")
	}
	if detected == "" {
		return errors.NewUserError(
			errors.Mark(errors.New("no Qt installation root found"), errors.ErrNotFound),
			"set installation_root in the config file",
		)
	}

	if !rootSave {
		return nil
	}
	if cfg.InstallationRoot != "" {
		fmt.Fprintf(w, "installation_root already set to %s\n", cfg.InstallationRoot)
		return nil
	}

	cfg.InstallationRoot = detected
	path := flags.ConfigPath()
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Save(cfg, path); err != nil {
		return errors.NewSystemError(err, "check that the config directory is writable")
	}
	fmt.Fprintf(w, "Saved installation_root %s to %s\n", detected, path)
	return nil
}
