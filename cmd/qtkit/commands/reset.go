package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/registry"
)

var resetWorkspace string

func init() {
	workspaceFlag(resetCmd, &resetWorkspace, `only reset this workspace ("global" for the user-wide registry)`)
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every generated kit and forget the recorded state",
	Long: `Remove the kits qtkit generated from the kit registries and clear the
recorded state. Kits written by other tools are kept.

Without --workspace every configured scope is reset, plus any scope the
state store still remembers from an older configuration.`,
	Example: `  # Remove all generated kits
  qtkit reset

  # Only the user-wide registry
  qtkit reset --workspace global

  See Also: qtkit sync, qtkit backup restore`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, _ []string) error {
	sess, err := flags.OpenSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	var events []*registry.Event
	if resetWorkspace == "" {
		events, err = sess.Manager.Reset(cmd.Context())
	} else {
		t, terr := sess.Target(resetWorkspace)
		if terr != nil {
			return errors.NewUserError(terr, "Run: qtkit config show")
		}
		events, err = sess.Manager.ResetTarget(cmd.Context(), t)
	}

	if !quiet {
		w := cmd.OutOrStdout()
		removed := 0
		for _, ev := range events {
			for _, name := range ev.Removed {
				fmt.Fprintf(w, "%s %s %s\n", color.RedString("-"), name, color.HiBlackString(ev.Path))
				removed++
			}
		}
		fmt.Fprintf(w, "Removed %d generated kit(s)\n", removed)
	}

	if err != nil {
		return errors.NewSystemError(err, "check that the registry directory is writable")
	}
	return nil
}
