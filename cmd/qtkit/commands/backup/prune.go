package backup

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/backup"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kitmgr"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", backup.DefaultRetentionCount,
		"Number of backups to retain per scope")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old backups",
	Long: `Remove old backups beyond the retention count.

By default, keeps the 5 most recent backups per scope and removes older ones.`,
	Example: `  # Keep only the 3 most recent backups
  qtkit backup prune --keep 3

  # Remove all backups of one workspace
  qtkit backup prune --keep 0 --workspace app`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if pruneKeep < 0 {
		return errors.NewUserError(errors.New("--keep must be non-negative"), "")
	}
	sess, targets, err := openTargets(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	return runPruneWithWriter(cmd.OutOrStdout(), sess.Backups, targets, pruneKeep)
}

func runPruneWithWriter(w io.Writer, mgr *backup.Manager, targets []kitmgr.Target, keep int) error {
	pruned := 0

	for _, t := range targets {
		manifests, err := listBackups(mgr, t)
		if err != nil {
			return err
		}

		toRemove := len(manifests) - keep
		if toRemove <= 0 {
			continue
		}

		if err := mgr.Prune(t.Scope, keep); err != nil {
			return errors.Wrapf(err, "pruning backups for %s", t.Name)
		}

		fmt.Fprintf(w, "%s %s: removed %d old backup(s)\n", color.GreenString("✓"), t.Name, toRemove)
		pruned += toRemove
	}

	if pruned == 0 {
		fmt.Fprintln(w, "No backups to prune")
	} else {
		fmt.Fprintf(w, "\nTotal: removed %d backup(s)\n", pruned)
	}
	return nil
}
