package backup

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/backup"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kitmgr"
)

func init() {
	Cmd.AddCommand(restoreCmd)
	Cmd.AddCommand(createCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-id]",
	Short: "Restore a kit registry from a backup",
	Long: `Copy a backed up kit registry back to its original location.

Without an ID the most recent backup is restored. --workspace selects the
scope and defaults to the user-wide registry.`,
	Example: `  qtkit backup restore
  qtkit backup restore 20260123T100712 --workspace app`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Back up kit registries now",
	Long: `Copy the current kit registries into the backup directory. Scopes whose
registry does not exist yet are skipped.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func runRestore(cmd *cobra.Command, args []string) error {
	sess, err := flags.OpenSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	t, err := sess.Target(workspace)
	if err != nil {
		return errors.NewUserError(err, "Run: qtkit config show")
	}

	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	return runRestoreWithWriter(cmd.OutOrStdout(), sess.Backups, t, id)
}

func runRestoreWithWriter(w io.Writer, mgr *backup.Manager, t kitmgr.Target, id string) error {
	if id == "" {
		latest, err := mgr.Latest(t.Scope)
		if err != nil {
			if errors.Is(err, backup.ErrNoBackupsFound) {
				return errors.NewUserError(errors.Wrapf(err, "scope %s", t.Name), "Run: qtkit backup list")
			}
			return err
		}
		id = latest.ID
	}

	manifest, err := mgr.Restore(t.Scope, id)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackupsFound) {
			return errors.NewUserError(err, "Run: qtkit backup list")
		}
		return errors.NewSystemError(err, "")
	}

	for _, f := range manifest.Files {
		fmt.Fprintf(w, "%s restored %s\n", color.GreenString("✓"), f.OriginalPath)
	}
	fmt.Fprintf(w, "Restored backup %s of %s\n", manifest.ID, t.Name)
	return nil
}

func runCreate(cmd *cobra.Command, _ []string) error {
	sess, targets, err := openTargets(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	return runCreateWithWriter(cmd.OutOrStdout(), sess.Backups, targets)
}

func runCreateWithWriter(w io.Writer, mgr *backup.Manager, targets []kitmgr.Target) error {
	created := 0
	for _, t := range targets {
		manifest, err := mgr.Create(t.Scope, t.Path)
		if errors.Is(err, backup.ErrNoBackupsFound) {
			continue
		}
		if err != nil {
			return errors.NewSystemError(errors.Wrapf(err, "backing up %s", t.Name), "")
		}
		fmt.Fprintf(w, "%s %s: %s\n", color.GreenString("✓"), t.Name, manifest.ID)
		created++
	}
	if created == 0 {
		fmt.Fprintln(w, "No kit registries to back up")
	}
	return nil
}
