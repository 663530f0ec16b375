// Package backup provides CLI commands for managing kit registry backups.
package backup

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/cli"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kitmgr"
)

// workspace holds the value of the --workspace flag.
var workspace string

func init() {
	Cmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "",
		`limit to one workspace ("global" for the user-wide registry)`)
}

// Cmd is the root backup command.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage kit registry backups",
	Long: `Manage backups of the kit registries.

Before qtkit rewrites a kit registry it copies the current file into the
backup directory, one subdirectory per scope. This command group lists,
restores, creates and prunes those backups.`,
	Example: `  # List all backups
  qtkit backup list

  # Restore the newest backup of the user-wide registry
  qtkit backup restore --workspace global

  # Restore a specific backup
  qtkit backup restore 20260123T100712 --workspace app

  # Keep only the 3 most recent backups per scope
  qtkit backup prune --keep 3

  See Also:
    qtkit backup list    - List available backups
    qtkit backup restore - Restore from a backup
    qtkit backup create  - Manually create a backup
    qtkit backup prune   - Remove old backups`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// openTargets opens a session and resolves the --workspace flag.
func openTargets(cmd *cobra.Command) (*cli.Session, []kitmgr.Target, error) {
	sess, err := flags.OpenSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	targets, err := sess.Targets(workspace)
	if err != nil {
		sess.Close()
		return nil, nil, errors.NewUserError(err, "Run: qtkit config show")
	}
	return sess, targets, nil
}
