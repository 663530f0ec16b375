package kits

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/editor"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/registry"
)

func init() {
	Cmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open a kit registry in $EDITOR",
	Long: `Open the kit registry in your editor and check that it still parses
afterwards.

Generated kits are replaced on the next sync, so edit only the kits you
maintain yourself.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := registryPath(cmd)
		if err != nil {
			return err
		}

		streams := editor.StdStreams()
		streams.Out = cmd.OutOrStdout()
		streams.Err = cmd.ErrOrStderr()
		if err := editor.Open(cmd.Context(), path, streams); err != nil {
			return errors.NewSystemError(err, "set $EDITOR to your editor")
		}

		if _, err := registry.Load(path); err != nil {
			return errors.NewUserError(err, "Run: qtkit kits edit")
		}
		return nil
	},
}
