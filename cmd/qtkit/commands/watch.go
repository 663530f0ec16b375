package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kitmgr"
)

var watchInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", kitmgr.DefaultInterval,
		"how often to rescan installations")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep kits in sync until interrupted",
	Long: `Sync every scope, then keep the kits current.

The config file is watched for changes: a changed installation root or
additional path re-runs only the affected pass, and removed workspaces
have their generated kits cleaned up. Installations are also rescanned
periodically to pick up new Qt versions installed under the root.`,
	Example: `  qtkit watch
  qtkit watch --interval 5m

  See Also: qtkit sync`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	sess, err := flags.OpenSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reload := func() (*config.Config, error) {
		return config.Load(flags.ConfigPath())
	}

	sess.Logger.Info("watching for changes", "interval", watchInterval)
	if err := sess.Manager.Watch(ctx, watchInterval, reload); err != nil {
		return errors.NewSystemError(err, "")
	}
	return nil
}
