package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kitmgr"
)

var (
	syncWorkspace string
	syncJSON      bool
)

func init() {
	workspaceFlag(syncCmd, &syncWorkspace, `only sync this workspace ("global" for the user-wide registry)`)
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Generate kits for the configured Qt installations",
	Long: `Discover Qt installations and write kits for them.

For each scope (the user-wide registry and every configured workspace)
two passes run: one for the installations under the installation root and
one for the qtpaths/qmake binaries listed in additional_paths. Each pass
replaces the kits it generated last time and leaves every other kit in
the registry alone.`,
	Example: `  # Sync every scope
  qtkit sync

  # Sync one workspace
  qtkit sync --workspace app

  See Also: qtkit kits list, qtkit reset`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

// syncOutput is the JSON shape of one synced target.
type syncOutput struct {
	Target        string   `json:"target"`
	Path          string   `json:"path"`
	Installations []string `json:"installations"`
	Message       string   `json:"message,omitempty"`
	Kits          []string `json:"kits"`
	Removed       []string `json:"removed"`
}

func runSync(cmd *cobra.Command, _ []string) error {
	sess, err := flags.OpenSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	targets, err := sess.Targets(syncWorkspace)
	if err != nil {
		return errors.NewUserError(err, "Run: qtkit config show")
	}

	var (
		results  []*kitmgr.Result
		firstErr error
	)
	for _, t := range targets {
		res, err := sess.Manager.Check(cmd.Context(), t)
		if res != nil {
			results = append(results, res)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if syncJSON {
		if err := writeJSON(cmd.OutOrStdout(), toSyncOutput(results)); err != nil {
			return err
		}
	} else if !quiet {
		printSyncResults(cmd.OutOrStdout(), results)
	}

	if firstErr != nil {
		if errors.Is(firstErr, errors.ErrRegistryWrite) {
			return errors.NewSystemError(firstErr, "check that the registry directory is writable")
		}
		return errors.NewSystemError(firstErr, "")
	}
	return nil
}

func toSyncOutput(results []*kitmgr.Result) []syncOutput {
	out := make([]syncOutput, 0, len(results))
	for _, res := range results {
		o := syncOutput{
			Target:        res.Target.Name,
			Path:          res.Target.Path,
			Installations: append([]string{}, res.Installations...),
			Message:       res.Message,
			Kits:          []string{},
			Removed:       []string{},
		}
		for _, ev := range res.Events {
			o.Kits = append(o.Kits, ev.Names...)
			o.Removed = append(o.Removed, ev.Removed...)
		}
		out = append(out, o)
	}
	return out
}

func printSyncResults(w io.Writer, results []*kitmgr.Result) {
	bold := color.New(color.Bold).SprintFunc()
	for _, res := range results {
		fmt.Fprintf(w, "%s %s\n", bold(res.Target.Name), color.HiBlackString(res.Target.Path))
		if res.Message != "" {
			if len(res.Installations) == 0 {
				fmt.Fprintf(w, "  %s\n", color.YellowString(res.Message))
			} else {
				fmt.Fprintf(w, "  %s\n", res.Message)
			}
		}
		for _, ev := range res.Events {
			for _, name := range ev.Names {
				fmt.Fprintf(w, "  %s %s\n", color.GreenString("+"), name)
			}
			for _, name := range ev.Removed {
				if !contains(ev.Names, name) {
					fmt.Fprintf(w, "  %s %s\n", color.RedString("-"), name)
				}
			}
		}
		fmt.Fprintf(w, "  %d kit(s)\n", res.Kits())
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
