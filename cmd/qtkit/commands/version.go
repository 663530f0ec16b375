package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd"
)

var versionJSON bool

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output build information as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, and build date of qtkit.`,
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		info := cmd.Info()
		w := c.OutOrStdout()
		if versionJSON {
			return writeJSON(w, info)
		}
		commit := info.Commit
		if info.Modified {
			commit += " (modified)"
		}
		fmt.Fprintf(w, "qtkit version %s\n", info.Version)
		fmt.Fprintf(w, "  commit: %s\n", commit)
		fmt.Fprintf(w, "  built:  %s\n", info.Date)
		if info.GoVersion != "" {
			fmt.Fprintf(w, "  go:     %s\n", info.GoVersion)
		}
		return nil
	},
}
