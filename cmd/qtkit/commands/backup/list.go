package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/backup"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kitmgr"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	Long:  `List the kit registry backups grouped by scope, most recent first.`,
	Example: `  qtkit backup list
  qtkit backup list --workspace app --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// listOutput represents the JSON output for backup list.
type listOutput struct {
	Target  string       `json:"target"`
	Path    string       `json:"path"`
	Backups []infoOutput `json:"backups"`
}

// infoOutput represents a single backup in JSON output.
type infoOutput struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	FileCount    int       `json:"file_count"`
	QtkitVersion string    `json:"qtkit_version"`
}

func runList(cmd *cobra.Command, _ []string) error {
	sess, targets, err := openTargets(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	return runListWithWriter(cmd.OutOrStdout(), sess.Backups, targets)
}

func runListWithWriter(w io.Writer, mgr *backup.Manager, targets []kitmgr.Target) error {
	if listJSON {
		return outputListJSON(w, mgr, targets)
	}
	return outputListTabular(w, mgr, targets)
}

func listBackups(mgr *backup.Manager, t kitmgr.Target) ([]backup.Manifest, error) {
	manifests, err := mgr.List(t.Scope)
	if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
		return nil, errors.Wrapf(err, "listing backups for %s", t.Name)
	}
	return manifests, nil
}

func outputListJSON(w io.Writer, mgr *backup.Manager, targets []kitmgr.Target) error {
	output := make([]listOutput, 0, len(targets))

	for _, t := range targets {
		manifests, err := listBackups(mgr, t)
		if err != nil {
			return err
		}

		backups := make([]infoOutput, len(manifests))
		for i, m := range manifests {
			backups[i] = infoOutput{
				ID:           m.ID,
				CreatedAt:    m.CreatedAt,
				FileCount:    len(m.Files),
				QtkitVersion: m.QtkitVersion,
			}
		}

		output = append(output, listOutput{
			Target:  t.Name,
			Path:    t.Path,
			Backups: backups,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(output), "encoding output")
}

func outputListTabular(w io.Writer, mgr *backup.Manager, targets []kitmgr.Target) error {
	hasBackups := false
	header := color.New(color.FgCyan, color.Bold).SprintfFunc()
	bold := color.New(color.Bold).SprintFunc()

	for i, t := range targets {
		manifests, err := listBackups(mgr, t)
		if err != nil {
			return err
		}
		if len(manifests) > 0 {
			hasBackups = true
		}

		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, header("Scope: %s", t.Name))

		if len(manifests) == 0 {
			fmt.Fprintf(w, "  %s\n", color.HiBlackString("(no backups available)"))
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", bold("ID"), bold("CREATED"), bold("FILES"), bold("VERSION"))
		for _, m := range manifests {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
				color.GreenString(m.ID),
				m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				len(m.Files),
				m.QtkitVersion)
		}
		tw.Flush()
	}

	if !hasBackups {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No backups available")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Backups are created automatically before qtkit rewrites a kit registry.")
		fmt.Fprintln(w, "You can also create a backup manually with: qtkit backup create")
	}
	return nil
}
