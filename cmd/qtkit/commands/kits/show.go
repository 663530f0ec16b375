package kits

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/cli/prompt"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

var (
	showJSON   bool
	showReveal bool
)

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the kit as it appears in the registry")
	showCmd.Flags().BoolVar(&showReveal, "reveal", false, "Do not mask environment values that look like credentials")
	Cmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one kit",
	Long: `Show the details of one kit.

The name may be a substring; when several kits match you are asked to pick
one. Environment values that look like credentials are masked unless
--reveal is given.`,
	Example: `  qtkit kits show Qt-6.5.0-gcc_64
  qtkit kits show msvc2019 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return runShow(cmd.OutOrStdout(), prompt.NewSelector(), query, reg.Kits())
	},
}

func runShow(w io.Writer, sel *prompt.Selector, query string, kits []kit.Kit) error {
	k, err := sel.SelectKit(query, kits)
	if err != nil {
		if errors.Is(err, prompt.ErrNoKits) {
			return errors.NewUserError(errors.Wrapf(err, "matching %q", query), "Run: qtkit kits list")
		}
		return err
	}

	shown := k.Clone()
	if !showReveal {
		shown.EnvironmentVariables = logging.MaskSecrets(shown.EnvironmentVariables)
	}

	if showJSON {
		data, err := fileutil.MarshalJSONIndent(shown)
		if err != nil {
			return errors.Wrap(err, "encoding kit")
		}
		_, err = w.Write(data)
		return err
	}

	fmt.Fprint(w, prompt.Preview(shown))
	if len(shown.CMakeSettings) > 0 {
		fmt.Fprintln(w, "\nCMake settings:")
		for _, key := range slices.Sorted(maps.Keys(shown.CMakeSettings)) {
			fmt.Fprintf(w, "  %s=%s\n", key, shown.CMakeSettings[key])
		}
	}
	if shown.EnvironmentSetupScript != "" {
		fmt.Fprintf(w, "\nSetup script: %s\n", shown.EnvironmentSetupScript)
	}
	if len(shown.Compilers) > 0 {
		parts := make([]string, 0, len(shown.Compilers))
		for _, lang := range slices.Sorted(maps.Keys(shown.Compilers)) {
			parts = append(parts, lang+"="+shown.Compilers[lang])
		}
		fmt.Fprintf(w, "\nCompilers: %s\n", strings.Join(parts, " "))
	}
	return nil
}
