package commands

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/thoreinstein/qtkit/internal/errors"
)

var (
	genDocDir    string
	genDocFormat string
)

// docGenerators write the reference for the whole command tree into a
// directory, one file per command.
var docGenerators = map[string]func(root *cobra.Command, dir string) error{
	"markdown": func(root *cobra.Command, dir string) error {
		return doc.GenMarkdownTreeCustom(root, dir, docFrontMatter, docLink)
	},
	"man": func(root *cobra.Command, dir string) error {
		return doc.GenManTree(root, &doc.GenManHeader{Title: "QTKIT", Section: "1", Source: "qtkit"}, dir)
	},
	"rest": doc.GenReSTTree,
	"yaml": doc.GenYamlTree,
}

var genDocCmd = &cobra.Command{
	Use:    "gen-doc",
	Short:  "Generate reference documentation for the CLI",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		format := genDocFormat
		if format == "md" {
			format = "markdown"
		}
		gen, ok := docGenerators[format]
		if !ok {
			valid := slices.Sorted(maps.Keys(docGenerators))
			return errors.NewUserError(errors.Newf("unknown format %q", genDocFormat), "valid formats: "+strings.Join(valid, ", "))
		}
		if genDocDir == "" {
			return errors.NewUserError(errors.New("output directory is required"), "pass --dir")
		}
		if err := os.MkdirAll(genDocDir, 0o755); err != nil {
			return errors.NewSystemError(errors.Wrap(err, "creating output directory"), "")
		}

		root := c.Root()
		root.DisableAutoGenTag = true
		if err := gen(root, genDocDir); err != nil {
			return errors.NewSystemError(errors.Wrapf(err, "generating %s", format), "")
		}
		fmt.Fprintf(c.OutOrStdout(), "Documentation generated in %s\n", genDocDir)
		return nil
	},
}

func init() {
	genDocCmd.Flags().StringVarP(&genDocDir, "dir", "d", "", "output directory for documentation")
	genDocCmd.Flags().StringVarP(&genDocFormat, "format", "f", "markdown", "output format: markdown, man, rest or yaml")
	rootCmd.AddCommand(genDocCmd)
}

// docFrontMatter titles a page after its command: qtkit_kits_list.md is
// "qtkit kits list".
func docFrontMatter(filename string) string {
	name := filepath.Base(filename)
	title := strings.ReplaceAll(strings.TrimSuffix(name, filepath.Ext(name)), "_", " ")
	return fmt.Sprintf("---\ntitle: %q\ndescription: %q\n---\n", title, "Reference for "+title)
}

func docLink(name string) string {
	return "/reference/" + strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))) + "/"
}
