package kits

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/registry"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&generatedOnly, "generated", false, "Only list kits generated by qtkit")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List kits in a registry",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		return runListWithWriter(cmd.OutOrStdout(), reg)
	},
}

// kitSummary represents one kit in JSON output.
type kitSummary struct {
	Name         string `json:"name"`
	Generated    bool   `json:"generated"`
	Generator    string `json:"generator,omitempty"`
	Installation string `json:"installation,omitempty"`
	VisualStudio string `json:"visual_studio,omitempty"`
}

func summarize(k kit.Kit) kitSummary {
	s := kitSummary{
		Name:         k.Name,
		Generated:    kit.IsGenerated(k),
		VisualStudio: k.VisualStudio,
	}
	if k.Generator != nil {
		s.Generator = k.Generator.Name
	}
	if s.Installation = k.EnvironmentVariables[kit.EnvInstallation]; s.Installation == "" {
		s.Installation = k.EnvironmentVariables[kit.EnvQtPathsExe]
	}
	return s
}

func runListWithWriter(w io.Writer, reg *registry.Registry) error {
	kits := selectKits(reg, generatedOnly)

	summaries := make([]kitSummary, 0, len(kits))
	for _, k := range kits {
		summaries = append(summaries, summarize(k))
	}

	if listJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(summaries), "encoding output")
	}

	if len(summaries) == 0 {
		fmt.Fprintf(w, "No kits in %s\n", reg.Path)
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", bold("NAME"), bold("SOURCE"), bold("GENERATOR"), bold("QT"))
	for _, s := range summaries {
		source := "external"
		if s.Generated {
			source = color.GreenString("qtkit")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, source, s.Generator, s.Installation)
	}
	return tw.Flush()
}
