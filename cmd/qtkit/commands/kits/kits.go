// Package kits provides CLI commands for inspecting the kit registries.
package kits

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/registry"
)

// workspace holds the value of the --workspace flag.
var workspace string

// generatedOnly holds the value of the --generated flag shared by list and
// export.
var generatedOnly bool

func init() {
	Cmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "",
		`workspace whose registry to read (default: the user-wide registry)`)
}

// Cmd is the root kits command.
var Cmd = &cobra.Command{
	Use:     "kits",
	Aliases: []string{"kit"},
	Short:   "Inspect generated and external kits",
	Long: `Inspect the kits in a CMake Tools kit registry.

Every command reads the user-wide registry unless --workspace names a
configured workspace, in which case its .vscode/cmake-kits.json is used.`,
	Example: `  # List every kit in the user-wide registry
  qtkit kits list

  # Show one kit of a workspace
  qtkit kits show Qt-6.5.0-gcc_64 --workspace app

  # Export the generated kits as YAML
  qtkit kits export --generated --format yaml

  See Also: qtkit sync`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// registryPath returns the registry file --workspace selects.
func registryPath(cmd *cobra.Command) (string, error) {
	sess, err := flags.OpenSession(cmd)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	t, err := sess.Target(workspace)
	if err != nil {
		return "", errors.NewUserError(err, "Run: qtkit config show")
	}
	return t.Path, nil
}

// loadRegistry loads the registry --workspace selects. A malformed file is
// a user error.
func loadRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	path, err := registryPath(cmd)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(path)
	if err != nil {
		return nil, errors.NewUserError(err, "Run: qtkit kits edit")
	}
	return reg, nil
}

// selectKits returns the registry's kits, only the generated ones when
// generated is set.
func selectKits(reg *registry.Registry, generated bool) []kit.Kit {
	kits := reg.Kits()
	if !generated {
		return kits
	}
	out := kits[:0]
	for _, k := range kits {
		if kit.IsGenerated(k) {
			out = append(out, k)
		}
	}
	return out
}
