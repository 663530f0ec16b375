package kits

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/registry"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

var (
	exportFormat string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(kit.FormatJSON),
		"Output format: "+strings.Join(kit.Formats(), ", "))
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&generatedOnly, "generated", false, "Only export kits generated by qtkit")
	Cmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export kits as JSON, YAML or TOML",
	Long: `Write the kits of a registry in another format, for example to feed
them to scripts or to compare the kits of two machines.`,
	Example: `  qtkit kits export --format yaml
  qtkit kits export --generated --format toml -o kits.toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		data, err := exportKits(reg, kit.Format(exportFormat), generatedOnly)
		if err != nil {
			return err
		}

		if exportOutput == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := fileutil.AtomicWriteFileMkdir(exportOutput, data, 0o644); err != nil {
			return errors.NewSystemError(err, "")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported kits to %s\n", exportOutput)
		return nil
	},
}

func exportKits(reg *registry.Registry, format kit.Format, generated bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := kit.Encode(&buf, selectKits(reg, generated), format); err != nil {
		if errors.Is(err, kit.ErrUnknownFormat) {
			return nil, errors.NewUserError(err, "use --format "+strings.Join(kit.Formats(), "|"))
		}
		return nil, err
	}
	return buf.Bytes(), nil
}
