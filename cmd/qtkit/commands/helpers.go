package commands

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/errors"
)

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	return nil
}

// workspaceFlag registers the --workspace flag on c.
func workspaceFlag(c *cobra.Command, p *string, usage string) {
	c.Flags().StringVarP(p, "workspace", "w", "", usage)
}
