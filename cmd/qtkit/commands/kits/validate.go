package kits

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/validator"
)

var validateJSON bool

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a kit registry for problems",
	Long: `Lint a kit registry: unnamed or duplicate kits, Ninja kits with a
generator platform, missing toolchain files, and generated kits whose Qt
installation no longer exists.

Exits non-zero when errors are found. Warnings alone do not fail.`,
	Example: `  qtkit kits validate
  qtkit kits validate --workspace app --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		res := validator.Validate(reg, validator.Options{})
		format := validator.FormatText
		if validateJSON {
			format = validator.FormatJSON
		}
		if err := validator.NewReporter(cmd.OutOrStdout(), format).Report(res); err != nil {
			return err
		}
		if res.HasErrors() {
			return errors.NewUserError(errors.Newf("%s has %d error(s)", reg.Path, len(res.Filter(validator.SeverityError))), "")
		}
		return nil
	},
}
