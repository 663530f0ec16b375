package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/qtkit/cmd/qtkit/commands/flags"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/editor"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/logging"
)

var (
	configShowJSON  bool
	configInitForce bool
)

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output as JSON")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage qtkit configuration",
	Long: `Manage the qtkit configuration stored in config.yaml.

The file is searched in the current directory, then in the qtkit config
directory ($QTKIT_CONFIG_DIR or the XDG config home). Every key can be
overridden with a QTKIT_ environment variable, e.g. QTKIT_GENERATOR or
QTKIT_STATE_BACKEND.

Without a subcommand, shows the effective configuration.`,
	Example: `  # Show the effective configuration
  qtkit config

  # Create a config file with defaults
  qtkit config init

  # Change a value
  qtkit config set installation_root /opt/Qt

See Also: qtkit root detect, qtkit doctor`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults and environment overrides are
applied. Credentials in the state store address are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a single configuration value by key.

Supports dot notation for nested keys, e.g. state.backend.`,
	Example: `  qtkit config get installation_root
  qtkit config get state.backend`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a scalar configuration value and write the config file.

The resulting configuration is validated before it is written. Lists and
workspaces are edited with qtkit config edit.`,
	Example: `  qtkit config set generator "Ninja Multi-Config"
  qtkit config set state.backend sqlite`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default values",
	Long: `Write a config file holding the default configuration. The Qt
installation root is filled in when one of the default locations exists.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in $EDITOR",
	Long: `Open the config file in your editor and validate it afterwards.

Uses $EDITOR, then $VISUAL, then falls back to nano or vi.`,
	Example: `  EDITOR=nano qtkit config edit

See Also: qtkit config init`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

// configFilePath returns the file commands read from and write to: the
// --config flag, the file viper found, or the default location.
func configFilePath() string {
	if p := flags.ConfigPath(); p != "" {
		return p
	}
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return config.DefaultPath()
}

// redacted returns a copy of cfg safe to print.
func redacted(cfg *config.Config) *config.Config {
	out := *cfg
	out.State.RedisAddr = logging.MaskURL(cfg.State.RedisAddr)
	return &out
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := flags.Config()
	if err != nil {
		return err
	}
	cfg = redacted(cfg)

	if configShowJSON {
		return writeJSON(cmd.OutOrStdout(), cfg)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return enc.Close()
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	w := cmd.OutOrStdout()

	if !viper.IsSet(key) {
		fmt.Fprintln(w, "not set")
		return nil
	}

	switch v := viper.Get(key).(type) {
	case []any:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	case map[string]any:
		data, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "encoding value")
		}
		fmt.Fprint(w, string(data))
	default:
		if key == "state.redis_addr" {
			fmt.Fprintln(w, logging.MaskURL(viper.GetString(key)))
			return nil
		}
		fmt.Fprintln(w, viper.GetString(key))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	switch viper.Get(key).(type) {
	case []any, map[string]any:
		return errors.NewUserError(errors.Newf("%s is not a scalar value", key), "Run: qtkit config edit")
	}

	viper.Set(key, value)

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return errors.NewUserError(errors.Wrapf(err, "setting %s", key), "")
	}
	if errs := config.Validate(&cfg); len(errs) > 0 {
		return errors.NewUserError(errs[0], "")
	}

	path := configFilePath()
	if err := config.Save(&cfg, path); err != nil {
		return errors.NewSystemError(err, "check that the config directory is writable")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := flags.ConfigPath()
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return errors.NewUserError(errors.Newf("config file already exists at %s", path), "use --force to overwrite it")
	}

	cfg := config.Default()
	if root, err := installation.FindDefaultRoot(); err == nil {
		cfg.InstallationRoot = root
	}
	if err := config.Save(cfg, path); err != nil {
		return errors.NewSystemError(err, "check that the config directory is writable")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := configFilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.NewUserError(errors.Newf("config file not found at %s", path), "Run: qtkit config init")
	}

	streams := editor.StdStreams()
	streams.Out = cmd.OutOrStdout()
	streams.Err = cmd.ErrOrStderr()
	if err := editor.Open(cmd.Context(), path, streams); err != nil {
		return errors.NewSystemError(err, "set $EDITOR to your editor")
	}

	if _, err := config.Load(path); err != nil {
		return errors.NewConfigError(err)
	}
	return nil
}
