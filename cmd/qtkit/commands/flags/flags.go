// Package flags provides shared flag accessors and the loaded configuration
// for CLI commands. This package exists to avoid import cycles between the
// root command and noun subpackages (kits, backup).
package flags

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/qtkit/internal/cli"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/logging"
)

var (
	// configPath holds the value of the --config flag.
	configPath string

	// loaded is the configuration read at startup.
	loaded *config.Config

	// loadErr holds any error that occurred during config loading.
	loadErr error
)

// ConfigPath returns the value of the --config flag.
func ConfigPath() string {
	return configPath
}

// ConfigPathVar returns the variable the root command binds --config to.
func ConfigPathVar() *string {
	return &configPath
}

// SetConfig records the result of loading the configuration.
func SetConfig(cfg *config.Config, err error) {
	loaded, loadErr = cfg, err
}

// Config returns the loaded configuration. A load failure is reported as a
// configuration error.
func Config() (*config.Config, error) {
	if loadErr != nil {
		return nil, errors.NewConfigError(loadErr)
	}
	if loaded == nil {
		return config.Default(), nil
	}
	return loaded, nil
}

// OpenSession opens a cli.Session for cmd using the loaded configuration
// and the logger in cmd's context.
func OpenSession(cmd *cobra.Command) (*cli.Session, error) {
	cfg, err := Config()
	if err != nil {
		return nil, err
	}
	sess, err := cli.Open(cfg, logging.FromContext(cmd.Context()))
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrUnsupportedPlatform), errors.Is(err, errors.ErrInvalidConfig):
		return nil, errors.NewConfigError(err)
	default:
		return nil, errors.NewSystemError(err, "check the state section of the config file")
	}
	return sess, nil
}

// LoadError returns the error config loading failed with, if any.
func LoadError() error {
	return loadErr
}
