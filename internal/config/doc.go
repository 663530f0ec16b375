// Package config provides configuration management for the qtkit CLI.
//
// # Configuration File
//
// The configuration file is config.yaml in the current directory or in
// <xdg config home>/qtkit (QTKIT_CONFIG_DIR overrides the latter):
//
//	version: 1
//	installation_root: /opt/Qt
//	generator: Ninja
//	additional_paths:
//	  - name: distro-qt
//	    path: /usr/lib/qt6/bin/qtpaths
//	workspaces:
//	  app:
//	    folder: /src/app
//	    installation_root: /src/app/3rdparty/Qt
//	state:
//	  backend: sqlite        # file, sqlite, redis or memory
//	backup:
//	  enabled: true
//	  retention: 5
//
// Every key can be overridden from the environment with the QTKIT_ prefix,
// dots replaced by underscores: QTKIT_INSTALLATION_ROOT, QTKIT_STATE_BACKEND.
//
// # Loading Configuration
//
//	config.Init()
//	cfg, err := config.Load("")
//	if errors.Is(err, errors.ErrInvalidConfig) {
//	    // report and exit
//	}
//
// Load validates the result. [Validate] can also be called directly and
// returns every problem found.
package config
