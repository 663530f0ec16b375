// Package cli wires configuration, state and the kit manager together for
// the qtkit commands.
package cli

import (
	"log/slog"

	"github.com/thoreinstein/qtkit/internal/backup"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kitmgr"
	"github.com/thoreinstein/qtkit/internal/registry"
	"github.com/thoreinstein/qtkit/internal/state"
)

// ErrUnknownWorkspace is returned when a workspace name is not configured.
var ErrUnknownWorkspace = errors.New("unknown workspace")

// Session holds the collaborators a command works with. Close it when done.
type Session struct {
	Config  *config.Config
	Store   state.Store
	Backups *backup.Manager
	Manager *kitmgr.Manager
	Logger  *slog.Logger
}

// Open opens the state store cfg selects and builds a kit manager on top of
// it. Without a configured installation root it looks for one in the
// default locations; an unsupported host fails here with
// errors.ErrUnsupportedPlatform.
func Open(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.InstallationRoot == "" {
		root, err := installation.FindDefaultRoot()
		if err != nil {
			return nil, errors.Wrap(err, "resolving the default Qt installation root")
		}
		if root != "" {
			logger.Info("Qt installation root not configured, found one at the default location",
				"root", root, "hint", "qtkit root detect --save")
		}
	}

	store, err := state.Open(cfg.State)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s state store", cfg.State.Backend)
	}

	backups := backup.NewManager(backup.WithRetentionCount(cfg.Backup.Retention))
	mgr := kitmgr.New(cfg, store,
		kitmgr.WithLogger(logger),
		kitmgr.WithBackupManager(backups),
	)

	return &Session{
		Config:  cfg,
		Store:   store,
		Backups: backups,
		Manager: mgr,
		Logger:  logger,
	}, nil
}

// Close releases the state store.
func (s *Session) Close() error {
	return s.Store.Close()
}

// Targets returns every target, or only the named one when name is set.
// "global" names the global target.
func (s *Session) Targets(name string) ([]kitmgr.Target, error) {
	if name == "" {
		return s.Manager.Targets(), nil
	}
	t, err := s.Manager.Target(name)
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownWorkspace, "%q (configured: %v)", name, s.Config.WorkspaceNames())
	}
	return []kitmgr.Target{t}, nil
}

// Target returns the named target, defaulting to the global one.
func (s *Session) Target(name string) (kitmgr.Target, error) {
	if name == "" {
		name = kitmgr.GlobalName
	}
	targets, err := s.Targets(name)
	if err != nil {
		return kitmgr.Target{}, err
	}
	return targets[0], nil
}

// Registry loads the registry of the named target. A malformed registry is
// returned as an error rather than treated as empty.
func (s *Session) Registry(name string) (*registry.Registry, error) {
	t, err := s.Target(name)
	if err != nil {
		return nil, err
	}
	return registry.Load(t.Path)
}
