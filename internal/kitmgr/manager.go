package kitmgr

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/thoreinstein/qtkit/internal/backup"
	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
	"github.com/thoreinstein/qtkit/internal/registry"
	"github.com/thoreinstein/qtkit/internal/state"
	"github.com/thoreinstein/qtkit/internal/synth"
)

// GlobalName is the target name of the global scope.
const GlobalName = "global"

// Target is one scope together with the inputs its kits are built from.
type Target struct {
	// Name is GlobalName or the workspace name from the config.
	Name             string
	Scope            state.Scope
	Path             string
	InstallationRoot string
	AdditionalPaths  []installation.AdditionalPath
}

// Result summarizes the passes run for one target.
type Result struct {
	Target        Target
	Installations []string
	// Message is the user-facing installation summary, empty when no root
	// is configured.
	Message string
	Events  []*registry.Event
}

// Kits returns the number of kits generated across the result's passes.
func (r *Result) Kits() int {
	n := 0
	for _, ev := range r.Events {
		n += len(ev.Names)
	}
	return n
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithBuilder replaces the kit builder derived from the config.
func WithBuilder(b *synth.Builder) Option {
	return func(m *Manager) { m.builder = b }
}

// WithReconciler replaces the reconciler derived from the config.
func WithReconciler(r *registry.Reconciler) Option {
	return func(m *Manager) { m.reconciler = r }
}

// WithDiscover replaces installation.Discover.
func WithDiscover(fn func(root string) ([]string, error)) Option {
	return func(m *Manager) { m.discover = fn }
}

// WithBackupManager sets the manager used for registry snapshots when
// backups are enabled in the config.
func WithBackupManager(b *backup.Manager) Option {
	return func(m *Manager) { m.backups = b }
}

// Manager keeps the kit registries of every configured scope in sync with
// the Qt installations they reference.
type Manager struct {
	mu  sync.Mutex
	cfg *config.Config

	store      state.Store
	reconciler *registry.Reconciler
	builder    *synth.Builder
	backups    *backup.Manager
	ownBuilder bool
	discover   func(string) ([]string, error)
	logger     *slog.Logger
}

// New returns a Manager for cfg that records generated kits in store.
func New(cfg *config.Config, store state.Store, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		store:    store,
		discover: installation.Discover,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = logging.Component(m.logger, "kitmgr")

	if m.builder == nil {
		m.builder = m.newBuilder(cfg)
		m.ownBuilder = true
	}
	if m.reconciler == nil {
		ropts := []registry.Option{registry.WithLogger(m.logger)}
		if cfg.Backup.Enabled {
			if m.backups == nil {
				m.backups = backup.NewManager(backup.WithRetentionCount(cfg.Backup.Retention))
			}
			ropts = append(ropts, registry.WithBackup(m.backups))
		}
		m.reconciler = registry.NewReconciler(store, ropts...)
	}
	return m
}

// Reconciler returns the reconciler, for subscribing observers.
func (m *Manager) Reconciler() *registry.Reconciler {
	return m.reconciler
}

// Config returns the current configuration.
func (m *Manager) Config() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// SetConfig swaps the configuration used by later passes. A changed
// generator rebuilds the kit builder unless one was supplied by WithBuilder.
func (m *Manager) SetConfig(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ownBuilder && cfg.Generator != m.cfg.Generator {
		m.builder = m.newBuilder(cfg)
	}
	m.cfg = cfg
}

func (m *Manager) newBuilder(cfg *config.Config) *synth.Builder {
	return synth.New(synth.Options{
		Generator: cfg.Generator,
		Logger:    m.logger,
	})
}

func (m *Manager) kitBuilder() *synth.Builder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.builder
}

// Targets returns the global target followed by one target per configured
// workspace, sorted by name.
func (m *Manager) Targets() []Target {
	return targetsOf(m.Config())
}

func targetsOf(cfg *config.Config) []Target {
	targets := []Target{{
		Name:             GlobalName,
		Scope:            state.Global,
		Path:             registry.PathFor(state.Global, cfg.KitsFile),
		InstallationRoot: cfg.InstallationRoot,
		AdditionalPaths:  cfg.AdditionalPaths,
	}}
	for _, name := range cfg.WorkspaceNames() {
		ws := cfg.Workspaces[name]
		scope := state.Workspace(ws.Folder)
		targets = append(targets, Target{
			Name:             name,
			Scope:            scope,
			Path:             registry.PathFor(scope, ""),
			InstallationRoot: cfg.RootFor(ws),
			AdditionalPaths:  cfg.AdditionalPathsFor(ws),
		})
	}
	return targets
}

// Target returns the target with the given name.
func (m *Manager) Target(name string) (Target, error) {
	for _, t := range m.Targets() {
		if t.Name == name {
			return t, nil
		}
	}
	return Target{}, errors.Mark(errors.Newf("unknown workspace %q", name), errors.ErrNotFound)
}

// Toolsets returns the compiler kits the host build tool registered in the
// global registry. MSVC installations are matched against them.
func (m *Manager) Toolsets() []kit.Kit {
	path := registry.PathFor(state.Global, m.Config().KitsFile)
	reg, err := registry.Load(path)
	if err != nil {
		m.logger.Warn("cannot read toolset kits", "path", path, "error", err)
		return nil
	}
	return reg.ToolsetKits()
}

// CheckAll checks the global target, then every workspace. A failing target
// does not stop the others; the first error is returned.
func (m *Manager) CheckAll(ctx context.Context) ([]*Result, error) {
	var (
		results  []*Result
		firstErr error
	)
	for _, t := range m.Targets() {
		res, err := m.Check(ctx, t)
		if res != nil {
			results = append(results, res)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// Check runs the installation-root pass and the additional-paths pass for t.
func (m *Manager) Check(ctx context.Context, t Target) (*Result, error) {
	toolsets := m.Toolsets()

	res, err := m.installationPass(ctx, t, toolsets)
	if err != nil {
		return res, err
	}
	ev, err := m.additionalPathsPass(ctx, t, toolsets)
	if ev != nil {
		res.Events = append(res.Events, ev)
	}
	return res, err
}

// OnInstallationRootChanged regenerates the kits t's installation root
// provides.
func (m *Manager) OnInstallationRootChanged(ctx context.Context, t Target) (*Result, error) {
	return m.installationPass(ctx, t, m.Toolsets())
}

// OnAdditionalPathsChanged regenerates the kits t's additional paths
// provide.
func (m *Manager) OnAdditionalPathsChanged(ctx context.Context, t Target) (*registry.Event, error) {
	return m.additionalPathsPass(ctx, t, m.Toolsets())
}

func (m *Manager) installationPass(ctx context.Context, t Target, toolsets []kit.Kit) (*Result, error) {
	pass := m.reconciler.Begin(t.Scope, state.SourceInstallations, t.Path)
	res := &Result{Target: t}
	log := m.logger.With("target", t.Name)

	var kits []kit.Kit
	if t.InstallationRoot != "" {
		found, err := m.discover(t.InstallationRoot)
		if err != nil {
			return res, errors.Wrapf(err, "discovering installations for %s", t.Name)
		}
		res.Installations = found
		if len(found) == 0 {
			res.Message = "Cannot find a Qt installation in " + t.InstallationRoot
			log.Warn(res.Message)
		} else {
			res.Message = fmt.Sprintf("Found %d Qt installation(s) in %s", len(found), t.InstallationRoot)
			log.Info(res.Message)
		}
		kits = m.kitBuilder().FromInstallations(ctx, t.InstallationRoot, found, toolsets)
	}

	ev, err := m.reconcile(ctx, pass, kits)
	if ev != nil {
		res.Events = append(res.Events, ev)
	}
	return res, err
}

func (m *Manager) additionalPathsPass(ctx context.Context, t Target, toolsets []kit.Kit) (*registry.Event, error) {
	pass := m.reconciler.Begin(t.Scope, state.SourceQtPaths, t.Path)
	kits := m.kitBuilder().FromQtPaths(ctx, t.AdditionalPaths, toolsets)
	return m.reconcile(ctx, pass, kits)
}

// reconcile treats a superseded pass as a no-op.
func (m *Manager) reconcile(ctx context.Context, pass *registry.Pass, kits []kit.Kit) (*registry.Event, error) {
	ev, err := m.reconciler.Reconcile(ctx, pass, kits)
	if errors.Is(err, registry.ErrStalePass) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reconciling %s kits for %s", pass.Source, pass.Scope)
	}
	return ev, nil
}

// Reset removes every generated kit from every registry the store knows
// about, configured or not, and forgets the recorded state.
func (m *Manager) Reset(ctx context.Context) ([]*registry.Event, error) {
	targets := m.Targets()
	known, err := m.store.Scopes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing recorded scopes")
	}
	for _, scope := range known {
		if !slices.ContainsFunc(targets, func(t Target) bool { return t.Scope == scope }) {
			targets = append(targets, Target{
				Name:  scope.String(),
				Scope: scope,
				Path:  registry.PathFor(scope, m.Config().KitsFile),
			})
		}
	}

	var events []*registry.Event
	for _, t := range targets {
		evs, err := m.ResetTarget(ctx, t)
		events = append(events, evs...)
		if err != nil {
			return events, err
		}
	}
	return events, nil
}

// ResetTarget removes the kits generated for t and forgets its state.
func (m *Manager) ResetTarget(ctx context.Context, t Target) ([]*registry.Event, error) {
	var events []*registry.Event
	for _, src := range state.Sources() {
		ev, err := m.reconcile(ctx, m.reconciler.Begin(t.Scope, src, t.Path), nil)
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	if err := m.store.Reset(ctx, t.Scope); err != nil {
		return events, errors.Wrapf(err, "resetting state for %s", t.Scope)
	}
	m.logger.Info("removed generated kits", "target", t.Name, "path", t.Path)
	return events, nil
}
