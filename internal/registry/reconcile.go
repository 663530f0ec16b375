package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
	"github.com/thoreinstein/qtkit/internal/state"
)

// ErrStalePass is returned by Reconcile when a pass that began later for the
// same scope and source has already been applied.
var ErrStalePass = errors.New("superseded by a newer pass")

// Event describes a completed reconciliation.
type Event struct {
	Scope  state.Scope
	Source state.Source
	Path   string
	// Names are the kits generated by the pass.
	Names []string
	// Removed are the previously generated kits dropped from the registry.
	Removed []string
	// Written is false when there was nothing to write.
	Written bool
}

// Observer is notified after each successful reconciliation.
type Observer func(Event)

// Backuper snapshots a registry file before it is rewritten.
type Backuper interface {
	Backup(ctx context.Context, scope state.Scope, path string) error
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithBackup snapshots registries before every rewrite.
func WithBackup(b Backuper) Option {
	return func(r *Reconciler) { r.backup = b }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(r *Reconciler) { r.observers = append(r.observers, o) }
}

type passKey struct {
	scope  state.Scope
	source state.Source
}

// Pass is one synthesis pass for a scope and source. Obtain it from Begin
// when the triggering event happens, before synthesis starts.
type Pass struct {
	Scope  state.Scope
	Source state.Source
	Path   string

	ticket uint64
}

// Reconciler merges generated kits into registries.
type Reconciler struct {
	store     state.Store
	logger    *slog.Logger
	backup    Backuper
	observers []Observer

	mu      sync.Mutex
	next    uint64
	applied map[passKey]uint64
	files   map[string]*sync.Mutex
}

// NewReconciler returns a Reconciler that tracks ownership in store.
func NewReconciler(store state.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   store,
		applied: make(map[passKey]uint64),
		files:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = logging.Component(r.logger, "registry")
	return r
}

// Subscribe registers an observer after construction.
func (r *Reconciler) Subscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Begin starts a pass writing to the registry at path. Passes are ordered by
// the time Begin is called, not by the time Reconcile is.
func (r *Reconciler) Begin(scope state.Scope, source state.Source, path string) *Pass {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return &Pass{Scope: scope, Source: source, Path: path, ticket: r.next}
}

func (r *Reconciler) fileLock(path string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.files[path]
	if !ok {
		m = &sync.Mutex{}
		r.files[path] = m
	}
	return m
}

// Reconcile replaces the kits the previous pass generated for the pass's
// scope and source with kits, leaving every other entry in place, and
// records kits as the new generation.
//
// The registry is rewritten when the result is non-empty or the file
// already exists. A write failure is returned and the recorded generation is
// left unchanged. An unreadable registry is logged and treated as empty.
func (r *Reconciler) Reconcile(ctx context.Context, pass *Pass, kits []kit.Kit) (*Event, error) {
	lock := r.fileLock(pass.Path)
	lock.Lock()
	defer lock.Unlock()

	key := passKey{scope: pass.Scope, source: pass.Source}
	log := r.logger.With("scope", pass.Scope.String(), "source", string(pass.Source), "path", pass.Path)

	r.mu.Lock()
	stale := pass.ticket < r.applied[key]
	r.mu.Unlock()
	if stale {
		log.Debug("discarding stale pass")
		return nil, ErrStalePass
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prev, err := r.store.Get(ctx, pass.Scope, pass.Source)
	if err != nil {
		return nil, errors.Wrap(err, "loading previous generation")
	}

	reg, err := Load(pass.Path)
	if err != nil {
		log.Warn("cannot read kit registry, treating it as empty", "error", err)
		reg = &Registry{Path: pass.Path, Exists: reg.Exists}
	}

	next, removed := reg.Without(prev.NameSet())
	if err := next.Append(kits...); err != nil {
		return nil, err
	}

	ev := &Event{
		Scope:   pass.Scope,
		Source:  pass.Source,
		Path:    pass.Path,
		Names:   kit.Names(kits),
		Removed: removed,
	}

	if len(next.Entries) > 0 || reg.Exists {
		if reg.Exists && r.backup != nil {
			if err := r.backup.Backup(ctx, pass.Scope, pass.Path); err != nil {
				log.Warn("registry backup failed", "error", err)
			}
		}
		if err := next.Save(); err != nil {
			log.Error("writing kit registry failed", "error", err)
			return nil, err
		}
		ev.Written = true
		log.Info("wrote kit registry", "kits", len(kits), "removed", len(removed), "entries", len(next.Entries))
	}

	if err := r.store.Set(ctx, pass.Scope, pass.Source, state.NewScopedState(ev.Names)); err != nil {
		return nil, errors.Wrap(err, "recording generated kits")
	}

	r.mu.Lock()
	if pass.ticket > r.applied[key] {
		r.applied[key] = pass.ticket
	}
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	for _, o := range observers {
		o(*ev)
	}
	return ev, nil
}

// Run begins and reconciles a pass in one step.
func (r *Reconciler) Run(ctx context.Context, scope state.Scope, source state.Source, path string, kits []kit.Kit) (*Event, error) {
	return r.Reconcile(ctx, r.Begin(scope, source, path), kits)
}
