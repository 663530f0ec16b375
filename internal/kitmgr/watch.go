package kitmgr

import (
	"context"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/thoreinstein/qtkit/internal/config"
	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/registry"
)

// DefaultInterval is how often Watch re-checks every target when the
// configuration does not change.
const DefaultInterval = time.Minute

// Reloader produces the configuration after the config file changed.
type Reloader func() (*config.Config, error)

// Watch checks every target, then keeps the registries current: on each
// change of the viper config file it applies the new configuration, and
// every interval it re-checks everything. It returns when ctx is done.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, reload Reloader) error {
	changes := make(chan struct{}, 1)
	viper.OnConfigChange(func(fsnotify.Event) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	viper.WatchConfig()
	return m.watch(ctx, interval, changes, reload)
}

func (m *Manager) watch(ctx context.Context, interval time.Duration, changes <-chan struct{}, reload Reloader) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if _, err := m.CheckAll(ctx); err != nil {
		m.logger.Error("initial check failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.CheckAll(ctx); err != nil {
				m.logger.Error("periodic check failed", "error", err)
			}
		case <-changes:
			next, err := reload()
			if err != nil {
				m.logger.Warn("ignoring invalid configuration", "error", err)
				continue
			}
			if _, err := m.Apply(ctx, next); err != nil {
				m.logger.Error("applying configuration failed", "error", err)
			}
		}
	}
}

// Apply switches to next and runs only the passes whose inputs changed:
// new targets are checked in full, targets that disappeared are reset, and
// existing ones rerun the pass for a changed installation root or changed
// additional paths. A changed generator rechecks everything.
func (m *Manager) Apply(ctx context.Context, next *config.Config) ([]*Result, error) {
	prevCfg := m.Config()
	prev := targetsOf(prevCfg)
	m.SetConfig(next)
	cur := targetsOf(next)

	regenerateAll := prevCfg.Generator != next.Generator

	var (
		results  []*Result
		firstErr error
	)
	record := func(res *Result, err error) {
		if res != nil {
			results = append(results, res)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, t := range prev {
		if !slices.ContainsFunc(cur, sameRegistry(t)) {
			_, err := m.ResetTarget(ctx, t)
			record(nil, err)
		}
	}

	for _, t := range cur {
		i := slices.IndexFunc(prev, sameRegistry(t))
		if i < 0 || regenerateAll {
			record(m.Check(ctx, t))
			continue
		}
		old := prev[i]
		if old.InstallationRoot != t.InstallationRoot {
			record(m.OnInstallationRootChanged(ctx, t))
		}
		if !slices.Equal(old.AdditionalPaths, t.AdditionalPaths) {
			ev, err := m.OnAdditionalPathsChanged(ctx, t)
			res := &Result{Target: t}
			if ev != nil {
				res.Events = []*registry.Event{ev}
			}
			record(res, err)
		}
	}

	if firstErr != nil {
		return results, errors.Wrap(firstErr, "applying configuration")
	}
	return results, nil
}

func sameRegistry(t Target) func(Target) bool {
	return func(o Target) bool {
		return o.Scope == t.Scope && o.Path == t.Path
	}
}
