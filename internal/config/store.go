package config

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/fleetdeck/fleetdeck/internal/metrics"
)

// Store holds the current inventory behind an atomic pointer. Readers always
// see a fully-old or fully-new inventory, never a mix. Reloads are serialized:
// at most one is in flight at a time.
type Store struct {
	path string
	log  *zap.Logger

	current atomic.Pointer[Inventory]
	gen     atomic.Uint64

	reloadMu sync.Mutex
	hooksMu  sync.Mutex
	hooks    []func(*Inventory)
}

// NewStore loads the inventory at path and returns a store wrapping it.
// A load failure here is fatal to the caller.
func NewStore(path string, log *zap.Logger) (*Store, error) {
	inv, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, log: log}
	s.current.Store(inv)
	s.gen.Store(1)
	return s, nil
}

// Current returns the live inventory. The returned value is immutable;
// callers must not modify it.
func (s *Store) Current() *Inventory {
	return s.current.Load()
}

// Generation returns a counter that advances on every successful reload.
// Caches keyed on credential ids compare generations to decide invalidation.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// OnReload registers a hook invoked with the fresh inventory after each
// successful reload. Hooks run synchronously on the reloading goroutine.
func (s *Store) OnReload(fn func(*Inventory)) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, fn)
	s.hooksMu.Unlock()
}

// Reload re-parses the backing file and atomically swaps the inventory.
// On parse or validation failure the prior state is left untouched and the
// error is returned; the generation does not advance.
func (s *Store) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	inv, err := Load(s.path)
	if err != nil {
		metrics.Reloads.WithLabelValues("failure").Inc()
		s.log.Warn("inventory reload failed, keeping previous state", zap.Error(err))
		return err
	}
	metrics.Reloads.WithLabelValues("success").Inc()

	s.current.Store(inv)
	s.gen.Add(1)
	s.log.Info("inventory reloaded", zap.String("summary", Summary(inv)))

	s.hooksMu.Lock()
	hooks := make([]func(*Inventory), len(s.hooks))
	copy(hooks, s.hooks)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(inv)
	}
	return nil
}
