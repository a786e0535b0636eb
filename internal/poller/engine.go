package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fleetdeck/fleetdeck/internal/checks"
	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/metrics"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

// checkGrace is added to a check's own timeout before the engine gives up
// waiting on it. A runner that overruns is abandoned, not joined.
const checkGrace = 2 * time.Second

// CheckFunc runs one service check. Swappable so engine tests don't touch
// the network.
type CheckFunc func(ctx context.Context, exec checks.Executor, svc config.Service) checks.Result

// Engine drives the poll loop. One engine per process.
type Engine struct {
	store    *config.Store
	resolver *creds.Resolver
	snaps    *SnapshotStore
	log      *zap.Logger
	check    CheckFunc
	kick     chan struct{}
}

// NewEngine wires the engine to its inventory store and credential resolver.
func NewEngine(store *config.Store, resolver *creds.Resolver, snaps *SnapshotStore, log *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		resolver: resolver,
		snaps:    snaps,
		log:      log,
		check:    checks.Run,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an immediate poll cycle ahead of schedule. Non-blocking; a
// kick while one is already pending is absorbed.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// PollOnce runs a single poll cycle and returns the published snapshot.
func (e *Engine) PollOnce(ctx context.Context) *Snapshot {
	e.cycle(ctx)
	return e.snaps.Current()
}

// Run polls immediately, then on every tick of the inventory's interval
// until the context is canceled. The interval is re-read each cycle so a
// reloaded inventory takes effect without a restart.
func (e *Engine) Run(ctx context.Context) {
	e.cycle(ctx)
	for {
		interval := e.store.Current().Poll.Interval()
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-e.kick:
			timer.Stop()
		case <-timer.C:
		}
		e.cycle(ctx)
	}
}

// cycle runs every check in the current inventory and publishes one snapshot.
// A panic anywhere in the cycle is logged and the previous snapshot stands.
func (e *Engine) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("poll cycle panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	inv := e.store.Current()

	statuses := make([]ServerStatus, len(inv.Servers))
	var wg sync.WaitGroup
	for i, srv := range inv.Servers {
		wg.Add(1)
		go func(i int, srv config.Server) {
			defer wg.Done()
			statuses[i] = e.pollServer(ctx, srv)
		}(i, srv)
	}
	wg.Wait()

	snap := &Snapshot{
		Timestamp: time.Now().UTC(),
		Servers:   make(map[string]ServerStatus, len(statuses)),
	}
	for _, st := range statuses {
		snap.Servers[st.ID] = st
	}
	e.snaps.Publish(snap)

	metrics.PollCycles.Inc()
	metrics.PollCycleDuration.Observe(time.Since(start).Seconds())
	e.log.Debug("poll cycle complete",
		zap.Int("servers", len(statuses)),
		zap.Duration("elapsed", time.Since(start)))
}

// pollServer runs one server's checks concurrently and aggregates the color.
func (e *Engine) pollServer(ctx context.Context, srv config.Server) ServerStatus {
	status := newServerStatus(srv)
	exec := e.executorFor(srv)

	results := make([]ServiceStatus, len(srv.Services))
	var wg sync.WaitGroup
	for i, svc := range srv.Services {
		wg.Add(1)
		go func(i int, svc config.Service) {
			defer wg.Done()
			results[i] = e.runCheck(ctx, exec, svc)
		}(i, svc)
	}
	wg.Wait()

	status.Services = results
	status.Color = aggregate(results)
	return status
}

// runCheck bounds one check with its own deadline plus grace. A runner that
// never returns is counted as a timeout failure so the cycle still publishes.
func (e *Engine) runCheck(ctx context.Context, exec checks.Executor, svc config.Service) ServiceStatus {
	st := ServiceStatus{
		ID:        svc.ID,
		Name:      svc.Name,
		Type:      string(svc.Type),
		CheckedAt: time.Now().UTC(),
	}

	done := make(chan checks.Result, 1)
	go func() {
		// checks.Run recovers internally; this is the backstop for panics
		// in a swapped-in check function.
		defer func() {
			if r := recover(); r != nil {
				done <- checks.Result{Detail: fmt.Sprintf("check error: %v", r)}
			}
		}()
		done <- e.check(ctx, exec, svc)
	}()

	select {
	case res := <-done:
		st.OK = res.OK
		st.Detail = res.Detail
	case <-time.After(checkDeadline(svc)):
		st.Detail = "check timed out"
	case <-ctx.Done():
		st.Detail = "canceled"
	}

	if !st.OK {
		metrics.CheckFailures.WithLabelValues(string(svc.Type)).Inc()
	}
	return st
}

// checkDeadline is how long the engine waits on one runner before abandoning
// it: the check's own budget plus grace, never the poll interval.
func checkDeadline(svc config.Service) time.Duration {
	return svc.Timeout(checks.DefaultTimeout(svc.Type)) + checkGrace
}

// executorFor builds the server's remote executor. Each Exec dials a fresh
// connection and closes it after the command, so a wedged host can't poison
// later cycles. Credential resolution is deferred to first use and its
// failure surfaces as a check failure, not a cycle abort.
func (e *Engine) executorFor(srv config.Server) checks.Executor {
	return checks.ExecutorFunc(func(cmd string, timeout time.Duration) (sshutil.Result, error) {
		bundle, err := e.resolver.Resolve(srv.SSH.CredentialID)
		if err != nil {
			return sshutil.Result{}, fmt.Errorf("credential: %w", err)
		}
		return sshutil.ExecOnce(srv.SSH, bundle, cmd, timeout)
	})
}
