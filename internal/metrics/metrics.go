// Package metrics holds the process-wide prometheus instruments. Counters
// only — historical storage and alerting live elsewhere.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts completed poll cycles.
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetdeck_poll_cycles_total",
		Help: "Completed poll cycles.",
	})

	// PollCycleDuration observes wall time per poll cycle.
	PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetdeck_poll_cycle_duration_seconds",
		Help:    "Wall time per poll cycle.",
		Buckets: prometheus.DefBuckets,
	})

	// CheckFailures counts failed checks by check type.
	CheckFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdeck_check_failures_total",
		Help: "Failed checks by type.",
	}, []string{"type"})

	// Reloads counts inventory reload attempts by outcome.
	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdeck_inventory_reloads_total",
		Help: "Inventory reload attempts by outcome.",
	}, []string{"outcome"})

	// ActiveSessions tracks open shell/tail sessions by kind.
	ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleetdeck_active_sessions",
		Help: "Open remote sessions by kind.",
	}, []string{"kind"})

	// SessionsTotal counts sessions opened since start, by kind.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdeck_sessions_total",
		Help: "Sessions opened by kind.",
	}, []string{"kind"})
)
