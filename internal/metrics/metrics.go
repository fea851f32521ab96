// Package metrics exposes the pipeline's Prometheus instrumentation.
// No example repo in the pack instruments a trading pipeline with
// client_golang directly (go-ethereum rolls its own metrics registry;
// klaytn only wires client_golang at the cmd/ entrypoint to bridge an
// existing go-metrics registry into an HTTP exporter), so this package
// follows the standard client_golang idiom — promauto-registered
// collectors against an explicit *prometheus.Registry rather than the
// global default one, so tests never collide with each other or with
// a real process's registry. The snipe worker and the position monitor
// update these collectors; no other component does.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the pipeline updates. Pass *Metrics by
// pointer into each component at wiring time rather than reaching for
// package-level globals, so a component under test can supply its own
// isolated instance.
type Metrics struct {
	registry *prometheus.Registry

	MigrationsDetected prometheus.Counter
	MigrationsFiltered *prometheus.CounterVec // label: reason

	SnipesAttempted prometheus.Counter
	SnipesSucceeded prometheus.Counter
	SnipesFailed    *prometheus.CounterVec // label: reason

	PositionsOpened prometheus.Counter
	PositionsClosed *prometheus.CounterVec // label: sell_reason

	BuyLatencySeconds  prometheus.Histogram
	SellLatencySeconds prometheus.Histogram

	WalletLockWaitSeconds prometheus.Histogram
	QueueDepth            prometheus.Gauge
}

// New registers every collector against a fresh registry and returns
// both, so the caller decides whether to mount /metrics or (in tests)
// discard the registry entirely.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		MigrationsDetected: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_migrations_detected_total",
			Help: "Total number of pool-migration events detected.",
		}),
		MigrationsFiltered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_migrations_filtered_total",
			Help: "Total number of migrations that did not pass a sniper's filters.",
		}, []string{"reason"}),

		SnipesAttempted: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_snipes_attempted_total",
			Help: "Total number of buy jobs dequeued and attempted.",
		}),
		SnipesSucceeded: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_snipes_succeeded_total",
			Help: "Total number of buy jobs that resulted in an open position.",
		}),
		SnipesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_snipes_failed_total",
			Help: "Total number of buy jobs that failed, by reason.",
		}, []string{"reason"}),

		PositionsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "sniper_positions_opened_total",
			Help: "Total number of positions opened.",
		}),
		PositionsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_positions_closed_total",
			Help: "Total number of positions closed, by sell reason.",
		}, []string{"sell_reason"}),

		BuyLatencySeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sniper_buy_latency_seconds",
			Help:    "Wall-clock time from job dequeue to submitted buy transaction.",
			Buckets: prometheus.DefBuckets,
		}),
		SellLatencySeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sniper_sell_latency_seconds",
			Help:    "Wall-clock time from sell request to submitted sell transaction.",
			Buckets: prometheus.DefBuckets,
		}),

		WalletLockWaitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sniper_wallet_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a wallet lock.",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_queue_depth",
			Help: "Current depth of the snipe job queue.",
		}),
	}
}

// Handler returns the promhttp handler for this registry, to be
// mounted at /metrics by the daemon entrypoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDuration is a small helper for the common
// `defer m.ObserveDuration(hist, time.Now())()` call-site idiom.
func ObserveDuration(h prometheus.Histogram, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
