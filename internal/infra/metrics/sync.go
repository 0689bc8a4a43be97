package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		syncActionsTotal,
		syncDurationSeconds,
		sweepRunsTotal,
		bookingEventsTotal,
	)
}

var (
	syncActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_actions_total",
			Help: "Reconciliations by action taken and result (ok/external_error/persistence_error/error).",
		},
		[]string{"action", "result"},
	)

	syncDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Reconcile latency including lock wait and platform calls.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"action"},
	)

	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_sweep_runs_total",
			Help: "Scheduled sweeps by outcome (ran/skipped_locked/error).",
		},
		[]string{"outcome"},
	)

	bookingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_events_total",
			Help: "Booking events consumed from the event stream by type.",
		},
		[]string{"type"},
	)
)

func ObserveSync(action, result string, d time.Duration) {
	syncActionsTotal.WithLabelValues(norm(action), norm(result)).Inc()
	syncDurationSeconds.WithLabelValues(norm(action)).Observe(d.Seconds())
}

func IncSweep(outcome string) {
	sweepRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncBookingEvent(kind string) {
	bookingEventsTotal.WithLabelValues(norm(kind)).Inc()
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
