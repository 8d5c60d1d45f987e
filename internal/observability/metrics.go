package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the alerting engine.
type Metrics struct {
	CyclesRun            prometheus.Counter
	CandidatesGenerated  prometheus.Counter
	DuplicatesSuppressed prometheus.Counter
	AlertsPersisted      prometheus.Counter
	DispatchSuccesses    prometheus.Counter
	DispatchFailures     prometheus.Counter
	CycleDuration        prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesRun,
		m.CandidatesGenerated,
		m.DuplicatesSuppressed,
		m.AlertsPersisted,
		m.DispatchSuccesses,
		m.DispatchFailures,
		m.CycleDuration,
	)
	return m
}

// NewMetricsForTesting returns unregistered metrics so parallel tests avoid
// "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gardu_alerting",
			Name:      "evaluation_cycles_total",
			Help:      "Total evaluation cycles run.",
		}),
		CandidatesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gardu_alerting",
			Name:      "candidates_generated_total",
			Help:      "Total candidate alerts produced by threshold evaluation.",
		}),
		DuplicatesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gardu_alerting",
			Name:      "duplicates_suppressed_total",
			Help:      "Candidates dropped because an alert already existed for the day.",
		}),
		AlertsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gardu_alerting",
			Name:      "alerts_persisted_total",
			Help:      "Alerts written to the store.",
		}),
		DispatchSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gardu_alerting",
			Name:      "dispatch_successes_total",
			Help:      "Messages delivered through the notification gateway.",
		}),
		DispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gardu_alerting",
			Name:      "dispatch_failures_total",
			Help:      "Notification gateway delivery failures.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gardu_alerting",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete evaluate-dedup-persist-dispatch cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
