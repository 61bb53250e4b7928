package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Seed outcomes of one DecisionConfirmed event.
const (
	SeedCreated = "created"
	SeedSkipped = "skipped"
	SeedError   = "error"
)

// WorkerMetrics instruments the task seeding worker.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	seedTotal    *prometheus.CounterVec
	seedDuration *prometheus.HistogramVec
	seedInFlight prometheus.Gauge
	decisionLag  prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	seedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "legal",
			Subsystem:   "worker",
			Name:        "task_seed_total",
			Help:        "Decision events handled by the task seeder, by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	seedDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "legal",
			Subsystem:   "worker",
			Name:        "task_seed_duration_seconds",
			Help:        "Time spent turning a decision event into a task.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	seedInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "legal",
			Subsystem:   "worker",
			Name:        "task_seed_in_flight",
			Help:        "Decision events being handled.",
			ConstLabels: constLabels,
		},
	)
	decisionLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "legal",
			Subsystem:   "worker",
			Name:        "decision_lag_seconds",
			Help:        "Delay between a decision being confirmed and its task seeding starting.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(seedTotal, seedDuration, seedInFlight, decisionLag)

	return &WorkerMetrics{
		registry:     registry,
		service:      service,
		seedTotal:    seedTotal,
		seedDuration: seedDuration,
		seedInFlight: seedInFlight,
		decisionLag:  decisionLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackSeed starts measuring one event confirmed at confirmedAt. The returned
// func must be called exactly once with the seeding result.
func (m *WorkerMetrics) TrackSeed(confirmedAt time.Time) func(created bool, err error) {
	start := time.Now()
	if !confirmedAt.IsZero() {
		if lag := start.Sub(confirmedAt); lag >= 0 {
			m.decisionLag.Observe(lag.Seconds())
		}
	}
	m.seedInFlight.Inc()

	return func(created bool, err error) {
		m.seedInFlight.Dec()
		status := SeedCreated
		switch {
		case err != nil:
			status = SeedError
		case !created:
			status = SeedSkipped
		}
		m.seedTotal.WithLabelValues(status).Inc()
		m.seedDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
