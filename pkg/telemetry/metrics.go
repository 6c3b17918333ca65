package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the operation lifecycle.
// A disabled Metrics is a no-op; all record methods are nil-safe on the
// underlying collectors.
type Metrics struct {
	config MetricsConfig

	// Submission metrics
	submissions *prometheus.CounterVec

	// Poll loop metrics
	polls         *prometheus.CounterVec
	awaitDuration *prometheus.HistogramVec

	// Terminal outcome metrics
	operationsTerminal *prometheus.CounterVec

	// Resolver metrics
	resolves *prometheus.CounterVec

	// Preflight policy metrics
	preflightViolations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of mutating requests submitted",
			},
			[]string{"resource_type", "outcome"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_polls_total",
				Help:      "Total number of operation status polls issued",
			},
			[]string{"status"},
		),
		awaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_await_duration_seconds",
				Help:      "Time spent waiting for operations to reach a terminal state",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"outcome"},
		),
		operationsTerminal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_terminal_total",
				Help:      "Total number of operations that reached a terminal state",
			},
			[]string{"resource_type", "outcome"},
		),
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_resolves_total",
				Help:      "Total number of post-operation resource fetches",
			},
			[]string{"outcome"},
		),
		preflightViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preflight_violations_total",
				Help:      "Total number of local policy violations detected before submission",
			},
			[]string{"severity"},
		),
	}

	collectors := []prometheus.Collector{
		m.submissions,
		m.polls,
		m.awaitDuration,
		m.operationsTerminal,
		m.resolves,
		m.preflightViolations,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// RecordSubmission records the outcome of a Submit call.
func (m *Metrics) RecordSubmission(resourceType, outcome string) {
	if m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(resourceType, outcome).Inc()
}

// RecordPoll records one poll of an operation's status.
func (m *Metrics) RecordPoll(status string) {
	if m.polls == nil {
		return
	}
	m.polls.WithLabelValues(status).Inc()
}

// RecordAwait records a completed Await with its outcome and duration.
func (m *Metrics) RecordAwait(outcome string, d time.Duration) {
	if m.awaitDuration == nil {
		return
	}
	m.awaitDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordTerminal records an operation reaching a terminal state.
func (m *Metrics) RecordTerminal(resourceType, outcome string) {
	if m.operationsTerminal == nil {
		return
	}
	m.operationsTerminal.WithLabelValues(resourceType, outcome).Inc()
}

// RecordResolve records the outcome of a resource fetch.
func (m *Metrics) RecordResolve(outcome string) {
	if m.resolves == nil {
		return
	}
	m.resolves.WithLabelValues(outcome).Inc()
}

// RecordPreflightViolation records one local policy violation.
func (m *Metrics) RecordPreflightViolation(severity string) {
	if m.preflightViolations == nil {
		return
	}
	m.preflightViolations.WithLabelValues(severity).Inc()
}

// Handler returns an HTTP handler exposing the registry, for long-running
// invocations that serve /metrics.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
