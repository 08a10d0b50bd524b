package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for the API. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	PointsCredited *prometheus.CounterVec
	PointsDebited  *prometheus.CounterVec
	LedgerClamped  prometheus.Counter
	Transitions    *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		PointsCredited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "points_credited_total",
				Help:      "Points added to wallets, by reason",
			},
			[]string{"reason"},
		),
		PointsDebited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "points_debited_total",
				Help:      "Points removed from wallets, by reason",
			},
			[]string{"reason"},
		),
		LedgerClamped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "clamped_adjustments_total",
				Help:      "Adjustments whose applied delta was clamped at zero balance",
			},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workflow",
				Name:      "transitions_total",
				Help:      "Workflow state transitions",
			},
			[]string{"workflow", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAdjustment records one ledger write. Safe on a nil receiver.
func (m *Metrics) ObserveAdjustment(reason string, requested, applied int) {
	if m == nil {
		return
	}
	switch {
	case applied > 0:
		m.PointsCredited.WithLabelValues(reason).Add(float64(applied))
	case applied < 0:
		m.PointsDebited.WithLabelValues(reason).Add(float64(-applied))
	}
	if applied != requested {
		m.LedgerClamped.Inc()
	}
}

// ObserveTransition counts a workflow entering status. Safe on a nil receiver.
func (m *Metrics) ObserveTransition(workflow, status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(workflow, status).Inc()
}
