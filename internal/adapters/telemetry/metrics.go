// Package telemetry provides tracing and metrics adapters.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/relcache/internal/core/ports"
)

const namespace = "relcache"

// Metrics is the Prometheus implementation of ports.Metrics. Each instance
// owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	passes       *prometheus.CounterVec
	committed    *prometheus.CounterVec
	evicted      *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	storeCalls   *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
	spanDuration *prometheus.HistogramVec
}

var _ ports.Metrics = (*Metrics)(nil)

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Number of ingestion passes by agent kind and result",
		}, []string{"kind", "result"}),
		committed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_committed_total",
			Help:      "Number of entries written by ingestion passes",
		}, []string{"kind"}),
		evicted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_evicted_total",
			Help:      "Number of entries evicted by ingestion passes",
		}, []string{"kind"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_rejected_total",
			Help:      "Number of upstream resources dropped by the builder",
		}, []string{"kind"}),
		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of successful ingestion passes",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"kind"}),
		storeCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_calls_total",
			Help:      "Number of cache store calls by operation and entry type",
		}, []string{"op", "type"}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Number of failed cache store calls by operation",
		}, []string{"op"}),
		spanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "span_duration_seconds",
			Help:      "Duration of traced operations by span name and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"span", "status"}),
	}
}

// PassSucceeded implements ports.Metrics.
func (m *Metrics) PassSucceeded(kind string, stats ports.PassStats) {
	m.passes.WithLabelValues(kind, "success").Inc()
	m.committed.WithLabelValues(kind).Add(float64(stats.Committed))
	m.evicted.WithLabelValues(kind).Add(float64(stats.Evicted))
	m.rejected.WithLabelValues(kind).Add(float64(stats.Rejected))
	m.passDuration.WithLabelValues(kind).Observe(stats.Duration.Seconds())
}

// PassFailed implements ports.Metrics.
func (m *Metrics) PassFailed(kind string) {
	m.passes.WithLabelValues(kind, "failure").Inc()
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) storeCall(op, typ string, err error) {
	m.storeCalls.WithLabelValues(op, typ).Inc()
	if err != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}
