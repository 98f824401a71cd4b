// Package metrics exposes Prometheus instrumentation for the orchestrator,
// dispatcher, and engine adapter.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors published on the daemon's /metrics endpoint.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal       *prometheus.CounterVec
	dispatcherQueueDepth  prometheus.Gauge
	dispatcherDropped     prometheus.Counter
	engineRequestDuration *prometheus.HistogramVec
	engineRequestErrors   *prometheus.CounterVec
}

// New constructs a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "operations_total",
			Help:      "Orchestrator operations executed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		dispatcherQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mosaic",
			Name:      "dispatcher_queue_depth",
			Help:      "Operations waiting in the dispatcher queue.",
		}),
		dispatcherDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "dispatcher_dropped_total",
			Help:      "Operations rejected because the dispatcher queue was full.",
		}),
		engineRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mosaic",
			Name:      "engine_request_duration_seconds",
			Help:      "Duration of engine HTTP calls, by call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		engineRequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "engine_request_errors_total",
			Help:      "Engine HTTP calls that failed at transport level, by call.",
		}, []string{"call"}),
	}
	registry.MustRegister(
		m.operationsTotal,
		m.dispatcherQueueDepth,
		m.dispatcherDropped,
		m.engineRequestDuration,
		m.engineRequestErrors,
	)
	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one orchestrator operation execution.
func (m *Metrics) RecordOperation(kind, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordQueueDepth publishes the dispatcher queue depth.
func (m *Metrics) RecordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.dispatcherQueueDepth.Set(float64(depth))
}

// RecordDropped counts one operation rejected by a full queue.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.dispatcherDropped.Inc()
}

// RecordEngineRequest observes one engine HTTP round trip.
func (m *Metrics) RecordEngineRequest(call string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.engineRequestDuration.WithLabelValues(call).Observe(duration.Seconds())
	if err != nil {
		m.engineRequestErrors.WithLabelValues(call).Inc()
	}
}
