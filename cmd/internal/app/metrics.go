package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process-wide Prometheus registry and every collector the
// server wires into its layers. Collectors are handed to components as plain
// interfaces so the core packages stay free of registry concerns.
type Metrics struct {
	registry *prometheus.Registry

	Mutations        *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	BroadcastDropped prometheus.Counter
	ConnectedClients prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splitbite_mutations_total",
			Help: "Accepted mutating operations, by operation name.",
		}, []string{"op"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splitbite_events_published_total",
			Help: "Change events fanned out to watchers, by event type.",
		}, []string{"type"}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "splitbite_broadcast_dropped_total",
			Help: "Events dropped because a watcher's send queue was full.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "splitbite_ws_connected_clients",
			Help: "Currently connected websocket clients.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splitbite_http_requests_total",
			Help: "HTTP requests served, by method and status class.",
		}, []string{"method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "splitbite_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.Mutations,
		m.EventsPublished,
		m.BroadcastDropped,
		m.ConnectedClients,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
