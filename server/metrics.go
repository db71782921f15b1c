package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus instruments exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	chatRequests  *prometheus.CounterVec
	chatDuration  prometheus.Histogram
	activeChats   prometheus.Gauge
	sessionsTotal prometheus.Counter
}

// NewMetrics builds a self-contained registry with process and Go runtime
// collectors plus the chat instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		chatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedbot",
			Name:      "chat_requests_total",
			Help:      "Chat requests by outcome.",
		}, []string{"outcome"}),
		chatDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "schedbot",
			Name:      "chat_request_duration_seconds",
			Help:      "End-to-end chat request latency including the agent loop.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		activeChats: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "schedbot",
			Name:      "chat_requests_in_flight",
			Help:      "Chat requests currently being processed.",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "schedbot",
			Name:      "sessions_created_total",
			Help:      "Distinct session ids seen for the first time.",
		}),
	}
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveChat records one completed chat request.
func (m *Metrics) ObserveChat(outcome string, seconds float64) {
	m.chatRequests.WithLabelValues(outcome).Inc()
	m.chatDuration.Observe(seconds)
}
