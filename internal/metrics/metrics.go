// Package metrics holds the Prometheus collectors of the payments engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const OutcomeProcessed = "processed"

type Metrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	httpReqTotal    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_commands_total",
			Help: "Commands handled by the engine, by kind and outcome",
		}, []string{"kind", "outcome"}),

		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payments_command_duration_seconds",
			Help:    "Time spent processing one command",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"kind"}),

		httpReqTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),

		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payments_http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "endpoint"}),
	}
}

// ObserveCommand records one command. outcome is OutcomeProcessed or the
// error code of the rejection.
func (m *Metrics) ObserveCommand(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(kind, outcome).Inc()
	m.commandDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRequest(method, endpoint, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpReqTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpLatency.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// CommandCount returns the counter for kind/outcome.
func (m *Metrics) CommandCount(kind, outcome string) prometheus.Counter {
	return m.commandsTotal.WithLabelValues(kind, outcome)
}

func (m *Metrics) RequestCount(method, endpoint, status string) prometheus.Counter {
	return m.httpReqTotal.WithLabelValues(method, endpoint, status)
}
