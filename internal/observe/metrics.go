package observe

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the request lifecycle metrics. It satisfies the
// middleware Observer interface.
type Metrics struct {
	RequestsStarted   *prometheus.CounterVec
	RequestsCompleted *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	InFlight          prometheus.Gauge
	DuplicateFinishes prometheus.Counter
}

// NewMetrics creates and registers all lifecycle metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqtrace_requests_started_total",
				Help: "Total number of requests that received a trace ID.",
			},
			[]string{"method"},
		),
		RequestsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqtrace_requests_completed_total",
				Help: "Total number of requests whose response finished.",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "reqtrace_request_duration_seconds",
				Help: "Time from request start to response finish.",
				// Buckets: 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reqtrace_requests_in_flight",
				Help: "Requests started whose response has not finished.",
			},
		),
		DuplicateFinishes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reqtrace_duplicate_finish_total",
				Help: "Finish signals ignored because the request had already completed.",
			},
		),
	}

	reg.MustRegister(
		m.RequestsStarted,
		m.RequestsCompleted,
		m.RequestDuration,
		m.InFlight,
		m.DuplicateFinishes,
	)

	return m
}

// RequestStarted counts a new request.
func (m *Metrics) RequestStarted(method string) {
	m.RequestsStarted.WithLabelValues(method).Inc()
	m.InFlight.Inc()
}

// RequestCompleted records a finished response.
func (m *Metrics) RequestCompleted(method string, status int, elapsed time.Duration) {
	m.InFlight.Dec()
	m.RequestsCompleted.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// DuplicateFinish counts an ignored repeat finish signal.
func (m *Metrics) DuplicateFinish() {
	m.DuplicateFinishes.Inc()
}

// Handler returns the HTTP handler for the metrics endpoint of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
