package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the request bridge.
type Metrics struct {
	RequestTotal      *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	BlockedTotal      *prometheus.CounterVec
	HookDispatchTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reqbridge_request_total",
			Help: "Total number of outgoing requests handled by the bridge.",
		}, []string{"method", "outcome", "status"}),

		RequestDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reqbridge_request_duration_ms",
			Help:    "Outgoing request duration in milliseconds.",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"method"}),

		BlockedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reqbridge_blocked_total",
			Help: "Total requests refused before reaching the network.",
		}, []string{"checker"}),

		HookDispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reqbridge_hook_dispatch_total",
			Help: "Total engine hook events forwarded to the host.",
		}, []string{"hook"}),
	}
}

// Request outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeBlocked = "blocked"
	OutcomeError   = "error"
)

// RecordRequest records a completed request. A zero status is reported as
// "none". Nil receivers are ignored.
func (m *Metrics) RecordRequest(method, outcome string, status int, durationMs float64) {
	if m == nil {
		return
	}
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.RequestTotal.WithLabelValues(method, outcome, code).Inc()
	m.RequestDurationMs.WithLabelValues(method).Observe(durationMs)
}

// RecordBlocked records a request refused by checker.
func (m *Metrics) RecordBlocked(checker string) {
	if m == nil {
		return
	}
	m.BlockedTotal.WithLabelValues(checker).Inc()
}

// RecordHookDispatch records an engine hook forwarded to the host.
func (m *Metrics) RecordHookDispatch(hook string) {
	if m == nil {
		return
	}
	m.HookDispatchTotal.WithLabelValues(hook).Inc()
}
