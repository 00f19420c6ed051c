package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Spending metrics
	SpendingAlertsTotal   *prometheus.CounterVec
	SpendingBlockedTotal  prometheus.Counter
	SpendingVolumeCents   *prometheus.CounterVec

	// Billing metrics
	BillingEventsTotal *prometheus.CounterVec

	// Entitlement metrics
	GenerationsTotal *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	defaultM    *Metrics
)

// Default returns the process-wide metrics instance. promauto registers
// collectors globally, so this must stay a singleton.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultM = New("lumastudio")
	})
	return defaultM
}

// New creates a new Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lumastudio"
	}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		SpendingAlertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "spending",
				Name:      "alerts_fired_total",
				Help:      "Total number of spending alerts fired",
			},
			[]string{"frequency"},
		),
		SpendingBlockedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "spending",
				Name:      "transactions_blocked_total",
				Help:      "Total number of transactions rejected by a blocking limit",
			},
		),
		SpendingVolumeCents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "spending",
				Name:      "volume_cents_total",
				Help:      "Total recorded spend in cents",
			},
			[]string{"category"},
		),

		BillingEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "events_total",
				Help:      "Total number of billing events processed",
			},
			[]string{"type", "status"}, // status: ok, error
		),

		GenerationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "entitlement",
				Name:      "generations_total",
				Help:      "Total number of generations consumed",
			},
			[]string{"tier"},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// --- Package-level helpers over the default instance ---

// RecordBillingEvent counts one processed billing event.
func RecordBillingEvent(eventType string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	Default().BillingEventsTotal.WithLabelValues(eventType, status).Inc()
}

// RecordSpendingAlert counts one fired spending alert.
func RecordSpendingAlert(frequency string) {
	Default().SpendingAlertsTotal.WithLabelValues(frequency).Inc()
}

// RecordSpendingBlocked counts one transaction rejected by a blocking limit.
func RecordSpendingBlocked() {
	Default().SpendingBlockedTotal.Inc()
}

// RecordSpend counts recorded spend volume by category.
func RecordSpend(category string, amountCents int64) {
	Default().SpendingVolumeCents.WithLabelValues(category).Add(float64(amountCents))
}

// RecordGeneration counts one consumed generation.
func RecordGeneration(tier string) {
	Default().GenerationsTotal.WithLabelValues(tier).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
