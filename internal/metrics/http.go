// Package metrics records the proxy server's own HTTP metrics. Client-side
// ratelimit metrics live in the rest package.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "snowtransfer"

// HTTP holds the server collectors. A nil *HTTP records nothing.
type HTTP struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Errors   *prometheus.CounterVec
	Panics   prometheus.Counter
}

// NewHTTP registers the server collectors with reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	factory := promauto.With(reg)
	return &HTTP{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Requests served by the proxy.",
			},
			[]string{"method", "endpoint", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Time spent serving a proxy request, including ratelimit waits.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"method", "endpoint"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Error envelopes written by the proxy.",
			},
			[]string{"error_code", "http_status"},
		),
		Panics: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "panics_total",
				Help:      "Handler panics recovered by the proxy.",
			},
		),
	}
}

// RecordRequest records a served request
func (m *HTTP) RecordRequest(method, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.Duration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// RecordError records an error with code and status
func (m *HTTP) RecordError(errorCode string, httpStatus int) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(errorCode, strconv.Itoa(httpStatus)).Inc()
}

// RecordPanic records a panic recovery
func (m *HTTP) RecordPanic() {
	if m == nil {
		return
	}
	m.Panics.Inc()
}
