package rest

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the client. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Retries         *prometheus.CounterVec
	HeadersOn429    *prometheus.CounterVec
	GlobalLockouts  prometheus.Counter
	Failures        *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	QueueWait       *prometheus.HistogramVec
	BucketRemaining *prometheus.GaugeVec
}

// NewMetrics registers the client instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "snowtransfer",
				Subsystem: "rest",
				Name:      "requests_total",
				Help:      "Network attempts by bucket, method and response status",
			},
			[]string{"bucket", "method", "status"},
		),

		Retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "snowtransfer",
				Subsystem: "rest",
				Name:      "retries_total",
				Help:      "Retried attempts by reason",
			},
			[]string{"reason"},
		),

		HeadersOn429: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "snowtransfer",
				Subsystem: "ratelimit",
				Name:      "headers_on_429_total",
				Help:      "Rate-limit headers applied from a 429 response, meaning local pacing under-predicted the limit",
			},
			[]string{"bucket"},
		),

		GlobalLockouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "snowtransfer",
				Subsystem: "ratelimit",
				Name:      "global_lockouts_total",
				Help:      "Global rate-limit signals received",
			},
		),

		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "snowtransfer",
				Subsystem: "rest",
				Name:      "failures_total",
				Help:      "Failed attempts reported to the error sink by class",
			},
			[]string{"class"},
		),

		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "snowtransfer",
				Subsystem: "rest",
				Name:      "request_duration_seconds",
				Help:      "Submission-to-response latency of successful attempts",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"bucket"},
		),

		QueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "snowtransfer",
				Subsystem: "ratelimit",
				Name:      "wait_seconds",
				Help:      "Time drain loops spent waiting before dispatch",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"bucket", "reason"},
		),

		BucketRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "snowtransfer",
				Subsystem: "ratelimit",
				Name:      "bucket_remaining",
				Help:      "Remaining calls in the current window as last reported",
			},
			[]string{"bucket"},
		),
	}
}

func (m *Metrics) request(bucket, method string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(bucket, method, label).Inc()
}

func (m *Metrics) retry(reason string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(reason).Inc()
}

func (m *Metrics) headersOn429(bucket string) {
	if m == nil {
		return
	}
	m.HeadersOn429.WithLabelValues(bucket).Inc()
}

func (m *Metrics) globalLockout() {
	if m == nil {
		return
	}
	m.GlobalLockouts.Inc()
}

func (m *Metrics) failure(class string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(class).Inc()
}

func (m *Metrics) latency(bucket string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(bucket).Observe(d.Seconds())
}

func (m *Metrics) observeWait(bucket, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.QueueWait.WithLabelValues(bucket, reason).Observe(d.Seconds())
}

func (m *Metrics) setRemaining(bucket string, remaining int) {
	if m == nil {
		return
	}
	m.BucketRemaining.WithLabelValues(bucket).Set(float64(remaining))
}
