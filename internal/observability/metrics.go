package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

// Telemetry bundles the registry the process exposes and the client metrics
// recorded into it.
type Telemetry struct {
	Registry *prometheus.Registry
	REST     *rest.Metrics
}

// InitMetrics creates a private registry with runtime collectors and the
// client metrics. A disabled config yields a Telemetry with nil REST metrics,
// which every recorder treats as a no-op.
func InitMetrics(enabled bool) *Telemetry {
	t := &Telemetry{Registry: prometheus.NewRegistry()}
	if !enabled {
		return t
	}

	t.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.REST = rest.NewMetrics(t.Registry)
	return t
}

// Handler serves the registry in the Prometheus text format.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}
