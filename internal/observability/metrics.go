// Package observability wires the gateway's Prometheus metrics and
// OpenTelemetry tracing scaffolding, covering inbound-request and
// outbound-provider concerns.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the gateway records to. Pass to
// the components that need to record or set them.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ConnectedProviders prometheus.Gauge
	PublishedTools     prometheus.Gauge
	CatalogConflicts   prometheus.Gauge
}

// NewMetrics creates and registers every collector with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpgateway",
				Name:      "requests_total",
				Help:      "Total number of inbound JSON-RPC requests processed",
			},
			[]string{"method", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcpgateway",
				Name:      "request_duration_seconds",
				Help:      "Inbound request duration in seconds, by method",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ConnectedProviders: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpgateway",
				Name:      "connected_providers",
				Help:      "Number of upstream MCP providers currently connected",
			},
		),
		PublishedTools: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpgateway",
				Name:      "published_tools",
				Help:      "Number of tools in the currently published catalog",
			},
		),
		CatalogConflicts: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpgateway",
				Name:      "catalog_conflicts",
				Help:      "Number of tool name collisions in the currently published catalog",
			},
		),
	}
}
