// Package metrics provides Prometheus metrics for the sync subsystem.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry for all collector metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns the HTTP handler exposing the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SyncMetrics covers upload cycles, tenant reconciliation and the
// connectivity monitor.
type SyncMetrics struct {
	UploadCyclesTotal      *prometheus.CounterVec
	ReadingsDeliveredTotal prometheus.Counter
	ReadingsFailedTotal    prometheus.Counter
	QueueDepth             prometheus.Gauge
	TenantSyncsTotal       *prometheus.CounterVec
	EndpointUp             *prometheus.GaugeVec
}

// NewSyncMetrics creates and registers the sync metric set.
func NewSyncMetrics(namespace string) *SyncMetrics {
	m := &SyncMetrics{
		UploadCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "cycles_total",
				Help:      "Completed upload cycles by result",
			},
			[]string{"result"}, // success, partial, error
		),
		ReadingsDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "readings_delivered_total",
			Help:      "Readings successfully delivered to the ingest API",
		}),
		ReadingsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "readings_failed_total",
			Help:      "Failed reading delivery attempts",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "queue_depth",
			Help:      "Readings currently waiting for delivery",
		}),
		TenantSyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tenant",
				Name:      "syncs_total",
				Help:      "Tenant reconciliation attempts by result",
			},
			[]string{"result"}, // success, error
		),
		EndpointUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "connectivity",
				Name:      "endpoint_up",
				Help:      "1 when the endpoint's last probe succeeded",
			},
			[]string{"endpoint"},
		),
	}

	Registry.MustRegister(
		m.UploadCyclesTotal,
		m.ReadingsDeliveredTotal,
		m.ReadingsFailedTotal,
		m.QueueDepth,
		m.TenantSyncsTotal,
		m.EndpointUp,
	)
	return m
}
