package scrape

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts what a run did. The bundle lives on its own registry so
// tests and repeated runs never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	ItemsExtracted prometheus.Counter
	ItemsSkipped   prometheus.Counter
	GateWaits      *prometheus.CounterVec
	Reloads        prometheus.Counter
	Rotations      prometheus.Counter
	Checkpoints    prometheus.Counter
	WaitSeconds    prometheus.Histogram
}

// NewMetrics builds and registers the bundle.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ItemsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendarake", Name: "items_extracted_total",
			Help: "Records extracted, before the final dedupe pass.",
		}),
		ItemsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendarake", Name: "items_skipped_total",
			Help: "Items skipped because the checkpoint already had them.",
		}),
		GateWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendarake", Name: "gate_waits_total",
			Help: "Readiness waits by outcome.",
		}, []string{"outcome"}),
		Reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendarake", Name: "reloads_total",
			Help: "Reload escalations issued by the readiness gate.",
		}),
		Rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendarake", Name: "identity_rotations_total",
			Help: "Browser sessions rebuilt with a fresh identity.",
		}),
		Checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendarake", Name: "checkpoints_total",
			Help: "Partial-file flushes.",
		}),
		WaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agendarake", Name: "gate_wait_seconds",
			Help:    "Duration of readiness waits.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(
		m.ItemsExtracted, m.ItemsSkipped, m.GateWaits,
		m.Reloads, m.Rotations, m.Checkpoints, m.WaitSeconds,
	)
	return m
}

// Handler serves the bundle for an optional metrics listener.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
