package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// recommendation data pipeline.
type Metrics struct {
	SourceLookups *prometheus.CounterVec // labels: source, operation, outcome={hit,miss,error}
	Fallbacks     *prometheus.CounterVec // labels: operation

	// CSV table load metrics.
	TableLoads       *prometheus.CounterVec // labels: outcome={success,error}
	TableLoadShared  prometheus.Counter
	TableLoadSeconds prometheus.Histogram
	TableRows        prometheus.Gauge

	// Legacy backend client metrics.
	UpstreamSeconds *prometheus.HistogramVec // labels: endpoint

	// Kafka refresh metrics.
	RefreshMessages *prometheus.CounterVec // labels: outcome={applied,skipped}
	RefreshEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.DefaultRegisterer)
	return m
}

// NewTestMetrics creates metrics bound to a private registry so tests can
// construct services without double-registration panics.
func NewTestMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.NewRegistry())
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimming_reco",
			Name:      "source_lookups_total",
			Help:      "Data source lookups by source, operation, and outcome.",
		}, []string{"source", "operation", "outcome"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimming_reco",
			Name:      "source_fallbacks_total",
			Help:      "Times an operation fell past a failing source to the next one.",
		}, []string{"operation"}),
		TableLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimming_reco",
			Name:      "table_loads_total",
			Help:      "Recommendation table load attempts by outcome.",
		}, []string{"outcome"}),
		TableLoadShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dimming_reco",
			Name:      "table_load_shared_total",
			Help:      "Callers that reused an in-flight table load instead of starting one.",
		}),
		TableLoadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dimming_reco",
			Name:      "table_load_duration_seconds",
			Help:      "Duration of a full CSV parse into the recommendation table.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		TableRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dimming_reco",
			Name:      "table_rows",
			Help:      "Rows in the currently loaded recommendation table.",
		}),
		UpstreamSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dimming_reco",
			Name:      "upstream_request_duration_seconds",
			Help:      "Legacy backend request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		RefreshMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dimming_reco",
			Name:      "refresh_messages_total",
			Help:      "Kafka refresh messages by outcome.",
		}, []string{"outcome"}),
		RefreshEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dimming_reco",
			Name:      "refresh_enabled",
			Help:      "1 when the Kafka refresh consumer is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.SourceLookups,
		m.Fallbacks,
		m.TableLoads,
		m.TableLoadShared,
		m.TableLoadSeconds,
		m.TableRows,
		m.UpstreamSeconds,
		m.RefreshMessages,
		m.RefreshEnabled,
	)
}
