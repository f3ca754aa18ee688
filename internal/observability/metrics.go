package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "neo_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Feed acquisition metrics.
	FeedRequests        *prometheus.CounterVec // labels: outcome={success,auth,rejected,transient,malformed}
	FeedRetries         prometheus.Counter
	FeedRequestDuration prometheus.Histogram

	// Stage metrics.
	StageDuration *prometheus.HistogramVec // labels: stage={fetch,normalize,analyze,publish}
	StageCache    *prometheus.CounterVec   // labels: stage, result={hit,miss,invalid}

	// Data quality and analysis metrics.
	RowsNormalized       prometheus.Counter
	RowsDropped          *prometheus.CounterVec // labels: reason
	DegenerateDimensions *prometheus.CounterVec // labels: dimension
	RecordsScored        prometheus.Gauge
	AnomalousRecords     prometheus.Gauge
	HighRiskRecords      prometheus.Gauge

	RecordsPublished prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "NeoWs feed requests by outcome.",
		}, []string{"outcome"}),
		FeedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_retries_total",
			Help:      "Feed requests retried after a transient failure.",
		}),
		FeedRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_request_duration_seconds",
			Help:      "NeoWs feed request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage, including cache lookups.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		StageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_cache_total",
			Help:      "Artifact cache lookups by stage and result.",
		}, []string{"stage", "result"}),
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_normalized_total",
			Help:      "Approach rows emitted by normalization.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Approach rows dropped during normalization by reason.",
		}, []string{"reason"}),
		DegenerateDimensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_dimensions_total",
			Help:      "Scoring runs in which a dimension had zero range.",
		}, []string{"dimension"}),
		RecordsScored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_scored",
			Help:      "Scored records in the current dataset.",
		}),
		AnomalousRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "anomalous_records",
			Help:      "Anomalous records in the current dataset.",
		}),
		HighRiskRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "high_risk_records",
			Help:      "High-risk records in the current dataset.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Scored records written to the sink topic.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.FeedRequests,
		m.FeedRetries,
		m.FeedRequestDuration,
		m.StageDuration,
		m.StageCache,
		m.RowsNormalized,
		m.RowsDropped,
		m.DegenerateDimensions,
		m.RecordsScored,
		m.AnomalousRecords,
		m.HighRiskRecords,
		m.RecordsPublished,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
