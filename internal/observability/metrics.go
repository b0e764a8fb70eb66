package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// report-to-GeoJSON pipeline.
type Metrics struct {
	RowsParsed      prometheus.Counter
	RowsDropped     prometheus.Counter
	FeaturesEmitted prometheus.Counter
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	// Fetch metrics.
	FetchAttempts prometheus.Counter
	FetchRetries  prometheus.Counter
	FetchDuration prometheus.Histogram

	// Location resolution metrics.
	LocationsResolved   *prometheus.CounterVec // labels: source={gazetteer,remote}
	LocationsUnresolved prometheus.Counter
	GeocodeCache        *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration  prometheus.Histogram

	// Summarization metrics.
	Summaries       *prometheus.CounterVec // labels: source={backend,template}
	SummaryRetries  prometheus.Counter
	SummaryDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsParsed,
		m.RowsDropped,
		m.FeaturesEmitted,
		m.PipelineRunning,
		m.RunDuration,
		m.FetchAttempts,
		m.FetchRetries,
		m.FetchDuration,
		m.LocationsResolved,
		m.LocationsUnresolved,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.Summaries,
		m.SummaryRetries,
		m.SummaryDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "rows_parsed_total",
			Help:      "Total valid event rows parsed from reports.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "rows_dropped_total",
			Help:      "Total report rows dropped for missing or malformed fields.",
		}),
		FeaturesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "features_emitted_total",
			Help:      "Total features written to the output collection.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gdelt_geojson",
			Name:      "pipeline_running",
			Help:      "1 while a run is active, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gdelt_geojson",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-parse-enrich-assemble run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "fetch_attempts_total",
			Help:      "Report fetch attempts including retries.",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "fetch_retries_total",
			Help:      "Report fetch retries after transient failures.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gdelt_geojson",
			Name:      "fetch_duration_seconds",
			Help:      "Report download duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LocationsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "locations_resolved_total",
			Help:      "Resolved locations by source.",
		}, []string{"source"}),
		LocationsUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "locations_unresolved_total",
			Help:      "Location strings that resolved to no coordinates.",
		}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "geocode_cache_total",
			Help:      "Resolution cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gdelt_geojson",
			Name:      "geocode_api_duration_seconds",
			Help:      "Remote geocoding request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "summaries_total",
			Help:      "Event summaries by source (backend or template fallback).",
		}, []string{"source"}),
		SummaryRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gdelt_geojson",
			Name:      "summary_retries_total",
			Help:      "Summary backend calls retried after a failure.",
		}),
		SummaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gdelt_geojson",
			Name:      "summary_duration_seconds",
			Help:      "Text-generation backend call duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
