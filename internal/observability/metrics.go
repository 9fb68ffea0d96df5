package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "case_enrich"

// Metrics holds the Prometheus counters, histograms, and gauges for an enrichment run.
type Metrics struct {
	EntitiesProcessed *prometheus.CounterVec // labels: outcome={enriched,failed,dropped}
	EntityFailures    *prometheus.CounterVec // labels: kind
	RecordsWritten    *prometheus.CounterVec // labels: sink
	PipelineRunning   prometheus.Gauge

	EntityDuration prometheus.Histogram
	RunDuration    prometheus.Histogram

	// Cache and remote lookup metrics.
	CacheRequests  *prometheus.CounterVec   // labels: provider, result={hit,miss,stale,error}
	CacheWrites    *prometheus.CounterVec   // labels: provider, outcome={success,error}
	LookupRequests *prometheus.CounterVec   // labels: provider, outcome={success,error}
	LookupDuration *prometheus.HistogramVec // labels: provider

	WeatherSamples *prometheus.CounterVec // labels: outcome={resolved,failed}
}

func newMetrics() *Metrics {
	return &Metrics{
		EntitiesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_processed_total",
			Help:      "Entities processed by outcome.",
		}, []string{"outcome"}),
		EntityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_failures_total",
			Help:      "Entity enrichment failures by error kind.",
		}, []string{"kind"}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Enriched records handed to each sink.",
		}, []string{"sink"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		EntityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entity_duration_seconds",
			Help:      "Time to enrich a single entity.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete enrichment run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache reads by provider and result.",
		}, []string{"provider", "result"}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Cache writes by provider and outcome.",
		}, []string{"provider", "outcome"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Live remote lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Live remote lookup duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		WeatherSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_samples_total",
			Help:      "Weather window samples by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EntitiesProcessed,
		m.EntityFailures,
		m.RecordsWritten,
		m.PipelineRunning,
		m.EntityDuration,
		m.RunDuration,
		m.CacheRequests,
		m.CacheWrites,
		m.LookupRequests,
		m.LookupDuration,
		m.WeatherSamples,
	}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
