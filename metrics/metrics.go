// Package metrics holds the Prometheus instruments of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/complyscan/models"
)

// Metrics holds all Prometheus metrics for the application. Each instance
// owns its registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	ScansTotal          *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	ScoreTotal          prometheus.Histogram
	FetchAttemptsTotal  *prometheus.CounterVec
	BatchesTotal        *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics. cacheStats, if non-nil, is
// exported as cache gauges and counters.
func New(cacheStats func() models.CacheStats) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		Registry: reg,
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complyscan_scans_total",
			Help: "Total number of scans by outcome and error kind.",
		}, []string{"outcome", "kind"}), // outcome: success, cache_hit, error
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "complyscan_scan_duration_seconds",
			Help:    "Duration of uncached scans.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		ScoreTotal: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "complyscan_score_total",
			Help:    "Distribution of total compliance scores.",
			Buckets: []float64{20, 40, 60, 70, 80, 90, 100},
		}),
		FetchAttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complyscan_fetch_attempts_total",
			Help: "Total number of HTTP fetch attempts by result.",
		}, []string{"result"}),
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complyscan_batches_total",
			Help: "Total number of batch scans by status.",
		}, []string{"status"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	if cacheStats != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "complyscan_cache_entries",
			Help: "Number of entries in the result cache.",
		}, func() float64 { return float64(cacheStats().Entries) })
		f.NewCounterFunc(prometheus.CounterOpts{
			Name: "complyscan_cache_hits_total",
			Help: "Total number of result cache hits.",
		}, func() float64 { return float64(cacheStats().Hits) })
		f.NewCounterFunc(prometheus.CounterOpts{
			Name: "complyscan_cache_misses_total",
			Help: "Total number of result cache misses.",
		}, func() float64 { return float64(cacheStats().Misses) })
		f.NewCounterFunc(prometheus.CounterOpts{
			Name: "complyscan_cache_evictions_total",
			Help: "Total number of capacity evictions from the result cache.",
		}, func() float64 { return float64(cacheStats().Evictions) })
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveScan records a finished scan. A nil err counts as success.
func (m *Metrics) ObserveScan(cached bool, d time.Duration, total int, err error) {
	switch {
	case err != nil:
		m.ScansTotal.WithLabelValues("error", string(models.KindOf(err))).Inc()
	case cached:
		m.ScansTotal.WithLabelValues("cache_hit", "").Inc()
	default:
		m.ScansTotal.WithLabelValues("success", "").Inc()
		m.ScanDuration.Observe(d.Seconds())
		m.ScoreTotal.Observe(float64(total))
	}
}

// ObserveFetchAttempt matches fetcher.AttemptObserver.
func (m *Metrics) ObserveFetchAttempt(result string) {
	m.FetchAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(status string) {
	m.BatchesTotal.WithLabelValues(status).Inc()
}
