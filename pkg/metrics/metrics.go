// Package metrics exposes Prometheus collectors for the corpus manager and
// query engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CorporaLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "annisgo_corpora_loaded",
			Help: "Number of corpora currently resident in the manager cache",
		},
	)

	CacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "annisgo_cache_evictions_total",
			Help: "Total number of corpus cache entries evicted",
		},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annisgo_query_duration_seconds",
			Help:    "Query execution duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	QueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annisgo_query_errors_total",
			Help: "Total number of query errors by operation and error kind",
		},
		[]string{"operation", "kind"},
	)

	WALPersistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annisgo_wal_persist_duration_seconds",
			Help:    "Time taken to durably persist the update log in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlannerCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "annisgo_planner_cache_hits_total",
			Help: "Total number of plan cache hits",
		},
	)

	PlannerCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "annisgo_planner_cache_misses_total",
			Help: "Total number of plan cache misses",
		},
	)

	GraphStorageImplTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "annisgo_graphstorage_impl_total",
			Help: "Number of components currently using each graph storage implementation",
		},
		[]string{"impl"},
	)
)

func init() {
	prometheus.MustRegister(CorporaLoaded)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryErrorsTotal)
	prometheus.MustRegister(WALPersistDuration)
	prometheus.MustRegister(PlannerCacheHitsTotal)
	prometheus.MustRegister(PlannerCacheMissesTotal)
	prometheus.MustRegister(GraphStorageImplTotal)
}

// Handler returns the Prometheus HTTP exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
