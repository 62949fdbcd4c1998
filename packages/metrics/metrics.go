// Package metrics
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DiagnosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciras_diagnoses_total",
			Help: "Total number of diagnoses processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	PageFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ciras_page_fetch_duration_seconds",
			Help:    "Duration of individual page fetches in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	TotalScoreDistribution = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ciras_total_score",
			Help:    "Distribution of overall diagnosis scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ciras_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_name"},
	)
	PendingJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ciras_pending_jobs",
			Help: "Number of diagnosis jobs waiting in the queue.",
		},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ciras_result_cache_hits_total",
			Help: "Diagnoses served from the result cache.",
		},
	)
)

func init() {
	prometheus.MustRegister(DiagnosesTotal)
	prometheus.MustRegister(PageFetchDuration)
	prometheus.MustRegister(TotalScoreDistribution)
	prometheus.MustRegister(DBQueryDuration)
	prometheus.MustRegister(PendingJobs)
	prometheus.MustRegister(CacheHits)
}

func ExposeMetrics(addr string) {
	slog.Info("Exposing Prometheus metrics", "address", addr)
	http.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("Failed to start Prometheus metrics server", "error", err)
	}
}
