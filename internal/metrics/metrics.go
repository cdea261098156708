// Package metrics defines Prometheus metrics for auditrail.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditrail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditrail_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditrail_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	EntriesCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditrail_entries_captured_total",
			Help: "Audit entries computed by the capture engine, by action",
		},
		[]string{"action"},
	)

	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditrail_batches_total",
			Help: "Capture batches by terminal outcome",
		},
		[]string{"outcome"},
	)

	FlushFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auditrail_flush_failures_total",
			Help: "Failed attempts to persist an audit batch",
		},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auditrail_flush_duration_seconds",
			Help:    "Time spent persisting one audit batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auditrail_flush_queue_depth",
			Help: "Current async flush queue depth",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		EntriesCaptured, BatchesTotal,
		FlushFailures, FlushDuration, QueueDepth,
	)
}
