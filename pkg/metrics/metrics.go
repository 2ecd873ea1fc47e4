package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CapturesTotal       *prometheus.CounterVec
	CaptureDuration     prometheus.Histogram
	ResponsesClassified *prometheus.CounterVec
	RowsFlattened       *prometheus.CounterVec
	TablesWritten       *prometheus.CounterVec
)

var initOnce sync.Once

// Init registers all metrics with the default registry. Safe to call more
// than once; only the first call registers.
func Init() {
	initOnce.Do(initMetrics)
}

func initMetrics() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captures_total",
			Help: "Total number of city capture attempts.",
		},
		[]string{"status", "error_type"}, // status: success, failure
	)

	CaptureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "capture_duration_seconds",
			Help:    "Duration of city page captures.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
	)

	ResponsesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "responses_classified_total",
			Help: "Captured response fragments classified, by record kind.",
		},
		[]string{"kind"},
	)

	RowsFlattened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rows_flattened_total",
			Help: "Normalized rows produced by the flattener, by record kind.",
		},
		[]string{"kind"},
	)

	TablesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tables_written_total",
			Help: "Output table files written, by record kind.",
		},
		[]string{"kind"},
	)
}
