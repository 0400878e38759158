// Package metrics defines custom Prometheus metrics for PageKeep.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// sizeBuckets are exponential buckets for request/response size histograms (bytes).
var sizeBuckets = []float64{1024, 16384, 262144, 1048576, 4194304, 16777216, 67108864, 268435456}

// HTTP metrics (RED: Rate, Errors, Duration).
var (
	// HTTPRequestsTotal counts total HTTP requests by method, route, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagekeep_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds by method and route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagekeep_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPResponseSize observes response body size in bytes.
	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagekeep_http_response_size_bytes",
			Help:    "Response body size in bytes",
			Buckets: sizeBuckets,
		},
		[]string{"method", "route"},
	)
)

// Library operation metrics.
var (
	// BooksCreated counts created books by path ("direct" for the small-file
	// path, "reserved" for the two-phase upload protocol).
	BooksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagekeep_books_created_total",
			Help: "Total books registered in the library",
		},
		[]string{"path"},
	)

	// BooksDeleted counts removed books.
	BooksDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pagekeep_books_deleted_total",
			Help: "Total books removed from the library",
		},
	)

	// UploadGrantsIssued counts issued direct-upload grants.
	UploadGrantsIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pagekeep_upload_grants_issued_total",
			Help: "Total direct-upload grants issued",
		},
	)
)

// Register registers all PageKeep metrics with the default Prometheus
// registry. Safe to call multiple times.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPResponseSize,
			BooksCreated,
			BooksDeleted,
			UploadGrantsIssued,
		)
	})
}
