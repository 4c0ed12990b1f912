// Package observability provides structured logging setup, Prometheus
// metrics and HTTP middleware for monitoring the bookstore service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// UpstreamBuckets defines histogram buckets for calls to the external
// book-metadata API, ranging from 50ms to 10s.
var UpstreamBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method, route pattern and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstore_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookstore_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthFailuresTotal counts requests rejected by authentication or
	// authorization, labeled with the error code.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstore_auth_failures_total",
			Help: "Authentication and authorization failures",
		},
		[]string{"code"},
	)

	// ErrorsTotal counts error responses written by the central error handler.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstore_errors_total",
			Help: "Error responses by code",
		},
		[]string{"code", "operational"},
	)

	// LookupRequestsTotal counts calls to the external book-metadata API.
	LookupRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstore_lookup_requests_total",
			Help: "Book lookup upstream requests",
		},
		[]string{"status"},
	)

	// LookupLatency records book-metadata API latency in seconds.
	LookupLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookstore_lookup_latency_seconds",
			Help:    "Book lookup upstream latency",
			Buckets: UpstreamBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthFailuresTotal,
		ErrorsTotal,
		LookupRequestsTotal,
		LookupLatency,
	)
}
