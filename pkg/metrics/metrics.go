package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Application Metrics
	URLCreationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "url_creation_total",
			Help: "Total number of shorten requests by outcome",
		},
		[]string{"status"},
	)

	URLAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "url_access_total",
			Help: "Total number of short code lookups by outcome",
		},
		[]string{"status"},
	)

	ClickTrackingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_tracking_failures_total",
			Help: "Clicks that could not be recorded and were dropped",
		},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)
)

// Outcome labels
const (
	StatusCreated  = "created"
	StatusReused   = "reused"
	StatusFound    = "found"
	StatusNotFound = "not_found"
	StatusExpired  = "expired"
	StatusConflict = "conflict"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

// RecordHTTPMetrics records metrics for an HTTP request
func RecordHTTPMetrics(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
