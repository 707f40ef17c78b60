// Package metrics exposes Prometheus collectors for the metadata service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes recorded by ObserveLookup.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Cache results recorded by ObserveCache.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheError  = "error"
	CacheShared = "shared"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appmeta_lookups_total",
			Help: "Total number of package lookups, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	cacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appmeta_cache_requests_total",
			Help: "Total number of cache reads, labeled by result.",
		},
		[]string{"result"},
	)

	upstreamRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appmeta_upstream_request_duration_seconds",
			Help:    "Histogram of upstream search latencies, labeled by engine and status code.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"engine", "code"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appmeta_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter.",
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLookup increments the lookup counter for the given outcome.
func ObserveLookup(outcome string) {
	lookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCache increments the cache counter for the given result.
func ObserveCache(result string) {
	cacheRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveUpstream records the latency of one upstream call. A zero code means
// no response was received.
func ObserveUpstream(engine string, code int, duration time.Duration) {
	upstreamRequestDurationSeconds.WithLabelValues(engine, strconv.Itoa(code)).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimited increments the rate limiter rejection counter.
func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}
