// Package telemetry exposes Prometheus metrics for the aggregation service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricehawk_scrapes_total",
			Help: "Total scrape attempts, labeled by source and outcome.",
		},
		[]string{"source", "status"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricehawk_scrape_retries_total",
			Help: "Total scrape retries scheduled, labeled by source.",
		},
		[]string{"source"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricehawk_cache_lookups_total",
			Help: "Result cache lookups, labeled by outcome (hit or miss).",
		},
		[]string{"outcome"},
	)

	activePages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricehawk_active_pages",
			Help: "Browser pages currently held by in-flight scrape operations.",
		},
	)

	aggregationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricehawk_aggregation_duration_seconds",
			Help:    "End-to-end aggregation latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45},
		},
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 45},
		},
		[]string{"method", "route"},
	)
)

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.statusCode)).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, routePattern).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// ObserveScrape records one scrape attempt outcome for a source.
func ObserveScrape(source, status string) {
	scrapesTotal.WithLabelValues(source, status).Inc()
}

// ObserveRetry records a scheduled retry for a source.
func ObserveRetry(source string) {
	retriesTotal.WithLabelValues(source).Inc()
}

// ObserveCacheLookup records a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAggregation records the wall-clock duration of one aggregation.
func ObserveAggregation(d time.Duration) {
	aggregationSeconds.Observe(d.Seconds())
}

// IncActivePages increments the held-page gauge.
func IncActivePages() {
	activePages.Inc()
}

// DecActivePages decrements the held-page gauge.
func DecActivePages() {
	activePages.Dec()
}
