// Package metrics exposes Prometheus collectors for the link directory service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
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

	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkboard_refresh_total",
			Help: "Total number of index refreshes, labeled by outcome.",
		},
		[]string{"status"},
	)

	refreshDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkboard_refresh_duration_seconds",
			Help:    "Histogram of full refresh latencies including every upstream page.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkboard_upstream_ratelimit_delay_seconds",
			Help:    "Time spent waiting for an upstream rate limit token, labeled by host.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"host"},
	)

	upstreamPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkboard_upstream_pages_total",
			Help: "Total number of result pages fetched from the upstream database.",
		},
	)

	indexEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkboard_index_entries",
			Help: "Number of link entries in the current index.",
		},
	)

	indexTags = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkboard_index_tags",
			Help: "Number of tags in the current index.",
		},
	)

	validURLs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkboard_valid_urls",
			Help: "Number of URLs that may currently be selected.",
		},
	)

	selectionChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkboard_selection_changes_total",
			Help: "Total number of selection attempts, labeled by action and outcome.",
		},
		[]string{"action", "status"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkboard_uploads_total",
			Help: "Total number of forwarded uploads, labeled by outcome.",
		},
		[]string{"status"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRefresh records the outcome and latency of one refresh.
func ObserveRefresh(status string, duration time.Duration) {
	refreshTotal.WithLabelValues(status).Inc()
	refreshDurationSeconds.Observe(duration.Seconds())
}

// ObserveUpstreamPage counts one fetched result page.
func ObserveUpstreamPage() {
	upstreamPagesTotal.Inc()
}

// ObserveRateLimitDelay records time spent waiting on the upstream limiter.
func ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// SetIndexSize publishes the size of the current index.
func SetIndexSize(tags, entries int) {
	indexTags.Set(float64(tags))
	indexEntries.Set(float64(entries))
}

// SetValidURLs publishes the size of the selectable URL set.
func SetValidURLs(n int) {
	validURLs.Set(float64(n))
}

// ObserveSelection counts a select or clear attempt.
func ObserveSelection(action, status string) {
	selectionChangesTotal.WithLabelValues(action, status).Inc()
}

// ObserveUpload counts a forwarded upload by outcome.
func ObserveUpload(status string) {
	uploadsTotal.WithLabelValues(status).Inc()
}
