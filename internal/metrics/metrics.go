// Package metrics exposes Prometheus collectors for the puzzle crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bee_fetch_requests_total",
			Help: "Total number of puzzle page fetches, labeled by site and status code.",
		},
		[]string{"site", "code"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bee_fetch_bytes_total",
			Help: "Total number of bytes fetched, labeled by site.",
		},
		[]string{"site"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bee_fetch_duration_seconds",
			Help:    "Histogram of puzzle page fetch latencies, labeled by site.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"site"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bee_rate_limit_delay_seconds",
			Help:    "Histogram of politeness and rate limit wait durations.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"domain"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bee_active_workers",
			Help: "Number of workers currently processing a puzzle.",
		},
	)

	rowsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bee_rows_written_total",
			Help: "Total number of CSV data rows written.",
		},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics. Collectors
// from the default registry are always served; extra gatherers are merged in.
func Handler(extra ...prometheus.Gatherer) http.Handler {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	for _, g := range extra {
		if g != nil && g != prometheus.DefaultGatherer {
			gatherers = append(gatherers, g)
		}
	}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// ObserveFetch records one completed fetch. A code of 0 means no response was received.
func ObserveFetch(rawURL string, code int, bytesFetched int, duration time.Duration) {
	site := SanitizeSite(rawURL)
	fetchRequestsTotal.WithLabelValues(site, strconv.Itoa(code)).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
	fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a politeness or rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// AddRowsWritten counts CSV rows persisted by the writer.
func AddRowsWritten(n int) {
	if n > 0 {
		rowsWrittenTotal.Add(float64(n))
	}
}
