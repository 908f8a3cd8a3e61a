// Package telemetry exposes Prometheus metrics for dataset refreshes, the
// dataset cache and the HTTP API.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pokegraph"

// Refresh outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

var (
	// refreshTotal counts dataset refreshes.
	// Labels: outcome (ok, cached, fallback, error)
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "total",
		Help:      "Total dataset refreshes by outcome",
	}, []string{"outcome"})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Time to load, build and analyze the evolution graph",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Dataset cache lookups by result",
	}, []string{"result"})

	skippedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalize",
		Name:      "skipped_rows_total",
		Help:      "Malformed evolution rows dropped during normalization",
	})

	graphSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "size",
		Help:      "Size of the current evolution graph",
	}, []string{"kind"})

	// httpRequests counts API requests.
	// Labels: route (mux path template), code (status class, e.g. 2xx)
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status class",
	}, []string{"route", "code"})
)

// RecordRefresh records the outcome and duration of one refresh.
func RecordRefresh(outcome string, elapsed time.Duration) {
	refreshTotal.WithLabelValues(outcome).Inc()
	refreshDuration.Observe(elapsed.Seconds())
}

// RecordCacheLookup records a dataset cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordSkippedRows adds n to the skipped row counter.
func RecordSkippedRows(n int) {
	if n > 0 {
		skippedRows.Add(float64(n))
	}
}

// SetGraphSize publishes the current node and edge counts.
func SetGraphSize(nodes, edges int) {
	graphSize.WithLabelValues("nodes").Set(float64(nodes))
	graphSize.WithLabelValues("edges").Set(float64(edges))
}

// RecordRequest counts one HTTP request against its route template.
func RecordRequest(route string, status int) {
	httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
