package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Define global variables for metrics.
// We use 'promauto' which automatically registers metrics without complex initialization.

var (
	// 1. HTTP Requests Total (Counter)
	// Counts how many requests arrive, labeled by method, path, and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketdb_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"}, // Labels
	)

	// 2. HTTP Request Duration (Histogram)
	// Measures server response time. Most endpoints answer from memory, but
	// mining over a large basket log can take whole seconds.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "basketdb_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
			// Buckets covering from sub-millisecond (graph lookups) to seconds (apriori passes)
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// 3. Basket Count (Gauge)
	// Tracks the number of observed baskets per dataset.
	TotalBaskets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basketdb_baskets_total",
			Help: "Total number of observed baskets",
		},
		[]string{"dataset"},
	)

	// 4. Ingested Files (Counter)
	// Counts source files consumed by the background ingestors.
	IngestedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basketdb_ingested_files_total",
			Help: "Total number of files ingested by background ingestors",
		},
		[]string{"ingestor"},
	)
)
