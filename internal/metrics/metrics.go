// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration observes request latency by route pattern
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecopark_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// CacheRequests counts query cache lookups
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecopark_cache_requests_total",
			Help: "Query cache lookups by result (hit, miss, stale)",
		},
		[]string{"result"},
	)

	// EncyclopediaLookups counts species summary lookups
	EncyclopediaLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecopark_encyclopedia_lookups_total",
			Help: "Encyclopedia summary lookups by outcome (found, fallback, error)",
		},
		[]string{"outcome"},
	)

	// BatchDeleteFailures counts items that failed inside a bulk delete
	BatchDeleteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecopark_batch_delete_failures_total",
			Help: "Items that failed inside a bulk delete",
		},
		[]string{"kind"},
	)

	// ExportFiles counts written spreadsheet files
	ExportFiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecopark_export_files_total",
			Help: "Spreadsheet files produced by exports",
		},
	)

	// WebSocketConnections tracks connected console websockets
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecopark_websocket_connections",
			Help: "Currently connected console websockets",
		},
	)
)
