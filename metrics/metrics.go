package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolpay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schoolpay_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// StageRecomputes counts grid pipeline stage runs. Cache hits are not counted.
	StageRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolpay_grid_stage_recomputes_total",
			Help: "Total number of grid pipeline stage recomputations",
		},
		[]string{"collection", "stage"},
	)
	// ExportsTotal counts CSV exports by collection and scope (all, selected).
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolpay_exports_total",
			Help: "Total number of exports",
		},
		[]string{"collection", "scope"},
	)
	// ExportedRows is the number of rows per export.
	ExportedRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schoolpay_exported_rows",
			Help:    "Rows written per export",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"collection"},
	)
	// GridSessions is the number of live grid sessions.
	GridSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "schoolpay_grid_sessions",
			Help: "Number of live grid sessions",
		},
	)
)

// StageObserver returns an engine recompute hook that counts stage runs of
// collection.
func StageObserver(collection string) func(stage string) {
	return func(stage string) {
		StageRecomputes.WithLabelValues(collection, stage).Inc()
	}
}

// ObserveExport records one export of rows rows.
func ObserveExport(collection, scope string, rows int) {
	ExportsTotal.WithLabelValues(collection, scope).Inc()
	ExportedRows.WithLabelValues(collection).Observe(float64(rows))
}
