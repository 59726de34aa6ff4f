// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sellerdesk"

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by route pattern.",
			// Cron and admin passes run up to minutes.
			Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 10, 30, 60, 120},
		},
		[]string{"method", "route", "status_code"},
	)

	dbPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Database pool connections by state.",
		},
		[]string{"state"},
	)

	dbPoolEmptyAcquires = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "pool_empty_acquire_total",
		Help:      "Acquires that had to wait for a connection, as reported by the pool.",
	})
)

// RecordDBPoolMetrics copies the pool's current statistics into the gauges.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	s := pool.Stat()

	for state, n := range map[string]int32{
		"in_use":       s.AcquiredConns(),
		"idle":         s.IdleConns(),
		"constructing": s.ConstructingConns(),
		"total":        s.TotalConns(),
		"max":          s.MaxConns(),
	} {
		dbPoolConnections.WithLabelValues(state).Set(float64(n))
	}
	dbPoolEmptyAcquires.Set(float64(s.EmptyAcquireCount()))
}
