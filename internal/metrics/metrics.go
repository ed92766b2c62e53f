// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package metrics provides Prometheus instrumentation for Correlatus:
// statistics cache efficiency, dashboard publish throughput, recompute
// durations, database query performance, and WebSocket connections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Statistics cache metrics, labeled by memoized function name
	// (team_hashes, correlation, success, aggregate).
	StatsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_hits_total",
			Help: "Total number of statistics cache hits",
		},
		[]string{"function"},
	)

	StatsCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_misses_total",
			Help: "Total number of statistics cache misses",
		},
		[]string{"function"},
	)

	StatsCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_evictions_total",
			Help: "Total number of LRU evictions from statistics caches",
		},
		[]string{"function"},
	)

	StatsCacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_invalidations_total",
			Help: "Total number of cache entries removed by team invalidation",
		},
		[]string{"function"},
	)

	// Recompute metrics
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stats_recompute_duration_seconds",
			Help:    "Duration of statistical recomputations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"function"},
	)

	// Dashboard publish metrics, labeled by kind (team_status, full) and
	// outcome (fresh, throttled, skipped).
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_publish_total",
			Help: "Total number of dashboard publish calls",
		},
		[]string{"kind", "outcome"},
	)

	PublishDroppedSends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_publish_dropped_sends_total",
			Help: "Total number of per-subscriber sends dropped during publish",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Game metrics
	AnswersReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "game_answers_received_total",
			Help: "Total number of player answers accepted",
		},
	)

	RoundsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "game_rounds_created_total",
			Help: "Total number of rounds created",
		},
	)

	// WebSocket metrics
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of connected WebSocket subscribers",
		},
	)
)

// ObserveDBQuery records a database query duration and any error.
func ObserveDBQuery(operation, table string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// ObserveRecompute records the duration of one statistical recomputation.
func ObserveRecompute(function string, start time.Time) {
	RecomputeDuration.WithLabelValues(function).Observe(time.Since(start).Seconds())
}
