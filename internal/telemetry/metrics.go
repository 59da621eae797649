/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radiopro_api_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_api_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiopro_api_active_connections",
		Help: "In-flight HTTP requests.",
	})

	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiopro_api_websocket_connections",
		Help: "Open state stream websockets.",
	})

	// Playout metrics
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_playout_transitions_total",
			Help: "Completed deck transitions by station and kind.",
		},
		[]string{"station_id", "kind"},
	)

	CrossfadeAbortsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_playout_crossfade_aborts_total",
			Help: "Crossfades that could not populate the target deck.",
		},
		[]string{"station_id"},
	)

	DeckErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_playout_deck_errors_total",
			Help: "Deck load and playback failures.",
		},
		[]string{"station_id", "deck", "kind"},
	)

	DeadAirTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_playout_dead_air_total",
			Help: "Watchdog recoveries from silence.",
		},
		[]string{"station_id"},
	)

	AutoDJActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radiopro_autodj_active",
			Help: "1 when AutoDJ is enabled for the station.",
		},
		[]string{"station_id"},
	)

	CrossfaderPosition = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radiopro_crossfader_position",
			Help: "Crossfader position in [-100, 100].",
		},
		[]string{"station_id"},
	)

	// Queue metrics
	QueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radiopro_queue_length",
			Help: "Tracks waiting in the station queue.",
		},
		[]string{"station_id"},
	)

	QueueWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_queue_writes_total",
			Help: "Queue persistence attempts by result.",
		},
		[]string{"station_id", "result"},
	)

	// Catalog cache metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_cache_hits_total",
			Help: "Catalog cache hits.",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_cache_misses_total",
			Help: "Catalog cache misses.",
		},
		[]string{"cache"},
	)

	// Database metrics
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radiopro_database_query_duration_seconds",
			Help:    "Database query latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiopro_database_errors_total",
			Help: "Database operation errors.",
		},
		[]string{"operation", "error_type"},
	)

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radiopro_database_connections_active",
		Help: "Open database connections.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
