// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package metrics defines the Prometheus collectors instrumenting the
// ingest path, the event store, the realtime hub, and the HTTP API.
// Collectors register through promauto at package init and are served
// from /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of events accepted through the ingest API",
		},
		[]string{"type"},
	)

	IngestEventsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_duplicate_total",
			Help: "Total number of event submissions skipped as duplicates",
		},
	)

	IngestSessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_sessions_created_total",
			Help: "Total number of debug sessions created",
		},
		[]string{"mode"}, // "explicit", "materialized"
	)

	IngestBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_size",
			Help:    "Number of events per batch submission",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	IngestRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rejected_total",
			Help: "Total number of rejected ingest requests",
		},
		[]string{"reason"}, // "auth", "validation", "rate_limit"
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

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of messages dropped on slow WebSocket clients",
		},
	)

	// Realtime bus metrics
	BusMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_published_total",
			Help: "Total number of notifications published to the realtime bus",
		},
		[]string{"kind"}, // "new_session", "new_event", "session_ended"
	)

	BusPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_publish_errors_total",
			Help: "Total number of realtime bus publish failures",
		},
	)

	// System metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records one database query observation.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEventIngested records an accepted event by type, or a
// duplicate skip.
func RecordEventIngested(eventType string, created bool) {
	if created {
		IngestEventsTotal.WithLabelValues(eventType).Inc()
	} else {
		IngestEventsDuplicate.Inc()
	}
}

// RecordSessionCreated records a session creation. Materialized marks
// sessions created lazily from an event referencing an unknown id.
func RecordSessionCreated(materialized bool) {
	mode := "explicit"
	if materialized {
		mode = "materialized"
	}
	IngestSessionsCreated.WithLabelValues(mode).Inc()
}

// RecordBusPublish records a notification published to the bus.
func RecordBusPublish(kind string, err error) {
	if err != nil {
		BusPublishErrors.Inc()
		return
	}
	BusMessagesPublished.WithLabelValues(kind).Inc()
}
