// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package models

// WindowStats are the raw aggregates for one time window.
type WindowStats struct {
	TotalEvents    int64   `json:"totalEvents"`
	ErrorRate      float64 `json:"errorRate"`
	AvgLatency     string  `json:"avgLatency"`
	ActiveSessions int64   `json:"activeSessions"`

	// AvgLatencyMs is the unformatted mean, kept for change math.
	AvgLatencyMs float64 `json:"-"`
}

// TrendBucket is one fixed time slice of the dashboard trend chart.
// Buckets are pre-seeded to zero for the whole window so the chart
// renders a continuous series even for sparse telemetry.
type TrendBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DashboardStats is the aggregate snapshot served to dashboards, for
// either all projects of a user or a single project. Change fields
// compare the requested window against the immediately preceding
// window of equal length.
type DashboardStats struct {
	TotalEvents    int64   `json:"totalEvents"`
	ErrorRate      float64 `json:"errorRate"`
	AvgLatency     string  `json:"avgLatency"`
	ActiveSessions int64   `json:"activeSessions"`

	TotalEventsChange    float64 `json:"totalEventsChange"`
	ErrorRateChange      float64 `json:"errorRateChange"`
	AvgLatencyChange     float64 `json:"avgLatencyChange"`
	ActiveSessionsChange int64   `json:"activeSessionsChange"`

	EventTrend []TrendBucket `json:"eventTrend"`
}
