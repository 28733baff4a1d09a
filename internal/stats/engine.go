// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package stats computes windowed dashboard aggregates: event counts,
// error rate, mean latency, active sessions, percent change against
// the preceding window of equal length, and a gap-filled trend series.
//
// All heavy lifting happens in the store as single-round-trip grouped
// aggregates; this package owns the window math, the change
// arithmetic, and the zero-bucket overlay. Those are plain float and
// time operations, so no third-party library is involved here.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/database"
	"github.com/tracebeam/tracebeam/internal/models"
)

// Range selects the statistics window.
type Range string

const (
	Range24h Range = "24h"
	Range7d  Range = "7d"
	Range30d Range = "30d"

	// DefaultRange applies when a query omits the range parameter.
	DefaultRange = Range24h
)

// ParseRange validates a range query parameter, defaulting when empty.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case "":
		return DefaultRange, nil
	case Range24h, Range7d, Range30d:
		return Range(s), nil
	}
	return "", fmt.Errorf("invalid range %q: must be one of 24h, 7d, 30d", s)
}

// duration returns the window length.
func (r Range) duration() time.Duration {
	switch r {
	case Range7d:
		return 7 * 24 * time.Hour
	case Range30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// days returns the window length in days for daily bucketing.
func (r Range) days() int {
	switch r {
	case Range7d:
		return 7
	case Range30d:
		return 30
	default:
		return 1
	}
}

// Store is the read surface the engine aggregates over. *database.DB
// satisfies this.
type Store interface {
	ProjectIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	AggregateEvents(ctx context.Context, projectIDs []uuid.UUID, from, to time.Time) (*database.EventAggregates, error)
	ActiveSessionCount(ctx context.Context, projectIDs []uuid.UUID, from, to time.Time) (int64, error)
	EventCountsByBucket(ctx context.Context, projectIDs []uuid.UUID, from, to time.Time, format string) ([]database.BucketCount, error)
}

// Engine computes dashboard snapshots. The clock is injectable so
// window boundaries are deterministic under test.
type Engine struct {
	store Store
	now   func() time.Time
}

// New creates an Engine using the wall clock.
func New(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewWithClock creates an Engine with a fixed clock for tests.
func NewWithClock(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// DashboardStats computes the snapshot across every project the user
// owns. A user with no projects gets a zeroed snapshot without any
// aggregate query.
func (e *Engine) DashboardStats(ctx context.Context, userID uuid.UUID, r Range) (*models.DashboardStats, error) {
	projectIDs, err := e.store.ProjectIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve projects: %w", err)
	}
	return e.statsForProjects(ctx, projectIDs, r)
}

// ProjectStats computes the snapshot for one project. Ownership is the
// caller's responsibility.
func (e *Engine) ProjectStats(ctx context.Context, projectID uuid.UUID, r Range) (*models.DashboardStats, error) {
	return e.statsForProjects(ctx, []uuid.UUID{projectID}, r)
}

func (e *Engine) statsForProjects(ctx context.Context, projectIDs []uuid.UUID, r Range) (*models.DashboardStats, error) {
	if len(projectIDs) == 0 {
		return &models.DashboardStats{
			AvgLatency: formatLatency(0),
			EventTrend: []models.TrendBucket{},
		}, nil
	}

	now := e.now().UTC()
	windowLen := r.duration()
	currentStart := now.Add(-windowLen)
	previousStart := now.Add(-2 * windowLen)

	current, err := e.calculateStats(ctx, projectIDs, currentStart, now)
	if err != nil {
		return nil, err
	}
	previous, err := e.calculateStats(ctx, projectIDs, previousStart, currentStart)
	if err != nil {
		return nil, err
	}

	trend, err := e.calculateTrend(ctx, projectIDs, r, now)
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		TotalEvents:    current.TotalEvents,
		ErrorRate:      current.ErrorRate,
		AvgLatency:     current.AvgLatency,
		ActiveSessions: current.ActiveSessions,

		TotalEventsChange:    calcPercentChange(float64(current.TotalEvents), float64(previous.TotalEvents)),
		ErrorRateChange:      round1(current.ErrorRate - previous.ErrorRate),
		AvgLatencyChange:     current.AvgLatencyMs - previous.AvgLatencyMs,
		ActiveSessionsChange: current.ActiveSessions - previous.ActiveSessions,

		EventTrend: trend,
	}, nil
}

// calculateStats aggregates one window in two round trips: one grouped
// aggregate over events, one count over sessions.
func (e *Engine) calculateStats(ctx context.Context, projectIDs []uuid.UUID, from, to time.Time) (*models.WindowStats, error) {
	agg, err := e.store.AggregateEvents(ctx, projectIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate events: %w", err)
	}

	active, err := e.store.ActiveSessionCount(ctx, projectIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}

	errorRate := 0.0
	if agg.TotalEvents > 0 {
		errorRate = round1(100 * float64(agg.ErrorEvents) / float64(agg.TotalEvents))
	}

	avgLatency := math.Round(agg.AvgDurationMs)

	return &models.WindowStats{
		TotalEvents:    agg.TotalEvents,
		ErrorRate:      errorRate,
		AvgLatency:     formatLatency(avgLatency),
		AvgLatencyMs:   avgLatency,
		ActiveSessions: active,
	}, nil
}

// calculateTrend builds the gap-filled trend series: a pre-seeded
// zero bucket for every unit in the window, overlaid with the store's
// grouped counts by label. Rows outside the pre-seeded label set are
// dropped, which discards stale labels straddling the window edge.
func (e *Engine) calculateTrend(ctx context.Context, projectIDs []uuid.UUID, r Range, now time.Time) ([]models.TrendBucket, error) {
	hourly := r == Range24h

	var labels []string
	var format string
	if hourly {
		labels = hourlyLabels(now)
		format = database.BucketFormatHourly
	} else {
		labels = dailyLabels(now, r.days())
		format = database.BucketFormatDaily
	}

	counts := make(map[string]int64, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}

	from := now.Add(-r.duration())
	rows, err := e.store.EventCountsByBucket(ctx, projectIDs, from, now, format)
	if err != nil {
		return nil, fmt.Errorf("event trend: %w", err)
	}
	for _, row := range rows {
		if _, ok := counts[row.Label]; ok {
			counts[row.Label] = row.Count
		}
	}

	buckets := make([]models.TrendBucket, 0, len(labels))
	for _, label := range labels {
		buckets = append(buckets, models.TrendBucket{Label: label, Count: counts[label]})
	}
	sortBuckets(buckets, hourly)
	return buckets, nil
}

// hourlyLabels returns the 24 "HH:00" labels ending at the current
// hour, oldest first.
func hourlyLabels(now time.Time) []string {
	labels := make([]string, 0, 24)
	for i := 23; i >= 0; i-- {
		labels = append(labels, now.Add(-time.Duration(i)*time.Hour).Format("15:00"))
	}
	return labels
}

// dailyLabels returns n "MM/DD" labels counting back from today,
// oldest first.
func dailyLabels(now time.Time, n int) []string {
	labels := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		labels = append(labels, now.AddDate(0, 0, -i).Format("01/02"))
	}
	return labels
}

// sortBuckets orders the series chronologically: hourly labels sort
// lexicographically, daily labels by (month, day).
func sortBuckets(buckets []models.TrendBucket, hourly bool) {
	if hourly {
		sort.Slice(buckets, func(i, j int) bool {
			return buckets[i].Label < buckets[j].Label
		})
		return
	}
	sort.Slice(buckets, func(i, j int) bool {
		var mi, di, mj, dj int
		fmt.Sscanf(buckets[i].Label, "%d/%d", &mi, &di)
		fmt.Sscanf(buckets[j].Label, "%d/%d", &mj, &dj)
		if mi != mj {
			return mi < mj
		}
		return di < dj
	})
}

// calcPercentChange compares two window values. A previous window of
// zero maps to 0 when the current is also zero, otherwise to 100.
func calcPercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return round1(100 * (current - previous) / previous)
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatLatency renders a mean duration as the dashboard's "Nms"
// string.
func formatLatency(ms float64) string {
	return fmt.Sprintf("%dms", int64(ms))
}
