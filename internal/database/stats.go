// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventAggregates holds one window's worth of raw aggregates over the
// event stream of a set of projects. AvgDurationMs is zero when no
// event in the window carries a duration.
type EventAggregates struct {
	TotalEvents   int64
	ErrorEvents   int64
	AvgDurationMs float64
}

// AggregateEvents computes total count, error count, and mean duration
// over [from, to) for the given projects in a single round trip.
func (db *DB) AggregateEvents(ctx context.Context, projectIDs []uuid.UUID, from, to time.Time) (*EventAggregates, error) {
	agg := &EventAggregates{}
	if len(projectIDs) == 0 {
		return agg, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE e.type = 'ERROR'),
			COALESCE(AVG(e.duration), 0)
		FROM debug_events e
		JOIN debug_sessions s ON s.id = e.session_id
		WHERE s.project_id IN (%s)
		  AND e.timestamp >= ? AND e.timestamp < ?`, uuidPlaceholders(len(projectIDs)))

	args := uuidArgs(projectIDs, from, to)
	err := db.conn.QueryRowContext(ctx, query, args...).
		Scan(&agg.TotalEvents, &agg.ErrorEvents, &agg.AvgDurationMs)
	if err != nil {
		return nil, fmt.Errorf("aggregate events: %w", err)
	}
	return agg, nil
}

// ActiveSessionCount counts sessions that started inside [from, to)
// and have not ended.
func (db *DB) ActiveSessionCount(ctx context.Context, projectIDs []uuid.UUID, from, to time.Time) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT COUNT(*) FROM debug_sessions
		WHERE project_id IN (%s)
		  AND started_at >= ? AND started_at < ?
		  AND ended_at IS NULL`, uuidPlaceholders(len(projectIDs)))

	var count int64
	args := uuidArgs(projectIDs, from, to)
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("active session count: %w", err)
	}
	return count, nil
}

// BucketCount is one trend bucket as the store sees it: a formatted
// label and the number of events that fell into it. Buckets with no
// events are absent from the result; the stats engine overlays these
// counts onto a pre-seeded zero series.
type BucketCount struct {
	Label string
	Count int64
}

// Bucket label formats understood by EventCountsByBucket. Hourly
// labels look like "14:00", daily labels like "08/28".
const (
	BucketFormatHourly = "%H:00"
	BucketFormatDaily  = "%m/%d"
)

// EventCountsByBucket groups events in [from, to) into strftime-labeled
// buckets for trend charts.
func (db *DB) EventCountsByBucket(ctx context.Context, projectIDs []uuid.UUID, from, to time.Time, format string) ([]BucketCount, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT strftime(e.timestamp, '%s') AS bucket, COUNT(*)
		FROM debug_events e
		JOIN debug_sessions s ON s.id = e.session_id
		WHERE s.project_id IN (%s)
		  AND e.timestamp >= ? AND e.timestamp < ?
		GROUP BY bucket
		ORDER BY bucket`, format, uuidPlaceholders(len(projectIDs)))

	args := uuidArgs(projectIDs, from, to)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("event trend: %w", err)
	}
	defer rows.Close()

	var buckets []BucketCount
	for rows.Next() {
		var b BucketCount
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return buckets, nil
}

// uuidPlaceholders builds the "?, ?, ?" list for an IN clause.
func uuidPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// uuidArgs flattens project ids plus trailing arguments into a driver
// argument slice.
func uuidArgs(ids []uuid.UUID, rest ...any) []any {
	args := make([]any, 0, len(ids)+len(rest))
	for _, id := range ids {
		args = append(args, id)
	}
	return append(args, rest...)
}
