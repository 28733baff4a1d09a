// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/models"
)

const eventColumns = `id, session_id, parent_event_id, type, name,
	file_path, line_number, column_number,
	arguments, return_value, error_message, error_stack,
	http_method, http_url, http_status,
	duration, depth, metadata, timestamp, created_at`

// InsertEventIfAbsent writes an event with create-if-absent semantics
// keyed on the event id. Resubmitting an id is a no-op: the stored
// record is never overwritten, whatever the new payload says. Returns
// whether a new row was created.
func (db *DB) InsertEventIfAbsent(ctx context.Context, e *models.DebugEvent) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	query := `INSERT INTO debug_events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`

	result, err := db.conn.ExecContext(ctx, query,
		e.ID, e.SessionID, e.ParentEventID, string(e.Type), e.Name,
		e.FilePath, e.LineNumber, e.ColumnNumber,
		jsonArg(e.Arguments), jsonArg(e.ReturnValue), e.ErrorMessage, e.ErrorStack,
		e.HTTPMethod, e.HTTPURL, e.HTTPStatus,
		e.Duration, e.Depth, jsonArg(e.Metadata), e.Timestamp, e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetEvent returns the event with the given id, or ErrNotFound.
func (db *DB) GetEvent(ctx context.Context, id string) (*models.DebugEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + eventColumns + ` FROM debug_events WHERE id = ?`
	rows, err := db.conn.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get event: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanEvent(rows)
}

// EventExists reports whether an event with the given id is stored.
// The correlator uses this to validate parent references.
func (db *DB) EventExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM debug_events WHERE id = ?`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("event exists: %w", err)
	}
	return true, nil
}

// ListSessionEvents returns all events of a session in timestamp
// order. Child lists are reconstructed here by indexed lookup over the
// returned slice; parent/child edges are never stored redundantly.
func (db *DB) ListSessionEvents(ctx context.Context, sessionID string) ([]*models.DebugEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + eventColumns + ` FROM debug_events
		WHERE session_id = ? ORDER BY timestamp ASC, created_at ASC`
	rows, err := db.conn.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session events: %w", err)
	}
	defer rows.Close()

	var events []*models.DebugEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session events: %w", err)
	}

	// Overlay child ids from the parent edges.
	byID := make(map[string]*models.DebugEvent, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	for _, e := range events {
		if e.ParentEventID == nil {
			continue
		}
		if parent, ok := byID[*e.ParentEventID]; ok {
			parent.ChildEventIDs = append(parent.ChildEventIDs, e.ID)
		}
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (*models.DebugEvent, error) {
	e := &models.DebugEvent{}
	var eventType string
	var arguments, returnValue, metadata sql.NullString

	err := rows.Scan(&e.ID, &e.SessionID, &e.ParentEventID, &eventType, &e.Name,
		&e.FilePath, &e.LineNumber, &e.ColumnNumber,
		&arguments, &returnValue, &e.ErrorMessage, &e.ErrorStack,
		&e.HTTPMethod, &e.HTTPURL, &e.HTTPStatus,
		&e.Duration, &e.Depth, &metadata, &e.Timestamp, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	e.Type = models.EventType(eventType)
	e.Arguments = jsonField(arguments)
	e.ReturnValue = jsonField(returnValue)
	e.Metadata = jsonField(metadata)
	return e, nil
}
