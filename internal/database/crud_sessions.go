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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/models"
)

// DefaultEnvironment is assigned to sessions created without an
// explicit environment label, including lazily materialized ones.
const DefaultEnvironment = "development"

const sessionColumns = `id, project_id, environment, user_agent, ip_address, metadata, started_at, ended_at`

// InsertSessionIfAbsent writes a session with create-if-absent
// semantics: a duplicate id is a no-op, not an error. Returns whether
// a new row was created; on false the caller sees the stored row via
// GetSession.
//
// ON CONFLICT DO NOTHING against the primary key makes this atomic:
// two concurrent creators race inside DuckDB, and exactly one wins.
func (db *DB) InsertSessionIfAbsent(ctx context.Context, s *models.DebugSession) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Environment == "" {
		s.Environment = DefaultEnvironment
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}

	query := `INSERT INTO debug_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`

	result, err := db.conn.ExecContext(ctx, query,
		s.ID, s.ProjectID, s.Environment, s.UserAgent, s.IPAddress,
		jsonArg(s.Metadata), s.StartedAt, s.EndedAt)
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// EnsureSession lazily materializes a session with the default
// environment so an event referencing an unknown session id can be
// stored. Idempotent; a concurrent creator winning the race is not an
// error. Returns whether this call created the session.
func (db *DB) EnsureSession(ctx context.Context, sessionID string, projectID uuid.UUID) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO debug_sessions (id, project_id, environment, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`

	result, err := db.conn.ExecContext(ctx, query,
		sessionID, projectID, DefaultEnvironment, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("ensure session %s: %w", sessionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetSession returns the session with the given id, or ErrNotFound.
func (db *DB) GetSession(ctx context.Context, id string) (*models.DebugSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + sessionColumns + ` FROM debug_sessions WHERE id = ?`
	return scanSession(db.conn.QueryRowContext(ctx, query, id))
}

// EndSession stamps ended_at and returns the updated session.
// ErrNotFound when the session does not exist.
func (db *DB) EndSession(ctx context.Context, id string) (*models.DebugSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE debug_sessions SET ended_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if err := requireAffected(result, id); err != nil {
		return nil, err
	}
	return db.GetSession(ctx, id)
}

// ListSessions returns the sessions of a project, newest first.
func (db *DB) ListSessions(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*models.DebugSession, int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM debug_sessions WHERE project_id = ?`, projectID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM debug_sessions
		WHERE project_id = ? ORDER BY started_at DESC LIMIT ? OFFSET ?`
	rows, err := db.conn.QueryContext(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.DebugSession
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, total, nil
}

// DeleteSession removes a session and its events in one transaction.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM debug_events WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session events: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM debug_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := requireAffected(result, id); err != nil {
		return err
	}
	return tx.Commit()
}

func scanSession(row *sql.Row) (*models.DebugSession, error) {
	s := &models.DebugSession{}
	var metadata sql.NullString
	err := row.Scan(&s.ID, &s.ProjectID, &s.Environment, &s.UserAgent, &s.IPAddress,
		&metadata, &s.StartedAt, &s.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.Metadata = jsonField(metadata)
	return s, nil
}

func scanSessionRows(rows *sql.Rows) (*models.DebugSession, error) {
	s := &models.DebugSession{}
	var metadata sql.NullString
	if err := rows.Scan(&s.ID, &s.ProjectID, &s.Environment, &s.UserAgent, &s.IPAddress,
		&metadata, &s.StartedAt, &s.EndedAt); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.Metadata = jsonField(metadata)
	return s, nil
}

// jsonArg converts a raw JSON document to a driver argument, mapping
// an empty document to NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// jsonField converts a nullable text column back to a raw document.
func jsonField(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}
