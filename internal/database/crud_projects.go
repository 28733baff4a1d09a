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

const projectColumns = `id, user_id, name, description, api_key, created_at, updated_at`

// InsertProject creates a new project.
func (db *DB) InsertProject(ctx context.Context, p *models.Project) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query,
		p.ID, p.UserID, p.Name, p.Description, p.APIKey, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("project %s: %w", p.ID, ErrConflict)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject returns the project with the given id, or ErrNotFound.
func (db *DB) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	return scanProject(db.conn.QueryRowContext(ctx, query, id))
}

// GetProjectOwned returns the project only if it belongs to userID.
// A project owned by someone else is reported as ErrNotFound rather
// than Forbidden: callers must not learn that a foreign id exists.
func (db *DB) GetProjectOwned(ctx context.Context, id, userID uuid.UUID) (*models.Project, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ? AND user_id = ?`
	return scanProject(db.conn.QueryRowContext(ctx, query, id, userID))
}

// GetProjectByAPIKey resolves an ingestion API key to its project, or
// ErrNotFound. This runs on every ingest request.
func (db *DB) GetProjectByAPIKey(ctx context.Context, apiKey string) (*models.Project, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + projectColumns + ` FROM projects WHERE api_key = ?`
	return scanProject(db.conn.QueryRowContext(ctx, query, apiKey))
}

// ListProjects returns all projects owned by userID, newest first.
func (db *DB) ListProjects(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.APIKey,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// ProjectIDsForUser returns the ids of every project owned by userID.
// The statistics engine uses this to scope dashboard aggregates.
func (db *DB) ProjectIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM projects WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project ids: %w", err)
	}
	return ids, nil
}

// UpdateProject updates name and description. The caller must have
// resolved ownership first (GetProjectOwned).
func (db *DB) UpdateProject(ctx context.Context, p *models.Project) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	p.UpdatedAt = time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireAffected(result, p.ID.String())
}

// UpdateProjectAPIKey replaces the project's ingestion credential.
func (db *DB) UpdateProjectAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE projects SET api_key = ?, updated_at = ? WHERE id = ?`,
		apiKey, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	return requireAffected(result, id.String())
}

// DeleteProject removes a project with its sessions and events.
// DuckDB has no ON DELETE CASCADE, so the cascade is a transaction.
func (db *DB) DeleteProject(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete project: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM debug_events WHERE session_id IN
			(SELECT id FROM debug_sessions WHERE project_id = ?)`, id); err != nil {
		return fmt.Errorf("delete project events: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM debug_sessions WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete project sessions: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := requireAffected(result, id.String()); err != nil {
		return err
	}
	return tx.Commit()
}

func scanProject(row *sql.Row) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.APIKey,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return p, nil
}

// requireAffected maps a zero-row UPDATE/DELETE to ErrNotFound.
func requireAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}
