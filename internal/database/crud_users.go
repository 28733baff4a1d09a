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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/models"
)

// InsertUser creates a new dashboard account. Returns ErrConflict when
// the email is already registered.
func (db *DB) InsertUser(ctx context.Context, user *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user with the given email, or ErrNotFound.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, email, password_hash, name, created_at, updated_at
		FROM users WHERE email = ?`
	return db.scanUser(db.conn.QueryRowContext(ctx, query, email))
}

// GetUser returns the user with the given id, or ErrNotFound.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, email, password_hash, name, created_at, updated_at
		FROM users WHERE id = ?`
	return db.scanUser(db.conn.QueryRowContext(ctx, query, id))
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// isDuplicateKey reports whether err is a DuckDB unique-constraint
// violation. The driver does not expose a typed error for this, so the
// message text is the only signal available.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate key")
}
