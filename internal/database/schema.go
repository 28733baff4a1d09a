// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package database

import (
	"context"
	"fmt"
)

// createTables creates the schema if it does not exist.
//
// Session and event ids are client-supplied opaque strings (the SDK
// sends UUIDs, but the store does not require that), so they are
// VARCHAR primary keys. User and project ids are server-generated
// UUIDs. Free-form documents (metadata, arguments, return values) are
// stored as JSON text.
//
// The primary keys on debug_sessions.id and debug_events.id are what
// make "create if absent" ingestion safe: ON CONFLICT DO NOTHING
// against them turns duplicate submissions into no-ops atomically.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR NOT NULL UNIQUE,
			password_hash VARCHAR NOT NULL,
			name VARCHAR,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			name VARCHAR NOT NULL,
			description VARCHAR,
			api_key VARCHAR NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS debug_sessions (
			id VARCHAR PRIMARY KEY,
			project_id UUID NOT NULL,
			environment VARCHAR NOT NULL DEFAULT 'development',
			user_agent VARCHAR,
			ip_address VARCHAR,
			metadata VARCHAR,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS debug_events (
			id VARCHAR PRIMARY KEY,
			session_id VARCHAR NOT NULL,
			parent_event_id VARCHAR,
			type VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			file_path VARCHAR,
			line_number INTEGER,
			column_number INTEGER,
			arguments VARCHAR,
			return_value VARCHAR,
			error_message VARCHAR,
			error_stack VARCHAR,
			http_method VARCHAR,
			http_url VARCHAR,
			http_status INTEGER,
			duration DOUBLE,
			depth INTEGER NOT NULL DEFAULT 0,
			metadata VARCHAR,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// createIndexes creates the indexes backing the hot query paths:
// API-key lookup on every ingest request, session listing per project,
// and the windowed aggregates over event timestamps.
func (db *DB) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_project ON debug_sessions(project_id, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON debug_events(session_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON debug_events(timestamp)`,
	}

	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
