// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package models defines the persistent entities and API data shapes
// shared across Tracebeam packages.
//
// JSON tags use camelCase to match the wire format of the instrumented
// client SDKs and the dashboard; database column names are snake_case
// and live in the database package.
package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType classifies a debug event.
type EventType string

// Event types accepted on the ingestion surface.
const (
	EventTypeFunctionCall EventType = "FUNCTION_CALL"
	EventTypeHTTPRequest  EventType = "HTTP_REQUEST"
	EventTypeError        EventType = "ERROR"
	EventTypeLog          EventType = "LOG"
)

// Valid reports whether t is one of the four known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeFunctionCall, EventTypeHTTPRequest, EventTypeError, EventTypeLog:
		return true
	}
	return false
}

// User is a dashboard account. Projects are owned by users.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         *string   `json:"name,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Project groups debug sessions and carries the ingestion API key.
// The API key is the sole ingestion credential.
type Project struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	APIKey      string    `json:"apiKey"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DebugSession is one bounded client run (a browser visit, a process
// lifetime) grouping events. EndedAt stays nil while the session is
// open. Sessions may be materialized lazily by the first event that
// references an unknown session id.
type DebugSession struct {
	ID          string          `json:"id"`
	ProjectID   uuid.UUID       `json:"projectId"`
	Environment string          `json:"environment"`
	UserAgent   *string         `json:"userAgent,omitempty"`
	IPAddress   *string         `json:"ipAddress,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	EndedAt     *time.Time      `json:"endedAt,omitempty"`
}

// DebugEvent is one observed occurrence within a session. Events form
// a forest per session: ParentEventID is nil for roots. ChildEventIDs
// is never stored; it is reconstructed by indexed lookup for session
// detail views.
type DebugEvent struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"sessionId"`
	ParentEventID *string         `json:"parentEventId,omitempty"`
	Type          EventType       `json:"type"`
	Name          string          `json:"name"`
	FilePath      *string         `json:"filePath,omitempty"`
	LineNumber    *int            `json:"lineNumber,omitempty"`
	ColumnNumber  *int            `json:"columnNumber,omitempty"`
	Arguments     json.RawMessage `json:"arguments,omitempty"`
	ReturnValue   json.RawMessage `json:"returnValue,omitempty"`
	ErrorMessage  *string         `json:"errorMessage,omitempty"`
	ErrorStack    *string         `json:"errorStack,omitempty"`
	HTTPMethod    *string         `json:"httpMethod,omitempty"`
	HTTPURL       *string         `json:"httpUrl,omitempty"`
	HTTPStatus    *int            `json:"httpStatus,omitempty"`
	Duration      *float64        `json:"duration,omitempty"`
	Depth         int             `json:"depth"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	CreatedAt     time.Time       `json:"createdAt"`

	// ChildEventIDs is populated only on session detail reads.
	ChildEventIDs []string `json:"childEventIds,omitempty"`
}
