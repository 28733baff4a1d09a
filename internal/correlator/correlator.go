// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package correlator turns raw ingest payloads into stored sessions
// and events. It guarantees the owning session exists before any event
// write (materializing it when the SDK never announced it), clears
// parent references that resolve to nothing, deduplicates by id, and
// triggers realtime fan-out for every record it actually creates.
//
// All idempotency rests on the store's unique constraints. The
// correlator never reads before writing to decide whether a record
// exists; concurrent ingesters racing on the same id are resolved by
// the store, and losing the race is success.
package correlator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/metrics"
	"github.com/tracebeam/tracebeam/internal/models"
)

// Store is the persistence surface the correlator writes through.
// *database.DB satisfies this; tests substitute fakes.
type Store interface {
	InsertSessionIfAbsent(ctx context.Context, s *models.DebugSession) (bool, error)
	EnsureSession(ctx context.Context, sessionID string, projectID uuid.UUID) (bool, error)
	GetSession(ctx context.Context, id string) (*models.DebugSession, error)
	EndSession(ctx context.Context, id string) (*models.DebugSession, error)
	InsertEventIfAbsent(ctx context.Context, e *models.DebugEvent) (bool, error)
	GetEvent(ctx context.Context, id string) (*models.DebugEvent, error)
	EventExists(ctx context.Context, id string) (bool, error)
}

// Notifier receives fan-out notices for newly persisted records.
// *realtime.Publisher satisfies this.
type Notifier interface {
	NewSession(session *models.DebugSession)
	NewEvent(projectID uuid.UUID, event *models.DebugEvent)
	SessionEnded(session *models.DebugSession)
}

// Correlator is safe for concurrent use; it holds no mutable state.
type Correlator struct {
	store    Store
	notifier Notifier
}

// New creates a Correlator.
func New(store Store, notifier Notifier) *Correlator {
	return &Correlator{store: store, notifier: notifier}
}

// CreateSession stores a session for the project. A resubmitted id is
// a no-op: the stored session is returned unchanged and no
// notification goes out.
func (c *Correlator) CreateSession(ctx context.Context, projectID uuid.UUID, in *SessionInput) (*models.DebugSession, error) {
	session := &models.DebugSession{
		ID:          in.ID,
		ProjectID:   projectID,
		Environment: in.Environment,
		UserAgent:   in.UserAgent,
		IPAddress:   in.IPAddress,
		Metadata:    in.Metadata,
	}

	created, err := c.store.InsertSessionIfAbsent(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !created {
		return c.store.GetSession(ctx, session.ID)
	}

	metrics.RecordSessionCreated(false)
	c.notifier.NewSession(session)
	return session, nil
}

// EndSession stamps the session's end time and notifies its project's
// room. database.ErrNotFound propagates for unknown ids.
func (c *Correlator) EndSession(ctx context.Context, sessionID string) (*models.DebugSession, error) {
	session, err := c.store.EndSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.notifier.SessionEnded(session)
	return session, nil
}

// CreateEvent ingests one event: the owning session is materialized if
// absent, a dangling parent reference is cleared, the payload is
// normalized, and the write deduplicates by id. On a duplicate the
// stored record comes back unchanged.
func (c *Correlator) CreateEvent(ctx context.Context, projectID uuid.UUID, in *EventInput) (*models.DebugEvent, error) {
	ownerID, err := c.ensureSession(ctx, projectID, in.SessionID)
	if err != nil {
		return nil, err
	}
	return c.createEventInSession(ctx, ownerID, in)
}

// CreateEvents ingests a batch. Every distinct session id is ensured
// once, in first-appearance order, before any event is written; events
// then process strictly sequentially in input order, so an event may
// name an earlier event of the same batch as its parent.
//
// There is no cross-batch rollback: if event N fails, events 0..N-1
// stay committed and the error reports for the whole batch. Retrying
// the full batch is safe, duplicates no-op.
func (c *Correlator) CreateEvents(ctx context.Context, projectID uuid.UUID, inputs []*EventInput) ([]*models.DebugEvent, error) {
	owners := make(map[string]uuid.UUID, len(inputs))
	for _, in := range inputs {
		if _, ok := owners[in.SessionID]; ok {
			continue
		}
		ownerID, err := c.ensureSession(ctx, projectID, in.SessionID)
		if err != nil {
			return nil, err
		}
		owners[in.SessionID] = ownerID
	}

	metrics.IngestBatchSize.Observe(float64(len(inputs)))

	events := make([]*models.DebugEvent, 0, len(inputs))
	for i, in := range inputs {
		event, err := c.createEventInSession(ctx, owners[in.SessionID], in)
		if err != nil {
			return nil, fmt.Errorf("event %d of %d: %w", i, len(inputs), err)
		}
		events = append(events, event)
	}
	return events, nil
}

// ensureSession materializes the session when no row exists yet and
// returns the session's owning project. A freshly materialized session
// belongs to the caller; a pre-existing id keeps its stored owner, so
// notifications reach the room the session actually lives in. A
// concurrent creator winning the race is swallowed by the store's
// conflict handling.
func (c *Correlator) ensureSession(ctx context.Context, projectID uuid.UUID, sessionID string) (uuid.UUID, error) {
	created, err := c.store.EnsureSession(ctx, sessionID, projectID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensure session: %w", err)
	}
	if created {
		metrics.RecordSessionCreated(true)
		logging.Debug().
			Str("session_id", sessionID).
			Str("project_id", projectID.String()).
			Msg("materialized session from event reference")
		return projectID, nil
	}

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve session owner: %w", err)
	}
	return session.ProjectID, nil
}

// createEventInSession runs parent resolution, normalization, the
// deduplicated write, and fan-out. The caller has already ensured the
// session exists; ownerID is the session's owning project, which
// scopes the notification.
func (c *Correlator) createEventInSession(ctx context.Context, ownerID uuid.UUID, in *EventInput) (*models.DebugEvent, error) {
	parentID := in.ParentEventID
	if parentID != nil {
		exists, err := c.store.EventExists(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("resolve parent: %w", err)
		}
		if !exists {
			// Out-of-order or lost parent. Degrade to a root
			// event rather than rejecting the child.
			logging.Debug().
				Str("parent_event_id", *parentID).
				Str("session_id", in.SessionID).
				Msg("clearing dangling parent reference")
			parentID = nil
		}
	}

	event := normalize(in)
	event.ParentEventID = parentID

	created, err := c.store.InsertEventIfAbsent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	metrics.RecordEventIngested(string(event.Type), created)

	if !created {
		return c.store.GetEvent(ctx, event.ID)
	}

	c.notifier.NewEvent(ownerID, event)
	return event, nil
}

// normalize collapses the two accepted payload shapes into the
// canonical record. Flat fields win; the nested http descriptor backs
// the HTTP fields (and, for HTTP_REQUEST events, arguments and return
// value), and the nested error descriptor backs the error fields.
func normalize(in *EventInput) *models.DebugEvent {
	event := &models.DebugEvent{
		ID:           in.ID,
		SessionID:    in.SessionID,
		Type:         in.Type,
		Name:         in.displayName(),
		FilePath:     in.FilePath,
		LineNumber:   in.LineNumber,
		ColumnNumber: in.ColumnNumber,
		Arguments:    in.Arguments,
		ReturnValue:  in.ReturnValue,
		ErrorMessage: in.ErrorMessage,
		ErrorStack:   in.ErrorStack,
		HTTPMethod:   in.HTTPMethod,
		HTTPURL:      in.HTTPURL,
		HTTPStatus:   in.HTTPStatus,
		Duration:     in.Duration,
		Depth:        in.Depth,
		Metadata:     in.Metadata,
	}
	if in.Timestamp != nil {
		event.Timestamp = in.Timestamp.UTC()
	}

	if in.HTTP != nil {
		if event.HTTPMethod == nil && in.HTTP.Method != "" {
			method := in.HTTP.Method
			event.HTTPMethod = &method
		}
		if event.HTTPURL == nil && in.HTTP.URL != "" {
			url := in.HTTP.URL
			event.HTTPURL = &url
		}
		if event.HTTPStatus == nil && in.HTTP.StatusCode != nil {
			status := *in.HTTP.StatusCode
			event.HTTPStatus = &status
		}
		if in.Type == models.EventTypeHTTPRequest {
			if len(event.Arguments) == 0 && len(in.HTTP.RequestBody) > 0 {
				event.Arguments = in.HTTP.RequestBody
			}
			if len(event.ReturnValue) == 0 && len(in.HTTP.ResponseBody) > 0 {
				event.ReturnValue = in.HTTP.ResponseBody
			}
		}
	}

	if in.Error != nil {
		if event.ErrorMessage == nil && in.Error.Message != "" {
			message := in.Error.Message
			event.ErrorMessage = &message
		}
		if event.ErrorStack == nil && in.Error.Stack != "" {
			stack := in.Error.Stack
			event.ErrorStack = &stack
		}
	}

	return event
}
