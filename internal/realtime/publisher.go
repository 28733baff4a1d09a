// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package realtime

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/metrics"
	"github.com/tracebeam/tracebeam/internal/models"
)

// Envelope is the wire form of one notification on the bus.
type Envelope struct {
	Kind      string          `json:"kind"`
	ProjectID uuid.UUID       `json:"projectId"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher emits ingest notifications. All methods are best-effort:
// failures are logged and counted, never returned, so a broken bus
// cannot reject telemetry writes.
type Publisher struct {
	publisher message.Publisher
}

// NewPublisher wraps a Watermill publisher (in production the shared
// GoChannel bus).
func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// NewSession announces a session created through the ingest API or
// materialized from an event.
func (p *Publisher) NewSession(session *models.DebugSession) {
	p.publish(KindNewSession, session.ProjectID, session)
}

// NewEvent announces a newly stored event. Callers must not announce
// duplicate submissions.
func (p *Publisher) NewEvent(projectID uuid.UUID, event *models.DebugEvent) {
	p.publish(KindNewEvent, projectID, event)
}

// sessionEndedPayload is the wire payload for session_ended: only the
// id travels, subscribers already hold the session.
type sessionEndedPayload struct {
	SessionID string `json:"sessionId"`
}

// SessionEnded announces a session close.
func (p *Publisher) SessionEnded(session *models.DebugSession) {
	p.publish(KindSessionEnded, session.ProjectID, sessionEndedPayload{SessionID: session.ID})
}

func (p *Publisher) publish(kind string, projectID uuid.UUID, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		metrics.RecordBusPublish(kind, err)
		logging.Error().Err(err).Str("kind", kind).Msg("failed to marshal notification payload")
		return
	}

	data, err := json.Marshal(Envelope{
		Kind:      kind,
		ProjectID: projectID,
		Payload:   raw,
	})
	if err != nil {
		metrics.RecordBusPublish(kind, err)
		logging.Error().Err(err).Str("kind", kind).Msg("failed to marshal notification envelope")
		return
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set("kind", kind)
	msg.Metadata.Set("project_id", projectID.String())

	if err := p.publisher.Publish(TopicNotifications, msg); err != nil {
		metrics.RecordBusPublish(kind, err)
		logging.Error().Err(err).Str("kind", kind).Msg("failed to publish notification")
		return
	}
	metrics.RecordBusPublish(kind, nil)
}
