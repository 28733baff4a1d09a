// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package realtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/logging"
)

// RoomBroadcaster is the hub-facing side of the relay. *websocket.Hub
// satisfies this.
type RoomBroadcaster interface {
	BroadcastToProject(projectID uuid.UUID, messageType string, data interface{})
}

// Relay consumes bus notifications and forwards each to the matching
// project room. Malformed messages are acked and dropped; there is no
// retry path because realtime frames are worthless once stale.
type Relay struct {
	subscriber message.Subscriber
	hub        RoomBroadcaster
}

// NewRelay wires a Watermill subscriber to the hub.
func NewRelay(subscriber message.Subscriber, hub RoomBroadcaster) *Relay {
	return &Relay{subscriber: subscriber, hub: hub}
}

// RunWithContext consumes until the context is canceled. Designed for
// suture supervision.
func (r *Relay) RunWithContext(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, TopicNotifications)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicNotifications, err)
	}

	logging.Info().Str("topic", TopicNotifications).Msg("realtime relay started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().
				Str("component", "realtime-relay").
				Msg("realtime relay stopped")
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("notification channel closed")
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg *message.Message) {
	defer msg.Ack()

	var envelope Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed notification")
		return
	}

	// The payload stays raw; clients get the exact document the
	// publisher serialized.
	r.hub.BroadcastToProject(envelope.ProjectID, envelope.Kind, envelope.Payload)
}
