// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/models"
)

// recordingHub captures relay deliveries.
type recordingHub struct {
	mu        sync.Mutex
	delivered []delivery
}

type delivery struct {
	projectID   uuid.UUID
	messageType string
	data        interface{}
}

func (h *recordingHub) BroadcastToProject(projectID uuid.UUID, messageType string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delivered = append(h.delivered, delivery{projectID, messageType, data})
}

func (h *recordingHub) waitFor(t *testing.T, n int) []delivery {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		h.mu.Lock()
		if len(h.delivered) >= n {
			out := make([]delivery, len(h.delivered))
			copy(out, h.delivered)
			h.mu.Unlock()
			return out
		}
		h.mu.Unlock()

		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d deliveries", n)
		case <-time.After(time.Millisecond):
		}
	}
}

func startRelay(t *testing.T, bus message.Subscriber, hub RoomBroadcaster) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = NewRelay(bus, hub).RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("relay did not stop")
		}
	})
	// Let the subscription settle before the first publish.
	time.Sleep(10 * time.Millisecond)
}

func TestPublisherToRelayRoundTrip(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	hub := &recordingHub{}
	startRelay(t, bus, hub)

	publisher := NewPublisher(bus)
	projectID := uuid.New()
	session := &models.DebugSession{ID: "sess-rt", ProjectID: projectID, Environment: "staging"}

	publisher.NewSession(session)
	publisher.NewEvent(projectID, &models.DebugEvent{ID: "ev-rt", SessionID: "sess-rt", Type: models.EventTypeLog})
	publisher.SessionEnded(session)

	got := hub.waitFor(t, 3)

	wantKinds := []string{KindNewSession, KindNewEvent, KindSessionEnded}
	for i, kind := range wantKinds {
		if got[i].messageType != kind {
			t.Errorf("delivery[%d] kind = %q, want %q", i, got[i].messageType, kind)
		}
		if got[i].projectID != projectID {
			t.Errorf("delivery[%d] project = %s, want %s", i, got[i].projectID, projectID)
		}
	}

	// The relayed payload is the publisher's serialized document.
	raw, ok := got[0].data.(json.RawMessage)
	if !ok {
		t.Fatalf("delivery payload type = %T, want json.RawMessage", got[0].data)
	}
	var decoded models.DebugSession
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal relayed session: %v", err)
	}
	if decoded.ID != "sess-rt" || decoded.Environment != "staging" {
		t.Errorf("relayed session = %+v", decoded)
	}
}

func TestSessionEndedPayloadShape(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	hub := &recordingHub{}
	startRelay(t, bus, hub)

	projectID := uuid.New()
	NewPublisher(bus).SessionEnded(&models.DebugSession{
		ID:          "sess-done",
		ProjectID:   projectID,
		Environment: "staging",
	})

	got := hub.waitFor(t, 1)
	if got[0].messageType != KindSessionEnded {
		t.Fatalf("kind = %q, want %q", got[0].messageType, KindSessionEnded)
	}
	if got[0].projectID != projectID {
		t.Errorf("project = %s, want %s", got[0].projectID, projectID)
	}

	raw, ok := got[0].data.(json.RawMessage)
	if !ok {
		t.Fatalf("payload type = %T, want json.RawMessage", got[0].data)
	}

	// Clients read payload.sessionId; the payload carries the id under
	// that key and nothing else.
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["sessionId"] != "sess-done" {
		t.Errorf("payload[sessionId] = %v, want sess-done", payload["sessionId"])
	}
	if len(payload) != 1 {
		t.Errorf("payload keys = %v, want only sessionId", payload)
	}
}

func TestRelayDropsMalformedMessages(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	hub := &recordingHub{}
	startRelay(t, bus, hub)

	if err := bus.Publish(TopicNotifications, message.NewMessage(uuid.NewString(), []byte("{not json"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// A valid message after the malformed one proves the relay kept
	// consuming.
	NewPublisher(bus).NewEvent(uuid.New(), &models.DebugEvent{ID: "ev-ok", Type: models.EventTypeLog})

	got := hub.waitFor(t, 1)
	if got[0].messageType != KindNewEvent {
		t.Errorf("delivery kind = %q, want %q", got[0].messageType, KindNewEvent)
	}
}

// failingPublisher always errors.
type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error {
	return errors.New("bus is down")
}

func (failingPublisher) Close() error { return nil }

func TestPublisherSwallowsPublishErrors(t *testing.T) {
	publisher := NewPublisher(failingPublisher{})

	// Must not panic or propagate; ingest carries on when the bus is
	// broken.
	publisher.NewSession(&models.DebugSession{ID: "sess-fail", ProjectID: uuid.New()})
	publisher.NewEvent(uuid.New(), &models.DebugEvent{ID: "ev-fail", Type: models.EventTypeError})
	publisher.SessionEnded(&models.DebugSession{ID: "sess-fail", ProjectID: uuid.New()})
}
