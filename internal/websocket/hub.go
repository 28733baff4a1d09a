// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to dashboard clients.
const (
	MessageTypeNewSession   = "new_session"
	MessageTypeNewEvent     = "new_event"
	MessageTypeSessionEnded = "session_ended"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is one WebSocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// roomMessage targets one project's room.
type roomMessage struct {
	projectID uuid.UUID
	message   Message
}

// Hub fans notifications out to the clients watching each project.
// A client joins exactly one room for the lifetime of its connection.
// Delivery is fire-and-forget: there is no buffering for absent
// subscribers and no replay, and a client whose send queue is full
// loses the message and its connection.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[uuid.UUID]map[*Client]bool
	broadcast  chan roomMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan roomMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
	}
}

// RunWithContext runs the hub until the context is canceled, then
// closes every client and returns ctx.Err(). Designed for suture
// supervision.
//
// Selection is priority-based: shutdown first, then client lifecycle,
// then broadcasts. Go's select picks randomly among ready channels;
// the explicit ordering keeps client state consistent before any
// message is delivered.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case rm := <-h.broadcast:
			h.broadcastToRoom(rm)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	room, ok := h.rooms[client.projectID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.projectID] = room
	}
	room[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().
		Str("project_id", client.projectID.String()).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.dropFromRoom(client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().
		Str("project_id", client.projectID.String()).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

// dropFromRoom removes the client from its room index. Caller holds
// h.mu.
func (h *Hub) dropFromRoom(client *Client) {
	room, ok := h.rooms[client.projectID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.projectID)
	}
}

// broadcastToRoom delivers a message to every client of one project in
// client-id order. Clients with a full send queue are disconnected
// rather than blocked on.
func (h *Hub) broadcastToRoom(rm roomMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[rm.projectID]
	if !ok {
		return
	}

	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- rm.message:
			metrics.WSMessagesSent.Inc()
		default:
			metrics.WSMessagesDropped.Inc()
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		h.dropFromRoom(client)
	}
}

// BroadcastToProject queues a message for one project's room. Drops
// the message when the hub's queue is full; realtime delivery is
// best-effort and must never stall ingestion.
func (h *Hub) BroadcastToProject(projectID uuid.UUID, messageType string, data interface{}) {
	rm := roomMessage{
		projectID: projectID,
		message:   Message{Type: messageType, Data: data},
	}

	select {
	case h.broadcast <- rm:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().
			Str("message_type", messageType).
			Str("project_id", projectID.String()).
			Msg("broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of clients watching one project.
func (h *Hub) RoomCount(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		h.dropFromRoom(client)
	}
	metrics.WSConnections.Set(0)
}
