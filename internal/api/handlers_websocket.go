// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package api

import (
	"errors"
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/database"
	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origins are enforced by the CORS layer for the REST surface;
	// the WebSocket handshake authenticates with a token instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket handles GET /api/v1/ws?projectId=...&token=... and enrolls
// the connection in the project's notification room. The token travels
// as a query parameter because browsers cannot set headers on
// WebSocket handshakes.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		h.unauthorized(w, r)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.unauthorized(w, r)
		return
	}

	projectID, err := uuid.Parse(r.URL.Query().Get("projectId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid project id", nil)
		return
	}

	if _, err := h.db.GetProjectOwned(r.Context(), projectID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
			return
		}
		respondStoreError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, projectID)
	h.hub.Register <- client
	client.Start()
}
