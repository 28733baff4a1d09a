// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tracebeam/tracebeam/internal/models"
)

// SessionList handles GET /api/v1/projects/{id}/sessions with
// limit/offset pagination, newest first.
func (h *Handler) SessionList(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}

	limit := getIntParam(r, "limit", 100)
	offset := getIntParam(r, "offset", 0)

	sessions, total, err := h.db.ListSessions(r.Context(), project.ID, limit, offset)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.DebugSession{}
	}

	respondSuccess(w, http.StatusOK, &models.PaginatedSessions{
		Sessions: sessions,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

type sessionDetail struct {
	Session *models.DebugSession `json:"session"`
	Events  []*models.DebugEvent `json:"events"`
}

// SessionGet handles GET /api/v1/projects/{id}/sessions/{sessionId}:
// the session plus its full event forest in timestamp order, with
// child ids reconstructed.
func (h *Handler) SessionGet(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}

	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.db.GetSession(r.Context(), sessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if session.ProjectID != project.ID {
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
		return
	}

	events, err := h.db.ListSessionEvents(r.Context(), sessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if events == nil {
		events = []*models.DebugEvent{}
	}

	respondSuccess(w, http.StatusOK, &sessionDetail{Session: session, Events: events})
}

// SessionDelete handles DELETE /api/v1/projects/{id}/sessions/{sessionId}.
func (h *Handler) SessionDelete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}

	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.db.GetSession(r.Context(), sessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if session.ProjectID != project.ID {
		respondError(w, http.StatusNotFound, codeNotFound, "resource not found", nil)
		return
	}

	if err := h.db.DeleteSession(r.Context(), sessionID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"id": sessionID})
}
