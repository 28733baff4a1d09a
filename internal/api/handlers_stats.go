// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/auth"
	"github.com/tracebeam/tracebeam/internal/models"
	"github.com/tracebeam/tracebeam/internal/stats"
)

// DashboardStats handles GET /api/v1/stats/dashboard?range=24h|7d|30d:
// the aggregate snapshot across every project the user owns.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		h.unauthorized(w, r)
		return
	}

	statsRange, err := stats.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	started := time.Now()
	snapshot, err := h.stats.DashboardStats(r.Context(), userID, statsRange)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.respondStats(w, snapshot, started)
}

// ProjectStats handles GET /api/v1/projects/{id}/stats?range=..., the
// same snapshot scoped to one owned project.
func (h *Handler) ProjectStats(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}

	statsRange, err := stats.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	started := time.Now()
	snapshot, err := h.stats.ProjectStats(r.Context(), project.ID, statsRange)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.respondStats(w, snapshot, started)
}

func (h *Handler) respondStats(w http.ResponseWriter, snapshot *models.DashboardStats, started time.Time) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   snapshot,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}
