// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tracebeam/tracebeam/internal/auth"
	"github.com/tracebeam/tracebeam/internal/correlator"
	"github.com/tracebeam/tracebeam/internal/metrics"
)

// IngestSession handles POST /api/v1/ingest/session. Resubmitting an
// id returns the stored session unchanged.
func (h *Handler) IngestSession(w http.ResponseWriter, r *http.Request) {
	project := auth.ProjectFromContext(r.Context())
	if project == nil {
		h.unauthorized(w, r)
		return
	}

	var in correlator.SessionInput
	if err := decodeJSON(w, r, &in); err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("validation").Inc()
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&in); apiErr != nil {
		metrics.IngestRejectedTotal.WithLabelValues("validation").Inc()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	session, err := h.correlator.CreateSession(r.Context(), project.ID, &in)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, session)
}

// IngestEndSession handles PATCH /api/v1/ingest/session/{id}: stamps
// endedAt. No body.
func (h *Handler) IngestEndSession(w http.ResponseWriter, r *http.Request) {
	if auth.ProjectFromContext(r.Context()) == nil {
		h.unauthorized(w, r)
		return
	}

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "session id is required", nil)
		return
	}

	session, err := h.correlator.EndSession(r.Context(), sessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, session)
}

// IngestEvent handles POST /api/v1/ingest/event: a single event
// payload.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	project := auth.ProjectFromContext(r.Context())
	if project == nil {
		h.unauthorized(w, r)
		return
	}

	var in correlator.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("validation").Inc()
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&in); apiErr != nil {
		metrics.IngestRejectedTotal.WithLabelValues("validation").Inc()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	event, err := h.correlator.CreateEvent(r.Context(), project.ID, &in)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, event)
}

// IngestEvents handles POST /api/v1/ingest/events: an array of event
// payloads processed in order. The whole batch validates before any
// write; a mid-batch store failure leaves earlier events committed and
// reports the error for the batch.
func (h *Handler) IngestEvents(w http.ResponseWriter, r *http.Request) {
	project := auth.ProjectFromContext(r.Context())
	if project == nil {
		h.unauthorized(w, r)
		return
	}

	var inputs []*correlator.EventInput
	if err := decodeJSON(w, r, &inputs); err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("validation").Inc()
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body", nil)
		return
	}
	if len(inputs) == 0 {
		respondError(w, http.StatusBadRequest, codeValidation, "batch must contain at least one event", nil)
		return
	}
	if max := h.cfg.Ingest.MaxBatchSize; max > 0 && len(inputs) > max {
		metrics.IngestRejectedTotal.WithLabelValues("validation").Inc()
		respondError(w, http.StatusBadRequest, codeValidation, "batch exceeds maximum size", nil)
		return
	}
	for i, in := range inputs {
		if apiErr := validateRequest(in); apiErr != nil {
			metrics.IngestRejectedTotal.WithLabelValues("validation").Inc()
			apiErr.Message = "event " + strconv.Itoa(i) + ": " + apiErr.Message
			respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
			return
		}
	}

	events, err := h.correlator.CreateEvents(r.Context(), project.ID, inputs)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, events)
}
