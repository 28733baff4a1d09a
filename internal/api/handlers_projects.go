// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/auth"
	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/models"
)

type projectRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
}

// projectParam resolves the {id} URL parameter to a project owned by
// the authenticated user. Foreign projects surface as not found.
func (h *Handler) projectParam(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		h.unauthorized(w, r)
		return nil, false
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid project id", nil)
		return nil, false
	}

	project, err := h.db.GetProjectOwned(r.Context(), projectID, userID)
	if err != nil {
		respondStoreError(w, err)
		return nil, false
	}
	return project, true
}

// ProjectCreate handles POST /api/v1/projects.
func (h *Handler) ProjectCreate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		h.unauthorized(w, r)
		return
	}

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error", err)
		return
	}

	project := &models.Project{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		APIKey:      apiKey,
	}
	if err := h.db.InsertProject(r.Context(), project); err != nil {
		respondStoreError(w, err)
		return
	}

	logging.Info().Str("project_id", project.ID.String()).Msg("project created")
	respondSuccess(w, http.StatusCreated, project)
}

// ProjectList handles GET /api/v1/projects.
func (h *Handler) ProjectList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		h.unauthorized(w, r)
		return
	}

	projects, err := h.db.ListProjects(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	respondSuccess(w, http.StatusOK, projects)
}

// ProjectGet handles GET /api/v1/projects/{id}.
func (h *Handler) ProjectGet(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}
	respondSuccess(w, http.StatusOK, project)
}

// ProjectUpdate handles PUT /api/v1/projects/{id}.
func (h *Handler) ProjectUpdate(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	if err := h.db.UpdateProject(r.Context(), project); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, project)
}

// ProjectDelete handles DELETE /api/v1/projects/{id}. Sessions and
// events cascade.
func (h *Handler) ProjectDelete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteProject(r.Context(), project.ID); err != nil {
		respondStoreError(w, err)
		return
	}

	logging.Info().Str("project_id", project.ID.String()).Msg("project deleted")
	respondSuccess(w, http.StatusOK, map[string]string{"id": project.ID.String()})
}

// ProjectRegenerateKey handles POST /api/v1/projects/{id}/regenerate-key.
// The old key stops working immediately.
func (h *Handler) ProjectRegenerateKey(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectParam(w, r)
	if !ok {
		return
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error", err)
		return
	}

	if err := h.db.UpdateProjectAPIKey(r.Context(), project.ID, apiKey); err != nil {
		respondStoreError(w, err)
		return
	}

	project.APIKey = apiKey
	logging.Info().Str("project_id", project.ID.String()).Msg("project api key regenerated")
	respondSuccess(w, http.StatusOK, project)
}
