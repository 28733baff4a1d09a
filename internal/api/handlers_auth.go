// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package api

import (
	"errors"
	"net/http"

	"github.com/tracebeam/tracebeam/internal/auth"
	"github.com/tracebeam/tracebeam/internal/database"
	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/models"
)

type registerRequest struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Name     *string `json:"name" validate:"omitempty,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a dashboard account and returns a fresh token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error", err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	if err := h.db.InsertUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			respondError(w, http.StatusConflict, codeConflict, "email already registered", nil)
			return
		}
		respondStoreError(w, err)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error", err)
		return
	}

	logging.Info().Str("user_id", user.ID.String()).Msg("user registered")
	respondSuccess(w, http.StatusCreated, &authResponse{Token: token, User: user})
}

// Login verifies credentials and returns a token. Unknown email and
// wrong password produce the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, codeAuthentication, "invalid credentials", nil)
			return
		}
		respondStoreError(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "invalid credentials", nil)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error", err)
		return
	}

	respondSuccess(w, http.StatusOK, &authResponse{Token: token, User: user})
}
