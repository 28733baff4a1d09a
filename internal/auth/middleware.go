// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tracebeam/tracebeam/internal/database"
	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/metrics"
	"github.com/tracebeam/tracebeam/internal/models"
)

type authContextKey string

const (
	userIDKey  authContextKey = "user_id"
	projectKey authContextKey = "project"
)

// ProjectResolver resolves ingestion API keys. *database.DB satisfies
// this; tests substitute fakes.
type ProjectResolver interface {
	GetProjectByAPIKey(ctx context.Context, apiKey string) (*models.Project, error)
}

// RequireJWT guards dashboard endpoints. It accepts a bearer token in
// the Authorization header and stores the authenticated user id in the
// request context.
func RequireJWT(manager *JWTManager, unauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, r)
				return
			}

			claims, err := manager.ValidateToken(token)
			if err != nil {
				logging.Debug().Err(err).Msg("rejected dashboard token")
				unauthorized(w, r)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAPIKey guards ingest endpoints. The key arrives in the
// X-API-Key header (or as a bearer token for SDKs that cannot set
// custom headers); the resolved project lands in the request context.
func RequireAPIKey(resolver ProjectResolver, unauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = bearerToken(r)
			}
			if !ValidAPIKeyFormat(key) {
				metrics.IngestRejectedTotal.WithLabelValues("auth").Inc()
				unauthorized(w, r)
				return
			}

			project, err := resolver.GetProjectByAPIKey(r.Context(), key)
			if err != nil {
				if !errors.Is(err, database.ErrNotFound) {
					logging.Error().Err(err).Msg("api key lookup failed")
				}
				metrics.IngestRejectedTotal.WithLabelValues("auth").Inc()
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), projectKey, project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated dashboard user, or
// uuid.Nil when the request was not JWT-authenticated.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// ProjectFromContext returns the project resolved from the API key, or
// nil when the request was not key-authenticated.
func ProjectFromContext(ctx context.Context) *models.Project {
	if p, ok := ctx.Value(projectKey).(*models.Project); ok {
		return p
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
