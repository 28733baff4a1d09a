// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package api provides the HTTP surface: the credentialed ingest
// endpoints SDKs write through, the JWT-guarded dashboard endpoints,
// and the per-project WebSocket subscription.
package api

import (
	"net/http"
	"time"

	"github.com/tracebeam/tracebeam/internal/auth"
	"github.com/tracebeam/tracebeam/internal/config"
	"github.com/tracebeam/tracebeam/internal/correlator"
	"github.com/tracebeam/tracebeam/internal/database"
	"github.com/tracebeam/tracebeam/internal/stats"
	"github.com/tracebeam/tracebeam/internal/websocket"
)

// Handler carries the dependencies of every endpoint.
type Handler struct {
	db         *database.DB
	correlator *correlator.Correlator
	stats      *stats.Engine
	jwt        *auth.JWTManager
	hub        *websocket.Hub
	cfg        *config.Config
	startTime  time.Time
}

// NewHandler wires the endpoint dependencies.
func NewHandler(
	db *database.DB,
	corr *correlator.Correlator,
	statsEngine *stats.Engine,
	jwtManager *auth.JWTManager,
	hub *websocket.Hub,
	cfg *config.Config,
) *Handler {
	return &Handler{
		db:         db,
		correlator: corr,
		stats:      statsEngine,
		jwt:        jwtManager,
		hub:        hub,
		cfg:        cfg,
		startTime:  time.Now(),
	}
}

// Health reports liveness plus a store ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	respondSuccess(w, httpStatus, map[string]interface{}{
		"status":         status,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"clients":        h.hub.GetClientCount(),
	})
}

// unauthorized is the shared rejection handler for both auth
// middlewares.
func (h *Handler) unauthorized(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusUnauthorized, codeAuthentication, "authentication required", nil)
}

// rateLimited is installed as the httprate limit handler.
func rateLimited(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusTooManyRequests, codeRateLimit, "rate limit exceeded", nil)
}
