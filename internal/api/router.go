// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracebeam/tracebeam/internal/auth"
	"github.com/tracebeam/tracebeam/internal/metrics"
	"github.com/tracebeam/tracebeam/internal/middleware"
)

// NewRouter assembles the HTTP surface.
//
// Three route groups with distinct credentials:
//   - /api/v1/ingest/* takes a project API key; rate limited per key.
//   - /api/v1/auth/* is public with strict per-IP limits.
//   - the remaining /api/v1/* dashboard endpoints take a bearer JWT.
func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", h.Health)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(httprate.Limit(
			10, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(rateLimited),
		))
		r.Use(middleware.PrometheusMetrics)

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(httprate.Limit(
			h.cfg.Ingest.RateLimitReqs, h.cfg.Ingest.RateLimitWindow,
			httprate.WithKeyFuncs(keyByAPIKey),
			httprate.WithLimitHandler(ingestRateLimited),
		))
		r.Use(middleware.PrometheusMetrics)
		r.Use(auth.RequireAPIKey(h.db, h.unauthorized))

		r.Post("/session", h.IngestSession)
		r.Patch("/session/{id}", h.IngestEndSession)
		r.Post("/events", h.IngestEvents)
		r.Post("/event", h.IngestEvent)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			300, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(rateLimited),
		))
		r.Use(middleware.PrometheusMetrics)

		// The WebSocket handshake authenticates with a token query
		// parameter, so it sits outside the JWT middleware.
		r.Get("/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireJWT(h.jwt, h.unauthorized))

			r.Get("/stats/dashboard", h.DashboardStats)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.ProjectList)
				r.Post("/", h.ProjectCreate)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.ProjectGet)
					r.Put("/", h.ProjectUpdate)
					r.Delete("/", h.ProjectDelete)
					r.Post("/regenerate-key", h.ProjectRegenerateKey)
					r.Get("/stats", h.ProjectStats)

					r.Route("/sessions", func(r chi.Router) {
						r.Get("/", h.SessionList)
						r.Get("/{sessionId}", h.SessionGet)
						r.Delete("/{sessionId}", h.SessionDelete)
					})
				})
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// keyByAPIKey rate limits ingestion per credential rather than per IP,
// so one busy SDK deployment cannot starve another behind the same
// NAT.
func keyByAPIKey(r *http.Request) (string, error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key, nil
	}
	if header := r.Header.Get("Authorization"); header != "" {
		return header, nil
	}
	return httprate.KeyByIP(r)
}

func ingestRateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.IngestRejectedTotal.WithLabelValues("rate_limit").Inc()
	rateLimited(w, r)
}
