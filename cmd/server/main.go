// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package main is the entry point for the Tracebeam server.
//
// Tracebeam is a self-hosted debug telemetry platform. Application SDKs
// push debug sessions and events through the credentialed ingest API;
// the dashboard reads aggregate statistics and subscribes to live
// notifications per project over WebSocket.
//
// # Startup order
//
//  1. Configuration: koanf with defaults, optional YAML file, and
//     TRACEBEAM_-prefixed environment variables
//  2. Logging: zerolog, json or console
//  3. Database: embedded DuckDB, schema applied on open
//  4. In-process bus: watermill GoChannel pub/sub
//  5. WebSocket hub and bus relay
//  6. Event correlator and statistics engine
//  7. HTTP server under a suture supervisor tree
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context; the HTTP server drains
// in-flight requests within server.shutdown_timeout, the hub closes its
// clients, and the database is closed last.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tracebeam/tracebeam/internal/api"
	"github.com/tracebeam/tracebeam/internal/auth"
	"github.com/tracebeam/tracebeam/internal/config"
	"github.com/tracebeam/tracebeam/internal/correlator"
	"github.com/tracebeam/tracebeam/internal/database"
	"github.com/tracebeam/tracebeam/internal/logging"
	"github.com/tracebeam/tracebeam/internal/realtime"
	"github.com/tracebeam/tracebeam/internal/stats"
	"github.com/tracebeam/tracebeam/internal/supervisor"
	ws "github.com/tracebeam/tracebeam/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting Tracebeam")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Auth)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure authentication")
	}

	bus := realtime.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close bus")
		}
	}()

	hub := ws.NewHub()
	relay := realtime.NewRelay(bus, hub)
	publisher := realtime.NewPublisher(bus)

	corr := correlator.New(db, publisher)
	statsEngine := stats.New(db)

	handler := api.NewHandler(db, corr, statsEngine, jwtManager, hub, cfg)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)
	tree.AddMessagingService(supervisor.NewHubService(hub))
	tree.AddMessagingService(supervisor.NewRelayService(relay))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Tracebeam ready")

	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Tracebeam stopped")
}
