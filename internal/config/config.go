// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

// Package config holds all application configuration, loaded with
// koanf in three layers: built-in defaults, an optional YAML config
// file, and TRACEBEAM_-prefixed environment variables (highest
// priority).
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Tracebeam server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the listen port. Default: 4280
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins for dashboard browsers.
	// Default: ["*"]
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. Default: /data/tracebeam.duckdb
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage. Default: 1GB
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// AuthConfig holds dashboard authentication settings.
type AuthConfig struct {
	// JWTSecret signs dashboard access tokens (HS256). Required.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the access token lifetime. Default: 24h
	TokenTTL time.Duration `koanf:"token_ttl"`

	// BcryptCost is the password hashing cost. Default: 10
	BcryptCost int `koanf:"bcrypt_cost"`
}

// IngestConfig holds ingestion limits.
type IngestConfig struct {
	// MaxBatchSize caps the number of events in one batch request.
	// Default: 1000
	MaxBatchSize int `koanf:"max_batch_size"`

	// RateLimitReqs is the per-key request budget per window.
	// Default: 600
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window. Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is the minimum log level. Default: info
	Level string `koanf:"level"`

	// Format is json or console. Default: json
	Format string `koanf:"format"`
}

// Validate checks the configuration for values that would make the
// server unable to run correctly.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set TRACEBEAM_AUTH_JWT_SECRET)")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Ingest.MaxBatchSize <= 0 {
		return fmt.Errorf("ingest.max_batch_size must be positive")
	}
	return nil
}
