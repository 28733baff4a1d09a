// Tracebeam - Application Debug Telemetry Ingestion and Analytics
// Copyright 2026 Tracebeam Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tracebeam/tracebeam

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// clearConfigEnv keeps stray TRACEBEAM_ variables and config files on
// the test machine from leaking into Load.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, envPrefix) {
			key := strings.SplitN(kv, "=", 2)[0]
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	os.Unsetenv(ConfigPathEnvVar)
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TRACEBEAM_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 4280 {
		t.Errorf("Server.Port = %d, want 4280", cfg.Server.Port)
	}
	if cfg.Database.Path != "/data/tracebeam.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Ingest.MaxBatchSize != 1000 {
		t.Errorf("Ingest.MaxBatchSize = %d, want 1000", cfg.Ingest.MaxBatchSize)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("TRACEBEAM_AUTH_JWT_SECRET", testSecret)
	t.Setenv("TRACEBEAM_SERVER_PORT", "9999")
	t.Setenv("TRACEBEAM_DATABASE_MAX_MEMORY", "2GB")
	t.Setenv("TRACEBEAM_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.MaxMemory != "2GB" {
		t.Errorf("Database.MaxMemory = %q, want 2GB", cfg.Database.MaxMemory)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: 8421\nauth:\n  jwt_secret: " + testSecret + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8421 {
		t.Errorf("Server.Port = %d, want 8421", cfg.Server.Port)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	clearConfigEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a configuration without a jwt secret")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 4280},
			Database: DatabaseConfig{Path: "/data/t.duckdb"},
			Auth:     AuthConfig{JWTSecret: testSecret},
			Ingest:   IngestConfig{MaxBatchSize: 1000},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"zero batch size", func(c *Config) { c.Ingest.MaxBatchSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvToKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"TRACEBEAM_SERVER_PORT", "server.port"},
		{"TRACEBEAM_DATABASE_MAX_MEMORY", "database.max_memory"},
		{"TRACEBEAM_AUTH_JWT_SECRET", "auth.jwt_secret"},
		{"TRACEBEAM_LOGGING", "logging"},
	}
	for _, tt := range tests {
		if got := envToKey(tt.in); got != tt.want {
			t.Errorf("envToKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
