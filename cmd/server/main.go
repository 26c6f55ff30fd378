// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package main is the entry point for the Confera server.
//
// Confera is a self-hosted operations dashboard for Jitsi Meet
// deployments. It tracks conferences, participants, and recordings
// across one or more Jitsi servers, proxies component health and stats
// (Videobridge, Jicofo, Jibri), ingests Prosody event webhooks, mints
// room JWTs, and speaks Jicofo's conference reservation protocol.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config.yaml, and
//     environment variables (Koanf v2)
//  2. Database: DuckDB-backed conference history and analytics store
//  3. Jitsi manager: per-server component clients behind circuit breakers
//  4. NATS (optional): webhook event fan-out to external consumers
//  5. WebSocket hub: real-time dashboard updates
//  6. Authentication: JWT, Basic Auth, or no-auth mode
//  7. Supervisor tree: checkpointer, hub, poller, and HTTP server
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (CONFERA_ prefix)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// For JWT authentication (default):
//   - CONFERA_JWT_SECRET: 32+ character secret for token signing
//   - CONFERA_ADMIN_USERNAME: admin username
//   - CONFERA_ADMIN_PASSWORD: admin password (8+ characters)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes the NATS publisher and checkpoints the database
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/confera/internal/api"
	"github.com/tomtom215/confera/internal/auth"
	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/events"
	"github.com/tomtom215/confera/internal/jitsi"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/supervisor"
	ws "github.com/tomtom215/confera/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("environment", cfg.Server.Environment).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	manager := jitsi.NewManager(&cfg.Jitsi)

	// NATS is optional; a dashboard is still useful without downstream
	// event consumers, so connection failure is not fatal.
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		publisher, err = events.NewPublisher(&cfg.NATS)
		if err != nil {
			logging.Warn().Err(err).Msg("NATS unavailable - webhook event publishing disabled")
		} else {
			defer publisher.Close()
			logging.Info().Str("url", cfg.NATS.URL).Msg("NATS event publishing enabled")
		}
	}

	authMW, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}
	logAuthMode(cfg)

	wsHub := ws.NewHub()

	handler := api.NewHandler(db, manager, cfg, authMW, wsHub, publisher)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(database.NewCheckpointer(db, 5*time.Minute))
	tree.AddRealtimeService(wsHub)
	if cfg.Jitsi.PollEnabled {
		tree.AddRealtimeService(jitsi.NewPoller(db, manager, wsHub, cfg.Jitsi.PollInterval))
	} else {
		logging.Info().Msg("Stats poller disabled")
	}
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel; it closes once every service stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Confera stopped gracefully")
}

// logAuthMode emits the startup banner for the selected auth mode.
func logAuthMode(cfg *config.Config) {
	switch cfg.Security.AuthMode {
	case config.AuthModeJWT:
		logging.Info().Msg("JWT authentication enabled")
	case config.AuthModeBasic:
		logging.Info().Msg("Basic authentication enabled")
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	case config.AuthModeNone:
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (auth_mode=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  All dashboard endpoints are publicly accessible!")
		logging.Warn().Msg("  This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local development")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}
}
