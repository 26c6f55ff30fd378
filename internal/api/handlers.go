// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package api provides the HTTP surface of the dashboard: REST
// handlers, the webhook and reservation endpoints, the WebSocket
// upgrade and the chi router wiring.
package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/confera/internal/auth"
	"github.com/tomtom215/confera/internal/cache"
	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/events"
	"github.com/tomtom215/confera/internal/jitsi"
	ws "github.com/tomtom215/confera/internal/websocket"
)

// Handler contains the dependencies for the API handlers.
//
// Handler methods are split across files by area:
//   - handlers_servers.go: server CRUD and connectivity tests
//   - handlers_conferences.go: conference and participant endpoints
//   - handlers_recordings.go: recording listing and Jibri control
//   - handlers_webhook.go: webhook ingestion and dispatch
//   - handlers_reservation.go: the Jicofo reservation protocol
//   - handlers_proxy.go: component stats proxy endpoints
//   - handlers_token.go: room JWT and meeting link minting
//   - handlers_analytics.go: usage analytics
//   - handlers_settings.go: the settings singleton
//   - handlers_auth.go: dashboard login
//   - handlers_health.go: liveness and readiness
//   - websocket.go: the /ws upgrade
type Handler struct {
	db        *database.DB
	manager   *jitsi.Manager
	config    *config.Config
	authMW    *auth.Middleware
	wsHub     *ws.Hub
	publisher *events.Publisher
	cache     *cache.Cache
	startTime time.Time
}

// NewHandler creates the API handler. The publisher may be nil when
// NATS is disabled; the hub may be nil in tests.
func NewHandler(db *database.DB, manager *jitsi.Manager, cfg *config.Config, authMW *auth.Middleware, wsHub *ws.Hub, publisher *events.Publisher) *Handler {
	return &Handler{
		db:        db,
		manager:   manager,
		config:    cfg,
		authMW:    authMW,
		wsHub:     wsHub,
		publisher: publisher,
		cache:     cache.New(5 * time.Second),
		startTime: time.Now(),
	}
}

// pageParams reads page/page_size query parameters and clamps them to
// the configured bounds.
func (h *Handler) pageParams(r *http.Request) (page, pageSize int) {
	page = getIntParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = getIntParam(r, "page_size", h.config.API.DefaultPageSize)
	if pageSize < 1 {
		pageSize = h.config.API.DefaultPageSize
	}
	if pageSize > h.config.API.MaxPageSize {
		pageSize = h.config.API.MaxPageSize
	}
	return page, pageSize
}
