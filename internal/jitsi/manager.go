// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"sync"
	"time"

	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/models"
)

// Manager hands out per-server clients, keeping circuit breaker state
// alive across requests. Clients are rebuilt when the server row changes.
type Manager struct {
	cfg *config.JitsiConfig

	mu      sync.Mutex
	clients map[string]*managedClient
}

type managedClient struct {
	client    *BreakerClient
	updatedAt time.Time
}

// NewManager creates a client manager.
func NewManager(cfg *config.JitsiConfig) *Manager {
	return &Manager{
		cfg:     cfg,
		clients: make(map[string]*managedClient),
	}
}

// ClientFor returns the cached client for a server, rebuilding it when
// the server configuration changed.
func (m *Manager) ClientFor(server *models.JitsiServer) *BreakerClient {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mc, ok := m.clients[server.ID]; ok && mc.updatedAt.Equal(server.UpdatedAt) {
		return mc.client
	}

	client := NewBreakerClient(NewClient(server, m.cfg))
	m.clients[server.ID] = &managedClient{client: client, updatedAt: server.UpdatedAt}
	return client
}

// Forget drops the cached client for a deleted server.
func (m *Manager) Forget(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, serverID)
}
