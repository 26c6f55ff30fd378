// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package websocket distributes live dashboard updates: poller stats
// snapshots, conference lifecycle changes and high-load alerts.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/metrics"
	"github.com/tomtom215/confera/internal/models"
)

// Message types pushed to clients.
const (
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
	MessageTypeStatsUpdate      = "stats_update"
	MessageTypeConferenceUpdate = "conference_update"
	MessageTypeHighLoadAlert    = "high_load_alert"
)

// Message is a typed WebSocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to
// them. It runs as a service under the supervision tree.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve implements suture.Service. Lifecycle events are drained before
// broadcasts so client state is consistent when a message goes out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Drain pending lifecycle events first.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("WebSocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("WebSocket client disconnected")
}

// broadcastToClients sends a message to every connected client. Clients
// are visited in ID order so delivery order is reproducible; clients
// with a full send buffer are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WebSocketMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

// shutdown closes every client during graceful teardown. Context
// cancellation is expected here and is not logged as an error.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebSocketClients.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", count).
		AnErr("cause", ctx.Err()).
		Msg("WebSocket hub stopped")
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastMessage enqueues a message, dropping it when the hub is
// saturated rather than blocking the caller.
func (h *Hub) broadcastMessage(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("type", messageType).Msg("WebSocket broadcast queue full, dropping message")
	}
}

// BroadcastServerStats pushes a poller stats snapshot.
func (h *Hub) BroadcastServerStats(overview *models.ServerOverview) {
	h.broadcastMessage(MessageTypeStatsUpdate, overview)
}

// BroadcastConferenceUpdate pushes a conference lifecycle change.
func (h *Hub) BroadcastConferenceUpdate(conference *models.Conference) {
	h.broadcastMessage(MessageTypeConferenceUpdate, conference)
}

// BroadcastHighLoad pushes a high-load alert.
func (h *Hub) BroadcastHighLoad(serverName string, stressLevel, threshold float64) {
	h.broadcastMessage(MessageTypeHighLoadAlert, map[string]interface{}{
		"server":       serverName,
		"stress_level": stressLevel,
		"threshold":    threshold,
	})
}
