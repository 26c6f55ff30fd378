// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package events publishes processed webhook events to NATS so external
// consumers (alerting, billing, archival) can react without polling the
// dashboard API.
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/models"
)

// Publisher forwards webhook events to a NATS subject. Publishing is
// best-effort: a failed publish is logged, never surfaced to the
// webhook sender.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Event is the message body published for each processed webhook.
type Event struct {
	EventType   string    `json:"event_type"`
	ServerID    string    `json:"server_id,omitempty"`
	RoomName    string    `json:"room_name,omitempty"`
	Payload     string    `json:"payload"`
	PublishedAt time.Time `json:"published_at"`
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg *config.NATSConfig) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("confera"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	logging.Info().Str("url", cfg.URL).Str("subject", cfg.Subject).Msg("NATS publisher connected")
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// PublishWebhookEvent publishes a stored webhook event.
func (p *Publisher) PublishWebhookEvent(event *models.WebhookEvent) {
	if p == nil || p.conn == nil {
		return
	}

	msg := Event{
		EventType:   event.EventType,
		ServerID:    event.ServerID,
		RoomName:    event.RoomName,
		Payload:     event.Payload,
		PublishedAt: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal NATS event")
		return
	}

	subject := p.subject + "." + event.EventType
	if err := p.conn.Publish(subject, data); err != nil {
		logging.Warn().Err(err).Str("subject", subject).Msg("Failed to publish NATS event")
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		logging.Warn().Err(err).Msg("NATS drain failed")
		p.conn.Close()
	}
}
