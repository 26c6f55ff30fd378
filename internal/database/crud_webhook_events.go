// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/confera/internal/models"
)

const webhookEventColumns = `id, event_type, server_id, room_name, payload, received_at, processed`

// CreateWebhookEvent logs an inbound webhook delivery. Events are logged
// before dispatch so failed processing remains observable.
func (db *DB) CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	if event.EventType == "" {
		return fmt.Errorf("%w: event_type is required", ErrInvalidInput)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	if event.Payload == "" {
		event.Payload = "{}"
	}

	query := `INSERT INTO webhook_events (` + webhookEventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		event.ID, event.EventType, toNullString(event.ServerID), toNullString(event.RoomName),
		event.Payload, event.ReceivedAt, event.Processed,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook event: %w", err)
	}
	return nil
}

// MarkWebhookEventProcessed flags an event as successfully dispatched.
func (db *DB) MarkWebhookEventProcessed(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE webhook_events SET processed = true WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWebhookEvents returns a filtered, paginated page of the event log
// plus the unpaginated total.
func (db *DB) ListWebhookEvents(ctx context.Context, eventType, roomName string, page, pageSize int) ([]models.WebhookEvent, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if eventType != "" {
		where += ` AND event_type = ?`
		args = append(args, eventType)
	}
	if roomName != "" {
		where += ` AND room_name = ?`
		args = append(args, roomName)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count webhook events: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := `SELECT ` + webhookEventColumns + ` FROM webhook_events` + where +
		` ORDER BY received_at DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list webhook events: %w", err)
	}
	defer rows.Close()

	events := make([]models.WebhookEvent, 0)
	for rows.Next() {
		var event models.WebhookEvent
		var serverID, roomName sql.NullString
		if err := rows.Scan(&event.ID, &event.EventType, &serverID, &roomName,
			&event.Payload, &event.ReceivedAt, &event.Processed); err != nil {
			return nil, 0, fmt.Errorf("failed to scan webhook event: %w", err)
		}
		event.ServerID = nullString(serverID)
		event.RoomName = nullString(roomName)
		events = append(events, event)
	}
	return events, total, rows.Err()
}
