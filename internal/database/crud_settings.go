// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/confera/internal/models"
)

// settingsRowID pins the dashboard settings to a single row.
const settingsRowID = 1

// GetSettings retrieves the dashboard settings, materializing the
// defaults on first read.
func (db *DB) GetSettings(ctx context.Context) (*models.Settings, error) {
	query := `SELECT refresh_interval_seconds, default_jwt_expiry_hours, enable_webhooks,
		webhook_secret, dark_mode, show_bandwidth_graphs, max_recent_conferences,
		notify_on_new_conference, notify_on_high_load, high_load_threshold, updated_at
		FROM dashboard_settings WHERE id = ?`

	var s models.Settings
	err := db.conn.QueryRowContext(ctx, query, settingsRowID).Scan(
		&s.RefreshIntervalSeconds, &s.DefaultJWTExpiryHours, &s.EnableWebhooks,
		&s.WebhookSecret, &s.DarkMode, &s.ShowBandwidthGraphs, &s.MaxRecentConferences,
		&s.NotifyOnNewConference, &s.NotifyOnHighLoad, &s.HighLoadThreshold, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := models.DefaultSettings()
		if err := db.UpdateSettings(ctx, defaults); err != nil {
			return nil, fmt.Errorf("failed to materialize default settings: %w", err)
		}
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

// UpdateSettings writes the settings singleton, inserting the row if it
// does not exist yet.
func (db *DB) UpdateSettings(ctx context.Context, s *models.Settings) error {
	if s.RefreshIntervalSeconds < 1 {
		return fmt.Errorf("%w: refresh_interval_seconds must be positive", ErrInvalidInput)
	}
	if s.DefaultJWTExpiryHours < 1 {
		return fmt.Errorf("%w: default_jwt_expiry_hours must be positive", ErrInvalidInput)
	}
	if s.HighLoadThreshold <= 0 || s.HighLoadThreshold > 1 {
		return fmt.Errorf("%w: high_load_threshold must be in (0, 1]", ErrInvalidInput)
	}
	s.UpdatedAt = time.Now()

	query := `INSERT OR REPLACE INTO dashboard_settings (
		id, refresh_interval_seconds, default_jwt_expiry_hours, enable_webhooks,
		webhook_secret, dark_mode, show_bandwidth_graphs, max_recent_conferences,
		notify_on_new_conference, notify_on_high_load, high_load_threshold, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		settingsRowID, s.RefreshIntervalSeconds, s.DefaultJWTExpiryHours, s.EnableWebhooks,
		s.WebhookSecret, s.DarkMode, s.ShowBandwidthGraphs, s.MaxRecentConferences,
		s.NotifyOnNewConference, s.NotifyOnHighLoad, s.HighLoadThreshold, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
