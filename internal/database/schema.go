// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package database

// getTableCreationQueries returns the schema statements. Every statement
// is idempotent so startup can run them unconditionally.
func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS jitsi_servers (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL UNIQUE,
			base_url VARCHAR NOT NULL,
			colibri_port INTEGER NOT NULL DEFAULT 8080,
			jicofo_port INTEGER NOT NULL DEFAULT 8888,
			jibri_port INTEGER NOT NULL DEFAULT 2222,
			prosody_port INTEGER NOT NULL DEFAULT 5280,
			xmpp_domain VARCHAR NOT NULL DEFAULT '',
			app_id VARCHAR NOT NULL DEFAULT 'confera',
			app_secret VARCHAR NOT NULL DEFAULT '',
			prosody_user VARCHAR,
			prosody_password VARCHAR,
			is_active BOOLEAN NOT NULL DEFAULT true,
			is_primary BOOLEAN NOT NULL DEFAULT false,
			verify_ssl BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE SEQUENCE IF NOT EXISTS conference_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS conferences (
			id BIGINT PRIMARY KEY DEFAULT nextval('conference_id_seq'),
			server_id VARCHAR NOT NULL,
			room_name VARCHAR NOT NULL,
			display_name VARCHAR,
			status VARCHAR NOT NULL DEFAULT 'active',
			created_by VARCHAR,
			is_password_protected BOOLEAN NOT NULL DEFAULT false,
			has_lobby BOOLEAN NOT NULL DEFAULT false,
			max_participants INTEGER NOT NULL DEFAULT 0,
			total_participants INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP,
			ended_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			is_recorded BOOLEAN NOT NULL DEFAULT false,
			recording_url VARCHAR
		)`,

		`CREATE INDEX IF NOT EXISTS idx_conferences_room ON conferences (room_name)`,
		`CREATE INDEX IF NOT EXISTS idx_conferences_status ON conferences (status)`,
		`CREATE INDEX IF NOT EXISTS idx_conferences_server ON conferences (server_id)`,

		`CREATE TABLE IF NOT EXISTS participants (
			id VARCHAR PRIMARY KEY,
			conference_id BIGINT NOT NULL,
			participant_id VARCHAR NOT NULL,
			name VARCHAR,
			email VARCHAR,
			is_moderator BOOLEAN NOT NULL DEFAULT false,
			joined_at TIMESTAMP NOT NULL,
			left_at TIMESTAMP,
			disconnect_reason VARCHAR
		)`,

		`CREATE INDEX IF NOT EXISTS idx_participants_conference ON participants (conference_id)`,

		`CREATE TABLE IF NOT EXISTS recordings (
			id VARCHAR PRIMARY KEY,
			conference_id BIGINT NOT NULL,
			recording_type VARCHAR NOT NULL DEFAULT 'file',
			status VARCHAR NOT NULL DEFAULT 'pending',
			session_id VARCHAR NOT NULL UNIQUE,
			file_path VARCHAR,
			file_size_mb DOUBLE NOT NULL DEFAULT 0,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			stream_url VARCHAR,
			started_at TIMESTAMP,
			ended_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			error_message VARCHAR
		)`,

		`CREATE TABLE IF NOT EXISTS webhook_events (
			id VARCHAR PRIMARY KEY,
			event_type VARCHAR NOT NULL,
			server_id VARCHAR,
			room_name VARCHAR,
			payload VARCHAR NOT NULL,
			received_at TIMESTAMP NOT NULL,
			processed BOOLEAN NOT NULL DEFAULT false
		)`,

		`CREATE INDEX IF NOT EXISTS idx_webhook_events_room ON webhook_events (room_name)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_type ON webhook_events (event_type)`,

		`CREATE TABLE IF NOT EXISTS dashboard_settings (
			id INTEGER PRIMARY KEY,
			refresh_interval_seconds INTEGER NOT NULL DEFAULT 5,
			default_jwt_expiry_hours INTEGER NOT NULL DEFAULT 24,
			enable_webhooks BOOLEAN NOT NULL DEFAULT true,
			webhook_secret VARCHAR NOT NULL DEFAULT '',
			dark_mode BOOLEAN NOT NULL DEFAULT false,
			show_bandwidth_graphs BOOLEAN NOT NULL DEFAULT true,
			max_recent_conferences INTEGER NOT NULL DEFAULT 50,
			notify_on_new_conference BOOLEAN NOT NULL DEFAULT false,
			notify_on_high_load BOOLEAN NOT NULL DEFAULT true,
			high_load_threshold DOUBLE NOT NULL DEFAULT 0.8,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
}
