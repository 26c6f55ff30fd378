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

// Conference errors.
var ErrConferenceNotFound = errors.New("conference not found")

const conferenceColumns = `id, server_id, room_name, display_name, status, created_by,
	is_password_protected, has_lobby, max_participants, total_participants,
	started_at, ended_at, created_at, is_recorded, recording_url`

// ConferenceFilter narrows conference queries.
type ConferenceFilter struct {
	Status   string
	ServerID string
	// Query matches case-insensitively against room_name and display_name.
	Query    string
	Page     int
	PageSize int
}

// CreateConference inserts a conference and populates its assigned ID.
func (db *DB) CreateConference(ctx context.Context, conf *models.Conference) error {
	if conf.RoomName == "" || conf.ServerID == "" {
		return fmt.Errorf("%w: room_name and server_id are required", ErrInvalidInput)
	}
	if conf.Status == "" {
		conf.Status = models.ConferenceActive
	}
	if conf.CreatedAt.IsZero() {
		conf.CreatedAt = time.Now()
	}

	query := `INSERT INTO conferences (
		server_id, room_name, display_name, status, created_by,
		is_password_protected, has_lobby, max_participants, total_participants,
		started_at, ended_at, created_at, is_recorded, recording_url
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`

	err := db.conn.QueryRowContext(ctx, query,
		conf.ServerID, conf.RoomName, toNullString(conf.DisplayName), conf.Status, toNullString(conf.CreatedBy),
		conf.IsPasswordProtected, conf.HasLobby, conf.MaxParticipants, conf.TotalParticipants,
		toNullTime(conf.StartedAt), toNullTime(conf.EndedAt), conf.CreatedAt, conf.IsRecorded, toNullString(conf.RecordingURL),
	).Scan(&conf.ID)
	if err != nil {
		return fmt.Errorf("failed to create conference: %w", err)
	}
	return nil
}

// GetConference retrieves a conference by ID.
func (db *DB) GetConference(ctx context.Context, id int64) (*models.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE id = ?`
	conf, err := scanConferenceFrom(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConferenceNotFound
	}
	return conf, err
}

// GetActiveConferenceByRoom finds the open conference for a room on a
// server, if any.
func (db *DB) GetActiveConferenceByRoom(ctx context.Context, serverID, roomName string) (*models.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences
		WHERE server_id = ? AND room_name = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`
	conf, err := scanConferenceFrom(db.conn.QueryRowContext(ctx, query, serverID, roomName, models.ConferenceActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConferenceNotFound
	}
	return conf, err
}

// ListConferences returns a filtered, paginated page of conferences plus
// the unpaginated total.
func (db *DB) ListConferences(ctx context.Context, filter ConferenceFilter) ([]models.Conference, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		where += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ServerID != "" {
		where += ` AND server_id = ?`
		args = append(args, filter.ServerID)
	}
	if filter.Query != "" {
		where += ` AND (room_name ILIKE ? OR display_name ILIKE ?)`
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM conferences`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conferences: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	query := `SELECT ` + conferenceColumns + ` FROM conferences` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conferences: %w", err)
	}
	defer rows.Close()

	conferences := make([]models.Conference, 0)
	for rows.Next() {
		conf, err := scanConferenceFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan conference: %w", err)
		}
		conferences = append(conferences, *conf)
	}
	return conferences, total, rows.Err()
}

// RecentConferences returns the newest conferences up to limit.
func (db *DB) RecentConferences(ctx context.Context, limit int) ([]models.Conference, error) {
	if limit < 1 {
		limit = 50
	}
	conferences, _, err := db.ListConferences(ctx, ConferenceFilter{Page: 1, PageSize: limit})
	return conferences, err
}

// UpdateConference rewrites the mutable fields of a conference row.
func (db *DB) UpdateConference(ctx context.Context, conf *models.Conference) error {
	query := `UPDATE conferences SET
		display_name = ?, status = ?, created_by = ?,
		is_password_protected = ?, has_lobby = ?,
		max_participants = ?, total_participants = ?,
		started_at = ?, ended_at = ?, is_recorded = ?, recording_url = ?
		WHERE id = ?`

	result, err := db.conn.ExecContext(ctx, query,
		toNullString(conf.DisplayName), conf.Status, toNullString(conf.CreatedBy),
		conf.IsPasswordProtected, conf.HasLobby,
		conf.MaxParticipants, conf.TotalParticipants,
		toNullTime(conf.StartedAt), toNullTime(conf.EndedAt), conf.IsRecorded, toNullString(conf.RecordingURL),
		conf.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conference: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrConferenceNotFound
	}
	return nil
}

// EndConferencesByRoom marks every active conference for a room as ended.
// Returns the number of rows closed; redelivered destroy events close
// nothing and are not an error.
func (db *DB) EndConferencesByRoom(ctx context.Context, roomName string, endedAt time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE conferences SET status = ?, ended_at = ? WHERE room_name = ? AND status = ?`,
		models.ConferenceEnded, endedAt, roomName, models.ConferenceActive,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to end conferences: %w", err)
	}
	return result.RowsAffected()
}

// DeleteConference removes a conference row.
func (db *DB) DeleteConference(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM conferences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conference: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrConferenceNotFound
	}
	return nil
}

// CountActiveConferences returns the number of active conferences.
func (db *DB) CountActiveConferences(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conferences WHERE status = ?`, models.ConferenceActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active conferences: %w", err)
	}
	return count, nil
}

func scanConferenceFrom(s rowScanner) (*models.Conference, error) {
	var conf models.Conference
	var displayName, createdBy, recordingURL sql.NullString
	var startedAt, endedAt sql.NullTime

	err := s.Scan(
		&conf.ID, &conf.ServerID, &conf.RoomName, &displayName, &conf.Status, &createdBy,
		&conf.IsPasswordProtected, &conf.HasLobby, &conf.MaxParticipants, &conf.TotalParticipants,
		&startedAt, &endedAt, &conf.CreatedAt, &conf.IsRecorded, &recordingURL,
	)
	if err != nil {
		return nil, err
	}

	conf.DisplayName = nullString(displayName)
	conf.CreatedBy = nullString(createdBy)
	conf.RecordingURL = nullString(recordingURL)
	conf.StartedAt = nullTimePtr(startedAt)
	conf.EndedAt = nullTimePtr(endedAt)
	return &conf, nil
}
