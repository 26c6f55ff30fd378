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

	"github.com/google/uuid"
	"github.com/tomtom215/confera/internal/models"
)

// Recording errors.
var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrRecordingConflict = errors.New("recording with this session_id already exists")
)

const recordingColumns = `id, conference_id, recording_type, status, session_id,
	file_path, file_size_mb, duration_seconds, stream_url,
	started_at, ended_at, created_at, error_message`

// CreateRecording inserts a recording row.
func (db *DB) CreateRecording(ctx context.Context, rec *models.Recording) error {
	if rec.ConferenceID == 0 || rec.SessionID == "" {
		return fmt.Errorf("%w: conference_id and session_id are required", ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.RecordingType == "" {
		rec.RecordingType = models.RecordingTypeFile
	}
	if rec.Status == "" {
		rec.Status = models.RecordingPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `INSERT INTO recordings (` + recordingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		rec.ID, rec.ConferenceID, rec.RecordingType, rec.Status, rec.SessionID,
		toNullString(rec.FilePath), rec.FileSizeMB, rec.DurationSeconds, toNullString(rec.StreamURL),
		toNullTime(rec.StartedAt), toNullTime(rec.EndedAt), rec.CreatedAt, toNullString(rec.ErrorMessage),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRecordingConflict
		}
		return fmt.Errorf("failed to create recording: %w", err)
	}
	return nil
}

// GetRecordingBySessionID retrieves a recording by its Jibri session ID.
func (db *DB) GetRecordingBySessionID(ctx context.Context, sessionID string) (*models.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE session_id = ?`
	rec, err := scanRecordingFrom(db.conn.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordingNotFound
	}
	return rec, err
}

// ListRecordings returns a filtered, paginated page of recordings plus
// the unpaginated total.
func (db *DB) ListRecordings(ctx context.Context, status string, conferenceID int64, page, pageSize int) ([]models.Recording, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if status != "" {
		where += ` AND status = ?`
		args = append(args, status)
	}
	if conferenceID != 0 {
		where += ` AND conference_id = ?`
		args = append(args, conferenceID)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM recordings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recordings: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := `SELECT ` + recordingColumns + ` FROM recordings` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	recordings := make([]models.Recording, 0)
	for rows.Next() {
		rec, err := scanRecordingFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan recording: %w", err)
		}
		recordings = append(recordings, *rec)
	}
	return recordings, total, rows.Err()
}

// UpdateRecording rewrites the mutable fields of a recording row.
func (db *DB) UpdateRecording(ctx context.Context, rec *models.Recording) error {
	query := `UPDATE recordings SET
		recording_type = ?, status = ?, file_path = ?, file_size_mb = ?,
		duration_seconds = ?, stream_url = ?, started_at = ?, ended_at = ?, error_message = ?
		WHERE id = ?`

	result, err := db.conn.ExecContext(ctx, query,
		rec.RecordingType, rec.Status, toNullString(rec.FilePath), rec.FileSizeMB,
		rec.DurationSeconds, toNullString(rec.StreamURL),
		toNullTime(rec.StartedAt), toNullTime(rec.EndedAt), toNullString(rec.ErrorMessage),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recording: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrRecordingNotFound
	}
	return nil
}

func scanRecordingFrom(s rowScanner) (*models.Recording, error) {
	var rec models.Recording
	var filePath, streamURL, errorMessage sql.NullString
	var startedAt, endedAt sql.NullTime

	err := s.Scan(
		&rec.ID, &rec.ConferenceID, &rec.RecordingType, &rec.Status, &rec.SessionID,
		&filePath, &rec.FileSizeMB, &rec.DurationSeconds, &streamURL,
		&startedAt, &endedAt, &rec.CreatedAt, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	rec.FilePath = nullString(filePath)
	rec.StreamURL = nullString(streamURL)
	rec.ErrorMessage = nullString(errorMessage)
	rec.StartedAt = nullTimePtr(startedAt)
	rec.EndedAt = nullTimePtr(endedAt)
	return &rec, nil
}
