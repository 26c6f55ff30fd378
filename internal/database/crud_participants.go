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

// Participant errors.
var ErrParticipantNotFound = errors.New("participant not found")

const participantColumns = `id, conference_id, participant_id, name, email,
	is_moderator, joined_at, left_at, disconnect_reason`

// ParticipantFilter narrows participant queries.
type ParticipantFilter struct {
	ConferenceID int64
	// ActiveOnly restricts to participants without a left_at timestamp.
	ActiveOnly bool
	Page       int
	PageSize   int
}

// CreateParticipant inserts a participant row.
func (db *DB) CreateParticipant(ctx context.Context, p *models.Participant) error {
	if p.ConferenceID == 0 || p.ParticipantID == "" {
		return fmt.Errorf("%w: conference_id and participant_id are required", ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}

	query := `INSERT INTO participants (` + participantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		p.ID, p.ConferenceID, p.ParticipantID, toNullString(p.Name), toNullString(p.Email),
		p.IsModerator, p.JoinedAt, toNullTime(p.LeftAt), toNullString(p.DisconnectReason),
	)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// ListParticipants returns a filtered, paginated page of participants
// plus the unpaginated total.
func (db *DB) ListParticipants(ctx context.Context, filter ParticipantFilter) ([]models.Participant, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filter.ConferenceID != 0 {
		where += ` AND conference_id = ?`
		args = append(args, filter.ConferenceID)
	}
	if filter.ActiveOnly {
		where += ` AND left_at IS NULL`
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count participants: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}

	query := `SELECT ` + participantColumns + ` FROM participants` + where +
		` ORDER BY joined_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		p, err := scanParticipantFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, *p)
	}
	return participants, total, rows.Err()
}

// CountActiveParticipants returns the number of present participants in
// a conference.
func (db *DB) CountActiveParticipants(ctx context.Context, conferenceID int64) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE conference_id = ? AND left_at IS NULL`,
		conferenceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active participants: %w", err)
	}
	return count, nil
}

// HasActiveParticipant reports whether the participant already has an
// open row in the conference, used to make join redeliveries idempotent.
func (db *DB) HasActiveParticipant(ctx context.Context, conferenceID int64, participantID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants
		WHERE conference_id = ? AND participant_id = ? AND left_at IS NULL`,
		conferenceID, participantID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check participant presence: %w", err)
	}
	return count > 0, nil
}

// MarkParticipantLeft closes the open row for a participant in a room's
// active conferences. Returns the number of rows closed; a redelivered
// leave event closes nothing and is not an error.
func (db *DB) MarkParticipantLeft(ctx context.Context, roomName, participantID, reason string, leftAt time.Time) (int64, error) {
	query := `UPDATE participants SET left_at = ?, disconnect_reason = ?
		WHERE participant_id = ? AND left_at IS NULL
		AND conference_id IN (
			SELECT id FROM conferences WHERE room_name = ? AND status = ?
		)`

	result, err := db.conn.ExecContext(ctx, query,
		leftAt, toNullString(reason), participantID, roomName, models.ConferenceActive,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark participant left: %w", err)
	}
	return result.RowsAffected()
}

func scanParticipantFrom(s rowScanner) (*models.Participant, error) {
	var p models.Participant
	var name, email, reason sql.NullString
	var leftAt sql.NullTime

	err := s.Scan(
		&p.ID, &p.ConferenceID, &p.ParticipantID, &name, &email,
		&p.IsModerator, &p.JoinedAt, &leftAt, &reason,
	)
	if err != nil {
		return nil, err
	}

	p.Name = nullString(name)
	p.Email = nullString(email)
	p.DisconnectReason = nullString(reason)
	p.LeftAt = nullTimePtr(leftAt)
	return &p, nil
}
