// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/confera/internal/models"
)

// AnalyticsSummary aggregates conference activity over a window.
type AnalyticsSummary struct {
	Days                int     `json:"days"`
	TotalConferences    int     `json:"total_conferences"`
	ActiveConferences   int     `json:"active_conferences"`
	TotalParticipants   int     `json:"total_participants"`
	AvgDurationMinutes  float64 `json:"avg_duration_minutes"`
	PeakParticipants    int     `json:"peak_participants"`
	RecordedConferences int     `json:"recorded_conferences"`
	CompletedRecordings int     `json:"completed_recordings"`
}

// DailyActivity is one day's conference and participant counts.
type DailyActivity struct {
	Date         string `json:"date"`
	Conferences  int    `json:"conferences"`
	Participants int    `json:"participants"`
}

// RoomActivity ranks a room by usage inside the window.
type RoomActivity struct {
	RoomName           string  `json:"room_name"`
	Conferences        int     `json:"conferences"`
	TotalParticipants  int     `json:"total_participants"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
}

// GetAnalyticsSummary computes the dashboard summary for the last N days.
func (db *DB) GetAnalyticsSummary(ctx context.Context, days int) (*AnalyticsSummary, error) {
	if days < 1 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	summary := &AnalyticsSummary{Days: days}

	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = ?),
			COALESCE(SUM(total_participants), 0),
			COALESCE(MAX(max_participants), 0),
			COUNT(*) FILTER (WHERE is_recorded)
		FROM conferences WHERE created_at >= ?`,
		models.ConferenceActive, since,
	).Scan(
		&summary.TotalConferences, &summary.ActiveConferences,
		&summary.TotalParticipants, &summary.PeakParticipants,
		&summary.RecordedConferences,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute conference summary: %w", err)
	}

	// Average duration covers ended conferences only; active ones would
	// skew the mean downward.
	err = db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(date_diff('minute', started_at, ended_at)), 0)
		FROM conferences
		WHERE created_at >= ? AND status = ?
		AND started_at IS NOT NULL AND ended_at IS NOT NULL`,
		since, models.ConferenceEnded,
	).Scan(&summary.AvgDurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average duration: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recordings WHERE created_at >= ? AND status = ?`,
		since, models.RecordingCompleted,
	).Scan(&summary.CompletedRecordings)
	if err != nil {
		return nil, fmt.Errorf("failed to count recordings: %w", err)
	}

	return summary, nil
}

// GetDailyActivity returns per-day conference and participant counts for
// the last N days, oldest first. Days with no activity are omitted.
func (db *DB) GetDailyActivity(ctx context.Context, days int) ([]DailyActivity, error) {
	if days < 1 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			strftime(created_at, '%Y-%m-%d') AS day,
			COUNT(*),
			COALESCE(SUM(total_participants), 0)
		FROM conferences
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily activity: %w", err)
	}
	defer rows.Close()

	activity := make([]DailyActivity, 0)
	for rows.Next() {
		var day DailyActivity
		if err := rows.Scan(&day.Date, &day.Conferences, &day.Participants); err != nil {
			return nil, fmt.Errorf("failed to scan daily activity: %w", err)
		}
		activity = append(activity, day)
	}
	return activity, rows.Err()
}

// GetBusiestRooms ranks rooms by conference count inside the window.
func (db *DB) GetBusiestRooms(ctx context.Context, days, limit int) ([]RoomActivity, error) {
	if days < 1 {
		days = 30
	}
	if limit < 1 {
		limit = 10
	}
	since := time.Now().AddDate(0, 0, -days)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			room_name,
			COUNT(*),
			COALESCE(SUM(total_participants), 0),
			COALESCE(AVG(date_diff('minute', started_at, ended_at)) FILTER (
				WHERE started_at IS NOT NULL AND ended_at IS NOT NULL
			), 0)
		FROM conferences
		WHERE created_at >= ?
		GROUP BY room_name
		ORDER BY COUNT(*) DESC, room_name ASC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query busiest rooms: %w", err)
	}
	defer rows.Close()

	roomStats := make([]RoomActivity, 0)
	for rows.Next() {
		var room RoomActivity
		if err := rows.Scan(&room.RoomName, &room.Conferences, &room.TotalParticipants, &room.AvgDurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan room activity: %w", err)
		}
		roomStats = append(roomStats, room)
	}
	return roomStats, rows.Err()
}
