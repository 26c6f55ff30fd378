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
	"github.com/tomtom215/confera/internal/logging"
	"github.com/tomtom215/confera/internal/models"
)

// Server errors.
var (
	ErrServerNotFound     = errors.New("jitsi server not found")
	ErrServerNameConflict = errors.New("server with this name already exists")
)

const serverColumns = `id, name, base_url, colibri_port, jicofo_port, jibri_port,
	prosody_port, xmpp_domain, app_id, app_secret, prosody_user, prosody_password,
	is_active, is_primary, verify_ssl, created_at, updated_at`

// CreateServer creates a new Jitsi server row. When the server is marked
// primary, any existing primary flag is cleared in the same transaction.
func (db *DB) CreateServer(ctx context.Context, server *models.JitsiServer) error {
	if server.Name == "" || server.BaseURL == "" {
		return fmt.Errorf("%w: name and base_url are required", ErrInvalidInput)
	}
	if server.ID == "" {
		server.ID = uuid.New().String()
	}
	if server.CreatedAt.IsZero() {
		server.CreatedAt = time.Now()
	}
	server.UpdatedAt = server.CreatedAt
	applyServerDefaults(server)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if server.IsPrimary {
		if _, err := tx.ExecContext(ctx, `UPDATE jitsi_servers SET is_primary = false WHERE is_primary = true`); err != nil {
			return fmt.Errorf("failed to clear primary flag: %w", err)
		}
	}

	query := `INSERT INTO jitsi_servers (` + serverColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		server.ID, server.Name, server.BaseURL, server.ColibriPort, server.JicofoPort, server.JibriPort,
		server.ProsodyPort, server.XMPPDomain, server.AppID, server.AppSecret,
		toNullString(server.ProsodyUser), toNullString(server.ProsodyPassword),
		server.IsActive, server.IsPrimary, server.VerifySSL, server.CreatedAt, server.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrServerNameConflict
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	return tx.Commit()
}

// GetServer retrieves a server by ID.
func (db *DB) GetServer(ctx context.Context, id string) (*models.JitsiServer, error) {
	query := `SELECT ` + serverColumns + ` FROM jitsi_servers WHERE id = ?`
	return scanServer(db.conn.QueryRowContext(ctx, query, id))
}

// ListServers retrieves all servers, optionally restricted to active ones.
func (db *DB) ListServers(ctx context.Context, activeOnly bool) ([]models.JitsiServer, error) {
	query := `SELECT ` + serverColumns + ` FROM jitsi_servers`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY is_primary DESC, name ASC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers := make([]models.JitsiServer, 0)
	for rows.Next() {
		server, err := scanServerRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		servers = append(servers, *server)
	}
	return servers, rows.Err()
}

// DefaultServer resolves the server that receives unattributed work: the
// primary server, else the first active one.
func (db *DB) DefaultServer(ctx context.Context) (*models.JitsiServer, error) {
	query := `SELECT ` + serverColumns + ` FROM jitsi_servers
		WHERE is_active = true
		ORDER BY is_primary DESC, created_at ASC
		LIMIT 1`
	return scanServer(db.conn.QueryRowContext(ctx, query))
}

// UpdateServer updates a server row. Setting is_primary clears the flag
// on every other server.
func (db *DB) UpdateServer(ctx context.Context, server *models.JitsiServer) error {
	if server.ID == "" {
		return fmt.Errorf("%w: server id is required", ErrInvalidInput)
	}
	server.UpdatedAt = time.Now()
	applyServerDefaults(server)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if server.IsPrimary {
		if _, err := tx.ExecContext(ctx, `UPDATE jitsi_servers SET is_primary = false WHERE is_primary = true AND id != ?`, server.ID); err != nil {
			return fmt.Errorf("failed to clear primary flag: %w", err)
		}
	}

	query := `UPDATE jitsi_servers SET
		name = ?, base_url = ?, colibri_port = ?, jicofo_port = ?, jibri_port = ?,
		prosody_port = ?, xmpp_domain = ?, app_id = ?, app_secret = ?,
		prosody_user = ?, prosody_password = ?,
		is_active = ?, is_primary = ?, verify_ssl = ?, updated_at = ?
		WHERE id = ?`

	result, err := tx.ExecContext(ctx, query,
		server.Name, server.BaseURL, server.ColibriPort, server.JicofoPort, server.JibriPort,
		server.ProsodyPort, server.XMPPDomain, server.AppID, server.AppSecret,
		toNullString(server.ProsodyUser), toNullString(server.ProsodyPassword),
		server.IsActive, server.IsPrimary, server.VerifySSL, server.UpdatedAt,
		server.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrServerNameConflict
		}
		return fmt.Errorf("failed to update server: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrServerNotFound
	}

	return tx.Commit()
}

// DeleteServer removes a server by ID.
func (db *DB) DeleteServer(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM jitsi_servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrServerNotFound
	}
	return nil
}

// applyServerDefaults fills zero-valued port and identity fields.
func applyServerDefaults(server *models.JitsiServer) {
	if server.ColibriPort == 0 {
		server.ColibriPort = 8080
	}
	if server.JicofoPort == 0 {
		server.JicofoPort = 8888
	}
	if server.JibriPort == 0 {
		server.JibriPort = 2222
	}
	if server.ProsodyPort == 0 {
		server.ProsodyPort = 5280
	}
	if server.AppID == "" {
		server.AppID = "confera"
	}
	if server.XMPPDomain == "" {
		server.XMPPDomain = server.Host()
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row *sql.Row) (*models.JitsiServer, error) {
	server, err := scanServerFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServerNotFound
	}
	return server, err
}

func scanServerRows(rows *sql.Rows) (*models.JitsiServer, error) {
	return scanServerFrom(rows)
}

func scanServerFrom(s rowScanner) (*models.JitsiServer, error) {
	var server models.JitsiServer
	var prosodyUser, prosodyPassword sql.NullString

	err := s.Scan(
		&server.ID, &server.Name, &server.BaseURL, &server.ColibriPort, &server.JicofoPort, &server.JibriPort,
		&server.ProsodyPort, &server.XMPPDomain, &server.AppID, &server.AppSecret,
		&prosodyUser, &prosodyPassword,
		&server.IsActive, &server.IsPrimary, &server.VerifySSL, &server.CreatedAt, &server.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	server.ProsodyUser = nullString(prosodyUser)
	server.ProsodyPassword = nullString(prosodyPassword)
	return &server, nil
}

// rollbackQuietly rolls back a transaction, ignoring the ErrTxDone
// returned after a successful commit.
func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("Transaction rollback failed")
	}
}
