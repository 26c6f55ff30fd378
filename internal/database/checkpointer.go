// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package database

import (
	"context"
	"time"

	"github.com/tomtom215/confera/internal/logging"
)

// Checkpointer periodically flushes the DuckDB WAL into the database
// file so an unclean shutdown loses at most one interval of writes. It
// runs as a service under the supervision tree.
type Checkpointer struct {
	db       *DB
	interval time.Duration
}

// NewCheckpointer creates a checkpoint service.
func NewCheckpointer(db *DB, interval time.Duration) *Checkpointer {
	if interval < time.Minute {
		interval = 5 * time.Minute
	}
	return &Checkpointer{db: db, interval: interval}
}

// Serve implements suture.Service.
func (c *Checkpointer) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.db.Checkpoint(ctx); err != nil {
				logging.Warn().Err(err).Msg("Periodic checkpoint failed")
			} else {
				logging.Debug().Msg("Database checkpoint completed")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (c *Checkpointer) String() string {
	return "db-checkpointer"
}
