// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package jitsi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/database"
	"github.com/tomtom215/confera/internal/models"
)

// recordingBroadcaster captures poller output instead of pushing it to
// WebSocket clients.
type recordingBroadcaster struct {
	stats  []*models.ServerOverview
	alerts []highLoadAlert
}

type highLoadAlert struct {
	server    string
	stress    float64
	threshold float64
}

func (r *recordingBroadcaster) BroadcastServerStats(overview *models.ServerOverview) {
	r.stats = append(r.stats, overview)
}

func (r *recordingBroadcaster) BroadcastHighLoad(serverName string, stressLevel, threshold float64) {
	r.alerts = append(r.alerts, highLoadAlert{server: serverName, stress: stressLevel, threshold: threshold})
}

// newPollerEnv builds a poller against a temp-dir database with one
// active server whose videobridge reports the given stress level. The
// Jicofo and Jibri endpoints 404, exercising component degradation.
func newPollerEnv(t *testing.T, stressLevel float64) (*Poller, *recordingBroadcaster, *database.DB) {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/colibri/stats" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"conferences":  2,
			"participants": 9,
			"stress_level": stressLevel,
		})
	}))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("failed to parse test server port: %v", err)
	}

	db, err := database.New(&config.DatabaseConfig{
		Path:                   filepath.Join(t.TempDir(), "poller_test.duckdb"),
		MaxMemory:              "256MB",
		Threads:                1,
		PreserveInsertionOrder: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	server := &models.JitsiServer{
		Name:        "meet-1",
		BaseURL:     ts.URL,
		ColibriPort: port,
		JicofoPort:  port,
		JibriPort:   port,
		ProsodyPort: port,
		IsActive:    true,
		IsPrimary:   true,
		VerifySSL:   true,
	}
	if err := db.CreateServer(context.Background(), server); err != nil {
		t.Fatalf("failed to seed server: %v", err)
	}

	hub := &recordingBroadcaster{}
	manager := NewManager(&config.JitsiConfig{
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  1,
	})
	return NewPoller(db, manager, hub, time.Minute), hub, db
}

// setPollerSettings mutates the stored settings row.
func setPollerSettings(t *testing.T, db *database.DB, mutate func(*models.Settings)) {
	t.Helper()
	settings, err := db.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}
	mutate(settings)
	if err := db.UpdateSettings(context.Background(), settings); err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
}

func TestPollOnceUsesSettingsInterval(t *testing.T) {
	poller, _, db := newPollerEnv(t, 0.1)
	setPollerSettings(t, db, func(s *models.Settings) {
		s.RefreshIntervalSeconds = 7
	})

	interval := poller.pollOnce(context.Background())
	if interval != 7*time.Second {
		t.Errorf("interval = %v, want 7s", interval)
	}
}

func TestPollOnceBroadcastsServerStats(t *testing.T) {
	poller, hub, _ := newPollerEnv(t, 0.5)

	poller.pollOnce(context.Background())

	if len(hub.stats) != 1 {
		t.Fatalf("broadcast %d stats snapshots, want 1", len(hub.stats))
	}
	overview := hub.stats[0]
	if overview.ServerName != "meet-1" {
		t.Errorf("ServerName = %q, want meet-1", overview.ServerName)
	}
	if overview.Summary.Participants != 9 {
		t.Errorf("Summary.Participants = %d, want 9", overview.Summary.Participants)
	}
	if !overview.Components["jvb"].Online {
		t.Error("expected jvb component online")
	}
	if overview.Components["jicofo"].Online {
		t.Error("expected jicofo component offline")
	}
	if len(hub.alerts) != 0 {
		t.Errorf("got %d high-load alerts below threshold, want 0", len(hub.alerts))
	}
}

func TestPollOnceHighLoadAlertAtThreshold(t *testing.T) {
	// Default threshold is 0.8; the alert fires at equality.
	poller, hub, _ := newPollerEnv(t, 0.8)

	poller.pollOnce(context.Background())

	if len(hub.alerts) != 1 {
		t.Fatalf("got %d high-load alerts, want 1", len(hub.alerts))
	}
	alert := hub.alerts[0]
	if alert.server != "meet-1" {
		t.Errorf("alert server = %q, want meet-1", alert.server)
	}
	if alert.stress != 0.8 {
		t.Errorf("alert stress = %v, want 0.8", alert.stress)
	}
	if alert.threshold != 0.8 {
		t.Errorf("alert threshold = %v, want 0.8", alert.threshold)
	}
}

func TestPollOnceHighLoadAlertDisabled(t *testing.T) {
	poller, hub, db := newPollerEnv(t, 0.95)
	setPollerSettings(t, db, func(s *models.Settings) {
		s.NotifyOnHighLoad = false
	})

	poller.pollOnce(context.Background())

	if len(hub.alerts) != 0 {
		t.Errorf("got %d high-load alerts with notifications disabled, want 0", len(hub.alerts))
	}
	if len(hub.stats) != 1 {
		t.Errorf("broadcast %d stats snapshots, want 1", len(hub.stats))
	}
}
