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
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/models"
)

// newTestClient points every component port of a server at the given
// httptest server, so componentURL resolves back to it.
func newTestClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("failed to parse test server port: %v", err)
	}

	server := &models.JitsiServer{
		Name:        "test",
		BaseURL:     ts.URL,
		ColibriPort: port,
		JicofoPort:  port,
		JibriPort:   port,
		ProsodyPort: port,
		VerifySSL:   true,
	}

	client := NewClient(server, &config.JitsiConfig{
		RequestTimeout: 5 * time.Second,
		RetryAttempts:  2,
	})
	client.retryBaseDelay = time.Millisecond
	return client
}

func TestColibriStats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/colibri/stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"conferences":  3,
			"participants": 12,
			"stress_level": 0.42,
			"version":      "2.3.100",
		})
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	stats, err := client.ColibriStats(context.Background())
	if err != nil {
		t.Fatalf("ColibriStats failed: %v", err)
	}
	if stats.Conferences != 3 {
		t.Errorf("Conferences = %d, want 3", stats.Conferences)
	}
	if stats.Participants != 12 {
		t.Errorf("Participants = %d, want 12", stats.Participants)
	}
	if stats.StressLevel != 0.42 {
		t.Errorf("StressLevel = %f, want 0.42", stats.StressLevel)
	}
}

func TestColibriStatsUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	stats, err := client.ColibriStats(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if stats == nil {
		t.Fatal("expected zero-valued stats alongside the error")
	}
}

func TestJicofoHealthy(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/about/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer ts.Close()

	client := newTestClient(t, ts)

	healthy, err := client.JicofoHealthy(context.Background())
	if err != nil {
		t.Fatalf("JicofoHealthy failed: %v", err)
	}
	if !healthy {
		t.Error("expected healthy on 200")
	}

	status.Store(http.StatusInternalServerError)
	healthy, err = client.JicofoHealthy(context.Background())
	if err != nil {
		t.Fatalf("JicofoHealthy failed: %v", err)
	}
	if healthy {
		t.Error("expected unhealthy on 500")
	}
}

func TestJicofoStats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"conferences": 5,
			"participants": map[string]interface{}{
				"current": 20,
			},
		})
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	stats, err := client.JicofoStats(context.Background())
	if err != nil {
		t.Fatalf("JicofoStats failed: %v", err)
	}
	if stats["conferences"] != float64(5) {
		t.Errorf("conferences = %v, want 5", stats["conferences"])
	}
}

func TestStartRecordingFile(t *testing.T) {
	var gotReq models.JibriStartRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jibri/api/v1.0/startService" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	sessionID, err := client.StartRecording(context.Background(), "Weekly Standup", "file", "")
	if err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if sessionID == "" {
		t.Fatal("expected a session ID")
	}
	if gotReq.SinkType != "FILE" {
		t.Errorf("SinkType = %q, want FILE", gotReq.SinkType)
	}
	if gotReq.CallParams.CallURLInfo.CallName != "weekly-standup" {
		t.Errorf("CallName = %q, want weekly-standup", gotReq.CallParams.CallURLInfo.CallName)
	}
	if gotReq.SessionID != sessionID {
		t.Errorf("request session %q does not match returned %q", gotReq.SessionID, sessionID)
	}
}

func TestStartRecordingStreamCarriesKey(t *testing.T) {
	var gotReq models.JibriStartRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	if _, err := client.StartRecording(context.Background(), "demo", "stream", "yt-key-123"); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if gotReq.SinkType != "STREAM" {
		t.Errorf("SinkType = %q, want STREAM", gotReq.SinkType)
	}
	if gotReq.YouTubeStreamKey != "yt-key-123" {
		t.Errorf("YouTubeStreamKey = %q, want yt-key-123", gotReq.YouTubeStreamKey)
	}
}

func TestStopRecording(t *testing.T) {
	var gotReq models.JibriStopRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jibri/api/v1.0/stopService" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	if err := client.StopRecording(context.Background(), "session_demo_1"); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if gotReq.SessionID != "session_demo_1" {
		t.Errorf("SessionID = %q, want session_demo_1", gotReq.SessionID)
	}
}

func TestTerminateRoom(t *testing.T) {
	var gotPath, gotUser string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	client.server.XMPPDomain = "meet.example.com"
	client.server.ProsodyUser = "admin"
	client.server.ProsodyPassword = "s3cret"

	if err := client.TerminateRoom(context.Background(), "Weekly Standup"); err != nil {
		t.Fatalf("TerminateRoom failed: %v", err)
	}
	if want := "/admin/rooms/weekly-standup@conference.meet.example.com"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if gotUser != "admin" {
		t.Errorf("basic auth user = %q, want admin", gotUser)
	}
}

func TestTerminateRoomNotFoundIsSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	if err := client.TerminateRoom(context.Background(), "gone"); err != nil {
		t.Fatalf("expected 404 to be treated as success, got %v", err)
	}
}

func TestDoRequestRetriesOn429(t *testing.T) {
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"conferences": 1})
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	stats, err := client.ColibriStats(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if stats.Conferences != 1 {
		t.Errorf("Conferences = %d, want 1", stats.Conferences)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("request count = %d, want 3", got)
	}
}

func TestDoRequestGivesUpAfterRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	if _, err := client.ColibriStats(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestComponentURLSwapsPort(t *testing.T) {
	server := &models.JitsiServer{BaseURL: "https://meet.example.com:443"}
	client := NewClient(server, nil)

	got, err := client.componentURL(8080, "/colibri/stats")
	if err != nil {
		t.Fatalf("componentURL failed: %v", err)
	}
	if want := "https://meet.example.com:8080/colibri/stats"; got != want {
		t.Errorf("componentURL = %q, want %q", got, want)
	}
}
