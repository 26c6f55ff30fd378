// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package jitsi implements REST clients for the components of a Jitsi
// Meet deployment: the videobridge (Colibri), Jicofo, Jibri and the
// Prosody admin interface, plus room token and meeting URL generation.
package jitsi

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/confera/internal/config"
	"github.com/tomtom215/confera/internal/models"
)

// maxErrorBodySize caps how much of an error response body is read back
// into error messages.
const maxErrorBodySize = 64 * 1024

// Client talks to the components of one Jitsi server.
type Client struct {
	server         *models.JitsiServer
	httpClient     *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a client for the given server. TLS verification
// follows the server's verify_ssl flag.
func NewClient(server *models.JitsiServer, cfg *config.JitsiConfig) *Client {
	timeout := 10 * time.Second
	maxRetries := 5
	if cfg != nil {
		if cfg.RequestTimeout > 0 {
			timeout = cfg.RequestTimeout
		}
		maxRetries = cfg.RetryAttempts
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !server.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in per server
	}

	return &Client{
		server: server,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxRetries:     maxRetries,
		retryBaseDelay: time.Second,
	}
}

// Server returns the server this client talks to.
func (c *Client) Server() *models.JitsiServer {
	return c.server
}

// componentURL builds the URL for a component endpoint, swapping the
// base URL's port for the component's port.
func (c *Client) componentURL(port int, path string) (string, error) {
	u, err := url.Parse(c.server.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server base URL %q: %w", c.server.BaseURL, err)
	}
	u.Host = u.Hostname() + ":" + strconv.Itoa(port)
	u.Path = path
	u.RawQuery = ""
	return u.String(), nil
}

// doRequest performs an HTTP request with automatic retry on HTTP 429.
// Backoff is exponential from the base delay and honors Retry-After.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var reqBody io.Reader = http.NoBody
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close() // retrying anyway

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		// Exponential backoff: 1s, 2s, 4s, 8s, 16s.
		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))

		// Retry-After (RFC 6585) overrides the computed delay.
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// getJSON fetches a URL and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// postJSON sends a JSON body and returns the response for status
// inspection. The caller owns the response body.
func (c *Client) postJSON(ctx context.Context, reqURL string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, reqURL, body, map[string]string{
		"Content-Type": "application/json",
	})
}

// Ping checks videobridge reachability. Used at startup and by the
// server connectivity test endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ColibriStats(ctx)
	return err
}

// readBodyForError reads a bounded prefix of a response body for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte(fmt.Sprintf("<failed to read body: %v>", err))
	}
	return body
}

// closeBody drains and closes a response body so the connection can be
// reused.
func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	_ = resp.Body.Close()
}
