// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

// Package config provides layered configuration loading for Confera.
//
// Configuration is assembled from three layers, lowest to highest priority:
// built-in defaults, an optional YAML file, and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Jitsi    JitsiConfig    `koanf:"jitsi"`
	NATS     NATSConfig     `koanf:"nats"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
}

// DatabaseConfig controls the DuckDB store.
type DatabaseConfig struct {
	Path                   string `koanf:"path" validate:"required"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// JitsiConfig controls the clients that talk to Jitsi components.
type JitsiConfig struct {
	// RequestTimeout bounds every outbound call to a Jitsi component.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RetryAttempts is the number of retries on HTTP 429 responses.
	RetryAttempts int `koanf:"retry_attempts" validate:"min=0,max=10"`

	// PollInterval is the fallback stats poll interval used until the
	// settings row supplies one.
	PollInterval time.Duration `koanf:"poll_interval"`

	// PollEnabled toggles the background stats poller.
	PollEnabled bool `koanf:"poll_enabled"`
}

// NATSConfig controls the optional webhook event publisher.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// APIConfig controls pagination behavior.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size" validate:"min=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"min=1"`
}

// Supported authentication modes.
const (
	AuthModeJWT   = "jwt"
	AuthModeBasic = "basic"
	AuthModeNone  = "none"
)

// SecurityConfig controls authentication and request protection.
type SecurityConfig struct {
	// AuthMode selects the authentication strategy: jwt, basic, or none.
	AuthMode string `koanf:"auth_mode" validate:"oneof=jwt basic none"`

	// JWTSecret signs dashboard session tokens. Required for jwt mode.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

var validate = validator.New()

// Validate checks the configuration for invalid or inconsistent values.
// It is called automatically by Load.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Security.AuthMode {
	case AuthModeJWT:
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters when auth_mode is jwt")
		}
	case AuthModeBasic:
		if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
			return fmt.Errorf("security.admin_username and security.admin_password are required when auth_mode is basic")
		}
	}

	if c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size (%d) exceeds api.max_page_size (%d)",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.enabled is true")
	}

	if c.Jitsi.PollInterval < time.Second {
		return fmt.Errorf("jitsi.poll_interval must be at least 1s, got %s", c.Jitsi.PollInterval)
	}

	return nil
}
