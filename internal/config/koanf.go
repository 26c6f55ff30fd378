// Confera - Jitsi Meet Operations Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/confera

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/confera/config.yaml",
	"/etc/confera/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8090,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:                   "/data/confera.duckdb",
			MaxMemory:              "1GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		Jitsi: JitsiConfig{
			RequestTimeout: 10 * time.Second,
			RetryAttempts:  5,
			PollInterval:   5 * time.Second,
			PollEnabled:    true,
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "confera.webhooks",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load assembles configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// CONFERA_SERVER_PORT -> server.port, CONFERA_SECURITY_JWT_SECRET ->
	// security.jwt_secret, via the explicit mapping table below.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as
// comma-separated slices when supplied via env vars.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML): nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf
// config paths. Unmapped variables are ignored so random environment
// noise cannot pollute the configuration.
var envMappings = map[string]string{
	"confera_server_host":        "server.host",
	"confera_server_port":        "server.port",
	"confera_server_timeout":     "server.timeout",
	"confera_server_environment": "server.environment",
	"environment":                "server.environment",

	"confera_database_path":       "database.path",
	"confera_database_max_memory": "database.max_memory",
	"confera_database_threads":    "database.threads",
	"duckdb_path":                 "database.path",

	"confera_jitsi_request_timeout": "jitsi.request_timeout",
	"confera_jitsi_retry_attempts":  "jitsi.retry_attempts",
	"confera_jitsi_poll_interval":   "jitsi.poll_interval",
	"confera_jitsi_poll_enabled":    "jitsi.poll_enabled",

	"confera_nats_enabled": "nats.enabled",
	"confera_nats_url":     "nats.url",
	"confera_nats_subject": "nats.subject",
	"nats_url":             "nats.url",

	"confera_api_default_page_size": "api.default_page_size",
	"confera_api_max_page_size":     "api.max_page_size",

	"confera_auth_mode":           "security.auth_mode",
	"confera_jwt_secret":          "security.jwt_secret",
	"jwt_secret":                  "security.jwt_secret",
	"confera_session_timeout":     "security.session_timeout",
	"confera_admin_username":      "security.admin_username",
	"confera_admin_password":      "security.admin_password",
	"confera_rate_limit_requests": "security.rate_limit_requests",
	"confera_rate_limit_window":   "security.rate_limit_window",
	"confera_rate_limit_disabled": "security.rate_limit_disabled",
	"confera_cors_origins":        "security.cors_origins",

	"confera_log_level":  "logging.level",
	"confera_log_format": "logging.format",
	"confera_log_caller": "logging.caller",
	"log_level":          "logging.level",
	"log_format":         "logging.format",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Returns empty string for unmapped keys, which skips them.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
