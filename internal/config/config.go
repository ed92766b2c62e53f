// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

// Package config defines the Correlatus configuration and its layered
// loading: built-in defaults, an optional YAML file, then environment
// variables, with validation on top.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Game      GameConfig      `koanf:"game"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// DatabaseConfig holds the DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory" validate:"required"`
	Threads   int    `koanf:"threads" validate:"gte=0"`
}

// GameConfig holds game-rule settings.
type GameConfig struct {
	// DefaultMode is the statistics family surfaced as primary on startup:
	// "classic" (correlation/CHSH) or "new" (success rate).
	DefaultMode string `koanf:"default_mode" validate:"oneof=classic new"`
}

// DashboardConfig holds the caching and throttling tunables.
type DashboardConfig struct {
	// TeamStatusWindow throttles the frequent team-status publish.
	TeamStatusWindow time.Duration `koanf:"team_status_window" validate:"gt=0"`

	// FullUpdateWindow throttles the expensive full publish.
	FullUpdateWindow time.Duration `koanf:"full_update_window" validate:"gt=0"`

	// CacheSize bounds each memoized statistics cache.
	CacheSize int `koanf:"cache_size" validate:"gte=1"`

	// MinStatsSig is the per-pair repeat count required before a team's
	// statistics are marked significant.
	MinStatsSig int `koanf:"min_stats_sig" validate:"gte=1"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Dashboard.TeamStatusWindow > c.Dashboard.FullUpdateWindow {
		return fmt.Errorf("invalid configuration: team_status_window (%s) must not exceed full_update_window (%s)",
			c.Dashboard.TeamStatusWindow, c.Dashboard.FullUpdateWindow)
	}
	return nil
}
