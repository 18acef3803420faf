// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/dutylog/internal/domain/fatigue"
	"github.com/okian/dutylog/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text, json or tint.
	LogFormat string `koanf:"log_format"`

	// LogFile sends logs to a rotated file instead of stdout when set.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// LegacyDataPath, when set, is a previous server's data.json imported at startup.
	LegacyDataPath string `koanf:"legacy_data_path"`

	// Timezone is the IANA zone stored timestamps are read in. Empty means the host zone.
	Timezone string `koanf:"timezone"`

	// LookbackDays is the fatigue lookback window.
	LookbackDays int `koanf:"lookback_days"`

	// FatigueBands are used until bands are saved through the API.
	FatigueBands []model.Band `koanf:"fatigue_bands"`

	// RefreshQueueSize bounds pending board refreshes.
	RefreshQueueSize int `koanf:"refresh_queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// RefreshIntervalSec rebuilds the board periodically so day rollover is picked up.
	RefreshIntervalSec int `koanf:"refresh_interval_sec"`

	// WriteRatePerMinute and WriteBurst limit write requests per client.
	WriteRatePerMinute int `koanf:"write_rate_per_minute"`
	WriteBurst         int `koanf:"write_burst"`

	// TrustProxyHeaders keys the write limit by X-Real-IP/X-Forwarded-For.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// DedupeSize sets how many submission IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBodyBytes caps request bodies, CSV imports included.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		DBPath:             "data/dutylog.db",
		LookbackDays:       7,
		FatigueBands:       fatigue.DefaultBands(),
		RefreshQueueSize:   4,
		WorkerCount:        1,
		RefreshIntervalSec: 300,
		WriteRatePerMinute: 120,
		WriteBurst:         20,
		DedupeSize:         10_000,
		MaxBodyBytes:       5 << 20,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.LookbackDays < 0:
		return fmt.Errorf("%w: lookback_days must not be negative", ErrInvalidConfig)
	case c.RefreshQueueSize < 1:
		return fmt.Errorf("%w: refresh_queue_size must be positive", ErrInvalidConfig)
	case c.WriteRatePerMinute < 0 || c.WriteBurst < 0:
		return fmt.Errorf("%w: write limits must not be negative", ErrInvalidConfig)
	case c.MaxBodyBytes < 1:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json", "tint":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// RefreshInterval returns RefreshIntervalSec as a duration; zero disables it.
func (c *Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalSec <= 0 {
		return 0
	}
	return time.Duration(c.RefreshIntervalSec) * time.Second
}
