// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/compit-bridge/internal/logging"
)

// Config holds all bridge configuration.
type Config struct {
	Compit      CompitConfig      `koanf:"compit"`
	Coordinator CoordinatorConfig `koanf:"coordinator"`
	Server      ServerConfig      `koanf:"server"`
	MQTT        MQTTConfig        `koanf:"mqtt"` // Optional: MQTT entity bridge
	Supervisor  SupervisorConfig  `koanf:"supervisor"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// CompitConfig configures the remote Compit API client.
type CompitConfig struct {
	// Email and Password are the account credentials exchanged for a token.
	Email    string `koanf:"email"`
	Password string `koanf:"password"`

	// BaseURL is the API root, including its path.
	// Default: https://inext.compit.pl/mobile/v2/compit
	BaseURL string `koanf:"base_url"`

	// UID and Label identify this bridge as a registered client of the account.
	UID   string `koanf:"uid"`
	Label string `koanf:"label"`

	// Timeout bounds each HTTP request.
	// Default: 10s
	Timeout time.Duration `koanf:"timeout"`

	// DefinitionsFile loads the device definition catalog from disk instead
	// of fetching it from the API.
	DefinitionsFile string `koanf:"definitions_file"`

	// RequestsPerSecond and Burst throttle outgoing requests.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// MaxRetries bounds retries of requests answered with 429.
	MaxRetries int `koanf:"max_retries"`
}

// CoordinatorConfig configures the synchronization loop.
type CoordinatorConfig struct {
	// ScanInterval is the period of scheduled refreshes.
	// Default: 1m
	ScanInterval time.Duration `koanf:"scan_interval"`

	// RefreshTimeout bounds a single refresh cycle.
	// Default: 2m
	RefreshTimeout time.Duration `koanf:"refresh_timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MQTTConfig configures the optional MQTT bridge.
type MQTTConfig struct {
	Enabled bool `koanf:"enabled"`

	// Broker is the broker URL, e.g. tcp://localhost:1883 or ssl://broker:8883.
	Broker   string `koanf:"broker"`
	ClientID string `koanf:"client_id"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// TopicPrefix roots every topic the bridge uses.
	// Default: compit
	TopicPrefix string `koanf:"topic_prefix"`

	QoS                  int           `koanf:"qos"`
	KeepAlive            time.Duration `koanf:"keep_alive"`
	ConnectRetryInterval time.Duration `koanf:"connect_retry_interval"`
	MaxReconnectInterval time.Duration `koanf:"max_reconnect_interval"`
}

// SupervisorConfig mirrors the suture failure policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`

	// File enables a rotating log file next to stdout.
	File LogFileConfig `koanf:"file"`
}

// LogFileConfig configures log rotation.
type LogFileConfig struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ToLoggingConfig converts to the logging package configuration.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	cfg.File = logging.FileConfig{
		Path:       l.File.Path,
		MaxSizeMB:  l.File.MaxSizeMB,
		MaxBackups: l.File.MaxBackups,
		MaxAgeDays: l.File.MaxAgeDays,
		Compress:   l.File.Compress,
	}
	return cfg
}
