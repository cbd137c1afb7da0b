// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

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

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/compit-bridge/config.yaml",
	"/etc/compit-bridge/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultBaseURL is the public Compit mobile API root.
const DefaultBaseURL = "https://inext.compit.pl/mobile/v2/compit"

// defaultConfig returns a Config with every default applied. Defaults are
// loaded first and then overridden by the config file and the environment.
func defaultConfig() *Config {
	return &Config{
		Compit: CompitConfig{
			BaseURL:           DefaultBaseURL,
			UID:               "compit-bridge",
			Label:             "compit-bridge",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			MaxRetries:        5,
		},
		Coordinator: CoordinatorConfig{
			ScanInterval:   time.Minute,
			RefreshTimeout: 2 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8321,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		MQTT: MQTTConfig{
			Enabled:              false,
			Broker:               "tcp://localhost:1883",
			ClientID:             "compit-bridge",
			TopicPrefix:          "compit",
			QoS:                  1,
			KeepAlive:            60 * time.Second,
			ConnectRetryInterval: 5 * time.Second,
			MaxReconnectInterval: 2 * time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: LogFileConfig{
				MaxSizeMB:  50,
				MaxBackups: 5,
				MaxAgeDays: 28,
			},
		},
	}
}

// Load loads configuration from the default search paths.
func Load() (*Config, error) {
	return LoadWithKoanf("")
}

// LoadWithKoanf loads configuration with layered sources:
//
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: path, or CONFIG_PATH, or the first of DefaultConfigPaths
//  3. Environment variables (highest priority), see envTransformFunc
func LoadWithKoanf(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

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

// findConfigFile returns the first existing config file, or "".
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

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices.
// YAML already yields slices; env vars arrive as strings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
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
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
var envMappings = map[string]string{
	// Compit account and API
	"compit_email":               "compit.email",
	"compit_password":            "compit.password",
	"compit_base_url":            "compit.base_url",
	"compit_uid":                 "compit.uid",
	"compit_label":               "compit.label",
	"compit_timeout":             "compit.timeout",
	"compit_definitions_file":    "compit.definitions_file",
	"compit_requests_per_second": "compit.requests_per_second",
	"compit_burst":               "compit.burst",
	"compit_max_retries":         "compit.max_retries",

	// Coordinator
	"scan_interval":   "coordinator.scan_interval",
	"refresh_timeout": "coordinator.refresh_timeout",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"http_idle_timeout":   "server.idle_timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// MQTT bridge
	"mqtt_enabled":                "mqtt.enabled",
	"mqtt_broker":                 "mqtt.broker",
	"mqtt_client_id":              "mqtt.client_id",
	"mqtt_username":               "mqtt.username",
	"mqtt_password":               "mqtt.password",
	"mqtt_topic_prefix":           "mqtt.topic_prefix",
	"mqtt_qos":                    "mqtt.qos",
	"mqtt_keep_alive":             "mqtt.keep_alive",
	"mqtt_connect_retry_interval": "mqtt.connect_retry_interval",
	"mqtt_max_reconnect_interval": "mqtt.max_reconnect_interval",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Logging
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"log_caller":           "logging.caller",
	"log_file":             "logging.file.path",
	"log_file_max_size_mb": "logging.file.max_size_mb",
	"log_file_max_backups": "logging.file.max_backups",
	"log_file_max_age":     "logging.file.max_age_days",
	"log_file_compress":    "logging.file.compress",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are ignored, so unrelated process
// environment never leaks into the configuration.
//
// Examples:
//   - COMPIT_EMAIL -> compit.email
//   - SCAN_INTERVAL -> coordinator.scan_interval
//   - HTTP_PORT -> server.port
//   - MQTT_ENABLED -> mqtt.enabled
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
