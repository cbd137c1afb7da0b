// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package config

import (
	"fmt"
	"strings"
	"time"
)

// minScanInterval keeps scheduled polling from hammering the vendor API.
const minScanInterval = 5 * time.Second

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.validateCompit(); err != nil {
		return err
	}

	if err := c.validateCoordinator(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateMQTT(); err != nil {
		return err
	}

	if err := c.validateSupervisor(); err != nil {
		return err
	}

	return c.validateLogging()
}

// ValidateCredentials reports whether account credentials are present.
// Kept separate from Validate so offline commands can load a config
// without credentials.
func (c *Config) ValidateCredentials() error {
	if strings.TrimSpace(c.Compit.Email) == "" {
		return fmt.Errorf("COMPIT_EMAIL is required")
	}
	if c.Compit.Password == "" {
		return fmt.Errorf("COMPIT_PASSWORD is required")
	}
	return nil
}

func (c *Config) validateCompit() error {
	if err := validateAPIBaseURL(c.Compit.BaseURL, "COMPIT_BASE_URL"); err != nil {
		return err
	}
	if c.Compit.Timeout <= 0 {
		return fmt.Errorf("COMPIT_TIMEOUT must be positive, got %v", c.Compit.Timeout)
	}
	if c.Compit.RequestsPerSecond < 0 {
		return fmt.Errorf("COMPIT_REQUESTS_PER_SECOND must not be negative, got %v", c.Compit.RequestsPerSecond)
	}
	if c.Compit.RequestsPerSecond > 0 && c.Compit.Burst < 1 {
		return fmt.Errorf("COMPIT_BURST must be at least 1 when throttling is enabled, got %d", c.Compit.Burst)
	}
	if c.Compit.MaxRetries < 0 {
		return fmt.Errorf("COMPIT_MAX_RETRIES must not be negative, got %d", c.Compit.MaxRetries)
	}
	if c.Compit.UID == "" {
		return fmt.Errorf("COMPIT_UID is required")
	}
	return nil
}

func (c *Config) validateCoordinator() error {
	if c.Coordinator.ScanInterval < minScanInterval {
		return fmt.Errorf("SCAN_INTERVAL must be at least 5s, got %v", c.Coordinator.ScanInterval)
	}
	if c.Coordinator.RefreshTimeout <= 0 {
		return fmt.Errorf("REFRESH_TIMEOUT must be positive, got %v", c.Coordinator.RefreshTimeout)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

// validateMQTT validates MQTT configuration (only if enabled).
func (c *Config) validateMQTT() error {
	if !c.MQTT.Enabled {
		return nil
	}
	if err := validateBrokerURL(c.MQTT.Broker); err != nil {
		return fmt.Errorf("MQTT_BROKER: %w", err)
	}
	if c.MQTT.ClientID == "" {
		return fmt.Errorf("MQTT_CLIENT_ID is required when MQTT is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1, or 2, got %d", c.MQTT.QoS)
	}
	prefix := c.MQTT.TopicPrefix
	if prefix == "" || strings.ContainsAny(prefix, "#+") || strings.HasPrefix(prefix, "/") || strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("MQTT_TOPIC_PREFIX must be non-empty without wildcards or leading/trailing slashes, got %q", prefix)
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold < 0 || c.Supervisor.FailureDecay < 0 {
		return fmt.Errorf("supervisor failure threshold and decay must not be negative")
	}
	if c.Supervisor.FailureBackoff < 0 || c.Supervisor.ShutdownTimeout < 0 {
		return fmt.Errorf("supervisor durations must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	if c.Logging.File.Path != "" && c.Logging.File.MaxSizeMB < 1 {
		return fmt.Errorf("LOG_FILE_MAX_SIZE_MB must be at least 1, got %d", c.Logging.File.MaxSizeMB)
	}
	return nil
}
