// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package config loads and validates the bridge configuration.
//
// Configuration is layered with Koanf v2:
//
//  1. Built-in defaults (defaultConfig)
//  2. An optional YAML file: CONFIG_PATH, config.yaml, config.yml,
//     or /etc/compit-bridge/config.yaml
//  3. Environment variables, mapped through an explicit table
//
// Example config.yaml:
//
//	compit:
//	  email: user@example.com
//	  password: secret
//	coordinator:
//	  scan_interval: 1m
//	mqtt:
//	  enabled: true
//	  broker: tcp://mosquitto:1883
//	logging:
//	  level: debug
//	  format: console
//
// Credentials are checked by ValidateCredentials rather than Validate so
// that tooling can load a config before credentials are supplied.
package config
