// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package logging provides the zerolog-based structured logging used across
// the Compit bridge.
//
// The package offers:
//   - A global logger configured once from main via Init
//   - JSON output for production and console output for development
//   - An optional rotating log file (lumberjack) alongside stdout
//   - Correlation and request IDs carried on context.Context
//   - An slog adapter for libraries that log through log/slog
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Int("devices", n).Msg("Refresh complete")
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Warn().Err(err).Msg("Device state fetch failed")
//
// Always terminate event chains with .Msg() or .Send(); an unterminated
// chain emits nothing.
package logging
