// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package metrics defines the Prometheus collectors exported by the bridge.
//
// Collectors are registered on the default registry through promauto and
// exposed at /metrics by the API router.
//
// Families:
//   - compit_remote_*: Compit API calls, latency and 429s
//   - compit_refresh_*, compit_coordinator_state, compit_cached_devices:
//     the synchronization loop
//   - compit_entities, compit_entity_writes_total: projection and writes
//   - api_*: HTTP endpoints
//   - websocket_*: push hub
//   - compit_mqtt_*: MQTT bridge
//   - circuit_breaker_*: the gobreaker wrapper around the API client
//
// Record* helpers keep label handling in one place:
//
//	start := time.Now()
//	// ... refresh ...
//	metrics.RecordRefresh(time.Since(start), cached, failed, err)
package metrics
