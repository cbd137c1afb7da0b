// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package events is the in-process event bus between the entity registry
// and its consumers (WebSocket hub, MQTT bridge).
//
// It wraps a watermill GoChannel. Every message carries an Envelope with a
// type ("entity_state" or "refresh") and the JSON data, so the WebSocket
// hub can forward payloads unchanged.
package events
