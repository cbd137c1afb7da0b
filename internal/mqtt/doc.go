// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package mqtt exposes entities over an MQTT broker.
//
// Every entity state is published retained to {prefix}/state/{unique_id}
// as JSON. A raw value published to {prefix}/command/{unique_id} is written
// through the entity registry; JSON scalars keep their type and anything
// else is treated as a string. The bridge marks itself online on
// {prefix}/bridge/status and the broker publishes "offline" as its last
// will.
//
// The bridge is optional and only started when mqtt.enabled is set.
package mqtt
