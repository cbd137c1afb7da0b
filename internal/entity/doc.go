// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

/*
Package entity projects cached Compit devices into platform entities and
adapts them to hosts.

Projection walks the coordinator's topology, resolves each device's
definition and classifies every parameter against its live value:

	for ectx := range entity.ProjectEntities(coord, models.PlatformNumber) {
		n := entity.NewNumber(coord, ectx)
		...
	}

Each platform has an adapter (Number, Switch, Select, Sensor) that keeps a
local value, reconciles it with the cache after every refresh (Sync) and,
for writable platforms, writes through the client. An accepted write is
applied locally at once and followed by exactly one refresh request; a
declined write or an error leaves the local value as it was.

Registry ties it together for the HTTP API, the WebSocket hub and the MQTT
bridge: it is attached to the coordinator, rebuilds the entity set after
every refresh and forwards changed states to a Publisher.
*/
package entity
