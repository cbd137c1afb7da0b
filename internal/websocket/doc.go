// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

/*
Package websocket pushes live entity updates to browser clients.

A Hub owns the connected clients and fans out messages; each Client runs a
read pump (keepalive and ping handling) and a write pump. The hub consumes
the event bus through HandleEvent and forwards every event unchanged:

	{"type": "entity_state", "data": {"unique_id": "number_boiler_temp", ...}}
	{"type": "refresh", "data": {"seq": 12, "state": "ready", ...}}

Clients may send {"type": "ping"} and receive {"type": "pong"}.

The hub runs under the supervisor via Serve. Clients that cannot keep up
are disconnected rather than slowing the others down.
*/
package websocket
