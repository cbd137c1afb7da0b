// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

/*
Command compitd runs the Compit bridge daemon.

It logs in to the Compit cloud service, keeps an in-memory snapshot of every
gate and device the account can see, and projects device parameters into
typed entities (sensor, number, select, switch). The entities are exposed
over a REST API and a WebSocket stream, and optionally mirrored to an MQTT
broker.

# Supervision

All long-running components run under a suture supervisor tree:

	compit-bridge
	├── sync-layer
	│   └── coordinator
	├── messaging-layer
	│   ├── websocket-hub
	│   ├── websocket-events
	│   └── mqtt-bridge (when MQTT_ENABLED=true)
	└── api-layer
	    └── http-server

A component that panics or returns an error is restarted with backoff
without affecting its siblings.

# Configuration

Configuration is loaded via Koanf with layered sources (highest priority wins):
  - Environment variables
  - Config file (CONFIG_PATH, ./config.yaml, /etc/compit-bridge/config.yaml)
  - Built-in defaults

The account credentials are required:

	export COMPIT_EMAIL=user@example.com
	export COMPIT_PASSWORD=secret
	./compitd

Optional MQTT mirroring:

	export MQTT_ENABLED=true
	export MQTT_BROKER=tcp://mosquitto:1883
	./compitd

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests, the coordinator cancels any running refresh, and the event bus is
closed before the process exits.
*/
package main
