// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

/*
Package supervisor runs the bridge's long-lived services under suture v4.

	RootSupervisor ("compit-bridge")
	├── "sync-layer"
	│   └── coordinator (polling loop)
	├── "messaging-layer"
	│   ├── websocket-hub
	│   ├── websocket-events (bus -> hub)
	│   └── mqtt-bridge (if mqtt.enabled)
	└── "api-layer"
	    └── http-server

Each layer counts failures independently: a broker outage restarting the
MQTT bridge does not touch the coordinator or the HTTP API. Supervisor
events are logged through sutureslog on the zerolog-backed slog logger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.NewTreeConfig(cfg.Supervisor))
	tree.AddSyncService(coord)
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Supervisor.ShutdownTimeout))
	err = tree.Serve(ctx)

Wrappers adapting components to suture.Service live in the services
subpackage.
*/
package supervisor
