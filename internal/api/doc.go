// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge


/*
Package api serves the bridge's HTTP API on a chi router.

Endpoints (all under /api/v1):

	GET  /health/live        process liveness
	GET  /health/ready       503 until device data is available
	GET  /gates              account topology
	GET  /entities           projected entities, ?platform=number|switch|select|sensor
	GET  /entities/{id}      one entity
	PUT  /entities/{id}      {"value": ...} write through the entity adapter
	POST /refresh            {"wait_seconds": n} optional
	GET  /ws                 WebSocket push of entity_state and refresh messages

Prometheus metrics are exposed on /metrics outside the API prefix.

Every response uses the models.APIResponse envelope:

	{"status": "success", "data": ..., "metadata": {"timestamp": ..., "coordinator_state": "ready"}}
	{"status": "error", "error": {"code": "WRITE_REJECTED", "message": ...}, "metadata": {...}}

Remote failures map to UPSTREAM_AUTH (502) and UPSTREAM_UNAVAILABLE (503);
see respondServiceError for the full table.
*/
package api
