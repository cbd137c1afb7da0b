// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package compit is the client for the Compit mobile API.
//
// Client authenticates with account credentials, fetches the gate and
// device topology, the device definition catalog and per-device parameter
// state, and writes parameter values. It holds a single bearer credential.
//
// Failures are typed:
//   - *AuthError: invalid credentials, or a missing or expired token
//   - *TransportError: network failures, timeouts, exhausted 429 retries,
//     unexpected server responses and circuit breaker refusals
//   - *NotFoundError: the device does not exist remotely
//
// A write the service declines is not an error: UpdateParameter returns
// false. CircuitBreakerClient wraps Client with sony/gobreaker; only
// transport failures count against it.
package compit
