// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package coordinator keeps a local cache of Compit device state in sync
// with the remote API.
//
// A Coordinator owns, per account:
//   - the gate and device topology from the latest successful fetch
//   - the device definition catalog, loaded once per session
//   - one immutable DeviceState snapshot per device
//
// State machine:
//
//	uninitialized --(refresh with usable data)--> ready | degraded
//	ready        --(any fetch failure)----------> degraded
//	degraded     --(fully successful refresh)---> ready
//
// A failure never clears cached data. A device whose state fetch fails keeps
// its previous snapshot; devices missing from a new topology are dropped.
//
// Refreshes run on a fixed interval (Start/Serve) and on demand
// (RequestRefresh/Refresh). Only one refresh runs at a time; requests made
// while one runs are coalesced into a single follow-up that starts after
// it, so a refresh requested after a write reads post-write state.
package coordinator
