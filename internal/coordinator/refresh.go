// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// refresh runs one synchronization cycle. Cycles never overlap; the
// scheduler guarantees a single caller at a time.
func (c *Coordinator) refresh(ctx context.Context) error {
	seq := c.startedSeq.Add(1)
	start := time.Now()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RefreshTimeout)
	defer cancel()
	log := logging.Ctx(ctx)

	if err := c.ensureAuthenticated(ctx); err != nil {
		return c.complete(seq, start, 0, fmt.Errorf("authenticate: %w", err))
	}

	gates, err := c.api.FetchTopology(ctx)
	if err != nil {
		c.noteAuthFailure(err)
		return c.complete(seq, start, 0, fmt.Errorf("fetch topology: %w", err))
	}

	catalog := c.Catalog()
	if catalog == nil {
		defs, err := c.api.FetchDeviceDefinitions(ctx)
		if err != nil {
			c.noteAuthFailure(err)
			return c.complete(seq, start, 0, fmt.Errorf("fetch device definitions: %w", err))
		}
		catalog = models.NewCatalog(defs)
		log.Info().Int("definitions", catalog.Len()).Msg("Loaded device definition catalog")
	}

	fetched := make(map[int]*models.DeviceState)
	var failures []error
	for gi := range gates {
		gate := &gates[gi]
		log.Debug().Str("gate", gate.Label).Str("code", gate.Code).Int("devices", len(gate.Devices)).Msg("Refreshing gate")

		for _, device := range gate.Devices {
			if ctx.Err() != nil {
				failures = append(failures, fmt.Errorf("device %d: %w", device.ID, ctx.Err()))
				continue
			}
			state, err := c.api.FetchParameterState(ctx, device.ID)
			if err != nil {
				c.noteAuthFailure(err)
				metrics.RecordDeviceFetchError(device.ID)
				log.Warn().Err(err).Int("device_id", device.ID).Str("device", device.Label).Msg("Device state fetch failed, keeping previous snapshot")
				failures = append(failures, fmt.Errorf("device %d: %w", device.ID, err))
				continue
			}
			fetched[device.ID] = state
		}
	}

	c.mu.Lock()
	next := make(map[int]*models.DeviceState, len(fetched))
	for gi := range gates {
		for _, device := range gates[gi].Devices {
			if s, ok := fetched[device.ID]; ok {
				next[device.ID] = s
			} else if prev, ok := c.cache[device.ID]; ok {
				next[device.ID] = prev
			}
		}
	}
	if dropped := len(c.cache) - countRetained(c.cache, next); dropped > 0 {
		log.Info().Int("dropped", dropped).Msg("Dropped cache entries for devices no longer in topology")
	}
	c.gates = gates
	c.catalog = catalog
	c.cache = next
	c.mu.Unlock()

	return c.completePartial(seq, start, len(failures), errors.Join(failures...))
}

func countRetained(prev, next map[int]*models.DeviceState) int {
	n := 0
	for id := range prev {
		if _, ok := next[id]; ok {
			n++
		}
	}
	return n
}

// ensureAuthenticated re-authenticates when no credential is held, when
// the token is about to expire, or after the API rejected the token.
func (c *Coordinator) ensureAuthenticated(ctx context.Context) error {
	cred := c.api.Credential()
	reason := ""
	switch {
	case c.needAuth.Load():
		reason = "token rejected"
	case cred == nil || cred.Token == "":
		reason = "no credential"
	case cred.ExpiresWithin(c.cfg.ReauthWindow, time.Now()):
		reason = "token expiring"
	default:
		return nil
	}

	logging.Ctx(ctx).Info().
		Str("reason", reason).
		Str("email", logging.SanitizeEmail(c.cfg.Email)).
		Msg("Authenticating with Compit API")

	if _, err := c.api.Authenticate(ctx, c.cfg.Email, c.cfg.Password); err != nil {
		return err
	}
	c.needAuth.Store(false)
	return nil
}

func (c *Coordinator) noteAuthFailure(err error) {
	if compit.IsAuthError(err) {
		c.needAuth.Store(true)
	}
}

// complete records a cycle that failed before any device was fetched.
func (c *Coordinator) complete(seq uint64, start time.Time, failed int, err error) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.state = StateDegraded
	}
	c.lastErr = err
	snap := c.finishLocked(seq, start, failed, err)
	c.mu.Unlock()

	logging.Warn().Err(err).Uint64("seq", seq).Str("state", snap.State.String()).Msg("Refresh failed, serving previous snapshot")
	metrics.RecordRefresh(time.Since(start), snap.Devices, 0, err)
	c.notify(snap)
	return err
}

// completePartial records a cycle that fetched topology. err joins the
// per-device failures and is nil when every device refreshed.
func (c *Coordinator) completePartial(seq uint64, start time.Time, failed int, err error) error {
	c.mu.Lock()
	switch {
	case failed == 0:
		c.state = StateReady
		c.lastSuccess = time.Now()
	case c.state == StateUninitialized && len(c.cache) == 0:
		// Nothing usable yet.
	default:
		c.state = StateDegraded
	}
	c.lastErr = err
	snap := c.finishLocked(seq, start, failed, err)
	c.mu.Unlock()

	ev := logging.Info()
	if failed > 0 {
		ev = logging.Warn().Err(err)
	}
	ev.Uint64("seq", seq).
		Str("state", snap.State.String()).
		Int("devices", snap.Devices).
		Int("failed", failed).
		Dur("duration", snap.CompletedAt.Sub(start)).
		Msg("Refresh completed")

	metrics.RecordRefresh(time.Since(start), snap.Devices, failed, nil)
	c.notify(snap)
	return err
}

func (c *Coordinator) finishLocked(seq uint64, start time.Time, failed int, err error) Snapshot {
	now := time.Now()
	c.lastRefresh = now
	c.completed = seq
	metrics.SetCoordinatorState(float64(c.state))
	return Snapshot{
		Seq:         seq,
		State:       c.state,
		Devices:     len(c.cache),
		Failed:      failed,
		Err:         err,
		StartedAt:   start,
		CompletedAt: now,
	}
}
