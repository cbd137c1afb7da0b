// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package coordinator

import (
	"context"
	"time"

	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
)

// refreshCall is one scheduled refresh shared by every request it serves.
type refreshCall struct {
	done chan struct{}
	err  error
}

func newRefreshCall() *refreshCall {
	return &refreshCall{done: make(chan struct{})}
}

// schedule returns the refresh that will serve a request made now.
//
// When idle, a refresh starts immediately. While one is running, the
// request joins the follow-up refresh that starts after it completes, so
// the result always reflects remote state read after the request.
func (c *Coordinator) schedule() *refreshCall {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.stopped {
		call := newRefreshCall()
		call.err = ErrStopped
		close(call.done)
		return call
	}

	if c.inflight == nil {
		call := newRefreshCall()
		c.inflight = call
		c.runWG.Add(1)
		go c.run(call)
		return call
	}

	metrics.RefreshCoalesced.Inc()
	if c.pending == nil {
		c.pending = newRefreshCall()
	}
	return c.pending
}

// run executes call and then any follow-up queued while it ran.
func (c *Coordinator) run(call *refreshCall) {
	defer c.runWG.Done()

	for call != nil {
		call.err = c.refresh(c.baseCtx)
		close(call.done)

		c.refreshMu.Lock()
		call = c.pending
		c.pending = nil
		c.inflight = call
		if call != nil && c.stopped {
			call.err = ErrStopped
			close(call.done)
			call = nil
			c.inflight = nil
		}
		c.refreshMu.Unlock()
	}
}

// RequestRefresh schedules an out-of-band refresh and returns immediately.
// Concurrent requests coalesce into at most one follow-up refresh.
func (c *Coordinator) RequestRefresh() {
	c.schedule()
}

// Refresh schedules a refresh and waits for it. The returned error joins
// the failures of that cycle; it is nil when every device refreshed.
func (c *Coordinator) Refresh(ctx context.Context) error {
	call := c.schedule()
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start performs the first refresh in the background and then refreshes
// every ScanInterval until Stop is called or ctx is canceled.
func (c *Coordinator) Start(ctx context.Context) error {
	c.loopMu.Lock()
	if c.running {
		c.loopMu.Unlock()
		return nil
	}
	c.running = true
	c.stopChan = make(chan struct{})
	c.loopMu.Unlock()

	logging.Info().Dur("interval", c.cfg.ScanInterval).Msg("Starting coordinator")

	c.loopWG.Add(1)
	go c.pollLoop(ctx, c.stopChan)
	return nil
}

// Serve implements suture.Service.
func (c *Coordinator) Serve(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	c.pause()
	return ctx.Err()
}

func (c *Coordinator) String() string { return "coordinator" }

// Stop ends the polling loop, cancels any running refresh and waits for it.
// Refresh requests made afterwards fail with ErrStopped.
func (c *Coordinator) Stop() {
	c.pause()

	c.refreshMu.Lock()
	c.stopped = true
	c.refreshMu.Unlock()

	c.cancelBase()
	c.runWG.Wait()
	logging.Info().Msg("Coordinator stopped")
}

// pause stops the polling loop only. The supervisor may restart Serve.
func (c *Coordinator) pause() {
	c.loopMu.Lock()
	if !c.running {
		c.loopMu.Unlock()
		return
	}
	c.running = false
	close(c.stopChan)
	c.loopMu.Unlock()

	c.loopWG.Wait()
}

func (c *Coordinator) pollLoop(ctx context.Context, stop <-chan struct{}) {
	defer c.loopWG.Done()

	c.schedule()

	ticker := time.NewTicker(c.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug().Msg("Coordinator poll loop: context canceled")
			return
		case <-stop:
			return
		case <-ticker.C:
			c.schedule()
		}
	}
}
