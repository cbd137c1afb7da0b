// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"context"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Number is a writable numeric parameter with optional bounds.
type Number struct {
	base
}

// NewNumber builds a Number seeded from the cached value.
func NewNumber(backend Backend, ectx models.EntityContext) *Number {
	n := &Number{}
	n.init(backend, ectx, models.PlatformNumber)
	if pv := n.live(); pv != nil {
		n.value = pv.Value
	}
	return n
}

// Min resolves the lower bound: a literal declaration wins, otherwise the
// live bound from the latest cached snapshot. It is never cached.
func (n *Number) Min() (float64, bool) {
	var live *float64
	if pv := n.live(); pv != nil {
		live = pv.Min
	}
	return n.ctx.Parameter.MinValue.Resolve(live)
}

// Max resolves the upper bound the same way as Min.
func (n *Number) Max() (float64, bool) {
	var live *float64
	if pv := n.live(); pv != nil {
		live = pv.Max
	}
	return n.ctx.Parameter.MaxValue.Resolve(live)
}

func (n *Number) State() models.EntityState {
	st := n.state(true)
	if v, ok := n.Min(); ok {
		st.Min = &v
	}
	if v, ok := n.Max(); ok {
		st.Max = &v
	}
	return st
}

func (n *Number) Sync(snap coordinator.Snapshot) bool {
	return n.sync(snap, func(pv *models.ParameterValue) any { return pv.Value })
}

// Write sets a new value after checking it against the resolved bounds.
func (n *Number) Write(ctx context.Context, value any) (bool, error) {
	f, ok := toFloat(value)
	if !ok {
		return false, invalid("%v is not a number", value)
	}
	if lo, ok := n.Min(); ok && f < lo {
		return false, invalid("%v is below minimum %v", f, lo)
	}
	if hi, ok := n.Max(); ok && f > hi {
		return false, invalid("%v is above maximum %v", f, hi)
	}
	return n.write(ctx, n, f, f)
}
