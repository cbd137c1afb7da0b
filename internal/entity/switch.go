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

// Switch is an on/off parameter. The remote value is 1 or 0.
type Switch struct {
	base
}

// NewSwitch builds a Switch seeded from the cached value.
func NewSwitch(backend Backend, ectx models.EntityContext) *Switch {
	s := &Switch{}
	s.init(backend, ectx, models.PlatformSwitch)
	if pv := s.live(); pv != nil {
		s.value = s.decode(pv)
	}
	return s
}

// decode reads the live value as a number, falling back to matching
// value_code against the enumerated states.
func (s *Switch) decode(pv *models.ParameterValue) any {
	if pv.Value != nil {
		if on, ok := toBool(pv.Value); ok {
			return on
		}
	}
	if d, ok := s.ctx.Parameter.Detail(pv.ValueCodeString()); ok {
		return d.State != 0
	}
	return false
}

// IsOn reports the local state.
func (s *Switch) IsOn() bool {
	on, _ := s.Value().(bool)
	return on
}

func (s *Switch) State() models.EntityState {
	return s.state(true)
}

func (s *Switch) Sync(snap coordinator.Snapshot) bool {
	return s.sync(snap, s.decode)
}

// Write accepts booleans, 0/1 and on/off.
func (s *Switch) Write(ctx context.Context, value any) (bool, error) {
	on, ok := toBool(value)
	if !ok {
		return false, invalid("%v is not an on/off value", value)
	}
	remote := 0
	if on {
		remote = 1
	}
	return s.write(ctx, s, remote, on)
}

// TurnOn writes 1.
func (s *Switch) TurnOn(ctx context.Context) (bool, error) { return s.Write(ctx, true) }

// TurnOff writes 0.
func (s *Switch) TurnOff(ctx context.Context) (bool, error) { return s.Write(ctx, false) }
