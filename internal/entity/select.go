// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"context"
	"fmt"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Select is an enumerated parameter. Options are the detail descriptions;
// choosing one writes that detail's state.
type Select struct {
	base
}

// NewSelect builds a Select seeded from the cached value.
func NewSelect(backend Backend, ectx models.EntityContext) *Select {
	s := &Select{}
	s.init(backend, ectx, models.PlatformSelect)
	if pv := s.live(); pv != nil {
		s.value = s.decode(pv)
	}
	return s
}

// Options lists the selectable descriptions in declaration order.
func (s *Select) Options() []string {
	opts := make([]string, 0, len(s.ctx.Parameter.Details))
	for _, d := range s.ctx.Parameter.Details {
		opts = append(opts, d.Description)
	}
	return opts
}

// decode maps the live value to an option: by value_code, then by
// numeric state, then the service's own label.
func (s *Select) decode(pv *models.ParameterValue) any {
	if d, ok := s.ctx.Parameter.Detail(pv.ValueCodeString()); ok {
		return d.Description
	}
	if f, ok := toFloat(pv.Value); ok {
		for _, d := range s.ctx.Parameter.Details {
			if float64(d.State) == f {
				return d.Description
			}
		}
	}
	if pv.ValueLabel != nil {
		return *pv.ValueLabel
	}
	return nil
}

func (s *Select) State() models.EntityState {
	st := s.state(true)
	st.Options = s.Options()
	return st
}

func (s *Select) Sync(snap coordinator.Snapshot) bool {
	return s.sync(snap, s.decode)
}

// Write selects an option by description, or by state number.
func (s *Select) Write(ctx context.Context, value any) (bool, error) {
	option := fmt.Sprint(value)
	for _, d := range s.ctx.Parameter.Details {
		if d.Description == option {
			return s.write(ctx, s, d.State, d.Description)
		}
	}
	if f, ok := toFloat(value); ok {
		for _, d := range s.ctx.Parameter.Details {
			if float64(d.State) == f {
				return s.write(ctx, s, d.State, d.Description)
			}
		}
	}
	return false, invalid("%q is not one of %v", option, s.Options())
}
