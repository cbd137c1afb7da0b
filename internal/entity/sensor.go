// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// maxSensorText is the longest text a sensor reports before truncation.
const maxSensorText = 100

// Sensor is a read-only parameter.
type Sensor struct {
	base
}

// NewSensor builds a Sensor seeded from the cached value.
func NewSensor(backend Backend, ectx models.EntityContext) *Sensor {
	s := &Sensor{}
	s.init(backend, ectx, models.PlatformSensor)
	if pv := s.live(); pv != nil {
		s.value = decodeSensor(pv)
	}
	return s
}

// decodeSensor returns the service's label verbatim when there is one.
// Otherwise the raw value is kept unless its text form is too long, in
// which case the truncated text is reported instead.
func decodeSensor(pv *models.ParameterValue) any {
	if pv.ValueLabel != nil {
		return *pv.ValueLabel
	}
	if pv.Value == nil {
		return nil
	}
	if r := []rune(sensorText(pv.Value)); len(r) > maxSensorText {
		return string(r[:maxSensorText]) + "..."
	}
	return pv.Value
}

func sensorText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []any, map[string]any:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func (s *Sensor) State() models.EntityState {
	return s.state(false)
}

func (s *Sensor) Sync(snap coordinator.Snapshot) bool {
	return s.sync(snap, decodeSensor)
}
