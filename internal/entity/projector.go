// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"iter"

	"github.com/tomtom215/compit-bridge/internal/classifier"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// ProjectEntities yields one context per (device, parameter) pair whose
// classification against the cached value equals platform. The sequence
// is lazy and re-reads the source every time it is ranged over.
//
// Devices without a resolvable definition are skipped and debug-logged.
func ProjectEntities(src Source, platform models.Platform) iter.Seq[models.EntityContext] {
	return func(yield func(models.EntityContext) bool) {
		for _, gate := range src.Gates() {
			for _, device := range gate.Devices {
				def, ok := src.Definition(device)
				if !ok {
					logging.Debug().
						Int("device_id", device.ID).
						Int("class", device.Class).
						Int("type", device.Type).
						Msg("No definition found for device, skipping")
					continue
				}

				state, _ := src.DeviceState(device.ID)
				for i := range def.Parameters {
					param := &def.Parameters[i]
					value, _ := state.Param(param.Code)
					if classifier.Classify(param, value) != platform {
						continue
					}
					if !yield(models.EntityContext{Device: device, Parameter: *param, DeviceName: def.Name}) {
						return
					}
				}
			}
		}
	}
}

// BuildEntities materializes the projection for platform through factory.
func BuildEntities[T any, S Source](src S, platform models.Platform, factory func(S, models.EntityContext) T) []T {
	var out []T
	for ectx := range ProjectEntities(src, platform) {
		out = append(out, factory(src, ectx))
	}
	return out
}
