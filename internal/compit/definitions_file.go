// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package compit

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/models"
)

// LoadDefinitionsFile reads a device definition catalog in the same JSON
// shape served by /device-definitions.
func LoadDefinitionsFile(path string) (*models.DeviceDefinitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions file: %w", err)
	}

	var defs models.DeviceDefinitions
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse definitions file %s: %w", path, err)
	}
	if len(defs.Devices) == 0 {
		return nil, fmt.Errorf("definitions file %s contains no devices", path)
	}
	return &defs, nil
}
