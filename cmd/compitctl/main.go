// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Command compitctl talks to the Compit cloud service from a terminal:
// it logs in, lists gates and projected entities, and sets values.
//
//	compitctl --credentials credential.yaml entities --platform number
//	compitctl set number_boiler_temp 55
package main

import (
	"os"

	"github.com/tomtom215/compit-bridge/cmd/compitctl/command"
)

func main() {
	if err := command.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
