// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/coordinator/coordinatortest"
	"github.com/tomtom215/compit-bridge/internal/models"
)

func ptr[T any](v T) *T { return &v }

var (
	deviceBoiler  = models.Device{ID: 7, Label: "Boiler", Class: 10, Type: 12}
	devicePump    = models.Device{ID: 8, Label: "Pump", Class: 10, Type: 13}
	deviceUnknown = models.Device{ID: 9, Label: "Mystery", Class: 10, Type: 999}

	modeDetails = []models.ParameterDetail{
		{State: 0, Description: "Auto", Param: "auto"},
		{State: 1, Description: "Comfort", Param: "comfort"},
		{State: 2, Description: "Eco", Param: "eco"},
	}
)

func fixtureDefinitions() *models.DeviceDefinitions {
	return &models.DeviceDefinitions{Devices: []models.DeviceDefinition{
		{Name: "Nano Color", Code: 12, Class: 10, Parameters: []models.Parameter{
			{Code: "temp", Label: "Temperature", ReadWrite: "RW", Unit: "°C", MinValue: models.LiteralBound(0), MaxValue: models.LiteralBound(90)},
			{Code: "setpoint", Label: "Setpoint", ReadWrite: "RW", Unit: "°C", MinValue: models.LiveBound(), MaxValue: models.LiveBound()},
			{Code: "pump_on", Label: "Pump", ReadWrite: "RW", Details: []models.ParameterDetail{
				{State: 0, Description: "Off", Param: "off"},
				{State: 1, Description: "On", Param: "on"},
			}},
			{Code: "mode", Label: "Mode", ReadWrite: "RW", Details: modeDetails},
			{Code: "status", Label: "Status", ReadWrite: "R"},
			{Code: "secret", Label: "Secret", ReadWrite: "RW", MinValue: models.LiteralBound(0), MaxValue: models.LiteralBound(1)},
		}},
		{Name: "Pump", Code: 13, Class: 10, Parameters: []models.Parameter{
			{Code: "speed", Label: "Speed", ReadWrite: "R", Unit: "rpm"},
		}},
	}}
}

func boilerState(temp float64) *models.DeviceState {
	return &models.DeviceState{Params: []models.ParameterValue{
		{Code: "temp", Value: temp, Max: ptr(200.0)},
		{Code: "setpoint", Value: 21.0, Min: ptr(5.0), Max: ptr(30.0)},
		{Code: "pump_on", Value: 1.0},
		{Code: "mode", Value: 2.0, ValueCode: "eco"},
		{Code: "status", Value: "running", ValueLabel: ptr("Running")},
		{Code: "secret", Value: 1.0, Hidden: true},
	}}
}

// testBackend wraps a real coordinator and records refresh requests
// instead of scheduling them.
type testBackend struct {
	*coordinator.Coordinator
	refreshes atomic.Int32
}

func (b *testBackend) RequestRefresh() { b.refreshes.Add(1) }

type fixture struct {
	api     *coordinatortest.FakeAPI
	coord   *coordinator.Coordinator
	backend *testBackend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := coordinatortest.NewFakeAPI()
	api.SetDefinitions(fixtureDefinitions())
	api.SetGates([]models.Gate{{ID: 1, Code: "G1", Label: "Home", Devices: []models.Device{deviceBoiler, devicePump, deviceUnknown}}})
	api.SetState(7, boilerState(45))
	api.SetState(8, coordinatortest.State("speed", 1200.0))
	api.SetState(9, coordinatortest.State("x", 1.0))

	coord := coordinator.New(api, coordinator.DefaultConfig())
	t.Cleanup(coord.Stop)
	f := &fixture{api: api, coord: coord, backend: &testBackend{Coordinator: coord}}
	f.refresh(t)
	return f
}

func (f *fixture) refresh(t *testing.T) coordinator.Snapshot {
	t.Helper()
	var snap coordinator.Snapshot
	var once sync.Once
	done := make(chan struct{})
	f.coord.AddListener(func(s coordinator.Snapshot) {
		once.Do(func() { snap = s; close(done) })
	})
	if err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	<-done
	return snap
}

func (f *fixture) context(t *testing.T, platform models.Platform, code string) models.EntityContext {
	t.Helper()
	for ectx := range ProjectEntities(f.coord, platform) {
		if ectx.Parameter.Code == code {
			return ectx
		}
	}
	t.Fatalf("no %s context for %q", platform, code)
	return models.EntityContext{}
}
