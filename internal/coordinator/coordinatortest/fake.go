// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

// Package coordinatortest provides an in-memory Compit API for tests of
// the coordinator and the packages built on it.
package coordinatortest

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Write records one UpdateParameter call.
type Write struct {
	DeviceID int
	Code     string
	Value    any
}

// FakeAPI implements coordinator.API in memory. The default fixture has
// one gate with a boiler (device 7, writable "temp" bounded 0..90) and a
// pump (device 8, read-only "speed").
type FakeAPI struct {
	mu sync.Mutex

	cred     *compit.Credential
	gates    []models.Gate
	defs     *models.DeviceDefinitions
	states   map[int]*models.DeviceState
	stateErr map[int]error
	topoErr  error
	authErr  error

	block   chan struct{}
	started chan struct{}

	authCalls  int
	topoCalls  int
	defsCalls  int
	stateCalls map[int]int

	writes   []Write
	writeOK  bool
	writeErr error
}

// NewFakeAPI returns a FakeAPI holding a usable credential.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		cred: compit.NewCredential("token", time.Now()),
		gates: []models.Gate{{
			ID: 1, Code: "G1", Label: "Home",
			Devices: []models.Device{
				{ID: 7, Label: "Boiler", Class: 10, Type: 12},
				{ID: 8, Label: "Pump", Class: 10, Type: 13},
			},
		}},
		defs: &models.DeviceDefinitions{Devices: []models.DeviceDefinition{
			{Name: "Nano", Code: 12, Class: 10, Parameters: []models.Parameter{
				{Code: "temp", Label: "Temperature", ReadWrite: "RW", Unit: "°C", MinValue: models.LiteralBound(0), MaxValue: models.LiteralBound(90)},
			}},
			{Name: "Pump", Code: 13, Class: 10, Parameters: []models.Parameter{
				{Code: "speed", Label: "Speed", ReadWrite: "R"},
			}},
		}},
		states: map[int]*models.DeviceState{
			7: State("temp", 45.0),
			8: State("speed", 3.0),
		},
		stateErr:   map[int]error{},
		stateCalls: map[int]int{},
		writeOK:    true,
	}
}

// State builds a single-parameter device snapshot.
func State(code string, value any) *models.DeviceState {
	return &models.DeviceState{Params: []models.ParameterValue{{Code: code, Value: value}}}
}

// SetCredential replaces the held credential.
func (f *FakeAPI) SetCredential(cred *compit.Credential) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cred = cred
}

// SetGates replaces the topology.
func (f *FakeAPI) SetGates(gates []models.Gate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates = gates
}

// SetDefinitions replaces the definition catalog.
func (f *FakeAPI) SetDefinitions(defs *models.DeviceDefinitions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defs = defs
}

// SetState replaces the snapshot served for a device.
func (f *FakeAPI) SetState(deviceID int, s *models.DeviceState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[deviceID] = s
}

// SetStateErr makes state fetches for a device fail; nil clears it.
func (f *FakeAPI) SetStateErr(deviceID int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.stateErr, deviceID)
		return
	}
	f.stateErr[deviceID] = err
}

// SetTopologyErr makes topology fetches fail; nil clears it.
func (f *FakeAPI) SetTopologyErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topoErr = err
}

// SetAuthErr makes Authenticate fail; nil clears it.
func (f *FakeAPI) SetAuthErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authErr = err
}

// SetWriteResult sets what UpdateParameter returns.
func (f *FakeAPI) SetWriteResult(ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeOK, f.writeErr = ok, err
}

// Block makes FetchTopology signal on the returned channel when called
// and wait until release is called.
func (f *FakeAPI) Block() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	block := make(chan struct{})
	ch := make(chan struct{}, 64)
	f.block, f.started = block, ch
	var once sync.Once
	return ch, func() { once.Do(func() { close(block) }) }
}

// Calls returns how often Authenticate, FetchTopology and
// FetchDeviceDefinitions were called.
func (f *FakeAPI) Calls() (auth, topology, definitions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls, f.topoCalls, f.defsCalls
}

// StateCalls returns how often a device's state was fetched.
func (f *FakeAPI) StateCalls(deviceID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateCalls[deviceID]
}

// Writes returns the recorded writes.
func (f *FakeAPI) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

func (f *FakeAPI) Authenticate(_ context.Context, _, _ string) (*compit.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	f.cred = compit.NewCredential("fresh-token", time.Now())
	return f.cred, nil
}

func (f *FakeAPI) Credential() *compit.Credential {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cred
}

func (f *FakeAPI) FetchTopology(ctx context.Context) ([]models.Gate, error) {
	f.mu.Lock()
	f.topoCalls++
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topoErr != nil {
		return nil, f.topoErr
	}
	return f.gates, nil
}

func (f *FakeAPI) FetchDeviceDefinitions(context.Context) (*models.DeviceDefinitions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defsCalls++
	return f.defs, nil
}

func (f *FakeAPI) FetchParameterState(_ context.Context, deviceID int) (*models.DeviceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls[deviceID]++
	if err := f.stateErr[deviceID]; err != nil {
		return nil, err
	}
	s, ok := f.states[deviceID]
	if !ok {
		return nil, &compit.NotFoundError{Resource: "device"}
	}
	return s, nil
}

func (f *FakeAPI) UpdateParameter(_ context.Context, deviceID int, code string, value any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, Write{DeviceID: deviceID, Code: code, Value: value})
	return f.writeOK, f.writeErr
}
