// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/models"
)

type recordingPublisher struct {
	mu        sync.Mutex
	states    []models.EntityState
	refreshes []models.RefreshEvent
	err       error
}

func (p *recordingPublisher) PublishEntityState(_ context.Context, st models.EntityState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, st)
	return p.err
}

func (p *recordingPublisher) PublishRefresh(_ context.Context, ev models.RefreshEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes = append(p.refreshes, ev)
	return p.err
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = nil
	p.refreshes = nil
}

func (p *recordingPublisher) published() ([]models.EntityState, []models.RefreshEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.EntityState(nil), p.states...), append([]models.RefreshEvent(nil), p.refreshes...)
}

func newAttachedRegistry(t *testing.T) (*fixture, *Registry, *recordingPublisher) {
	t.Helper()
	f := newFixture(t)
	pub := &recordingPublisher{}
	reg := NewRegistry(f.backend, pub)
	reg.Attach(f.backend)
	f.refresh(t)
	return f, reg, pub
}

func TestRegistry_BuildsAllPlatforms(t *testing.T) {
	_, reg, pub := newAttachedRegistry(t)

	if reg.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", reg.Len())
	}

	states, refreshes := pub.published()
	if len(states) != 6 {
		t.Errorf("published %d states, want 6", len(states))
	}
	if len(refreshes) != 1 || refreshes[0].State != "ready" || refreshes[0].Devices != 3 {
		t.Errorf("refresh events = %+v", refreshes)
	}

	if _, ok := reg.Get("number_boiler_temp"); !ok {
		t.Error("number_boiler_temp not registered")
	}
	if _, ok := reg.Get("none_boiler_secret"); ok {
		t.Error("hidden parameter registered")
	}
}

func TestRegistry_List(t *testing.T) {
	_, reg, _ := newAttachedRegistry(t)

	all := reg.List(models.PlatformNone)
	if len(all) != 6 {
		t.Fatalf("List(none) = %d entities, want 6", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].UniqueID >= all[i].UniqueID {
			t.Errorf("List() not sorted: %q before %q", all[i-1].UniqueID, all[i].UniqueID)
		}
	}

	numbers := reg.List(models.PlatformNumber)
	if len(numbers) != 2 || numbers[0].UniqueID != "number_boiler_setpoint" || numbers[1].UniqueID != "number_boiler_temp" {
		t.Errorf("List(number) = %+v", numbers)
	}
}

func TestRegistry_PublishesOnlyChanges(t *testing.T) {
	f, _, pub := newAttachedRegistry(t)
	pub.reset()

	f.api.SetState(7, boilerState(50))
	f.refresh(t)

	states, refreshes := pub.published()
	if len(states) != 1 || states[0].UniqueID != "number_boiler_temp" || states[0].Value != 50.0 {
		t.Errorf("published states = %+v, want only the temperature", states)
	}
	if len(refreshes) != 1 {
		t.Errorf("refresh events = %d, want 1", len(refreshes))
	}
}

func TestRegistry_KeepsEntityAcrossRefresh(t *testing.T) {
	f, reg, _ := newAttachedRegistry(t)

	before, _ := reg.Get("number_boiler_temp")
	f.refresh(t)
	after, _ := reg.Get("number_boiler_temp")
	if before != after {
		t.Error("entity object replaced on refresh")
	}
}

func TestRegistry_DropsVanishedEntities(t *testing.T) {
	f, reg, _ := newAttachedRegistry(t)

	state := boilerState(45)
	state.Params[3].Hidden = true
	f.api.SetState(7, state)
	f.refresh(t)

	if _, ok := reg.Get("select_boiler_mode"); ok {
		t.Error("hidden select still registered")
	}
	if reg.Len() != 5 {
		t.Errorf("Len() = %d, want 5", reg.Len())
	}
}

func TestRegistry_Write(t *testing.T) {
	f, reg, pub := newAttachedRegistry(t)
	pub.reset()

	ok, err := reg.Write(context.Background(), "number_boiler_temp", 55.0)
	if err != nil || !ok {
		t.Fatalf("Write() = %v, %v", ok, err)
	}
	states, _ := pub.published()
	if len(states) != 1 || states[0].Value != 55.0 {
		t.Errorf("published after write = %+v", states)
	}
	if f.backend.refreshes.Load() != 1 {
		t.Errorf("refresh requests = %d, want 1", f.backend.refreshes.Load())
	}

	_, err = reg.Write(context.Background(), "number_boiler_missing", 1)
	if !compit.IsNotFound(err) {
		t.Errorf("unknown entity error = %v, want not found", err)
	}

	_, err = reg.Write(context.Background(), "sensor_boiler_status", "x")
	if !errors.Is(err, ErrNotWritable) {
		t.Errorf("sensor write error = %v, want ErrNotWritable", err)
	}
}

func TestRegistry_PublisherErrorsAreNotFatal(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{err: errors.New("bus closed")}
	reg := NewRegistry(f.backend, pub)
	reg.Attach(f.backend)
	f.refresh(t)

	if reg.Len() != 6 {
		t.Errorf("Len() = %d, want 6", reg.Len())
	}
}

func TestRegistry_NilPublisher(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.backend, nil)
	reg.Attach(f.backend)
	f.refresh(t)

	if reg.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", reg.Len())
	}
	if _, err := reg.Write(context.Background(), "switch_boiler_pump_on", false); err != nil {
		t.Errorf("Write() error = %v", err)
	}
}
