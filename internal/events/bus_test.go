// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/models"
)

func TestBus_PublishEntityState(t *testing.T) {
	bus := NewBus(DefaultConfig())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx, TopicEntityState)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	ctx = logging.ContextWithCorrelationID(ctx, "corr-1")
	st := models.EntityState{UniqueID: "number_boiler_temp", Platform: models.PlatformNumber, Value: 45.0, Writable: true}
	if err := bus.PublishEntityState(ctx, st); err != nil {
		t.Fatalf("PublishEntityState() error = %v", err)
	}

	select {
	case msg := <-msgs:
		defer msg.Ack()
		if msg.Metadata.Get(MetadataType) != TypeEntityState {
			t.Errorf("type metadata = %q", msg.Metadata.Get(MetadataType))
		}
		if msg.Metadata.Get(MetadataCorrelationID) != "corr-1" {
			t.Errorf("correlation metadata = %q", msg.Metadata.Get(MetadataCorrelationID))
		}

		env, err := Decode(msg)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Type != TypeEntityState {
			t.Errorf("envelope type = %q", env.Type)
		}
		var got models.EntityState
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
		if got.UniqueID != st.UniqueID || got.Value != 45.0 {
			t.Errorf("data = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestBus_TopicsAreSeparate(t *testing.T) {
	bus := NewBus(DefaultConfig())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states, err := bus.Subscribe(ctx, TopicEntityState)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.PublishRefresh(ctx, models.RefreshEvent{Seq: 1, State: "ready"}); err != nil {
		t.Fatalf("PublishRefresh() error = %v", err)
	}

	select {
	case msg := <-states:
		msg.Ack()
		t.Errorf("refresh event delivered on the entity topic: %s", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_Consume(t *testing.T) {
	bus := NewBus(DefaultConfig())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	seen := map[string]bool{}
	handler := func(_ context.Context, env Envelope, payload []byte) error {
		if len(payload) == 0 {
			t.Error("empty payload")
		}
		mu.Lock()
		seen[env.Type] = true
		mu.Unlock()
		if env.Type == TypeRefresh {
			return errors.New("handler failure is logged, not fatal")
		}
		return nil
	}
	seenBoth := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[TypeRefresh] && seen[TypeEntityState]
	}

	done := make(chan error, 1)
	go func() {
		done <- bus.Consume(ctx, "test-consumer", handler, TopicEntityState, TopicRefresh)
	}()

	// Subscriptions are made inside Consume; publish until both arrive.
	deadline := time.Now().Add(2 * time.Second)
	for !seenBoth() {
		if time.Now().After(deadline) {
			t.Fatal("Consume() did not deliver both event types")
		}
		if err := bus.PublishRefresh(ctx, models.RefreshEvent{Seq: 1}); err != nil {
			t.Fatalf("PublishRefresh() error = %v", err)
		}
		if err := bus.PublishEntityState(ctx, models.EntityState{UniqueID: "sensor_pump_speed"}); err != nil {
			t.Fatalf("PublishEntityState() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Consume() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Consume() did not return after cancel")
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus(Config{})
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	err := bus.PublishEntityState(context.Background(), models.EntityState{})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("PublishEntityState() error = %v, want ErrClosed", err)
	}
}
