// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/events"
	"github.com/tomtom215/compit-bridge/internal/models"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakeConn struct {
	mu       sync.Mutex
	messages []published
	handlers map[string]MessageHandler
	pubErr   error
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: map[string]MessageHandler{}}
}

func (c *fakeConn) Publish(topic string, payload []byte, retained bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubErr != nil {
		return c.pubErr
	}
	c.messages = append(c.messages, published{topic, payload, retained})
	return nil
}

func (c *fakeConn) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) deliver(subscription, topic string, payload []byte) {
	c.mu.Lock()
	h := c.handlers[subscription]
	c.mu.Unlock()
	h(topic, payload)
}

func (c *fakeConn) published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

type write struct {
	id    string
	value any
}

type fakeRegistry struct {
	mu     sync.Mutex
	states []models.EntityState
	writes []write
	ok     bool
	err    error
}

func (r *fakeRegistry) List(models.Platform) []models.EntityState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.EntityState(nil), r.states...)
}

func (r *fakeRegistry) Write(_ context.Context, id string, value any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, write{id, value})
	return r.ok, r.err
}

func (r *fakeRegistry) recorded() []write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]write(nil), r.writes...)
}

var testTopics = Topics{Prefix: "compit"}

func testStates() []models.EntityState {
	return []models.EntityState{
		{UniqueID: "number_boiler_temp", Platform: models.PlatformNumber, Value: 45.0, Writable: true},
		{UniqueID: "sensor_pump_speed", Platform: models.PlatformSensor, Value: 1200.0},
	}
}

func TestTopics(t *testing.T) {
	t.Parallel()

	checks := []struct{ got, want string }{
		{testTopics.State("number_boiler_temp"), "compit/state/number_boiler_temp"},
		{testTopics.Command("number_boiler_temp"), "compit/command/number_boiler_temp"},
		{testTopics.CommandWildcard(), "compit/command/+"},
		{testTopics.BridgeStatus(), "compit/bridge/status"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("topic = %q, want %q", c.got, c.want)
		}
	}

	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"compit/command/switch_boiler_pump_on", "switch_boiler_pump_on", true},
		{"compit/command/", "", false},
		{"compit/command/a/b", "", false},
		{"other/command/x", "", false},
	}
	for _, tt := range tests {
		id, ok := testTopics.EntityFromCommand(tt.topic)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("EntityFromCommand(%q) = %q, %v", tt.topic, id, ok)
		}
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload string
		want    any
		wantErr error
	}{
		{"60", 60.0, nil},
		{" 21.5\n", 21.5, nil},
		{"true", true, nil},
		{`"Eco"`, "Eco", nil},
		{"Eco", "Eco", nil},
		{"on", "on", nil},
		{`{"value":1}`, `{"value":1}`, nil},
		{"   ", nil, ErrEmptyCommand},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCommand([]byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseCommand() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCommand() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBridge_StartPublishesRetainedStates(t *testing.T) {
	conn := newFakeConn()
	reg := &fakeRegistry{states: testStates()}
	b := NewBridge(conn, testTopics, reg)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msgs := conn.published()
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}
	if msgs[0].topic != "compit/state/number_boiler_temp" || !msgs[0].retained {
		t.Errorf("first message = %s retained=%v", msgs[0].topic, msgs[0].retained)
	}
	var st models.EntityState
	if err := json.Unmarshal(msgs[0].payload, &st); err != nil {
		t.Fatalf("payload is not an entity state: %v", err)
	}
	if st.Value != 45.0 {
		t.Errorf("value = %v", st.Value)
	}
	if _, ok := conn.handlers["compit/command/+"]; !ok {
		t.Error("command wildcard not subscribed")
	}
}

func TestBridge_HandleEvent(t *testing.T) {
	conn := newFakeConn()
	reg := &fakeRegistry{states: testStates()}
	b := NewBridge(conn, testTopics, reg)

	data, _ := json.Marshal(models.EntityState{UniqueID: "switch_boiler_pump_on", Value: true})
	if err := b.HandleEvent(context.Background(), events.Envelope{Type: events.TypeEntityState, Data: data}, nil); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	msgs := conn.published()
	if len(msgs) != 1 || msgs[0].topic != "compit/state/switch_boiler_pump_on" {
		t.Fatalf("published = %+v", msgs)
	}

	// The first refresh triggers one full sync, later ones do not.
	refresh := events.Envelope{Type: events.TypeRefresh, Data: json.RawMessage(`{"seq":1}`)}
	_ = b.HandleEvent(context.Background(), refresh, nil)
	_ = b.HandleEvent(context.Background(), refresh, nil)
	if got := len(conn.published()); got != 3 {
		t.Errorf("published %d messages after refreshes, want 3", got)
	}

	bad := events.Envelope{Type: events.TypeEntityState, Data: json.RawMessage(`[]`)}
	if err := b.HandleEvent(context.Background(), bad, nil); err == nil {
		t.Error("HandleEvent() accepted a malformed state")
	}
}

func TestBridge_Commands(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		payload   string
		wantWrite *write
	}{
		{"number", "compit/command/number_boiler_temp", "60", &write{"number_boiler_temp", 60.0}},
		{"select by label", "compit/command/select_boiler_mode", "Comfort", &write{"select_boiler_mode", "Comfort"}},
		{"switch", "compit/command/switch_boiler_pump_on", "false", &write{"switch_boiler_pump_on", false}},
		{"empty payload", "compit/command/number_boiler_temp", "", nil},
		{"bad topic", "compit/command/", "1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			reg := &fakeRegistry{ok: true}
			b := NewBridge(conn, testTopics, reg)
			if err := b.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			conn.deliver("compit/command/+", tt.topic, []byte(tt.payload))
			b.Wait()

			writes := reg.recorded()
			if tt.wantWrite == nil {
				if len(writes) != 0 {
					t.Errorf("writes = %+v, want none", writes)
				}
				return
			}
			if len(writes) != 1 || writes[0] != *tt.wantWrite {
				t.Errorf("writes = %+v, want %+v", writes, *tt.wantWrite)
			}
		})
	}
}

func TestBridge_CommandFailuresAreContained(t *testing.T) {
	for _, reg := range []*fakeRegistry{
		{ok: false},
		{err: errors.New("upstream unavailable")},
	} {
		conn := newFakeConn()
		b := NewBridge(conn, testTopics, reg)
		if err := b.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		conn.deliver("compit/command/+", "compit/command/number_boiler_temp", []byte("60"))
		b.Wait()
		if len(reg.recorded()) != 1 {
			t.Errorf("writes = %d, want 1", len(reg.recorded()))
		}
	}
}

func TestService_Serve(t *testing.T) {
	conn := newFakeConn()
	reg := &fakeRegistry{states: testStates()}
	bus := events.NewBus(events.DefaultConfig())
	defer bus.Close()

	svc := NewService(config.MQTTConfig{TopicPrefix: "compit", Broker: "tcp://broker:1883"}, reg, bus)
	svc.connect = func(config.MQTTConfig) (Conn, error) { return conn, nil }
	if svc.String() != "mqtt-bridge" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Startup publishes both states; a bus event adds a third message.
	deadline := time.Now().Add(2 * time.Second)
	for len(conn.published()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("published %d messages, want at least 3", len(conn.published()))
		}
		_ = bus.PublishEntityState(ctx, models.EntityState{UniqueID: "number_boiler_temp", Value: 50.0})
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return")
	}
	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("connection not closed after Serve returned")
	}
}

func TestService_ConnectError(t *testing.T) {
	svc := NewService(config.MQTTConfig{TopicPrefix: "compit"}, &fakeRegistry{}, events.NewBus(events.DefaultConfig()))
	svc.connect = func(config.MQTTConfig) (Conn, error) { return nil, ErrConnectionFailed }

	if err := svc.Serve(context.Background()); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Serve() error = %v, want ErrConnectionFailed", err)
	}
}
