// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package mqtt

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/events"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
	"github.com/tomtom215/compit-bridge/internal/models"
)

const defaultWriteTimeout = 30 * time.Second

// Conn is the broker connection used by the bridge. *Client satisfies it.
type Conn interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) error
	Close() error
}

// Registry is the entity host the bridge exposes. *entity.Registry
// satisfies it.
type Registry interface {
	List(platform models.Platform) []models.EntityState
	Write(ctx context.Context, id string, value any) (bool, error)
}

// Bridge mirrors entity states to retained topics and routes command
// topics to entity writes.
type Bridge struct {
	conn     Conn
	topics   Topics
	registry Registry

	writeTimeout time.Duration
	baseCtx      context.Context
	inflight     sync.WaitGroup

	// synced is set once a full state sync followed a completed refresh.
	synced atomic.Bool
}

// NewBridge creates a bridge over an established connection.
func NewBridge(conn Conn, topics Topics, registry Registry) *Bridge {
	return &Bridge{
		conn:         conn,
		topics:       topics,
		registry:     registry,
		writeTimeout: defaultWriteTimeout,
		baseCtx:      context.Background(),
	}
}

// Start subscribes to commands and publishes every current entity state.
// Commands are executed under ctx.
func (b *Bridge) Start(ctx context.Context) error {
	b.baseCtx = ctx
	if err := b.conn.Subscribe(b.topics.CommandWildcard(), b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.PublishAll()
	return nil
}

// Wait blocks until in-flight commands finish.
func (b *Bridge) Wait() {
	b.inflight.Wait()
}

// PublishAll publishes the retained state of every registered entity.
func (b *Bridge) PublishAll() {
	for _, st := range b.registry.List(models.PlatformNone) {
		if err := b.publishState(st); err != nil {
			logging.Warn().Err(err).Str("entity", st.UniqueID).Msg("Failed to publish entity state")
		}
	}
}

// HandleEvent publishes entity state events. The first refresh event
// after start triggers a full sync so no change made while subscribing is
// lost. It is an events.Handler.
func (b *Bridge) HandleEvent(_ context.Context, env events.Envelope, _ []byte) error {
	switch env.Type {
	case events.TypeEntityState:
		var st models.EntityState
		if err := json.Unmarshal(env.Data, &st); err != nil {
			return fmt.Errorf("decode entity state: %w", err)
		}
		return b.publishState(st)
	case events.TypeRefresh:
		if b.synced.CompareAndSwap(false, true) {
			b.PublishAll()
		}
	}
	return nil
}

func (b *Bridge) publishState(st models.EntityState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state of %s: %w", st.UniqueID, err)
	}
	err = b.conn.Publish(b.topics.State(st.UniqueID), payload, true)
	metrics.RecordMQTTMessage("publish", err)
	return err
}

func (b *Bridge) handleCommand(topic string, payload []byte) {
	b.inflight.Add(1)
	defer b.inflight.Done()

	log := logging.With().Str("component", "mqtt").Str("topic", topic).Logger()

	id, ok := b.topics.EntityFromCommand(topic)
	if !ok {
		metrics.RecordMQTTMessage("command", ErrInvalidTopic)
		log.Warn().Msg("Ignoring command on malformed topic")
		return
	}
	value, err := ParseCommand(payload)
	if err != nil {
		metrics.RecordMQTTMessage("command", err)
		log.Warn().Err(err).Str("entity", id).Msg("Ignoring command")
		return
	}

	ctx, cancel := context.WithTimeout(logging.ContextWithNewCorrelationID(b.baseCtx), b.writeTimeout)
	defer cancel()

	accepted, err := b.registry.Write(ctx, id, value)
	metrics.RecordMQTTMessage("command", err)
	switch {
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Str("entity", id).Interface("value", value).Msg("Command failed")
	case !accepted:
		logging.Ctx(ctx).Warn().Str("entity", id).Interface("value", value).Msg("Command rejected by device")
	default:
		logging.Ctx(ctx).Debug().Str("entity", id).Interface("value", value).Msg("Command applied")
	}
}

// ParseCommand decodes a command payload. JSON scalars keep their type;
// anything else is taken as a plain string, so both `"Eco"` and `Eco`
// select the same option.
func ParseCommand(payload []byte) (any, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ErrEmptyCommand
	}
	var v any
	if err := json.Unmarshal(payload, &v); err == nil {
		switch v.(type) {
		case float64, bool, string:
			return v, nil
		}
	}
	return string(payload), nil
}

// EventSource is the bus the bridge consumes. *events.Bus satisfies it.
type EventSource interface {
	Consume(ctx context.Context, name string, handler events.Handler, topics ...string) error
}

// Service runs the bridge under the supervisor: it connects, starts the
// bridge and consumes bus events until ctx is done.
type Service struct {
	cfg      config.MQTTConfig
	registry Registry
	bus      EventSource
	connect  func(config.MQTTConfig) (Conn, error)
}

// NewService creates the bridge service.
func NewService(cfg config.MQTTConfig, registry Registry, bus EventSource) *Service {
	return &Service{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		connect: func(cfg config.MQTTConfig) (Conn, error) {
			return Connect(cfg)
		},
	}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	conn, err := s.connect(s.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	bridge := NewBridge(conn, Topics{Prefix: s.cfg.TopicPrefix}, s.registry)
	if err := bridge.Start(ctx); err != nil {
		return err
	}
	defer bridge.Wait()

	logging.Info().Str("broker", s.cfg.Broker).Str("prefix", s.cfg.TopicPrefix).Msg("MQTT bridge started")
	return s.bus.Consume(ctx, "mqtt-bridge", bridge.HandleEvent, events.TopicEntityState, events.TopicRefresh)
}

func (s *Service) String() string { return "mqtt-bridge" }
