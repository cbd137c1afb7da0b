// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Topics.
const (
	TopicEntityState = "compit.entity_state"
	TopicRefresh     = "compit.refresh"
)

// Envelope types, as seen by WebSocket clients.
const (
	TypeEntityState = "entity_state"
	TypeRefresh     = "refresh"
)

// Metadata keys set on every message.
const (
	MetadataType          = "type"
	MetadataCorrelationID = "correlation_id"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus is closed")

// Envelope is the payload of every bus message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Config configures the bus.
type Config struct {
	// OutputBuffer is the per-subscriber channel buffer.
	OutputBuffer int64
}

// DefaultConfig returns the default bus configuration.
func DefaultConfig() Config {
	return Config{OutputBuffer: 256}
}

// Bus is the in-process event bus. It implements entity.Publisher.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus backed by a watermill GoChannel.
func NewBus(cfg Config) *Bus {
	if cfg.OutputBuffer <= 0 {
		cfg.OutputBuffer = DefaultConfig().OutputBuffer
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.OutputBuffer,
		}, logger),
	}
}

// PublishEntityState publishes an entity's current state.
func (b *Bus) PublishEntityState(ctx context.Context, st models.EntityState) error {
	return b.publish(ctx, TopicEntityState, TypeEntityState, st)
}

// PublishRefresh publishes a refresh summary.
func (b *Bus) PublishRefresh(ctx context.Context, ev models.RefreshEvent) error {
	return b.publish(ctx, TopicRefresh, TypeRefresh, ev)
}

func (b *Bus) publish(ctx context.Context, topic, typ string, data any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", typ, err)
	}
	payload, err := json.Marshal(Envelope{Type: typ, Data: raw})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", typ, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataType, typ)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	err = b.pubsub.Publish(topic, msg)
	metrics.RecordEventPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns the messages published on topic until ctx is done.
// Every message must be acked.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close stops delivery to every subscriber.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// Decode parses a bus message into its envelope.
func Decode(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode message %s: %w", msg.UUID, err)
	}
	return env, nil
}

// Handler processes one decoded envelope. The raw payload is passed along
// for consumers that forward it unchanged.
type Handler func(ctx context.Context, env Envelope, payload []byte) error

// Consume subscribes to every topic and feeds the messages to handler until
// ctx is done. Messages are acked whether or not handler succeeds; a
// failure is logged and the message dropped.
func (b *Bus) Consume(ctx context.Context, name string, handler Handler, topics ...string) error {
	merged := make(chan *message.Message)
	var wg sync.WaitGroup
	for _, topic := range topics {
		msgs, err := b.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s to %s: %w", name, topic, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range msgs {
				select {
				case merged <- msg:
				case <-ctx.Done():
					msg.Nack()
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	log := logging.WithComponent(name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-merged:
			if !ok {
				return nil
			}
			env, err := Decode(msg)
			if err == nil {
				mctx := logging.ContextWithCorrelationID(msg.Context(), msg.Metadata.Get(MetadataCorrelationID))
				err = handler(mctx, env, msg.Payload)
			}
			if err != nil {
				log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to handle event")
			}
			msg.Ack()
		}
	}
}
