// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultOperationTimeout  = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	maxPayloadSize           = 256 * 1024
)

// MessageHandler processes one inbound message.
type MessageHandler func(topic string, payload []byte)

type subscription struct {
	topic   string
	handler MessageHandler
}

// Client wraps a paho client. It announces availability on the bridge
// status topic and restores subscriptions after a reconnect.
type Client struct {
	client pahomqtt.Client
	topics Topics
	qos    byte

	subMu         sync.RWMutex
	subscriptions map[string]subscription
}

// Connect dials the broker and waits for the first connection.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		topics:        Topics{Prefix: cfg.TopicPrefix},
		qos:           byte(cfg.QoS),
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg, c.topics)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func buildClientOptions(cfg config.MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	if cfg.ConnectRetryInterval > 0 {
		opts.SetConnectRetryInterval(cfg.ConnectRetryInterval)
	}
	if cfg.MaxReconnectInterval > 0 {
		opts.SetMaxReconnectInterval(cfg.MaxReconnectInterval)
	}
	if cfg.KeepAlive > 0 {
		opts.SetKeepAlive(cfg.KeepAlive)
	}

	// Handlers may call back into the registry; do not serialize them
	// behind each other.
	opts.SetOrderMatters(false)

	opts.SetWill(topics.BridgeStatus(), StatusOffline, byte(cfg.QoS), true)
	return opts
}

func (c *Client) handleConnect() {
	metrics.MQTTConnected.Set(1)
	logging.Info().Str("component", "mqtt").Msg("Connected to MQTT broker")

	c.subMu.RLock()
	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, c.qos, c.wrapHandler(sub.handler))
	}
	c.subMu.RUnlock()

	c.client.Publish(c.topics.BridgeStatus(), c.qos, true, StatusOnline)
}

func (c *Client) handleDisconnect(err error) {
	metrics.MQTTConnected.Set(0)
	logging.Warn().Str("component", "mqtt").Err(err).Msg("Lost connection to MQTT broker")
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnectionOpen()
}

// Publish sends payload at the configured QoS and waits for the broker.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, c.qos, retained, payload)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for topic; it is re-subscribed after every
// reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, handler: handler}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, c.qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultOperationTimeout) {
		c.forget(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		c.forget(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// Close announces the bridge offline and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(c.topics.BridgeStatus(), c.qos, true, StatusOffline)
		token.WaitTimeout(defaultOperationTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	metrics.MQTTConnected.Set(0)
	return nil
}

func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				logging.Error().
					Str("component", "mqtt").
					Str("topic", msg.Topic()).
					Interface("panic", r).
					Msg("MQTT handler panic recovered")
			}
		}()
		handler(msg.Topic(), msg.Payload())
	}
}
