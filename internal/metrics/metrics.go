// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote API Metrics
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compit_remote_requests_total",
			Help: "Total number of requests sent to the Compit API",
		},
		[]string{"operation", "outcome"}, // outcome: ok, auth_error, transport_error, not_found, rejected
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compit_remote_request_duration_seconds",
			Help:    "Duration of Compit API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	RemoteRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compit_remote_rate_limited_total",
			Help: "Total number of 429 responses from the Compit API",
		},
	)

	Authentications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compit_authentications_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"}, // success, failure
	)

	// Coordinator Metrics
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compit_refresh_duration_seconds",
			Help:    "Duration of coordinator refresh cycles in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compit_refresh_total",
			Help: "Total number of coordinator refresh cycles",
		},
		[]string{"result"}, // success, partial, failure
	)

	RefreshCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compit_refresh_coalesced_total",
			Help: "Refresh requests served by an already scheduled or in-flight refresh",
		},
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compit_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last fully successful refresh",
		},
	)

	CoordinatorState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compit_coordinator_state",
			Help: "Coordinator state (0=uninitialized, 1=ready, 2=degraded)",
		},
	)

	CachedDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compit_cached_devices",
			Help: "Number of devices with a cached state snapshot",
		},
	)

	DeviceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compit_device_fetch_errors_total",
			Help: "Total number of failed per-device state fetches",
		},
		[]string{"device_id"},
	)

	// Entity Metrics
	EntitiesProjected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "compit_entities",
			Help: "Number of projected entities by platform",
		},
		[]string{"platform"},
	)

	EntityWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compit_entity_writes_total",
			Help: "Total number of entity writes by outcome",
		},
		[]string{"platform", "result"}, // accepted, rejected, error
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Messages dropped because the hub or a client buffer was full",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compit_events_published_total",
			Help: "Total number of events published on the in-process bus",
		},
		[]string{"topic", "result"},
	)

	// MQTT Bridge Metrics
	MQTTMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compit_mqtt_messages_total",
			Help: "Total number of MQTT messages handled by the bridge",
		},
		[]string{"direction", "result"}, // direction: publish, command
	)

	MQTTConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "compit_mqtt_connected",
			Help: "Whether the MQTT bridge is connected (1) or not (0)",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordRemoteRequest records one Compit API call.
func RecordRemoteRequest(operation, outcome string, duration time.Duration) {
	RemoteRequestsTotal.WithLabelValues(operation, outcome).Inc()
	RemoteRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAuthentication records an authentication attempt.
func RecordAuthentication(success bool) {
	if success {
		Authentications.WithLabelValues("success").Inc()
		return
	}
	Authentications.WithLabelValues("failure").Inc()
}

// RecordRefresh records a completed refresh cycle. failedDevices > 0 with a
// nil err marks a partial refresh.
func RecordRefresh(duration time.Duration, cachedDevices, failedDevices int, err error) {
	RefreshDuration.Observe(duration.Seconds())
	CachedDevices.Set(float64(cachedDevices))

	switch {
	case err != nil:
		RefreshTotal.WithLabelValues("failure").Inc()
	case failedDevices > 0:
		RefreshTotal.WithLabelValues("partial").Inc()
	default:
		RefreshTotal.WithLabelValues("success").Inc()
		RefreshLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordDeviceFetchError records a failed per-device state fetch.
func RecordDeviceFetchError(deviceID int) {
	DeviceFetchErrors.WithLabelValues(strconv.Itoa(deviceID)).Inc()
}

// SetCoordinatorState publishes the coordinator state gauge.
func SetCoordinatorState(state float64) {
	CoordinatorState.Set(state)
}

// RecordEntityWrite records the outcome of an entity write.
func RecordEntityWrite(platform, result string) {
	EntityWrites.WithLabelValues(platform, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMQTTMessage records a bridged MQTT message.
func RecordMQTTMessage(direction string, err error) {
	if err != nil {
		MQTTMessages.WithLabelValues(direction, "error").Inc()
		return
	}
	MQTTMessages.WithLabelValues(direction, "ok").Inc()
}

// RecordEventPublish records a publish on the event bus.
func RecordEventPublish(topic string, err error) {
	if err != nil {
		EventsPublished.WithLabelValues(topic, "error").Inc()
		return
	}
	EventsPublished.WithLabelValues(topic, "ok").Inc()
}
