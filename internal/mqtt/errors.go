// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package mqtt

import "errors"

var (
	// ErrNotConnected is returned when the broker connection is down.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectionFailed wraps a failed initial connection.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a failed or timed-out publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps a failed or timed-out subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidTopic is returned for an empty topic or a command topic
	// that names no entity.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrEmptyCommand is returned for a command without a value.
	ErrEmptyCommand = errors.New("mqtt: empty command payload")
)
