// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
	"github.com/tomtom215/compit-bridge/internal/models"
)

var (
	// ErrInvalidValue is wrapped when a written value cannot be converted
	// for the entity's platform or falls outside its bounds.
	ErrInvalidValue = errors.New("invalid value")

	// ErrNotWritable is returned when writing to a read-only entity.
	ErrNotWritable = errors.New("entity is read-only")
)

// Source is the read side of the coordinator used for projection.
type Source interface {
	Gates() []models.Gate
	Definition(device models.Device) (*models.DeviceDefinition, bool)
	DeviceState(deviceID int) (*models.DeviceState, bool)
}

// Backend is everything an adapter needs from the coordinator.
// *coordinator.Coordinator satisfies it.
type Backend interface {
	Source
	CurrentValue(deviceID int, code string) (*models.ParameterValue, error)
	Client() coordinator.API
	RequestRefresh()
	LastStartedSeq() uint64
}

// Entity is the narrow contract a host consumes.
type Entity interface {
	UniqueID() string
	Name() string
	Platform() models.Platform
	Value() any
	Unit() string
	Attributes() map[string]any
	State() models.EntityState

	// Sync reconciles the local value with the coordinator cache after a
	// refresh and reports whether it changed.
	Sync(snap coordinator.Snapshot) bool

	// OnChange registers fn to receive the new state after a local change.
	OnChange(fn func(models.EntityState))
}

// Writable is an Entity that accepts values. Write returns (false, nil)
// when the remote service declines the value.
type Writable interface {
	Entity
	Write(ctx context.Context, value any) (bool, error)
}

// UniqueID derives the stable identifier of a (device, parameter) pair on a
// platform: platform prefix, slugged device label and parameter code.
func UniqueID(platform models.Platform, device models.Device, code string) string {
	return string(platform) + "_" + slug(device.Label) + "_" + code
}

func slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "device"
	}
	return b.String()
}

// base carries what every adapter shares: identity, the locally cached
// value and the write-through path.
type base struct {
	backend  Backend
	ctx      models.EntityContext
	platform models.Platform
	uniqueID string
	name     string

	mu        sync.RWMutex
	value     any
	updatedAt time.Time
	// writeSeq is the last started refresh when a write was accepted.
	// Snapshots at or below it may predate the write.
	writeSeq  uint64
	observers []func(models.EntityState)
}

func (b *base) init(backend Backend, ectx models.EntityContext, platform models.Platform) {
	b.backend = backend
	b.ctx = ectx
	b.platform = platform
	b.uniqueID = UniqueID(platform, ectx.Device, ectx.Parameter.Code)
	b.name = ectx.Device.Label + " " + ectx.Parameter.Label
	b.updatedAt = time.Now()
}

func (b *base) UniqueID() string          { return b.uniqueID }
func (b *base) Name() string              { return b.name }
func (b *base) Platform() models.Platform { return b.platform }
func (b *base) Unit() string              { return b.ctx.Parameter.Unit }

// Context returns the projection record the entity was built from.
func (b *base) Context() models.EntityContext { return b.ctx }

func (b *base) Value() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

func (b *base) Attributes() map[string]any {
	return map[string]any{
		"device":       b.ctx.Device.Label,
		"device_id":    b.ctx.Device.ID,
		"device_class": b.ctx.Device.Class,
		"device_type":  b.ctx.Device.Type,
		"model":        b.ctx.DeviceName,
	}
}

func (b *base) OnChange(fn func(models.EntityState)) {
	b.mu.Lock()
	b.observers = append(b.observers, fn)
	b.mu.Unlock()
}

// live returns the cached parameter value, or nil.
func (b *base) live() *models.ParameterValue {
	pv, err := b.backend.CurrentValue(b.ctx.Device.ID, b.ctx.Parameter.Code)
	if err != nil {
		return nil
	}
	return pv
}

// state fills the fields common to every platform.
func (b *base) state(writable bool) models.EntityState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return models.EntityState{
		UniqueID:   b.uniqueID,
		Name:       b.name,
		Platform:   b.platform,
		Value:      b.value,
		Unit:       b.ctx.Parameter.Unit,
		Writable:   writable,
		Attributes: b.Attributes(),
		UpdatedAt:  b.updatedAt,
	}
}

// sync applies the cached value read by decode unless snap may predate
// the last accepted write.
func (b *base) sync(snap coordinator.Snapshot, decode func(*models.ParameterValue) any) bool {
	b.mu.RLock()
	stale := snap.Seq <= b.writeSeq
	b.mu.RUnlock()
	if stale {
		return false
	}

	pv := b.live()
	if pv == nil {
		return false
	}
	next := decode(pv)

	b.mu.Lock()
	defer b.mu.Unlock()
	if equalValues(b.value, next) {
		return false
	}
	b.value = next
	b.updatedAt = snap.CompletedAt
	return true
}

// write sends remote to the API and, unless the service declines it,
// applies local optimistically, notifies observers and requests one
// reconciling refresh. Errors leave the local value untouched.
func (b *base) write(ctx context.Context, self Entity, remote, local any) (bool, error) {
	log := logging.Ctx(ctx).With().
		Str("entity", b.uniqueID).
		Int("device_id", b.ctx.Device.ID).
		Str("parameter", b.ctx.Parameter.Code).
		Logger()

	ok, err := b.backend.Client().UpdateParameter(ctx, b.ctx.Device.ID, b.ctx.Parameter.Code, remote)
	if err != nil {
		log.Error().Err(err).Msg("Write failed")
		metrics.RecordEntityWrite(string(b.platform), "error")
		return false, err
	}
	if !ok {
		log.Warn().Interface("value", remote).Msg("Write rejected")
		metrics.RecordEntityWrite(string(b.platform), "rejected")
		return false, nil
	}

	b.mu.Lock()
	b.value = local
	b.updatedAt = time.Now()
	b.writeSeq = b.backend.LastStartedSeq()
	observers := b.observers
	b.mu.Unlock()

	metrics.RecordEntityWrite(string(b.platform), "accepted")
	log.Info().Interface("value", remote).Msg("Write accepted")

	st := self.State()
	for _, fn := range observers {
		fn(st)
	}
	b.backend.RequestRefresh()
	return true, nil
}

func equalValues(a, b any) bool {
	switch a.(type) {
	case nil:
		return b == nil
	case float64, string, bool, int:
		return a == b
	default:
		return false
	}
}
