// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package entity

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/coordinator"
	"github.com/tomtom215/compit-bridge/internal/logging"
	"github.com/tomtom215/compit-bridge/internal/metrics"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// Publisher receives entity changes and refresh summaries.
type Publisher interface {
	PublishEntityState(ctx context.Context, state models.EntityState) error
	PublishRefresh(ctx context.Context, ev models.RefreshEvent) error
}

// ListenerSource is a Backend that reports completed refreshes.
type ListenerSource interface {
	Backend
	AddListener(fn func(coordinator.Snapshot))
}

// factories builds each platform's adapters.
var factories = map[models.Platform]func(Backend, models.EntityContext) Entity{
	models.PlatformNumber: func(b Backend, c models.EntityContext) Entity { return NewNumber(b, c) },
	models.PlatformSwitch: func(b Backend, c models.EntityContext) Entity { return NewSwitch(b, c) },
	models.PlatformSelect: func(b Backend, c models.EntityContext) Entity { return NewSelect(b, c) },
	models.PlatformSensor: func(b Backend, c models.EntityContext) Entity { return NewSensor(b, c) },
}

// Registry is the host side of the adapter contract: it holds the entities
// of every platform, rebuilds them as the projection changes and publishes
// their changes.
type Registry struct {
	backend   Backend
	publisher Publisher

	mu       sync.RWMutex
	entities map[string]Entity
}

// NewRegistry creates an empty registry. publisher may be nil.
func NewRegistry(backend Backend, publisher Publisher) *Registry {
	return &Registry{
		backend:   backend,
		publisher: publisher,
		entities:  make(map[string]Entity),
	}
}

// Attach rebuilds the registry after every refresh of src.
func (r *Registry) Attach(src ListenerSource) {
	src.AddListener(r.HandleSnapshot)
}

// HandleSnapshot reconciles the entity set with a completed refresh.
func (r *Registry) HandleSnapshot(snap coordinator.Snapshot) {
	ctx := context.Background()
	changed := r.rebuild(snap)

	if r.publisher == nil {
		return
	}
	for _, st := range changed {
		if err := r.publisher.PublishEntityState(ctx, st); err != nil {
			logging.Warn().Err(err).Str("entity", st.UniqueID).Msg("Failed to publish entity state")
		}
	}
	ev := models.RefreshEvent{
		Seq:         snap.Seq,
		State:       snap.State.String(),
		Devices:     snap.Devices,
		Failed:      snap.Failed,
		CompletedAt: snap.CompletedAt,
	}
	if snap.Err != nil {
		ev.Error = snap.Err.Error()
	}
	if err := r.publisher.PublishRefresh(ctx, ev); err != nil {
		logging.Warn().Err(err).Msg("Failed to publish refresh event")
	}
}

// rebuild re-projects all platforms. Entities that survive keep their
// object and local value; new ones are created; vanished ones dropped.
// It returns the states of entities that are new or changed.
func (r *Registry) rebuild(snap coordinator.Snapshot) []models.EntityState {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]Entity, len(r.entities))
	var changed []models.EntityState

	for _, platform := range models.Platforms {
		factory := factories[platform]
		count := 0
		for ectx := range ProjectEntities(r.backend, platform) {
			id := UniqueID(platform, ectx.Device, ectx.Parameter.Code)
			if _, dup := next[id]; dup {
				logging.Warn().Str("entity", id).Int("device_id", ectx.Device.ID).Msg("Duplicate entity ID, keeping the first")
				continue
			}
			count++

			if e, ok := r.entities[id]; ok {
				next[id] = e
				if e.Sync(snap) {
					changed = append(changed, e.State())
				}
				continue
			}

			e := factory(r.backend, ectx)
			e.OnChange(r.publishChange)
			next[id] = e
			changed = append(changed, e.State())
		}
		metrics.EntitiesProjected.WithLabelValues(string(platform)).Set(float64(count))
	}

	for id := range r.entities {
		if _, ok := next[id]; !ok {
			logging.Info().Str("entity", id).Msg("Entity no longer projected, removing")
		}
	}
	r.entities = next
	return changed
}

func (r *Registry) publishChange(st models.EntityState) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishEntityState(context.Background(), st); err != nil {
		logging.Warn().Err(err).Str("entity", st.UniqueID).Msg("Failed to publish entity state")
	}
}

// Get returns an entity by unique ID.
func (r *Registry) Get(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	return e, ok
}

// List returns entity states sorted by unique ID, filtered to platform
// unless it is PlatformNone.
func (r *Registry) List(platform models.Platform) []models.EntityState {
	r.mu.RLock()
	list := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		if platform == models.PlatformNone || e.Platform() == platform {
			list = append(list, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].UniqueID() < list[j].UniqueID()
	})
	out := make([]models.EntityState, len(list))
	for i, e := range list {
		out[i] = e.State()
	}
	return out
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Write sends value to a writable entity. It fails with
// *compit.NotFoundError for unknown IDs and ErrNotWritable for sensors.
func (r *Registry) Write(ctx context.Context, id string, value any) (bool, error) {
	e, ok := r.Get(id)
	if !ok {
		return false, &compit.NotFoundError{Resource: "entity", Key: id}
	}
	w, ok := e.(Writable)
	if !ok {
		return false, ErrNotWritable
	}
	return w.Write(ctx, value)
}
