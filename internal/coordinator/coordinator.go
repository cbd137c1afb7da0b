// Compit Bridge - Compit IoT Device Synchronization Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/compit-bridge

package coordinator

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/compit-bridge/internal/compit"
	"github.com/tomtom215/compit-bridge/internal/config"
	"github.com/tomtom215/compit-bridge/internal/models"
)

// ErrStopped is returned by refresh requests made after Stop.
var ErrStopped = errors.New("coordinator stopped")

// API is the subset of the Compit client the coordinator drives. Both
// *compit.Client and *compit.CircuitBreakerClient satisfy it.
type API interface {
	Authenticate(ctx context.Context, email, password string) (*compit.Credential, error)
	Credential() *compit.Credential
	FetchTopology(ctx context.Context) ([]models.Gate, error)
	FetchDeviceDefinitions(ctx context.Context) (*models.DeviceDefinitions, error)
	FetchParameterState(ctx context.Context, deviceID int) (*models.DeviceState, error)
	UpdateParameter(ctx context.Context, deviceID int, code string, value any) (bool, error)
}

// State is the coordinator's health.
type State int32

const (
	// StateUninitialized: no usable snapshot has been taken yet.
	StateUninitialized State = iota
	// StateReady: the last refresh succeeded for every device.
	StateReady
	// StateDegraded: the last refresh failed at least partly; cached data
	// from earlier refreshes is still served.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Snapshot describes one completed refresh and is handed to listeners.
type Snapshot struct {
	// Seq numbers refreshes in the order they started.
	Seq         uint64
	State       State
	Devices     int
	Failed      int
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
}

// Status is a point-in-time summary for health reporting.
type Status struct {
	State         State
	CachedDevices int
	Seq           uint64
	LastRefresh   time.Time
	LastSuccess   time.Time
	LastError     error
}

// Config configures a Coordinator.
type Config struct {
	Email    string
	Password string

	// ScanInterval is the period of scheduled refreshes.
	ScanInterval time.Duration

	// RefreshTimeout bounds one refresh cycle.
	RefreshTimeout time.Duration

	// ReauthWindow re-authenticates when the token expires within it.
	ReauthWindow time.Duration
}

// DefaultConfig returns production defaults without credentials.
func DefaultConfig() Config {
	return Config{
		ScanInterval:   time.Minute,
		RefreshTimeout: 2 * time.Minute,
		ReauthWindow:   time.Minute,
	}
}

// NewConfig builds a Config from the application configuration.
func NewConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Email = cfg.Compit.Email
	c.Password = cfg.Compit.Password
	if cfg.Coordinator.ScanInterval > 0 {
		c.ScanInterval = cfg.Coordinator.ScanInterval
	}
	if cfg.Coordinator.RefreshTimeout > 0 {
		c.RefreshTimeout = cfg.Coordinator.RefreshTimeout
	}
	return c
}

// Coordinator owns the device cache and definition catalog for one account
// and keeps them in sync with the Compit API.
//
// Cached device states are replaced whole, never mutated, so readers see
// either the previous or the next snapshot of a device.
type Coordinator struct {
	api API
	cfg Config

	mu          sync.RWMutex
	state       State
	gates       []models.Gate
	catalog     *models.Catalog
	cache       map[int]*models.DeviceState
	lastRefresh time.Time
	lastSuccess time.Time
	lastErr     error
	completed   uint64

	startedSeq atomic.Uint64
	needAuth   atomic.Bool

	listenersMu sync.RWMutex
	listeners   []func(Snapshot)

	// Refresh coalescing. At most one refresh runs; requests arriving while
	// it runs share a single follow-up refresh.
	refreshMu sync.Mutex
	inflight  *refreshCall
	pending   *refreshCall
	stopped   bool
	runWG     sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc

	// Polling loop
	loopMu   sync.Mutex
	running  bool
	stopChan chan struct{}
	loopWG   sync.WaitGroup
}

// New creates a coordinator. No request is made until the first refresh.
func New(api API, cfg Config) *Coordinator {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultConfig().ScanInterval
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultConfig().RefreshTimeout
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		api:        api,
		cfg:        cfg,
		cache:      make(map[int]*models.DeviceState),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

// Client returns the API client for write operations.
func (c *Coordinator) Client() API {
	return c.api
}

// State returns the current coordinator state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns a health summary.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		State:         c.state,
		CachedDevices: len(c.cache),
		Seq:           c.completed,
		LastRefresh:   c.lastRefresh,
		LastSuccess:   c.lastSuccess,
		LastError:     c.lastErr,
	}
}

// Gates returns the topology from the latest successful topology fetch.
// The slice is shared and must not be modified.
func (c *Coordinator) Gates() []models.Gate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gates
}

// Catalog returns the definition catalog, or nil before it is loaded.
func (c *Coordinator) Catalog() *models.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog
}

// Definition resolves the definition of a device.
func (c *Coordinator) Definition(device models.Device) (*models.DeviceDefinition, bool) {
	return c.Catalog().Resolve(device)
}

// DeviceState returns the cached snapshot of a device.
func (c *Coordinator) DeviceState(deviceID int) (*models.DeviceState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.cache[deviceID]
	return s, ok
}

// CurrentValue returns the cached value of one parameter. It fails with
// *compit.NotFoundError when the device or parameter is not cached.
func (c *Coordinator) CurrentValue(deviceID int, code string) (*models.ParameterValue, error) {
	state, ok := c.DeviceState(deviceID)
	if !ok {
		return nil, &compit.NotFoundError{Resource: "device", Key: strconv.Itoa(deviceID)}
	}
	pv, ok := state.Param(code)
	if !ok {
		return nil, &compit.NotFoundError{Resource: "parameter", Key: strconv.Itoa(deviceID) + "/" + code}
	}
	return pv, nil
}

// LastStartedSeq returns the sequence number of the most recently started
// refresh. A snapshot whose Seq is greater started afterwards.
func (c *Coordinator) LastStartedSeq() uint64 {
	return c.startedSeq.Load()
}

// AddListener registers fn to run after every refresh. Listeners run on
// the refresh goroutine, in registration order, and must not block.
func (c *Coordinator) AddListener(fn func(Snapshot)) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenersMu.Unlock()
}

func (c *Coordinator) notify(snap Snapshot) {
	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
