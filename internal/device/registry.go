package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device lookup with caching and thread safety.
// It wraps a Repository and adds an in-memory cache keyed by room,
// because the intake and dispatch paths resolve devices per room on
// every tick and must not hit the database.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device  // device ID -> device
	byRoom  map[string][]string // room ID -> device IDs
	primed  bool                // full refresh done; absent room means no devices
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		byRoom: make(map[string][]string),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	r.byRoom = make(map[string][]string)
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
		r.byRoom[d.RoomID] = append(r.byRoom[d.RoomID], d.ID)
	}
	r.primed = true

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = d.DeepCopy()
	r.byRoom[d.RoomID] = append(r.byRoom[d.RoomID], d.ID)
	r.cacheMu.Unlock()

	return d, nil
}

// DevicesForRoom returns all active devices in a room.
// The returned devices are deep copies.
func (r *Registry) DevicesForRoom(ctx context.Context, roomID string) ([]Device, error) {
	r.cacheMu.RLock()
	ids, ok := r.byRoom[roomID]
	// After a full refresh an absent entry means the room has no
	// devices; falling through would query the database every tick.
	if ok || r.primed {
		devices := make([]Device, 0, len(ids))
		for _, id := range ids {
			d := r.cache[id]
			if d != nil && d.IsActive {
				devices = append(devices, *d.DeepCopy())
			}
		}
		r.cacheMu.RUnlock()
		return devices, nil
	}
	r.cacheMu.RUnlock()

	all, err := r.repo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(all))
	for _, d := range all {
		if d.IsActive {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// SensorsForRoom returns the active sensor devices in a room.
func (r *Registry) SensorsForRoom(ctx context.Context, roomID string) ([]Device, error) {
	all, err := r.DevicesForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	sensors := make([]Device, 0, len(all))
	for _, d := range all {
		if d.Type.IsSensor() {
			sensors = append(sensors, d)
		}
	}
	return sensors, nil
}

// ActuatorsForRoom returns the active actuator devices in a room.
func (r *Registry) ActuatorsForRoom(ctx context.Context, roomID string) ([]Device, error) {
	all, err := r.DevicesForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	actuators := make([]Device, 0, len(all))
	for _, d := range all {
		if d.Type.IsActuator() {
			actuators = append(actuators, d)
		}
	}
	return actuators, nil
}

// CreateDevice validates and persists a new device, then caches it.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.byRoom[d.RoomID] = append(r.byRoom[d.RoomID], d.ID)
	r.cacheMu.Unlock()

	r.logger.Info("device created", "device_id", d.ID, "room_id", d.RoomID, "type", d.Type)
	return nil
}

// UpdateDevice persists changes to a device, then re-caches it.
// A room move re-indexes the device under its new room.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	if err := r.repo.Update(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if prev, ok := r.cache[d.ID]; ok && prev.RoomID != d.RoomID {
		r.byRoom[prev.RoomID] = removeID(r.byRoom[prev.RoomID], d.ID)
		r.byRoom[d.RoomID] = append(r.byRoom[d.RoomID], d.ID)
	}
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	return nil
}

// DeleteDevice removes a device and evicts it from the cache.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if prev, ok := r.cache[id]; ok {
		r.byRoom[prev.RoomID] = removeID(r.byRoom[prev.RoomID], id)
	}
	delete(r.cache, id)
	r.cacheMu.Unlock()

	return nil
}

// DeviceCount returns the number of cached devices.
func (r *Registry) DeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
