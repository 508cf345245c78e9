package room

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

// Registry provides room configuration with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations. The control loops read room
// configuration on every tick, so lookups must not hit the database.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Room
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new room registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Room),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all rooms from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	rooms, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading rooms: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Room, len(rooms))
	for i := range rooms {
		rm := rooms[i]
		r.cache[rm.ID] = rm.DeepCopy()
	}

	r.logger.Info("room cache refreshed", "count", len(rooms))
	return nil
}

// GetRoom retrieves a room by ID.
// Returns ErrRoomNotFound if the room does not exist.
// The returned room is a deep copy; callers can safely modify it.
func (r *Registry) GetRoom(ctx context.Context, id string) (*Room, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new room not yet cached)
	rm, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = rm.DeepCopy()
	r.cacheMu.Unlock()

	return rm, nil
}

// ActiveRooms retrieves all active rooms.
// The returned rooms are deep copies; callers can safely modify them.
func (r *Registry) ActiveRooms(ctx context.Context) ([]Room, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		rooms := make([]Room, 0, len(r.cache))
		for _, rm := range r.cache {
			if rm.IsActive {
				rooms = append(rooms, *rm.DeepCopy())
			}
		}
		return rooms, nil
	}

	return r.repo.ListActive(ctx)
}

// ListRooms retrieves all rooms, active or not.
func (r *Registry) ListRooms(ctx context.Context) ([]Room, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		rooms := make([]Room, 0, len(r.cache))
		for _, rm := range r.cache {
			rooms = append(rooms, *rm.DeepCopy())
		}
		return rooms, nil
	}

	return r.repo.List(ctx)
}

// CreateRoom validates and persists a new room, then caches it.
func (r *Registry) CreateRoom(ctx context.Context, rm *Room) error {
	if rm.ID == "" {
		rm.ID = GenerateID()
	}
	if err := r.repo.Create(ctx, rm); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rm.ID] = rm.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("room created", "room_id", rm.ID, "name", rm.Name)
	return nil
}

// UpdateRoom validates and persists changes to a room, then re-caches it.
func (r *Registry) UpdateRoom(ctx context.Context, rm *Room) error {
	if err := r.repo.Update(ctx, rm); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rm.ID] = rm.DeepCopy()
	r.cacheMu.Unlock()

	return nil
}

// DeleteRoom removes a room and evicts it from the cache.
func (r *Registry) DeleteRoom(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	return nil
}

// RoomCount returns the number of cached rooms.
func (r *Registry) RoomCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
