package room

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	mu    sync.Mutex
	rooms map[string]*Room
	calls int
}

func newMockRepository(rooms ...*Room) *mockRepository {
	m := &mockRepository{rooms: make(map[string]*Room)}
	for _, rm := range rooms {
		m.rooms[rm.ID] = rm.DeepCopy()
	}
	return m
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	rm, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm.DeepCopy(), nil
}

func (m *mockRepository) List(_ context.Context) ([]Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]Room, 0, len(m.rooms))
	for _, rm := range m.rooms {
		out = append(out, *rm.DeepCopy())
	}
	return out, nil
}

func (m *mockRepository) ListActive(ctx context.Context) ([]Room, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Room
	for _, rm := range all {
		if rm.IsActive {
			out = append(out, rm)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, rm *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[rm.ID]; ok {
		return ErrRoomExists
	}
	m.rooms[rm.ID] = rm.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, rm *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[rm.ID]; !ok {
		return ErrRoomNotFound
	}
	m.rooms[rm.ID] = rm.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return ErrRoomNotFound
	}
	delete(m.rooms, id)
	return nil
}

func TestRegistryRefreshAndGet(t *testing.T) {
	rm := validRoom()
	reg := NewRegistry(newMockRepository(rm))
	ctx := context.Background()

	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.RoomCount() != 1 {
		t.Errorf("RoomCount() = %d, want 1", reg.RoomCount())
	}

	got, err := reg.GetRoom(ctx, rm.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if got.Name != rm.Name {
		t.Errorf("Name = %q, want %q", got.Name, rm.Name)
	}

	// Mutating the returned room must not affect the cache
	got.Name = "mutated"
	again, err := reg.GetRoom(ctx, rm.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if again.Name != rm.Name {
		t.Error("cache was mutated through a returned copy")
	}
}

func TestRegistryActiveRooms(t *testing.T) {
	active := validRoom()
	inactive := validRoom()
	inactive.ID = "room-dry-1"
	inactive.IsActive = false

	reg := NewRegistry(newMockRepository(active, inactive))
	ctx := context.Background()
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	rooms, err := reg.ActiveRooms(ctx)
	if err != nil {
		t.Fatalf("ActiveRooms() error = %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != active.ID {
		t.Errorf("ActiveRooms() = %+v, want only %q", rooms, active.ID)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry(newMockRepository())
	_, err := reg.GetRoom(context.Background(), "ghost")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("GetRoom() error = %v, want ErrRoomNotFound", err)
	}
}

func TestRegistryCreateAssignsID(t *testing.T) {
	reg := NewRegistry(newMockRepository())
	ctx := context.Background()

	rm := validRoom()
	rm.ID = ""
	if err := reg.CreateRoom(ctx, rm); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if rm.ID == "" {
		t.Error("CreateRoom() did not assign an ID")
	}

	got, err := reg.GetRoom(ctx, rm.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if got.Name != rm.Name {
		t.Errorf("Name = %q, want %q", got.Name, rm.Name)
	}
}

func TestRegistryDeleteEvictsCache(t *testing.T) {
	rm := validRoom()
	reg := NewRegistry(newMockRepository(rm))
	ctx := context.Background()
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	if err := reg.DeleteRoom(ctx, rm.ID); err != nil {
		t.Fatalf("DeleteRoom() error = %v", err)
	}
	if _, err := reg.GetRoom(ctx, rm.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("GetRoom() after delete error = %v, want ErrRoomNotFound", err)
	}
}
