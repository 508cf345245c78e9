package sensor

import (
	"sync"
	"time"
)

// HistoryStore keeps a bounded FIFO of readings per room plus a merged
// current-state view. The control loops read CurrentState on every tick,
// so it is maintained incrementally rather than derived on demand.
//
// Anomalous readings are appended to history but never merged into the
// current state.
//
// All methods are thread-safe.
type HistoryStore struct {
	limit   int
	mu      sync.RWMutex
	byRoom  map[string][]Reading
	current map[string]*CurrentState
}

// CurrentState is the latest known value of each metric in a room,
// merged across the room's sensors.
type CurrentState struct {
	RoomID    string
	Metrics   map[string]float64
	UpdatedAt time.Time
}

// DeepCopy creates an independent copy of the state.
func (c *CurrentState) DeepCopy() *CurrentState {
	if c == nil {
		return nil
	}
	cpy := *c
	cpy.Metrics = make(map[string]float64, len(c.Metrics))
	for k, v := range c.Metrics {
		cpy.Metrics[k] = v
	}
	return &cpy
}

// NewHistoryStore creates a store that keeps at most limit readings
// per room.
func NewHistoryStore(limit int) *HistoryStore {
	if limit < 1 {
		limit = 1
	}
	return &HistoryStore{
		limit:   limit,
		byRoom:  make(map[string][]Reading),
		current: make(map[string]*CurrentState),
	}
}

// Append records a reading, trims the room's history to the limit and
// merges non-anomalous metrics into the current state.
func (h *HistoryStore) Append(r *Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()

	readings := append(h.byRoom[r.RoomID], *r.DeepCopy())
	if len(readings) > h.limit {
		readings = readings[len(readings)-h.limit:]
	}
	h.byRoom[r.RoomID] = readings

	if r.IsAnomaly {
		return
	}

	state, ok := h.current[r.RoomID]
	if !ok {
		state = &CurrentState{RoomID: r.RoomID, Metrics: make(map[string]float64)}
		h.current[r.RoomID] = state
	}
	for metric, value := range r.Metrics {
		state.Metrics[metric] = value
	}
	state.UpdatedAt = r.Timestamp
}

// Current returns the merged current state for a room.
// Returns ErrNoReading if no reading has been accepted for the room.
func (h *HistoryStore) Current(roomID string) (*CurrentState, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	state, ok := h.current[roomID]
	if !ok {
		return nil, ErrNoReading
	}
	return state.DeepCopy(), nil
}

// History returns up to limit most recent readings for a room, newest
// last. A limit of 0 or less returns the full retained history.
func (h *HistoryStore) History(roomID string, limit int) []Reading {
	h.mu.RLock()
	defer h.mu.RUnlock()

	readings := h.byRoom[roomID]
	if limit > 0 && len(readings) > limit {
		readings = readings[len(readings)-limit:]
	}

	out := make([]Reading, len(readings))
	for i := range readings {
		out[i] = *readings[i].DeepCopy()
	}
	return out
}

// Len returns the number of retained readings for a room.
func (h *HistoryStore) Len(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byRoom[roomID])
}
