package control

import (
	"sync"
	"time"
)

// controllerKey identifies one Controller.
type controllerKey struct {
	roomID string
	domain Domain
}

// ControllerStore owns every Controller record and enforces the
// single-writer-per-key discipline: all mutation happens under the
// store lock, so two loops touching the same room can never race on a
// counter.
//
// Controllers are created lazily on first access and never deleted.
type ControllerStore struct {
	mu          sync.Mutex
	controllers map[controllerKey]*Controller
	now         func() time.Time
	loc         *time.Location
}

// NewControllerStore creates an empty store. The location decides when
// a local day rolls over for the watering counter.
func NewControllerStore(loc *time.Location) *ControllerStore {
	if loc == nil {
		loc = time.Local
	}
	return &ControllerStore{
		controllers: make(map[controllerKey]*Controller),
		now:         time.Now,
		loc:         loc,
	}
}

// SetClock injects a time source for tests.
func (s *ControllerStore) SetClock(now func() time.Time) {
	s.now = now
}

// get returns the controller for the key, creating it if needed.
// Callers must hold s.mu.
func (s *ControllerStore) get(roomID string, domain Domain) *Controller {
	key := controllerKey{roomID: roomID, domain: domain}
	c, ok := s.controllers[key]
	if !ok {
		c = &Controller{
			RoomID:    roomID,
			Domain:    domain,
			StartedAt: s.now(),
		}
		s.controllers[key] = c
	}
	return c
}

// RecordSuccess increments the action counter and stamps the action time.
func (s *ControllerStore) RecordSuccess(roomID string, domain Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.get(roomID, domain)
	c.TotalActions++
	c.LastActionTime = s.now()
}

// RecordError increments the error counter.
func (s *ControllerStore) RecordError(roomID string, domain Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(roomID, domain).ErrorCount++
}

// AddEnergy accumulates an actuator energy estimate (Wh).
func (s *ControllerStore) AddEnergy(roomID string, domain Domain, wh float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(roomID, domain).EnergyConsumed += wh
}

// DailyWateringCount returns the watering count for the current local
// day, resetting it first if the date has rolled over since the last
// watering.
func (s *ControllerStore) DailyWateringCount(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.get(roomID, DomainWatering)
	s.rolloverLocked(c)
	return c.DailyWateringCount
}

// IncrementWatering bumps the daily watering counter and returns the
// new value.
func (s *ControllerStore) IncrementWatering(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.get(roomID, DomainWatering)
	s.rolloverLocked(c)
	c.DailyWateringCount++
	return c.DailyWateringCount
}

// rolloverLocked resets the daily counter when the site-local date has
// changed. Callers must hold s.mu.
func (s *ControllerStore) rolloverLocked(c *Controller) {
	today := s.now().In(s.loc).Format("2006-01-02")
	if c.lastWateringDay != today {
		c.lastWateringDay = today
		c.DailyWateringCount = 0
	}
}

// Snapshot returns a read-only copy of one controller.
func (s *ControllerStore) Snapshot(roomID string, domain Domain) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.get(roomID, domain))
}

func (s *ControllerStore) snapshotLocked(c *Controller) Snapshot {
	return Snapshot{
		RoomID:             c.RoomID,
		Domain:             c.Domain,
		TotalActions:       c.TotalActions,
		ErrorCount:         c.ErrorCount,
		LastActionTime:     c.LastActionTime,
		DailyWateringCount: c.DailyWateringCount,
		EnergyConsumed:     c.EnergyConsumed,
		StartedAt:          c.StartedAt,
		Uptime:             s.now().Sub(c.StartedAt),
	}
}

// Snapshots returns read-only copies of every controller.
func (s *ControllerStore) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.controllers))
	for _, c := range s.controllers {
		out = append(out, s.snapshotLocked(c))
	}
	return out
}

// Performance aggregates a room's controllers across domains.
func (s *ControllerStore) Performance(roomID string) PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	pm := PerformanceMetrics{
		RoomID:  roomID,
		Domains: make(map[Domain]Snapshot),
	}
	for key, c := range s.controllers {
		if key.roomID != roomID {
			continue
		}
		snap := s.snapshotLocked(c)
		pm.Domains[key.domain] = snap
		pm.TotalActions += snap.TotalActions
		pm.ErrorCount += snap.ErrorCount
	}
	return pm
}

// Restore seeds a controller from persisted state. Used at startup so
// counters survive a restart.
func (s *ControllerStore) Restore(snap Snapshot, wateringDay string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := controllerKey{roomID: snap.RoomID, domain: snap.Domain}
	started := snap.StartedAt
	if started.IsZero() {
		started = s.now()
	}
	s.controllers[key] = &Controller{
		RoomID:             snap.RoomID,
		Domain:             snap.Domain,
		TotalActions:       snap.TotalActions,
		ErrorCount:         snap.ErrorCount,
		LastActionTime:     snap.LastActionTime,
		DailyWateringCount: snap.DailyWateringCount,
		lastWateringDay:    wateringDay,
		EnergyConsumed:     snap.EnergyConsumed,
		StartedAt:          started,
	}
}

// WateringDay returns the local date string of the controller's last
// watering, for persistence.
func (s *ControllerStore) WateringDay(roomID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(roomID, DomainWatering).lastWateringDay
}
