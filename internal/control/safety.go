package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canopylabs/canopy-core/internal/sensor"
)

// Hard safety thresholds. These are absolute plant and equipment
// limits, independent of any room's configured targets.
const (
	tempCriticalC   = 40.0
	tempWarningC    = 35.0
	humidityHighPct = 90.0
	humidityLowPct  = 20.0
)

// Health-check limits for the monitoring loop.
const (
	stalledControllerAfter = 30 * time.Minute
	errorCountWarning      = 10
)

// SafetyLevel grades a safety evaluation.
type SafetyLevel string

const (
	SafetyNormal   SafetyLevel = "normal"
	SafetyWarning  SafetyLevel = "warning"
	SafetyCritical SafetyLevel = "critical"
)

// SafetyIssue is the outcome of one room evaluation.
type SafetyIssue struct {
	Level   SafetyLevel
	Problem string
	Detail  string
}

// EmergencyRepository persists emergency shutdown records.
type EmergencyRepository interface {
	Insert(ctx context.Context, rec *EmergencyShutdown) error
	ResolveForRoom(ctx context.Context, roomID string, at time.Time) (int, error)
	UnresolvedForRoom(ctx context.Context, roomID string) ([]EmergencyShutdown, error)
}

// SafetyWriter mirrors safety evaluations to a time-series store.
type SafetyWriter interface {
	WriteSafetyEvent(roomID, level, problem string)
}

// emergencyState is the per-room arm of the safety state machine.
type emergencyState struct {
	active      bool
	reason      string
	initiatedAt time.Time
}

// SafetySupervisor evaluates hard thresholds every monitoring tick and
// drives the per-room emergency state machine:
//
//	Normal → [critical breach] → EmergencyActive → [explicit resolve] → Normal
//
// EmergencyActive is re-entrant: resolving while the breach still
// holds re-enters on the next tick with a fresh shutdown record.
type SafetySupervisor struct {
	dispatcher *Dispatcher
	repo       EmergencyRepository
	notifier   Notifier
	writer     SafetyWriter
	logger     Logger

	mu     sync.Mutex
	states map[string]*emergencyState

	now func() time.Time
}

// SafetyOption configures optional supervisor collaborators.
type SafetyOption func(*SafetySupervisor)

// WithSafetyNotifier routes emergency notifications to an external sink.
func WithSafetyNotifier(n Notifier) SafetyOption {
	return func(s *SafetySupervisor) { s.notifier = n }
}

// WithSafetyWriter mirrors safety events to a time-series store.
func WithSafetyWriter(w SafetyWriter) SafetyOption {
	return func(s *SafetySupervisor) { s.writer = w }
}

// WithSafetyLogger sets the supervisor logger.
func WithSafetyLogger(l Logger) SafetyOption {
	return func(s *SafetySupervisor) { s.logger = l }
}

// WithSafetyClock injects a time source for tests.
func WithSafetyClock(now func() time.Time) SafetyOption {
	return func(s *SafetySupervisor) { s.now = now }
}

// NewSafetySupervisor creates a SafetySupervisor.
func NewSafetySupervisor(dispatcher *Dispatcher, repo EmergencyRepository, opts ...SafetyOption) *SafetySupervisor {
	s := &SafetySupervisor{
		dispatcher: dispatcher,
		repo:       repo,
		logger:     noopLogger{},
		states:     make(map[string]*emergencyState),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore seeds the emergency state machine from persisted unresolved
// shutdown records, so an active emergency survives a process restart.
// Without it a restarted supervisor would treat a breached room as
// normal, let routine domains resume and insert a duplicate record on
// the next monitoring tick.
func (s *SafetySupervisor) Restore(ctx context.Context, roomIDs []string) error {
	for _, roomID := range roomIDs {
		records, err := s.repo.UnresolvedForRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("loading unresolved emergencies for room %s: %w", roomID, err)
		}
		if len(records) == 0 {
			continue
		}

		rec := records[0]
		s.mu.Lock()
		s.states[roomID] = &emergencyState{
			active:      true,
			reason:      rec.Reason,
			initiatedAt: rec.Timestamp,
		}
		s.mu.Unlock()

		s.logger.Warn("emergency state restored",
			"room_id", roomID, "reason", rec.Reason,
			"initiated_at", rec.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// Evaluate grades a room's cached metrics against the hard limits.
// Pure; the state machine is driven by CheckRoom.
func Evaluate(metrics map[string]float64) SafetyIssue {
	if temp, ok := metrics[sensor.MetricTemperature]; ok {
		if temp > tempCriticalC {
			return SafetyIssue{
				Level:   SafetyCritical,
				Problem: "high_temperature",
				Detail:  fmt.Sprintf("temperature %.1f exceeds critical limit %.1f", temp, tempCriticalC),
			}
		}
		if temp > tempWarningC {
			return SafetyIssue{
				Level:   SafetyWarning,
				Problem: "high_temperature",
				Detail:  fmt.Sprintf("temperature %.1f exceeds warning limit %.1f", temp, tempWarningC),
			}
		}
	}

	if humidity, ok := metrics[sensor.MetricHumidity]; ok {
		if humidity > humidityHighPct {
			return SafetyIssue{
				Level:   SafetyWarning,
				Problem: "high_humidity",
				Detail:  fmt.Sprintf("humidity %.1f exceeds limit %.1f", humidity, humidityHighPct),
			}
		}
		if humidity < humidityLowPct {
			return SafetyIssue{
				Level:   SafetyWarning,
				Problem: "low_humidity",
				Detail:  fmt.Sprintf("humidity %.1f below limit %.1f", humidity, humidityLowPct),
			}
		}
	}

	return SafetyIssue{Level: SafetyNormal}
}

// CheckRoom runs one safety evaluation for a room and executes the
// resulting protocol through the dispatcher under the safety domain.
func (s *SafetySupervisor) CheckRoom(ctx context.Context, roomID string, metrics map[string]float64) SafetyIssue {
	issue := Evaluate(metrics)

	switch issue.Level {
	case SafetyCritical:
		s.handleCritical(ctx, roomID, issue)
	case SafetyWarning:
		s.handleWarning(ctx, roomID, issue)
	}

	if s.writer != nil && issue.Level != SafetyNormal {
		s.writer.WriteSafetyEvent(roomID, string(issue.Level), issue.Problem)
	}
	return issue
}

// handleCritical enters the emergency state and broadcasts the
// shutdown. A room already in emergency gets no second record; the
// breach is known and standing.
func (s *SafetySupervisor) handleCritical(ctx context.Context, roomID string, issue SafetyIssue) {
	s.mu.Lock()
	state, ok := s.states[roomID]
	if !ok {
		state = &emergencyState{}
		s.states[roomID] = state
	}
	if state.active {
		s.mu.Unlock()
		return
	}
	now := s.now()
	state.active = true
	state.reason = issue.Detail
	state.initiatedAt = now
	s.mu.Unlock()

	rec := &EmergencyShutdown{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Reason:    issue.Detail,
		Timestamp: now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		s.logger.Error("persisting emergency record failed", "room_id", roomID, "error", err)
	}

	s.logger.Error("emergency shutdown initiated", "room_id", roomID, "reason", issue.Detail)

	s.dispatcher.Dispatch(ctx, roomID, DomainSafety, []Action{{
		Type:     ActionEmergencyShutdown,
		Value:    1.0,
		Reason:   issue.Detail,
		Priority: 10,
	}})

	if s.notifier != nil {
		n := Notification{
			RoomID:    roomID,
			Domain:    DomainSafety,
			Type:      "emergency_shutdown",
			Message:   issue.Detail,
			Priority:  10,
			CreatedAt: now,
		}
		if err := s.notifier.PublishNotification(ctx, n); err != nil {
			s.logger.Warn("emergency notification failed", "room_id", roomID, "error", err)
		}
	}
}

// handleWarning executes the domain-specific safety protocol.
func (s *SafetySupervisor) handleWarning(ctx context.Context, roomID string, issue SafetyIssue) {
	var actions []Action
	switch issue.Problem {
	case "high_temperature":
		actions = []Action{
			{Type: ActionCooling, Value: 1.0, Reason: issue.Detail, Priority: 8},
			{Type: ActionCirculation, Value: 1.0, Reason: issue.Detail, Priority: 7},
			{Type: ActionLightingOff, Value: 0, Reason: issue.Detail, Priority: 7},
		}
	case "low_humidity":
		actions = []Action{
			{Type: ActionHumidification, Value: 1.0, Reason: issue.Detail, Priority: 7},
		}
	case "high_humidity":
		actions = []Action{
			{Type: ActionDehumidification, Value: 1.0, Reason: issue.Detail, Priority: 7},
			{Type: ActionCirculation, Value: 1.0, Reason: issue.Detail, Priority: 7},
		}
	}

	s.logger.Warn("safety protocol engaged", "room_id", roomID, "problem", issue.Problem)
	s.dispatcher.Dispatch(ctx, roomID, DomainSafety, actions)
}

// ResolveEmergency clears a room's emergency state and marks its
// unresolved records resolved. If the breach still holds, the next
// monitoring tick re-enters emergency with a new record.
func (s *SafetySupervisor) ResolveEmergency(ctx context.Context, roomID string) error {
	s.mu.Lock()
	state, ok := s.states[roomID]
	if !ok || !state.active {
		s.mu.Unlock()
		return ErrNoEmergency
	}
	state.active = false
	state.reason = ""
	s.mu.Unlock()

	resolved, err := s.repo.ResolveForRoom(ctx, roomID, s.now())
	if err != nil {
		return fmt.Errorf("resolving emergency records: %w", err)
	}

	s.logger.Info("emergency resolved", "room_id", roomID, "records", resolved)
	return nil
}

// EmergencyActive reports whether a room is in the emergency state.
func (s *SafetySupervisor) EmergencyActive(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[roomID]
	return ok && state.active
}

// HealthCheck flags stalled or error-heavy controllers. Observational
// only; no automatic remediation.
func (s *SafetySupervisor) HealthCheck() {
	now := s.now()
	for _, snap := range s.dispatcher.Store().Snapshots() {
		if snap.TotalActions > 0 && now.Sub(snap.LastActionTime) > stalledControllerAfter {
			s.logger.Warn("controller has produced no action recently",
				"room_id", snap.RoomID, "domain", snap.Domain,
				"last_action", snap.LastActionTime.Format(time.RFC3339))
		}
		if snap.ErrorCount > errorCountWarning {
			s.logger.Warn("controller error count elevated",
				"room_id", snap.RoomID, "domain", snap.Domain, "errors", snap.ErrorCount)
		}
	}
}
