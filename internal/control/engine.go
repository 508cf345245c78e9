package control

import (
	"context"
	"sync"
	"time"

	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// RoomLister provides the rooms eligible for control.
type RoomLister interface {
	ActiveRooms(ctx context.Context) ([]room.Room, error)
}

// StateSource provides the cached current metrics for a room. The
// sensor history store satisfies this.
type StateSource interface {
	Current(roomID string) (*sensor.CurrentState, error)
}

// Sampler runs one sensor intake tick.
type Sampler interface {
	Sample(ctx context.Context) error
}

// TankLevelReader reads the CO2 supply tank fill percentage.
type TankLevelReader interface {
	TankLevel(ctx context.Context, roomID string) (float64, error)
}

// Intervals holds the loop periods.
type Intervals struct {
	Intake     time.Duration
	Climate    time.Duration
	Watering   time.Duration
	Lighting   time.Duration
	CO2        time.Duration
	Monitoring time.Duration
}

// DefaultIntervals matches the standard loop schedule.
func DefaultIntervals() Intervals {
	return Intervals{
		Intake:     time.Second,
		Climate:    time.Minute,
		Watering:   5 * time.Minute,
		Lighting:   time.Minute,
		CO2:        2 * time.Minute,
		Monitoring: 30 * time.Second,
	}
}

// Engine owns the control loops: five independently timed domain loops
// plus the sensor intake loop. Each loop tick iterates the eligible
// rooms sequentially; loops never synchronise with each other, so a
// room's climate and watering ticks may interleave freely.
//
// Shutdown cancels the timers and lets in-flight ticks finish, so no
// actuator is abandoned mid-command.
type Engine struct {
	intervals Intervals
	loc       *time.Location

	rooms      RoomLister
	state      StateSource
	sampler    Sampler
	dispatcher *Dispatcher
	safety     *SafetySupervisor
	predictor  WateringPredictor
	tank       TankLevelReader
	metrics    MetricsRepository
	logger     Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	now func() time.Time
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithPredictor enables smart watering through the advisor.
func WithPredictor(p WateringPredictor) EngineOption {
	return func(e *Engine) { e.predictor = p }
}

// WithTankReader enables CO2 tank monitoring.
func WithTankReader(t TankLevelReader) EngineOption {
	return func(e *Engine) { e.tank = t }
}

// WithMetricsRepository persists controller counters across restarts.
func WithMetricsRepository(r MetricsRepository) EngineOption {
	return func(e *Engine) { e.metrics = r }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithEngineClock injects a time source for tests.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithIntervals overrides the loop periods.
func WithIntervals(i Intervals) EngineOption {
	return func(e *Engine) { e.intervals = i }
}

// NewEngine assembles the control engine.
func NewEngine(
	rooms RoomLister,
	state StateSource,
	sampler Sampler,
	dispatcher *Dispatcher,
	safety *SafetySupervisor,
	loc *time.Location,
	opts ...EngineOption,
) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{
		intervals:  DefaultIntervals(),
		loc:        loc,
		rooms:      rooms,
		state:      state,
		sampler:    sampler,
		dispatcher: dispatcher,
		safety:     safety,
		logger:     noopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Safety exposes the supervisor, e.g. for resolving emergencies.
func (e *Engine) Safety() *SafetySupervisor {
	return e.safety
}

// Performance aggregates a room's controllers across domains.
func (e *Engine) Performance(roomID string) PerformanceMetrics {
	return e.dispatcher.Store().Performance(roomID)
}

// Start restores persisted controller state and launches the loops.
// Returns ErrEngineRunning if already started.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrEngineRunning
	}
	e.running = true
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	if err := e.restoreControllers(ctx); err != nil {
		e.logger.Warn("controller state restore failed", "error", err)
	}
	if err := e.restoreEmergencies(ctx); err != nil {
		e.logger.Warn("emergency state restore failed", "error", err)
	}

	loops := []struct {
		name     string
		interval time.Duration
		tick     func(context.Context)
	}{
		{"intake", e.intervals.Intake, e.intakeTick},
		{"climate", e.intervals.Climate, e.climateTick},
		{"watering", e.intervals.Watering, e.wateringTick},
		{"lighting", e.intervals.Lighting, e.lightingTick},
		{"co2", e.intervals.CO2, e.co2Tick},
		{"monitoring", e.intervals.Monitoring, e.monitoringTick},
	}

	for _, loop := range loops {
		e.wg.Add(1)
		go e.run(loopCtx, loop.name, loop.interval, loop.tick)
	}

	e.logger.Info("control engine started",
		"climate_interval", e.intervals.Climate,
		"watering_interval", e.intervals.Watering,
		"lighting_interval", e.intervals.Lighting,
		"co2_interval", e.intervals.CO2,
		"monitoring_interval", e.intervals.Monitoring)
	return nil
}

// Stop cancels the loops and waits for in-flight ticks to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()

	e.persistControllers(context.Background())
	e.logger.Info("control engine stopped")
}

// run drives one loop until cancellation.
func (e *Engine) run(ctx context.Context, name string, interval time.Duration, tick func(context.Context)) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (e *Engine) intakeTick(ctx context.Context) {
	if err := e.sampler.Sample(ctx); err != nil {
		e.logger.Warn("intake tick failed", "error", err)
	}
}

// eligibleRooms returns the active rooms with master automation on,
// paired with their cached state. Rooms without a reading yet are
// skipped silently; rooms in emergency stand down for routine domains.
func (e *Engine) eligibleRooms(ctx context.Context, skipEmergency bool) []roomState {
	rooms, err := e.rooms.ActiveRooms(ctx)
	if err != nil {
		e.logger.Warn("listing rooms failed", "error", err)
		return nil
	}

	var out []roomState
	for _, rm := range rooms {
		if !rm.Automation.Enabled {
			continue
		}
		if skipEmergency && e.safety.EmergencyActive(rm.ID) {
			continue
		}
		state, err := e.state.Current(rm.ID)
		if err != nil {
			continue
		}
		out = append(out, roomState{room: rm, metrics: state.Metrics})
	}
	return out
}

type roomState struct {
	room    room.Room
	metrics map[string]float64
}

// ClimateTick runs one climate cycle across all eligible rooms.
// Exported alongside the other tick methods so a caller or test can
// drive cycles without real timers.
func (e *Engine) ClimateTick(ctx context.Context) { e.climateTick(ctx) }

// WateringTick runs one watering cycle.
func (e *Engine) WateringTick(ctx context.Context) { e.wateringTick(ctx) }

// LightingTick runs one lighting cycle.
func (e *Engine) LightingTick(ctx context.Context) { e.lightingTick(ctx) }

// CO2Tick runs one CO2 cycle.
func (e *Engine) CO2Tick(ctx context.Context) { e.co2Tick(ctx) }

// MonitoringTick runs one safety and health cycle.
func (e *Engine) MonitoringTick(ctx context.Context) { e.monitoringTick(ctx) }

func (e *Engine) climateTick(ctx context.Context) {
	for _, rs := range e.eligibleRooms(ctx, true) {
		if !rs.room.Automation.Climate.Enabled {
			continue
		}
		actions := ClimateActions(rs.room, rs.metrics)
		e.dispatcher.Dispatch(ctx, rs.room.ID, DomainClimate, actions)
	}
}

func (e *Engine) wateringTick(ctx context.Context) {
	store := e.dispatcher.Store()
	for _, rs := range e.eligibleRooms(ctx, true) {
		if !rs.room.Automation.Watering.Enabled {
			continue
		}
		dailyCount := store.DailyWateringCount(rs.room.ID)
		actions := WateringActions(ctx, rs.room, rs.metrics, dailyCount, e.predictor)
		e.dispatcher.Dispatch(ctx, rs.room.ID, DomainWatering, actions)
		for _, a := range actions {
			if a.Type == ActionWatering {
				store.IncrementWatering(rs.room.ID)
			}
		}
	}
}

func (e *Engine) lightingTick(ctx context.Context) {
	now := e.now().In(e.loc)
	for _, rs := range e.eligibleRooms(ctx, true) {
		if !rs.room.Automation.Lighting.Enabled {
			continue
		}
		actions := LightingActions(rs.room, rs.metrics, now)
		e.dispatcher.Dispatch(ctx, rs.room.ID, DomainLighting, actions)
	}
}

func (e *Engine) co2Tick(ctx context.Context) {
	now := e.now().In(e.loc)
	for _, rs := range e.eligibleRooms(ctx, true) {
		if !rs.room.Automation.CO2.Enabled {
			continue
		}
		tankLevel := -1.0
		if e.tank != nil && rs.room.Automation.CO2.TankMonitoring {
			if level, err := e.tank.TankLevel(ctx, rs.room.ID); err == nil {
				tankLevel = level
			}
		}
		actions := CO2Actions(rs.room, rs.metrics, tankLevel, now)
		e.dispatcher.Dispatch(ctx, rs.room.ID, DomainCO2, actions)
	}
}

func (e *Engine) monitoringTick(ctx context.Context) {
	for _, rs := range e.eligibleRooms(ctx, false) {
		e.safety.CheckRoom(ctx, rs.room.ID, rs.metrics)
	}
	e.safety.HealthCheck()
	e.persistControllers(ctx)
}

// restoreControllers seeds the store from persisted counters.
func (e *Engine) restoreControllers(ctx context.Context) error {
	if e.metrics == nil {
		return nil
	}
	persisted, err := e.metrics.LoadAll(ctx)
	if err != nil {
		return err
	}
	store := e.dispatcher.Store()
	for _, pc := range persisted {
		store.Restore(pc.Snapshot, pc.WateringDay)
	}
	if len(persisted) > 0 {
		e.logger.Info("controller state restored", "count", len(persisted))
	}
	return nil
}

// restoreEmergencies re-arms the safety state machine from persisted
// unresolved shutdown records, so rooms in emergency at the previous
// shutdown stay stood down after a restart.
func (e *Engine) restoreEmergencies(ctx context.Context) error {
	rooms, err := e.rooms.ActiveRooms(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(rooms))
	for _, rm := range rooms {
		ids = append(ids, rm.ID)
	}
	return e.safety.Restore(ctx, ids)
}

// persistControllers writes every controller snapshot.
func (e *Engine) persistControllers(ctx context.Context) {
	if e.metrics == nil {
		return
	}
	store := e.dispatcher.Store()
	for _, snap := range store.Snapshots() {
		day := ""
		if snap.Domain == DomainWatering {
			day = store.WateringDay(snap.RoomID)
		}
		if err := e.metrics.Upsert(ctx, snap, day); err != nil {
			e.logger.Warn("persisting controller metrics failed",
				"room_id", snap.RoomID, "domain", snap.Domain, "error", err)
		}
	}
}
