package sensor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canopylabs/canopy-core/internal/device"
	"github.com/canopylabs/canopy-core/internal/room"
)

// DeviceReader reads raw metrics from hardware.
// Implementations return ErrDeviceUnavailable for transient failures.
type DeviceReader interface {
	ReadDevice(ctx context.Context, d device.Device) (map[string]float64, error)
}

// Notifier delivers alerts to external sinks. Delivery failures are
// logged by the pipeline, never propagated.
type Notifier interface {
	PublishAlert(ctx context.Context, a Alert) error
}

// MetricsWriter mirrors the time-series client's non-blocking write.
type MetricsWriter interface {
	WriteSensorReading(roomID, deviceID string, fields map[string]interface{}, timestamp time.Time)
}

// RoomSource provides the rooms eligible for sampling.
type RoomSource interface {
	ActiveRooms(ctx context.Context) ([]room.Room, error)
}

// DeviceSource provides the sensors assigned to a room.
type DeviceSource interface {
	SensorsForRoom(ctx context.Context, roomID string) ([]device.Device, error)
}

// Logger is the pipeline's logging interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Pipeline samples devices, smooths and validates the raw data,
// persists readings, maintains the room history cache and runs alert
// evaluation. One Sample call is one intake tick across all active
// rooms.
//
// Sampling is rate-limited per device by the device-type period table;
// a device reporting faster than its period is read at most once per
// period. That table is the intake's only backpressure.
type Pipeline struct {
	rooms    RoomSource
	devices  DeviceSource
	reader   DeviceReader
	smoother *Smoother
	scorer   QualityScorer
	detector AnomalyDetector

	history   *HistoryStore
	repo      Repository
	evaluator *AlertEvaluator
	active    *ActiveAlerts
	notifier  Notifier
	metrics   MetricsWriter
	logger    Logger

	mu       sync.Mutex
	lastRead map[string]time.Time // deviceID -> last sample time

	now func() time.Time
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithNotifier routes emitted alerts to an external sink.
func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

// WithMetricsWriter mirrors accepted readings to a time-series store.
func WithMetricsWriter(w MetricsWriter) PipelineOption {
	return func(p *Pipeline) { p.metrics = w }
}

// WithLogger sets the pipeline logger.
func WithLogger(l Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline assembles the ingestion pipeline.
func NewPipeline(
	rooms RoomSource,
	devices DeviceSource,
	reader DeviceReader,
	repo Repository,
	history *HistoryStore,
	smoothingWindow int,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		rooms:     rooms,
		devices:   devices,
		reader:    reader,
		smoother:  NewSmoother(smoothingWindow),
		scorer:    RangeScorer{},
		detector:  NewJumpDetector(),
		history:   history,
		repo:      repo,
		evaluator: NewAlertEvaluator(),
		active:    NewActiveAlerts(),
		logger:    noopLogger{},
		lastRead:  make(map[string]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// History exposes the room history cache for the control loops.
func (p *Pipeline) History() *HistoryStore {
	return p.history
}

// Alerts exposes the active-alert set.
func (p *Pipeline) Alerts() *ActiveAlerts {
	return p.active
}

// HistoricalData returns persisted readings for a room inside [from, to],
// newest first. Unlike History, this reaches past the in-memory cache
// into the full database retention.
func (p *Pipeline) HistoricalData(ctx context.Context, roomID string, from, to time.Time, limit int) ([]Reading, error) {
	return p.repo.HistoricalData(ctx, roomID, from, to, limit)
}

// Sample runs one intake tick: every due sensor in every active room is
// read, processed and persisted. Failures are contained per device; a
// broken probe never blocks the rest of the tick.
func (p *Pipeline) Sample(ctx context.Context) error {
	rooms, err := p.rooms.ActiveRooms(ctx)
	if err != nil {
		return err
	}

	for _, rm := range rooms {
		sensors, err := p.devices.SensorsForRoom(ctx, rm.ID)
		if err != nil {
			p.logger.Warn("listing sensors failed", "room_id", rm.ID, "error", err)
			continue
		}
		for _, d := range sensors {
			p.sampleDevice(ctx, rm, d)
		}
	}
	return nil
}

// sampleDevice reads and processes one sensor if its sampling period
// has elapsed.
func (p *Pipeline) sampleDevice(ctx context.Context, rm room.Room, d device.Device) {
	period, ok := device.SamplingPeriod(d.Type)
	if !ok {
		return
	}

	now := p.now()

	p.mu.Lock()
	last, seen := p.lastRead[d.ID]
	if seen && now.Sub(last) < period {
		p.mu.Unlock()
		return
	}
	p.lastRead[d.ID] = now
	p.mu.Unlock()

	raw, err := p.reader.ReadDevice(ctx, d)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			p.logger.Debug("device unavailable", "device_id", d.ID)
		} else {
			p.logger.Warn("device read failed", "device_id", d.ID, "error", err)
		}
		return
	}

	reading, err := p.process(d, rm.ID, raw, now)
	if err != nil {
		p.logger.Debug("reading dropped", "device_id", d.ID, "error", err)
		return
	}

	if err := p.repo.InsertReading(ctx, reading); err != nil {
		p.logger.Error("persisting reading failed", "device_id", d.ID, "error", err)
	}
	p.history.Append(reading)

	if p.metrics != nil && !reading.IsAnomaly {
		fields := make(map[string]interface{}, len(reading.Metrics)+1)
		for metric, value := range reading.Metrics {
			fields[metric] = value
		}
		fields["quality_score"] = reading.QualityScore
		p.metrics.WriteSensorReading(reading.RoomID, reading.DeviceID, fields, reading.Timestamp)
	}

	p.emitAlerts(ctx, reading, rm.Targets)
}

// process turns a raw sample into a validated Reading.
func (p *Pipeline) process(d device.Device, roomID string, raw map[string]float64, now time.Time) (*Reading, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidReading
	}

	calibrated := make(map[string]float64, len(raw))
	for metric, value := range raw {
		calibrated[metric] = value + d.Calibration[metric]
	}

	smoothed := p.smoother.Smooth(d.ID, calibrated)

	// VPD is derived, not sampled.
	if t, okT := smoothed[MetricTemperature]; okT {
		if h, okH := smoothed[MetricHumidity]; okH {
			smoothed[MetricVPD] = ComputeVPD(t, h)
		}
	}

	score := p.scorer.Score(smoothed)
	if score == 0 {
		return nil, ErrInvalidReading
	}

	return &Reading{
		ID:           uuid.New().String(),
		DeviceID:     d.ID,
		RoomID:       roomID,
		Timestamp:    now,
		Metrics:      smoothed,
		QualityScore: score,
		IsAnomaly:    p.detector.IsAnomaly(d.ID, smoothed),
	}, nil
}

// emitAlerts evaluates thresholds and routes new alerts to persistence
// and the notifier. Duplicate alerts for the same reading are dropped
// by the deterministic ID check in the active set.
func (p *Pipeline) emitAlerts(ctx context.Context, reading *Reading, targets room.EnvironmentalTargets) {
	for _, a := range p.evaluator.Evaluate(reading, targets) {
		if !p.active.Add(a) {
			continue
		}
		if err := p.repo.InsertAlert(ctx, &a); err != nil {
			p.logger.Error("persisting alert failed", "alert_id", a.ID, "error", err)
		}
		if p.notifier != nil {
			if err := p.notifier.PublishAlert(ctx, a); err != nil {
				p.logger.Warn("alert notification failed", "alert_id", a.ID, "error", err)
			}
		}
		p.logger.Info("sensor alert",
			"room_id", a.RoomID, "type", a.AlertType, "severity", a.Severity, "message", a.Message)
	}
}

// AcknowledgeAlert marks an active alert as seen, in memory and in the
// database.
func (p *Pipeline) AcknowledgeAlert(ctx context.Context, id string) error {
	if err := p.active.Acknowledge(id); err != nil {
		return err
	}
	return p.repo.SetAlertAcknowledged(ctx, id, true)
}

// DismissAlert removes an alert from the active set. The persisted
// record is kept for history.
func (p *Pipeline) DismissAlert(id string) error {
	return p.active.Dismiss(id)
}
