package hardware

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/canopylabs/canopy-core/internal/control"
	"github.com/canopylabs/canopy-core/internal/device"
	"github.com/canopylabs/canopy-core/internal/infrastructure/mqtt"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// defaultStaleAfter is how long a cached sensor payload stays servable.
// Sensor firmware republishes well inside this window; anything older
// means the device has gone quiet and reads should fail.
const defaultStaleAfter = 5 * time.Minute

// defaultQoS is the publish/subscribe QoS when none is configured.
const defaultQoS byte = 1

// Bus is the slice of the MQTT client the adapter needs. *mqtt.Client
// satisfies it; tests substitute an in-process fake.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger interface for optional logging support.
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

type sensorKey struct {
	roomID   string
	deviceID string
}

type sensorSample struct {
	metrics    map[string]float64
	receivedAt time.Time
}

type tankSample struct {
	level      float64
	receivedAt time.Time
}

// commandPayload is the wire shape of an actuator command.
type commandPayload struct {
	Type            string    `json:"type"`
	Value           float64   `json:"value"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	IssuedAt        time.Time `json:"issued_at"`
}

// tankPayload is the wire shape of a tank level report.
type tankPayload struct {
	Level float64 `json:"level"`
}

// Adapter bridges MQTT to the sensing and control layers. It caches the
// latest retained payload per sensor and per tank, serves reads from
// that cache, and publishes commands, alerts and notifications.
//
// It implements sensor.DeviceReader, sensor.Notifier,
// control.CommandSender, control.TankLevelReader and control.Notifier.
type Adapter struct {
	bus    Bus
	topics mqtt.Topics
	qos    byte

	staleAfter time.Duration
	now        func() time.Time
	logger     Logger

	mu      sync.RWMutex
	sensors map[sensorKey]sensorSample
	tanks   map[string]tankSample
}

// AdapterOption configures optional adapter behaviour.
type AdapterOption func(*Adapter)

// WithQoS overrides the default QoS for publishes and subscriptions.
func WithQoS(qos byte) AdapterOption {
	return func(a *Adapter) { a.qos = qos }
}

// WithStaleAfter overrides how long cached payloads stay servable.
// Zero disables staleness checks.
func WithStaleAfter(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.staleAfter = d }
}

// WithLogger sets the adapter logger.
func WithLogger(l Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates an adapter over the given bus. Call Start to
// begin consuming sensor and tank topics.
func NewAdapter(bus Bus, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		bus:        bus,
		qos:        defaultQoS,
		staleAfter: defaultStaleAfter,
		now:        time.Now,
		logger:     noopLogger{},
		sensors:    make(map[sensorKey]sensorSample),
		tanks:      make(map[string]tankSample),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start subscribes to the sensor and tank topic trees. Retained
// payloads arrive immediately after subscribing, so the cache warms
// without waiting a full publish interval.
func (a *Adapter) Start() error {
	if err := a.bus.Subscribe(a.topics.AllSensorStates(), a.qos, a.handleSensorState); err != nil {
		return fmt.Errorf("subscribing to sensor states: %w", err)
	}
	if err := a.bus.Subscribe(a.topics.AllTankLevels(), a.qos, a.handleTankLevel); err != nil {
		return fmt.Errorf("subscribing to tank levels: %w", err)
	}
	a.logger.Info("hardware adapter started")
	return nil
}

// handleSensorState caches a sensor metric payload.
// Topic shape: canopy/sensor/<room>/<device>.
func (a *Adapter) handleSensorState(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return fmt.Errorf("%w: unexpected sensor topic %q", ErrMalformedPayload, topic)
	}
	roomID, deviceID := parts[2], parts[3]

	var metrics map[string]float64
	if err := json.Unmarshal(payload, &metrics); err != nil {
		return fmt.Errorf("%w: sensor payload on %s: %w", ErrMalformedPayload, topic, err)
	}
	if len(metrics) == 0 {
		return fmt.Errorf("%w: empty sensor payload on %s", ErrMalformedPayload, topic)
	}

	a.mu.Lock()
	a.sensors[sensorKey{roomID: roomID, deviceID: deviceID}] = sensorSample{
		metrics:    metrics,
		receivedAt: a.now(),
	}
	a.mu.Unlock()

	a.logger.Debug("sensor payload cached",
		"room_id", roomID, "device_id", deviceID, "metrics", len(metrics))
	return nil
}

// handleTankLevel caches a tank level payload.
// Topic shape: canopy/tank/<room>.
func (a *Adapter) handleTankLevel(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return fmt.Errorf("%w: unexpected tank topic %q", ErrMalformedPayload, topic)
	}
	roomID := parts[2]

	var tp tankPayload
	if err := json.Unmarshal(payload, &tp); err != nil {
		return fmt.Errorf("%w: tank payload on %s: %w", ErrMalformedPayload, topic, err)
	}

	a.mu.Lock()
	a.tanks[roomID] = tankSample{level: tp.Level, receivedAt: a.now()}
	a.mu.Unlock()
	return nil
}

// ReadDevice returns the latest cached metrics for a device. A miss or
// a stale payload yields sensor.ErrDeviceUnavailable so the pipeline
// skips the device this cycle.
func (a *Adapter) ReadDevice(_ context.Context, d device.Device) (map[string]float64, error) {
	a.mu.RLock()
	sample, ok := a.sensors[sensorKey{roomID: d.RoomID, deviceID: d.ID}]
	a.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", sensor.ErrDeviceUnavailable, d.ID)
	}
	if a.stale(sample.receivedAt) {
		return nil, fmt.Errorf("%w: %s last seen %s", sensor.ErrDeviceUnavailable, d.ID,
			sample.receivedAt.Format(time.RFC3339))
	}

	metrics := make(map[string]float64, len(sample.metrics))
	for k, v := range sample.metrics {
		metrics[k] = v
	}
	return metrics, nil
}

// TankLevel returns the latest cached CO2 tank fill percentage.
func (a *Adapter) TankLevel(_ context.Context, roomID string) (float64, error) {
	a.mu.RLock()
	sample, ok := a.tanks[roomID]
	a.mu.RUnlock()

	if !ok || a.stale(sample.receivedAt) {
		return 0, fmt.Errorf("%w: room %s", ErrNoTankLevel, roomID)
	}
	return sample.level, nil
}

// SendCommand publishes an actuator command to the device command topic.
func (a *Adapter) SendCommand(_ context.Context, d device.Device, cmd control.Command) error {
	payload, err := json.Marshal(commandPayload{
		Type:            cmd.Type,
		Value:           cmd.Value,
		DurationSeconds: int(cmd.Duration / time.Second),
		IssuedAt:        a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding command for %s: %w", d.ID, err)
	}

	topic := a.topics.DeviceCommand(d.RoomID, d.ID)
	if err := a.bus.Publish(topic, payload, a.qos, false); err != nil {
		return fmt.Errorf("publishing command to %s: %w", topic, err)
	}

	a.logger.Debug("command published",
		"device_id", d.ID, "type", cmd.Type, "value", cmd.Value)
	return nil
}

// PublishAlert publishes a sensor alert on the room's alert topic.
func (a *Adapter) PublishAlert(_ context.Context, alert sensor.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert %s: %w", alert.ID, err)
	}

	topic := a.topics.Alert(alert.RoomID)
	if err := a.bus.Publish(topic, payload, a.qos, false); err != nil {
		return fmt.Errorf("publishing alert to %s: %w", topic, err)
	}
	return nil
}

// PublishNotification publishes an automation notification on the
// room's notification topic.
func (a *Adapter) PublishNotification(_ context.Context, n control.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	topic := a.topics.Notification(n.RoomID)
	if err := a.bus.Publish(topic, payload, a.qos, false); err != nil {
		return fmt.Errorf("publishing notification to %s: %w", topic, err)
	}
	return nil
}

// stale reports whether a payload received at t is too old to serve.
func (a *Adapter) stale(t time.Time) bool {
	if a.staleAfter <= 0 {
		return false
	}
	return a.now().Sub(t) > a.staleAfter
}
