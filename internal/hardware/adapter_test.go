package hardware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/canopylabs/canopy-core/internal/control"
	"github.com/canopylabs/canopy-core/internal/device"
	"github.com/canopylabs/canopy-core/internal/infrastructure/mqtt"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// fakeBus is an in-process Bus: it records publishes and delivers
// payloads straight to registered handlers, no broker involved.
type fakeBus struct {
	mu        sync.Mutex
	published []publishedMessage
	handlers  map[string]mqtt.MessageHandler
}

type publishedMessage struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMessage{topic, payload, qos, retained})
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

// deliver routes a payload to the handler registered for the pattern.
func (b *fakeBus) deliver(t *testing.T, pattern, topic string, payload []byte) error {
	t.Helper()
	b.mu.Lock()
	handler, ok := b.handlers[pattern]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no handler registered for %s", pattern)
	}
	return handler(topic, payload)
}

func (b *fakeBus) messages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedMessage, len(b.published))
	copy(out, b.published)
	return out
}

func newStartedAdapter(t *testing.T, bus *fakeBus, opts ...AdapterOption) *Adapter {
	t.Helper()
	a := NewAdapter(bus, opts...)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return a
}

func TestReadDeviceFromCache(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)

	payload := []byte(`{"temperature": 24.5, "humidity": 61.2}`)
	if err := bus.deliver(t, mqtt.Topics{}.AllSensorStates(),
		"canopy/sensor/room-veg-1/th-1", payload); err != nil {
		t.Fatalf("deliver error = %v", err)
	}

	metrics, err := a.ReadDevice(context.Background(), device.Device{
		ID: "th-1", RoomID: "room-veg-1", Type: device.TypeTempHumidity,
	})
	if err != nil {
		t.Fatalf("ReadDevice() error = %v", err)
	}
	if metrics["temperature"] != 24.5 || metrics["humidity"] != 61.2 {
		t.Errorf("metrics = %v, want cached payload values", metrics)
	}
}

func TestReadDeviceMissUnavailable(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)

	_, err := a.ReadDevice(context.Background(), device.Device{
		ID: "th-missing", RoomID: "room-veg-1",
	})
	if !errors.Is(err, sensor.ErrDeviceUnavailable) {
		t.Errorf("ReadDevice() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestReadDeviceStaleUnavailable(t *testing.T) {
	bus := newFakeBus()
	var mu sync.Mutex
	current := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	a := newStartedAdapter(t, bus, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}))

	bus.deliver(t, mqtt.Topics{}.AllSensorStates(),
		"canopy/sensor/room-veg-1/th-1", []byte(`{"temperature": 24}`))

	dev := device.Device{ID: "th-1", RoomID: "room-veg-1"}
	if _, err := a.ReadDevice(context.Background(), dev); err != nil {
		t.Fatalf("fresh read error = %v", err)
	}

	// Past the staleness window the cached payload stops serving
	mu.Lock()
	current = current.Add(6 * time.Minute)
	mu.Unlock()

	if _, err := a.ReadDevice(context.Background(), dev); !errors.Is(err, sensor.ErrDeviceUnavailable) {
		t.Errorf("stale read error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestMalformedSensorPayloadRejected(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)
	pattern := mqtt.Topics{}.AllSensorStates()

	tests := []struct {
		name    string
		topic   string
		payload []byte
	}{
		{"not json", "canopy/sensor/room-1/th-1", []byte(`temp=24`)},
		{"non numeric value", "canopy/sensor/room-1/th-1", []byte(`{"temperature": "hot"}`)},
		{"empty object", "canopy/sensor/room-1/th-1", []byte(`{}`)},
		{"short topic", "canopy/sensor/room-1", []byte(`{"temperature": 24}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := bus.deliver(t, pattern, tt.topic, tt.payload); !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("deliver error = %v, want ErrMalformedPayload", err)
			}
		})
	}

	// Nothing reached the cache
	if _, err := a.ReadDevice(context.Background(), device.Device{ID: "th-1", RoomID: "room-1"}); err == nil {
		t.Error("malformed payload populated the cache")
	}
}

func TestTankLevel(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)

	if _, err := a.TankLevel(context.Background(), "room-veg-1"); !errors.Is(err, ErrNoTankLevel) {
		t.Errorf("TankLevel() before any payload = %v, want ErrNoTankLevel", err)
	}

	bus.deliver(t, mqtt.Topics{}.AllTankLevels(),
		"canopy/tank/room-veg-1", []byte(`{"level": 42.5}`))

	level, err := a.TankLevel(context.Background(), "room-veg-1")
	if err != nil {
		t.Fatalf("TankLevel() error = %v", err)
	}
	if level != 42.5 {
		t.Errorf("level = %v, want 42.5", level)
	}
}

func TestSendCommand(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)

	err := a.SendCommand(context.Background(), device.Device{
		ID: "pump-1", RoomID: "room-veg-1", Type: device.TypeWaterPump,
	}, control.Command{Type: "water", Value: 1.0, Duration: 2 * time.Minute})
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}

	msgs := bus.messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].Topic != "canopy/command/room-veg-1/pump-1" {
		t.Errorf("topic = %q, want canopy/command/room-veg-1/pump-1", msgs[0].Topic)
	}
	if msgs[0].Retained {
		t.Error("command published retained; commands must not be retained")
	}

	var decoded commandPayload
	if err := json.Unmarshal(msgs[0].Payload, &decoded); err != nil {
		t.Fatalf("command payload is not valid JSON: %v", err)
	}
	if decoded.Type != "water" || decoded.Value != 1.0 {
		t.Errorf("payload = %+v, want water/1.0", decoded)
	}
	if decoded.DurationSeconds != 120 {
		t.Errorf("DurationSeconds = %d, want 120", decoded.DurationSeconds)
	}
}

func TestPublishAlert(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)

	alert := sensor.Alert{
		ID:        "alert-1",
		RoomID:    "room-veg-1",
		DeviceID:  "th-1",
		AlertType: "temperature_high",
		Severity:  sensor.SeverityCritical,
		Message:   "temperature 32.0 above maximum 28.0",
	}
	if err := a.PublishAlert(context.Background(), alert); err != nil {
		t.Fatalf("PublishAlert() error = %v", err)
	}

	msgs := bus.messages()
	if len(msgs) != 1 || msgs[0].Topic != "canopy/alert/room-veg-1" {
		t.Fatalf("messages = %+v, want one on canopy/alert/room-veg-1", msgs)
	}

	var decoded sensor.Alert
	if err := json.Unmarshal(msgs[0].Payload, &decoded); err != nil {
		t.Fatalf("alert payload is not valid JSON: %v", err)
	}
	if decoded.ID != alert.ID || decoded.Severity != alert.Severity {
		t.Errorf("decoded alert = %+v, want original fields", decoded)
	}
}

func TestPublishNotification(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)

	err := a.PublishNotification(context.Background(), control.Notification{
		RoomID:   "room-veg-1",
		Domain:   control.DomainWatering,
		Type:     "watering_limit_alert",
		Message:  "daily watering limit 3 reached",
		Priority: 3,
	})
	if err != nil {
		t.Fatalf("PublishNotification() error = %v", err)
	}

	msgs := bus.messages()
	if len(msgs) != 1 || msgs[0].Topic != "canopy/notification/room-veg-1" {
		t.Fatalf("messages = %+v, want one on canopy/notification/room-veg-1", msgs)
	}
}

func TestLatestPayloadWins(t *testing.T) {
	bus := newFakeBus()
	a := newStartedAdapter(t, bus)
	pattern := mqtt.Topics{}.AllSensorStates()

	bus.deliver(t, pattern, "canopy/sensor/room-1/th-1", []byte(`{"temperature": 20}`))
	bus.deliver(t, pattern, "canopy/sensor/room-1/th-1", []byte(`{"temperature": 26}`))

	metrics, err := a.ReadDevice(context.Background(), device.Device{ID: "th-1", RoomID: "room-1"})
	if err != nil {
		t.Fatalf("ReadDevice() error = %v", err)
	}
	if metrics["temperature"] != 26 {
		t.Errorf("temperature = %v, want latest payload 26", metrics["temperature"])
	}
}
