package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/canopylabs/canopy-core/internal/device"
)

// mockActuators serves a fixed actuator list per room.
type mockActuators struct {
	byRoom map[string][]device.Device
}

func (m *mockActuators) ActuatorsForRoom(_ context.Context, roomID string) ([]device.Device, error) {
	return m.byRoom[roomID], nil
}

// sentCommand records one delivered hardware command.
type sentCommand struct {
	DeviceID string
	Command  Command
}

// mockSender records commands and can fail per device.
type mockSender struct {
	mu   sync.Mutex
	sent []sentCommand
	fail map[string]error
}

func newMockSender() *mockSender {
	return &mockSender{fail: make(map[string]error)}
}

func (m *mockSender) SendCommand(_ context.Context, d device.Device, cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[d.ID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentCommand{DeviceID: d.ID, Command: cmd})
	return nil
}

func (m *mockSender) commands() []sentCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentCommand, len(m.sent))
	copy(out, m.sent)
	return out
}

// mockControlNotifier records published notifications.
type mockControlNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func (m *mockControlNotifier) PublishNotification(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func testActuators() map[string][]device.Device {
	return map[string][]device.Device{
		"room-1": {
			{ID: "heater-1", RoomID: "room-1", Type: device.TypeHeater, IsActive: true},
			{ID: "cooler-1", RoomID: "room-1", Type: device.TypeCooler, IsActive: true},
			{ID: "fan-1", RoomID: "room-1", Type: device.TypeCirculationFan, IsActive: true},
			{ID: "pump-1", RoomID: "room-1", Type: device.TypeWaterPump, IsActive: true},
			{ID: "light-1", RoomID: "room-1", Type: device.TypeGrowLight, IsActive: true},
		},
	}
}

func newTestDispatcher(sender *mockSender, opts ...DispatcherOption) *Dispatcher {
	store := NewControllerStore(time.UTC)
	base := []DispatcherOption{WithDispatchTimeout(0)}
	return NewDispatcher(&mockActuators{byRoom: testActuators()}, sender, store, append(base, opts...)...)
}

func TestDispatchFiltersByCapability(t *testing.T) {
	sender := newMockSender()
	d := newTestDispatcher(sender)

	d.Dispatch(context.Background(), "room-1", DomainClimate, []Action{
		{Type: ActionHeating, Value: 0.5, Priority: 3},
	})

	cmds := sender.commands()
	if len(cmds) != 1 {
		t.Fatalf("sent %d commands, want 1 (heater only)", len(cmds))
	}
	if cmds[0].DeviceID != "heater-1" {
		t.Errorf("command went to %q, want heater-1", cmds[0].DeviceID)
	}
	if cmds[0].Command.Type != "heat" {
		t.Errorf("command type = %q, want heat", cmds[0].Command.Type)
	}
	if cmds[0].Command.Value != 0.5 {
		t.Errorf("command value = %v, want 0.5", cmds[0].Command.Value)
	}
}

func TestDispatchBroadcastWithoutFilter(t *testing.T) {
	sender := newMockSender()
	d := newTestDispatcher(sender, WithCapabilityFilter(false))

	d.Dispatch(context.Background(), "room-1", DomainClimate, []Action{
		{Type: ActionHeating, Value: 0.5, Priority: 3},
	})

	if got := len(sender.commands()); got != 5 {
		t.Errorf("sent %d commands, want 5 (every actuator)", got)
	}
}

func TestDispatchCountersMonotonic(t *testing.T) {
	sender := newMockSender()
	d := newTestDispatcher(sender)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d.Dispatch(ctx, "room-1", DomainClimate, []Action{
			{Type: ActionHeating, Value: 0.5, Priority: 3},
		})
	}

	snap := d.Store().Snapshot("room-1", DomainClimate)
	if snap.TotalActions != 5 {
		t.Errorf("TotalActions = %d, want 5", snap.TotalActions)
	}
	if snap.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d, want 0", snap.ErrorCount)
	}
	if snap.LastActionTime.IsZero() {
		t.Error("LastActionTime not set after successful dispatch")
	}
}

func TestDispatchFailureIsolation(t *testing.T) {
	sender := newMockSender()
	sender.fail["heater-1"] = errors.New("bus timeout")
	d := newTestDispatcher(sender)

	// Heating fails, circulation must still go out
	d.Dispatch(context.Background(), "room-1", DomainClimate, []Action{
		{Type: ActionHeating, Value: 0.5, Priority: 3},
		{Type: ActionCirculation, Value: 0.3, Priority: 2},
	})

	cmds := sender.commands()
	if len(cmds) != 1 || cmds[0].DeviceID != "fan-1" {
		t.Fatalf("commands = %+v, want only circulation to fan-1", cmds)
	}

	snap := d.Store().Snapshot("room-1", DomainClimate)
	if snap.TotalActions != 1 {
		t.Errorf("TotalActions = %d, want 1", snap.TotalActions)
	}
	if snap.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", snap.ErrorCount)
	}
}

func TestDispatchOneWrapsSendError(t *testing.T) {
	sender := newMockSender()
	sender.fail["heater-1"] = errors.New("bus timeout")
	d := newTestDispatcher(sender)

	err := d.dispatchOne(context.Background(), "room-1", DomainClimate, Action{
		Type: ActionHeating, Value: 0.5, Priority: 3,
	})
	if !errors.Is(err, ErrDispatchFailed) {
		t.Errorf("dispatchOne() error = %v, want ErrDispatchFailed", err)
	}
}

func TestDispatchMaintainNeedsNoDevice(t *testing.T) {
	sender := newMockSender()
	d := newTestDispatcher(sender)

	d.Dispatch(context.Background(), "room-1", DomainClimate, []Action{
		{Type: ActionMaintain, Priority: 1},
	})

	if len(sender.commands()) != 0 {
		t.Error("maintain action produced hardware commands")
	}
	if got := d.Store().Snapshot("room-1", DomainClimate).TotalActions; got != 1 {
		t.Errorf("TotalActions = %d, want 1", got)
	}
}

func TestDispatchAlertActionNotifies(t *testing.T) {
	sender := newMockSender()
	notifier := &mockControlNotifier{}
	d := newTestDispatcher(sender, WithNotifier(notifier))

	d.Dispatch(context.Background(), "room-1", DomainWatering, []Action{
		{Type: ActionWateringLimit, Reason: "daily watering limit 3 reached", Priority: 3},
	})

	if len(sender.commands()) != 0 {
		t.Error("alert action produced hardware commands")
	}
	if len(notifier.notifications) != 1 {
		t.Fatalf("published %d notifications, want 1", len(notifier.notifications))
	}
	n := notifier.notifications[0]
	if n.Type != string(ActionWateringLimit) {
		t.Errorf("notification type = %q, want %q", n.Type, ActionWateringLimit)
	}
	if n.Domain != DomainWatering {
		t.Errorf("notification domain = %q, want watering", n.Domain)
	}
}

func TestDispatchEmergencyStopReachesAllActuators(t *testing.T) {
	sender := newMockSender()
	d := newTestDispatcher(sender)

	d.Dispatch(context.Background(), "room-1", DomainSafety, []Action{
		{Type: ActionEmergencyShutdown, Value: 1, Priority: 10},
	})

	if got := len(sender.commands()); got != 5 {
		t.Errorf("emergency stop reached %d actuators, want all 5", got)
	}
	for _, cmd := range sender.commands() {
		if cmd.Command.Type != "emergency_stop" {
			t.Errorf("command type = %q, want emergency_stop", cmd.Command.Type)
		}
	}
}

func TestDispatchAccountsEnergy(t *testing.T) {
	sender := newMockSender()
	d := newTestDispatcher(sender)

	d.Dispatch(context.Background(), "room-1", DomainClimate, []Action{
		{Type: ActionHeating, Value: 1, Priority: 3},
	})

	if got := d.Store().Snapshot("room-1", DomainClimate).EnergyConsumed; got <= 0 {
		t.Errorf("EnergyConsumed = %v, want > 0", got)
	}
}
