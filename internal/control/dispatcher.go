package control

import (
	"context"
	"fmt"
	"time"

	"github.com/canopylabs/canopy-core/internal/device"
)

// CommandSender delivers a command to one actuator.
type CommandSender interface {
	SendCommand(ctx context.Context, d device.Device, cmd Command) error
}

// ActuatorSource provides the actuators assigned to a room.
type ActuatorSource interface {
	ActuatorsForRoom(ctx context.Context, roomID string) ([]device.Device, error)
}

// Notifier delivers engine notifications to external sinks.
type Notifier interface {
	PublishNotification(ctx context.Context, n Notification) error
}

// MetricsWriter mirrors the time-series client's action write.
type MetricsWriter interface {
	WriteActionMetric(roomID, domain, actionType string, value float64, priority int)
}

// Logger is the control package's logging interface.
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

// energyRates estimates actuator draw in Wh per minute of action at
// full magnitude, for the per-controller energy account.
var energyRates = map[ActionType]float64{
	ActionHeating:          25,
	ActionCooling:          20,
	ActionHumidification:   5,
	ActionDehumidification: 8,
	ActionCirculation:      2,
	ActionVentilation:      4,
	ActionLightingOn:       10,
	ActionWatering:         1,
	ActionCO2Enrichment:    0.5,
}

// Dispatcher turns actions into hardware commands and keeps the
// per-(room, domain) counters. Actions are executed in the order the
// strategy produced them; one failed action never aborts the batch.
type Dispatcher struct {
	devices  ActuatorSource
	sender   CommandSender
	store    *ControllerStore
	notifier Notifier
	metrics  MetricsWriter
	logger   Logger

	// filterByCapability restricts each command to actuators whose
	// type handles it. When false every active actuator in the room
	// receives every command.
	filterByCapability bool

	// timeout bounds a single hardware send.
	timeout time.Duration

	now func() time.Time
}

// DispatcherOption configures optional dispatcher collaborators.
type DispatcherOption func(*Dispatcher)

// WithNotifier routes alert-type actions to an external sink.
func WithNotifier(n Notifier) DispatcherOption {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithMetricsWriter mirrors dispatched actions to a time-series store.
func WithMetricsWriter(w MetricsWriter) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = w }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithCapabilityFilter toggles per-command device-type filtering.
func WithCapabilityFilter(enabled bool) DispatcherOption {
	return func(d *Dispatcher) { d.filterByCapability = enabled }
}

// WithDispatchTimeout bounds each hardware send.
func WithDispatchTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(devices ActuatorSource, sender CommandSender, store *ControllerStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		devices:            devices,
		sender:             sender,
		store:              store,
		logger:             noopLogger{},
		filterByCapability: true,
		timeout:            5 * time.Second,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Store exposes the controller store for reporting.
func (d *Dispatcher) Store() *ControllerStore {
	return d.store
}

// Dispatch executes a batch of actions for one room and domain, in
// list order. Each action succeeds or fails on its own; counters are
// updated per action.
func (d *Dispatcher) Dispatch(ctx context.Context, roomID string, domain Domain, actions []Action) {
	for _, action := range actions {
		if err := d.dispatchOne(ctx, roomID, domain, action); err != nil {
			d.store.RecordError(roomID, domain)
			d.logger.Warn("action dispatch failed",
				"room_id", roomID, "domain", domain, "action", action.Type, "error", err)
			continue
		}

		d.store.RecordSuccess(roomID, domain)
		d.accountEnergy(roomID, domain, action)

		if d.metrics != nil {
			d.metrics.WriteActionMetric(roomID, string(domain), string(action.Type), action.Value, action.Priority)
		}
		d.logger.Debug("action dispatched",
			"room_id", roomID, "domain", domain, "action", action.Type,
			"value", action.Value, "priority", action.Priority, "reason", action.Reason)
	}
}

// dispatchOne executes a single action.
func (d *Dispatcher) dispatchOne(ctx context.Context, roomID string, domain Domain, action Action) error {
	command, hasCommand := CommandFor(action.Type)
	if !hasCommand {
		// Maintain and alert actions carry no hardware command.
		d.notify(ctx, roomID, domain, action)
		return nil
	}

	actuators, err := d.devices.ActuatorsForRoom(ctx, roomID)
	if err != nil {
		return err
	}

	cmd := Command{Type: command, Value: action.Value, Duration: action.Duration}

	var firstErr error
	for _, actuator := range actuators {
		if d.filterByCapability && !actuator.Type.HandlesCommand(command) {
			continue
		}

		sendCtx := ctx
		cancel := func() {}
		if d.timeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		}
		err := d.sender.SendCommand(sendCtx, actuator, cmd)
		cancel()

		if err != nil {
			d.logger.Warn("command send failed",
				"room_id", roomID, "device_id", actuator.ID, "command", command, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, firstErr)
	}
	return nil
}

// notify forwards an alert-type action to the notification sink.
func (d *Dispatcher) notify(ctx context.Context, roomID string, domain Domain, action Action) {
	if d.notifier == nil || action.Type == ActionMaintain {
		return
	}
	n := Notification{
		RoomID:    roomID,
		Domain:    domain,
		Type:      string(action.Type),
		Message:   action.Reason,
		Priority:  action.Priority,
		CreatedAt: d.now(),
	}
	if err := d.notifier.PublishNotification(ctx, n); err != nil {
		d.logger.Warn("notification delivery failed",
			"room_id", roomID, "type", n.Type, "error", err)
	}
}

// accountEnergy adds a rough energy estimate for a completed action.
func (d *Dispatcher) accountEnergy(roomID string, domain Domain, action Action) {
	rate, ok := energyRates[action.Type]
	if !ok {
		return
	}
	minutes := 1.0
	if action.Duration > 0 {
		minutes = action.Duration.Minutes()
	}
	d.store.AddEnergy(roomID, domain, rate*action.Value*minutes)
}
