package advisor

import (
	"context"
	"fmt"

	"github.com/canopylabs/canopy-core/internal/control"
	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

const (
	// dryMargin is how far (soil %) above the watering threshold still
	// counts as "approaching dry". Beyond it the advisor never
	// recommends watering.
	dryMargin = 10.0

	// highDemandVPD is the evaporative demand (kPa) above which the
	// canopy is considered to be drawing water fast.
	highDemandVPD = 1.0

	// demandCeilingVPD normalises demand: VPD at or above this maps to
	// full demand.
	demandCeilingVPD = 2.0
)

// RoomSource supplies room configuration. The room registry satisfies it.
type RoomSource interface {
	GetRoom(ctx context.Context, id string) (*room.Room, error)
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

// Advisor predicts watering need from soil proximity to the dry
// threshold and evaporative demand. It implements the control engine's
// WateringPredictor contract.
type Advisor struct {
	rooms  RoomSource
	logger Logger
}

// AdvisorOption configures optional advisor behaviour.
type AdvisorOption func(*Advisor)

// WithLogger sets the advisor logger.
func WithLogger(l Logger) AdvisorOption {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an advisor reading room configuration from rooms.
func New(rooms RoomSource, opts ...AdvisorOption) *Advisor {
	a := &Advisor{rooms: rooms, logger: noopLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PredictWateringNeed evaluates whether a room should be watered ahead
// of its moisture threshold.
//
// The prediction recommends watering only when the soil is within
// dryMargin of the room's threshold AND evaporative demand is high.
// Confidence grows with both proximity and demand; the control loop
// applies its own confidence gate, so a borderline recommendation here
// simply does nothing downstream.
func (a *Advisor) PredictWateringNeed(ctx context.Context, roomID string, metrics map[string]float64) (control.Prediction, error) {
	rm, err := a.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return control.Prediction{}, fmt.Errorf("loading room %s: %w", roomID, err)
	}

	threshold := rm.Automation.Watering.MoistureThreshold
	if threshold <= 0 {
		return control.Prediction{Reason: "watering threshold not configured"}, nil
	}

	moisture, ok := metrics[sensor.MetricSoilMoisture]
	if !ok {
		return control.Prediction{Reason: "no soil moisture reading"}, nil
	}

	headroom := moisture - threshold
	if headroom >= dryMargin {
		return control.Prediction{
			Confidence: 0.9,
			Reason:     fmt.Sprintf("soil moisture %.1f comfortably above threshold %.1f", moisture, threshold),
		}, nil
	}

	vpd := evaporativeDemand(metrics)
	if vpd < 0 {
		return control.Prediction{Reason: "no demand signal (vpd or temperature/humidity) available"}, nil
	}
	if vpd < highDemandVPD {
		return control.Prediction{
			Confidence: 0.5,
			Reason:     fmt.Sprintf("low evaporative demand (vpd %.2f kPa)", vpd),
		}, nil
	}

	// proximity: 0 at the margin edge, 1 right at the threshold.
	proximity := 1 - headroom/dryMargin
	if proximity > 1 {
		proximity = 1
	}
	demand := vpd / demandCeilingVPD
	if demand > 1 {
		demand = 1
	}

	pred := control.Prediction{
		ShouldWater: true,
		Amount:      0.4 + 0.6*proximity,
		Confidence:  0.5 + 0.5*proximity*demand,
		Reason: fmt.Sprintf("soil moisture %.1f nearing threshold %.1f under vpd %.2f kPa",
			moisture, threshold, vpd),
	}

	a.logger.Debug("watering prediction",
		"room_id", roomID,
		"moisture", moisture,
		"vpd", vpd,
		"confidence", pred.Confidence)
	return pred, nil
}

// evaporativeDemand returns VPD in kPa, deriving it from temperature
// and humidity when the sensor did not report it directly. Returns -1
// when no demand signal is available.
func evaporativeDemand(metrics map[string]float64) float64 {
	if vpd, ok := metrics[sensor.MetricVPD]; ok {
		return vpd
	}
	temp, hasTemp := metrics[sensor.MetricTemperature]
	humidity, hasHumidity := metrics[sensor.MetricHumidity]
	if !hasTemp || !hasHumidity {
		return -1
	}
	return sensor.ComputeVPD(temp, humidity)
}
