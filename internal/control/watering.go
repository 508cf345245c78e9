package control

import (
	"context"
	"fmt"

	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// smartWateringConfidence is the minimum advisor confidence required
// before a predictive watering acts.
const smartWateringConfidence = 0.7

// WateringPredictor is the smart-watering advisor contract.
type WateringPredictor interface {
	PredictWateringNeed(ctx context.Context, roomID string, metrics map[string]float64) (Prediction, error)
}

// WateringActions computes the watering instructions for one cycle.
//
// dailyCount is the number of waterings already performed today; the
// caller increments it when a returned watering action is dispatched.
// The predictor may be nil, which disables smart watering regardless
// of the room setting.
func WateringActions(ctx context.Context, rm room.Room, metrics map[string]float64, dailyCount int, predictor WateringPredictor) []Action {
	settings := rm.Automation.Watering
	var actions []Action

	moisture, hasMoisture := metrics[sensor.MetricSoilMoisture]

	switch {
	case hasMoisture && moisture < settings.MoistureThreshold:
		if dailyCount < settings.MaxWateringsPerDay {
			actions = append(actions, Action{
				Type:     ActionWatering,
				Value:    1.0,
				Reason:   fmt.Sprintf("soil moisture %.1f below threshold %.1f", moisture, settings.MoistureThreshold),
				Priority: 5,
				Duration: settings.Duration,
			})
		} else {
			actions = append(actions, Action{
				Type:     ActionWateringLimit,
				Value:    0,
				Reason:   fmt.Sprintf("daily watering limit %d reached with soil moisture %.1f", settings.MaxWateringsPerDay, moisture),
				Priority: 3,
			})
		}

	case hasMoisture && settings.SmartWatering && predictor != nil:
		pred, err := predictor.PredictWateringNeed(ctx, rm.ID, metrics)
		if err == nil && pred.ShouldWater && pred.Confidence > smartWateringConfidence &&
			dailyCount < settings.MaxWateringsPerDay {
			actions = append(actions, Action{
				Type:     ActionWatering,
				Value:    clamp(pred.Amount, 0, 1),
				Reason:   "predictive: " + pred.Reason,
				Priority: 4,
				Duration: settings.Duration,
			})
		}
	}

	// Drainage is independent of the watering decision and may
	// co-occur with it.
	if settings.DrainageThreshold > 0 {
		if level, ok := metrics[sensor.MetricWaterLevel]; ok && level > settings.DrainageThreshold {
			actions = append(actions, Action{
				Type:     ActionDrainage,
				Value:    1.0,
				Reason:   fmt.Sprintf("water level %.1f above drainage threshold %.1f", level, settings.DrainageThreshold),
				Priority: 4,
			})
		}
	}

	return actions
}
