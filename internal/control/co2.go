package control

import (
	"fmt"
	"time"

	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// CO2Actions computes the CO2 instructions for one cycle.
//
// tankLevel is the supply tank fill percentage, or a negative value
// when no tank reading is available.
//
// Enrichment only runs while the lights are on and the climate is in
// band: injected CO2 is wasted in the dark and dangerous when the
// extraction side is already fighting heat or humidity. Ventilation on
// high CO2 is unconditional.
func CO2Actions(rm room.Room, metrics map[string]float64, tankLevel float64, now time.Time) []Action {
	settings := rm.Automation.CO2
	var actions []Action

	if settings.TankMonitoring && tankLevel >= 0 && tankLevel < settings.TankLevelThreshold {
		actions = append(actions, Action{
			Type:     ActionCO2TankAlert,
			Value:    tankLevel,
			Reason:   fmt.Sprintf("CO2 tank at %.1f%%, below threshold %.1f%%", tankLevel, settings.TankLevelThreshold),
			Priority: 3,
		})
	}

	co2, ok := metrics[sensor.MetricCO2]
	if !ok || rm.Targets.CO2.Max <= 0 {
		return actions
	}

	if co2 > rm.Targets.CO2.Max {
		actions = append(actions, Action{
			Type:     ActionVentilation,
			Value:    1.0,
			Reason:   fmt.Sprintf("CO2 %.0fppm above target %.0fppm", co2, rm.Targets.CO2.Max),
			Priority: 4,
		})
		return actions
	}

	if co2 < rm.Targets.CO2.Min && enrichmentSuitable(rm, metrics, now) {
		actions = append(actions, Action{
			Type:     ActionCO2Enrichment,
			Value:    settings.InjectionRate,
			Reason:   fmt.Sprintf("CO2 %.0fppm below target %.0fppm", co2, rm.Targets.CO2.Min),
			Priority: 5,
			Duration: settings.InjectionDuration,
		})
	}

	return actions
}

// enrichmentSuitable gates injection on the photoperiod and on
// temperature and humidity both sitting inside their target bands.
func enrichmentSuitable(rm room.Room, metrics map[string]float64, now time.Time) bool {
	if !LightingWindow(rm.Automation.Lighting, now) {
		return false
	}

	temp, hasTemp := metrics[sensor.MetricTemperature]
	if !hasTemp || !rm.Targets.Temperature.Contains(temp) {
		return false
	}

	humidity, hasHumidity := metrics[sensor.MetricHumidity]
	if !hasHumidity || !rm.Targets.Humidity.Contains(humidity) {
		return false
	}

	return true
}
