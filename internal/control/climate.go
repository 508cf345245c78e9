package control

import (
	"fmt"
	"strings"

	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// temperature and humidity deviations are normalised to an intensity
// in [0,1] by these divisors: 10°C beyond the band is full heating or
// cooling, 30% RH beyond the band is full (de)humidification.
const (
	temperatureDivisor = 10
	humidityDivisor    = 30
)

// ClimateActions computes the climate instructions for one cycle.
// Pure: same room and metrics always produce the same actions.
func ClimateActions(rm room.Room, metrics map[string]float64) []Action {
	settings := rm.Automation.Climate
	var actions []Action

	corrective := false

	if temp, ok := metrics[sensor.MetricTemperature]; ok {
		if a, acted := temperatureAction(temp, rm.Targets.Temperature, settings.TemperatureTolerance); acted {
			actions = append(actions, a)
			corrective = true
		}
	}

	if settings.HumidityControl {
		if humidity, ok := metrics[sensor.MetricHumidity]; ok {
			if a, acted := humidityAction(humidity, rm.Targets.Humidity, settings.HumidityTolerance); acted {
				actions = append(actions, a)
				corrective = true
			}
		}
	}

	if !corrective {
		actions = append(actions, Action{
			Type:     ActionMaintain,
			Value:    0,
			Reason:   "environment within target bands",
			Priority: 1,
		})
	}

	if a, ok := circulationAction(rm, metrics); ok {
		actions = append(actions, a)
	}

	return actions
}

// temperatureAction returns a heating or cooling action when the
// temperature sits outside the tolerance-widened band.
func temperatureAction(temp float64, target room.Range, tolerance float64) (Action, bool) {
	switch {
	case temp < target.Min-tolerance:
		deviation := target.Min - temp
		return Action{
			Type:     ActionHeating,
			Value:    clamp(deviation/temperatureDivisor, 0, 1),
			Reason:   fmt.Sprintf("temperature %.1f below target %.1f", temp, target.Min),
			Priority: escalate(deviation - tolerance),
		}, true
	case temp > target.Max+tolerance:
		deviation := temp - target.Max
		return Action{
			Type:     ActionCooling,
			Value:    clamp(deviation/temperatureDivisor, 0, 1),
			Reason:   fmt.Sprintf("temperature %.1f above target %.1f", temp, target.Max),
			Priority: escalate(deviation - tolerance),
		}, true
	}
	return Action{}, false
}

// humidityAction mirrors temperatureAction with the humidity divisor.
func humidityAction(humidity float64, target room.Range, tolerance float64) (Action, bool) {
	switch {
	case humidity < target.Min-tolerance:
		deviation := target.Min - humidity
		return Action{
			Type:     ActionHumidification,
			Value:    clamp(deviation/humidityDivisor, 0, 1),
			Reason:   fmt.Sprintf("humidity %.1f below target %.1f", humidity, target.Min),
			Priority: escalate(deviation - tolerance),
		}, true
	case humidity > target.Max+tolerance:
		deviation := humidity - target.Max
		return Action{
			Type:     ActionDehumidification,
			Value:    clamp(deviation/humidityDivisor, 0, 1),
			Reason:   fmt.Sprintf("humidity %.1f above target %.1f", humidity, target.Max),
			Priority: escalate(deviation - tolerance),
		}, true
	}
	return Action{}, false
}

// escalate maps how far past the tolerance band a metric sits to a
// priority tier: 3 routine, 6 past 2 units, 8 past 5 units.
func escalate(beyondTolerance float64) int {
	switch {
	case beyondTolerance > 5:
		return 8
	case beyondTolerance > 2:
		return 6
	default:
		return 3
	}
}

// circulationAction keeps air moving at the configured idle speed and
// raises the fan when temperature, humidity or CO2 approach their
// target maxima. Each trigger demands a speed; the fan runs at the
// highest demand.
func circulationAction(rm room.Room, metrics map[string]float64) (Action, bool) {
	band := rm.Automation.Climate.CirculationRange
	if band.Max <= 0 {
		return Action{}, false
	}

	speed := band.Min
	priority := 2
	var reasons []string

	checks := []struct {
		metric string
		max    float64
		label  string
	}{
		{sensor.MetricTemperature, rm.Targets.Temperature.Max, "temperature"},
		{sensor.MetricHumidity, rm.Targets.Humidity.Max, "humidity"},
		{sensor.MetricCO2, rm.Targets.CO2.Max, "co2"},
	}

	for _, check := range checks {
		value, ok := metrics[check.metric]
		if !ok || check.max <= 0 {
			continue
		}
		var demand float64
		switch {
		case value >= 0.9*check.max:
			demand = 0.8 * band.Max
		case value >= 0.8*check.max:
			demand = 0.6 * band.Max
		default:
			continue
		}
		if demand > speed {
			speed = demand
		}
		priority = 3
		reasons = append(reasons, fmt.Sprintf("%s near target max", check.label))
	}

	reason := "baseline air circulation"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return Action{
		Type:     ActionCirculation,
		Value:    clamp(speed, 0, 1),
		Reason:   reason,
		Priority: priority,
	}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
