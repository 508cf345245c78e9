package room

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxNameLength caps room names; anything longer is a UI bug.
const maxNameLength = 100

// hoursPerDay bounds the lighting photoperiod.
const hoursPerDay = 24

// Validate checks a room for structural errors.
//
// Returns:
//   - error: ErrInvalidRoom, ErrInvalidTargets or ErrInvalidSettings
//     (wrapped with detail), or nil if valid
func Validate(r *Room) error {
	if r == nil {
		return ErrInvalidRoom
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRoom)
	}
	if len(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRoom, maxNameLength)
	}

	if err := validateTargets(r.Targets); err != nil {
		return err
	}
	return validateSettings(r.Automation)
}

// validateTargets checks every target band for min <= max.
func validateTargets(t EnvironmentalTargets) error {
	bands := map[string]Range{
		"temperature":   t.Temperature,
		"humidity":      t.Humidity,
		"co2":           t.CO2,
		"vpd":           t.VPD,
		"light":         t.Light,
		"soil_moisture": t.SoilMoisture,
		"ph":            t.PH,
		"ec":            t.EC,
		"water_level":   t.WaterLevel,
	}
	for name, band := range bands {
		if band.Min > band.Max {
			return fmt.Errorf("%w: %s min %.2f > max %.2f", ErrInvalidTargets, name, band.Min, band.Max)
		}
	}
	return nil
}

// validateSettings checks automation tunables for sane values.
func validateSettings(s AutomationSettings) error {
	if s.Climate.TemperatureTolerance < 0 {
		return fmt.Errorf("%w: climate temperature_tolerance must be non-negative", ErrInvalidSettings)
	}
	if s.Climate.HumidityTolerance < 0 {
		return fmt.Errorf("%w: climate humidity_tolerance must be non-negative", ErrInvalidSettings)
	}
	cr := s.Climate.CirculationRange
	if cr.Min < 0 || cr.Max > 1 || cr.Min > cr.Max {
		return fmt.Errorf("%w: climate circulation_range must satisfy 0 <= min <= max <= 1", ErrInvalidSettings)
	}
	if s.Watering.MaxWateringsPerDay < 0 {
		return fmt.Errorf("%w: watering max_waterings_per_day must be non-negative", ErrInvalidSettings)
	}
	if s.Lighting.OnHours < 0 || s.Lighting.OnHours > hoursPerDay {
		return fmt.Errorf("%w: lighting on_hours must be between 0 and 24", ErrInvalidSettings)
	}
	if s.CO2.InjectionRate < 0 || s.CO2.InjectionRate > 1 {
		return fmt.Errorf("%w: co2 injection_rate must be in [0,1]", ErrInvalidSettings)
	}
	return nil
}

// GenerateID creates a new unique room identifier.
func GenerateID() string {
	return uuid.New().String()
}
