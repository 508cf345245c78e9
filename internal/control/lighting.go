package control

import (
	"fmt"
	"time"

	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// lightAnchorHour is the fixed local hour the photoperiod opens.
const lightAnchorHour = 6

// sensorNudge is the fractional intensity correction applied when a
// light sensor reads outside the target band.
const sensorNudge = 0.10

// LightingWindow reports whether t falls inside the photoperiod
// [06:00, 06:00+OnHours), wrapping past midnight when needed.
func LightingWindow(settings room.LightingSettings, t time.Time) bool {
	if settings.OnHours <= 0 {
		return false
	}
	if settings.OnHours >= 24 {
		return true
	}

	minute := t.Hour()*60 + t.Minute()
	start := lightAnchorHour * 60
	end := (start + settings.OnHours*60) % (24 * 60)

	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// LightingActions computes the single lighting instruction for one
// cycle: a lighting-on action with a ramped, sensor-nudged intensity
// inside the photoperiod, or a lighting-off action outside it.
func LightingActions(rm room.Room, metrics map[string]float64, now time.Time) []Action {
	settings := rm.Automation.Lighting

	if !LightingWindow(settings, now) {
		return []Action{{
			Type:     ActionLightingOff,
			Value:    0,
			Reason:   "outside photoperiod",
			Priority: 3,
		}}
	}

	intensity := 1.0
	reason := "photoperiod active"

	sinceOpen := sinceWindowOpen(settings, now)
	untilClose := time.Duration(settings.OnHours)*time.Hour - sinceOpen

	if settings.SunriseSimulation && settings.SunriseDuration > 0 && sinceOpen < settings.SunriseDuration {
		intensity = float64(sinceOpen) / float64(settings.SunriseDuration)
		reason = "sunrise ramp"
	} else if settings.SunsetSimulation && settings.SunsetDuration > 0 && untilClose < settings.SunsetDuration {
		intensity = float64(untilClose) / float64(settings.SunsetDuration)
		reason = "sunset ramp"
	}

	// A light sensor nudges the ramped level toward the target band.
	if lux, ok := metrics[sensor.MetricLight]; ok && rm.Targets.Light.Max > 0 {
		switch {
		case lux < rm.Targets.Light.Min:
			intensity *= 1 + sensorNudge
			reason = fmt.Sprintf("%s, raised toward %.0f lux", reason, rm.Targets.Light.Min)
		case lux > rm.Targets.Light.Max:
			intensity *= 1 - sensorNudge
			reason = fmt.Sprintf("%s, lowered toward %.0f lux", reason, rm.Targets.Light.Max)
		}
	}

	return []Action{{
		Type:     ActionLightingOn,
		Value:    clamp(intensity, 0, 1),
		Reason:   reason,
		Priority: 3,
	}}
}

// sinceWindowOpen returns the elapsed time since the photoperiod
// opened, accounting for windows that wrap past midnight.
func sinceWindowOpen(settings room.LightingSettings, t time.Time) time.Duration {
	minute := t.Hour()*60 + t.Minute()
	start := lightAnchorHour * 60

	elapsed := minute - start
	if elapsed < 0 {
		elapsed += 24 * 60
	}
	return time.Duration(elapsed)*time.Minute + time.Duration(t.Second())*time.Second
}
