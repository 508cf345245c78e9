package room

import "time"

// Room represents a grow room with its environmental targets and
// automation settings. Rooms are configured externally (settings UI);
// the control engine treats them as read-only.
type Room struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// IsActive gates the whole room: inactive rooms are never sampled
	// and never receive automation actions.
	IsActive bool `json:"is_active"`

	// Targets are the per-metric [min,max] bands the control loops
	// try to maintain.
	Targets EnvironmentalTargets `json:"targets"`

	// Automation holds per-domain enable flags and tunables.
	Automation AutomationSettings `json:"automation"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Range is a [Min,Max] target band for one metric.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the band (inclusive).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// EnvironmentalTargets holds the target band for every tracked metric.
//
// Units: temperature °C, humidity %, CO2 ppm, VPD kPa, light lux,
// soil moisture %, EC mS/cm, water level %.
type EnvironmentalTargets struct {
	Temperature  Range `json:"temperature"`
	Humidity     Range `json:"humidity"`
	CO2          Range `json:"co2"`
	VPD          Range `json:"vpd"`
	Light        Range `json:"light"`
	SoilMoisture Range `json:"soil_moisture"`
	PH           Range `json:"ph"`
	EC           Range `json:"ec"`
	WaterLevel   Range `json:"water_level"`
}

// AutomationSettings holds per-domain automation configuration.
type AutomationSettings struct {
	// Enabled is the master switch. When false no control loop produces
	// actions for the room, regardless of the per-domain flags.
	Enabled bool `json:"enabled"`

	Climate  ClimateSettings  `json:"climate"`
	Watering WateringSettings `json:"watering"`
	Lighting LightingSettings `json:"lighting"`
	CO2      CO2Settings      `json:"co2"`
}

// ClimateSettings tunes the climate control loop.
type ClimateSettings struct {
	Enabled bool `json:"enabled"`

	// TemperatureTolerance widens the target band before heating or
	// cooling engages (°C).
	TemperatureTolerance float64 `json:"temperature_tolerance"`

	// HumidityControl gates humidification/dehumidification actions.
	HumidityControl bool `json:"humidity_control"`

	// HumidityTolerance widens the humidity band (%) before the loop acts.
	HumidityTolerance float64 `json:"humidity_tolerance"`

	// CirculationRange is the fan speed band [min,max] in [0,1].
	// The minimum is the idle circulation speed.
	CirculationRange Range `json:"circulation_range"`
}

// WateringSettings tunes the watering control loop.
type WateringSettings struct {
	Enabled bool `json:"enabled"`

	// MoistureThreshold is the soil moisture (%) below which watering
	// is required.
	MoistureThreshold float64 `json:"moisture_threshold"`

	// MaxWateringsPerDay caps watering actions per local calendar day.
	MaxWateringsPerDay int `json:"max_waterings_per_day"`

	// Duration is how long a single watering action runs.
	Duration time.Duration `json:"duration"`

	// SmartWatering enables the predictive watering collaborator when
	// moisture is above the threshold.
	SmartWatering bool `json:"smart_watering"`

	// DrainageThreshold is the water level (%) above which a drainage
	// action is emitted.
	DrainageThreshold float64 `json:"drainage_threshold"`
}

// LightingSettings tunes the lighting control loop.
//
// The on-window starts at the fixed anchor (06:00 local) and lasts
// OnHours hours, wrapping past midnight when needed.
type LightingSettings struct {
	Enabled bool `json:"enabled"`

	// OnHours is the photoperiod length in hours (0-24).
	OnHours int `json:"on_hours"`

	// SunriseSimulation ramps intensity 0→1 over SunriseDuration after
	// the window opens.
	SunriseSimulation bool          `json:"sunrise_simulation"`
	SunriseDuration   time.Duration `json:"sunrise_duration"`

	// SunsetSimulation ramps intensity 1→0 over SunsetDuration before
	// the window closes.
	SunsetSimulation bool          `json:"sunset_simulation"`
	SunsetDuration   time.Duration `json:"sunset_duration"`
}

// CO2Settings tunes the CO2 enrichment loop.
type CO2Settings struct {
	Enabled bool `json:"enabled"`

	// InjectionRate is the enrichment valve opening in [0,1].
	InjectionRate float64 `json:"injection_rate"`

	// InjectionDuration is how long a single enrichment action runs.
	InjectionDuration time.Duration `json:"injection_duration"`

	// TankMonitoring enables low-tank alerts.
	TankMonitoring bool `json:"tank_monitoring"`

	// TankLevelThreshold is the tank level (%) below which an alert
	// action is emitted.
	TankLevelThreshold float64 `json:"tank_level_threshold"`
}

// DeepCopy creates a complete independent copy of the Room.
// Room contains only value fields today, but callers should not rely on
// that; registry cache isolation goes through this method.
func (r *Room) DeepCopy() *Room {
	if r == nil {
		return nil
	}
	cpy := *r
	return &cpy
}
