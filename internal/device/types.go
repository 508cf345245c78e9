package device

import "time"

// Type classifies a device as a specific sensor or actuator.
type Type string

// Sensor types.
const (
	TypeTempHumidity Type = "temp_humidity"
	TypeLight        Type = "light"
	TypeCO2          Type = "co2"
	TypeSoilMoisture Type = "soil_moisture"
	TypePHEC         Type = "ph_ec"
	TypeWaterLevel   Type = "water_level"
)

// Actuator types.
const (
	TypeHeater         Type = "heater"
	TypeCooler         Type = "cooler"
	TypeHumidifier     Type = "humidifier"
	TypeDehumidifier   Type = "dehumidifier"
	TypeCirculationFan Type = "circulation_fan"
	TypeExhaustFan     Type = "exhaust_fan"
	TypeWaterPump      Type = "water_pump"
	TypeDrainValve     Type = "drain_valve"
	TypeGrowLight      Type = "grow_light"
	TypeCO2Injector    Type = "co2_injector"
)

// Device represents a sensor or actuator assigned to a room.
type Device struct {
	// Identity
	ID     string `json:"id"`
	RoomID string `json:"room_id"`
	Name   string `json:"name"`

	// Classification
	Type Type `json:"type"`

	// IsActive gates sampling and command dispatch. Inactive devices
	// are invisible to the engine.
	IsActive bool `json:"is_active"`

	// Calibration holds per-metric additive offsets applied to raw
	// samples before smoothing. Keys match sensor metric names
	// (e.g., "temperature", "ph").
	Calibration map[string]float64 `json:"calibration,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSensor reports whether the device type produces readings.
func (t Type) IsSensor() bool {
	switch t {
	case TypeTempHumidity, TypeLight, TypeCO2, TypeSoilMoisture, TypePHEC, TypeWaterLevel:
		return true
	default:
		return false
	}
}

// IsActuator reports whether the device type accepts commands.
func (t Type) IsActuator() bool {
	return t != "" && !t.IsSensor()
}

// samplingPeriods is the per-type minimum interval between samples.
// This table is the engine's only intake backpressure: a device is read
// at most once per period regardless of how fast the hardware reports.
var samplingPeriods = map[Type]time.Duration{
	TypeTempHumidity: 5 * time.Second,
	TypeLight:        1 * time.Second,
	TypeCO2:          30 * time.Second,
	TypeSoilMoisture: 60 * time.Second,
	TypePHEC:         30 * time.Second,
	TypeWaterLevel:   120 * time.Second,
}

// SamplingPeriod returns the minimum sampling interval for a sensor type.
// The second return is false for actuator types, which are never sampled.
func SamplingPeriod(t Type) (time.Duration, bool) {
	period, ok := samplingPeriods[t]
	return period, ok
}

// commandTargets maps actuator command names to the device types that
// can execute them. Command names are shared with the control package's
// action→command table.
var commandTargets = map[string][]Type{
	"heat":          {TypeHeater},
	"cool":          {TypeCooler, TypeExhaustFan},
	"humidify":      {TypeHumidifier},
	"dehumidify":    {TypeDehumidifier},
	"circulate":     {TypeCirculationFan},
	"ventilate":     {TypeExhaustFan},
	"water":         {TypeWaterPump},
	"drain":         {TypeDrainValve},
	"set_light":     {TypeGrowLight},
	"inject_co2":    {TypeCO2Injector},
	"emergency_stop": {
		TypeHeater, TypeCooler, TypeHumidifier, TypeDehumidifier,
		TypeCirculationFan, TypeExhaustFan, TypeWaterPump, TypeDrainValve,
		TypeGrowLight, TypeCO2Injector,
	},
}

// HandlesCommand reports whether the device type can execute the named
// actuator command.
func (t Type) HandlesCommand(command string) bool {
	for _, target := range commandTargets[command] {
		if target == t {
			return true
		}
	}
	return false
}

// DeepCopy creates a complete independent copy of the Device.
// The calibration map is cloned so modifications to the copy do not
// affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Calibration != nil {
		cpy.Calibration = make(map[string]float64, len(d.Calibration))
		for k, v := range d.Calibration {
			cpy.Calibration[k] = v
		}
	}
	return &cpy
}
