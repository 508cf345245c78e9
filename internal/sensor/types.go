package sensor

import (
	"math"
	"time"
)

// Metric names used as keys in SensorReading.Metrics. Devices report a
// subset depending on their type; the pipeline merges them into the
// per-room current state.
const (
	MetricTemperature  = "temperature"
	MetricHumidity     = "humidity"
	MetricPH           = "ph"
	MetricEC           = "ec"
	MetricCO2          = "co2"
	MetricVPD          = "vpd"
	MetricLight        = "light"
	MetricSoilMoisture = "soil_moisture"
	MetricWaterLevel   = "water_level"
	MetricPressure     = "pressure"
)

// Reading is one validated sensor sample. Readings are immutable after
// creation; the pipeline builds them, persists them and appends them to
// the bounded per-room history.
type Reading struct {
	ID        string             `json:"id"`
	DeviceID  string             `json:"device_id"`
	RoomID    string             `json:"room_id"`
	Timestamp time.Time          `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`

	// QualityScore is a [0,1] confidence in the sample.
	QualityScore float64 `json:"quality_score"`

	// IsAnomaly marks a statistically implausible jump from the
	// previous sample. Anomalous readings are persisted and visible
	// in history but excluded from the current-state cache.
	IsAnomaly bool `json:"is_anomaly"`
}

// DeepCopy creates an independent copy of the Reading.
func (r *Reading) DeepCopy() *Reading {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.Metrics != nil {
		cpy.Metrics = make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			cpy.Metrics[k] = v
		}
	}
	return &cpy
}

// Severity ranks an alert. Info is advisory, Warning needs attention,
// Critical demands immediate action.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an out-of-range condition detected on a reading. Alerts
// live in the active set until acknowledged or dismissed.
type Alert struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"device_id"`
	RoomID         string    `json:"room_id"`
	AlertType      string    `json:"alert_type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
	Acknowledged   bool      `json:"acknowledged"`
	CreatedAt      time.Time `json:"created_at"`
}

// ComputeVPD derives vapour pressure deficit (kPa) from air temperature
// (degC) and relative humidity (%). Uses the Tetens saturation formula.
func ComputeVPD(tempC, humidityPct float64) float64 {
	svp := 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
	vpd := svp * (1 - humidityPct/100)
	if vpd < 0 {
		return 0
	}
	return vpd
}
