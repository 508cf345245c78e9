package sensor

import (
	"math"
	"sync"
)

// QualityScorer rates a sample's plausibility on [0,1].
type QualityScorer interface {
	Score(metrics map[string]float64) float64
}

// AnomalyDetector flags samples that are statistically implausible
// given a device's recent behaviour.
type AnomalyDetector interface {
	IsAnomaly(deviceID string, metrics map[string]float64) bool
}

// physicalBounds is the plausible range per metric. Values outside
// these bounds indicate a failing probe rather than a bad environment.
var physicalBounds = map[string][2]float64{
	MetricTemperature:  {-20, 60},
	MetricHumidity:     {0, 100},
	MetricPH:           {0, 14},
	MetricEC:           {0, 10},
	MetricCO2:          {0, 5000},
	MetricVPD:          {0, 10},
	MetricLight:        {0, 200000},
	MetricSoilMoisture: {0, 100},
	MetricWaterLevel:   {0, 100},
	MetricPressure:     {800, 1200},
}

// RangeScorer is the default QualityScorer. Each metric outside its
// physical bounds costs a share of the score; NaN or Inf zeroes it.
type RangeScorer struct{}

// Score rates the sample. An empty sample scores 0.
func (RangeScorer) Score(metrics map[string]float64) float64 {
	if len(metrics) == 0 {
		return 0
	}

	valid := 0
	for metric, value := range metrics {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0
		}
		bounds, known := physicalBounds[metric]
		if !known || (value >= bounds[0] && value <= bounds[1]) {
			valid++
		}
	}
	return float64(valid) / float64(len(metrics))
}

// jumpThresholds is the largest sample-to-sample change considered
// physically plausible for each metric at the configured sampling rates.
var jumpThresholds = map[string]float64{
	MetricTemperature:  5,
	MetricHumidity:     20,
	MetricPH:           1.5,
	MetricEC:           1,
	MetricCO2:          500,
	MetricSoilMoisture: 30,
	MetricWaterLevel:   40,
}

// JumpDetector is the default AnomalyDetector. It remembers the last
// accepted value per device and metric and flags any jump beyond the
// metric's threshold.
//
// All methods are thread-safe.
type JumpDetector struct {
	mu   sync.Mutex
	last map[string]map[string]float64
}

// NewJumpDetector creates an empty JumpDetector.
func NewJumpDetector() *JumpDetector {
	return &JumpDetector{last: make(map[string]map[string]float64)}
}

// IsAnomaly reports whether any metric jumped implausibly since the
// device's previous sample. The first sample from a device is never
// anomalous. State updates even on anomalous samples so a sensor that
// genuinely moved to a new level recovers after one flagged reading.
func (d *JumpDetector) IsAnomaly(deviceID string, metrics map[string]float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, seen := d.last[deviceID]
	if !seen {
		prev = make(map[string]float64)
		d.last[deviceID] = prev
	}

	anomaly := false
	for metric, value := range metrics {
		threshold, tracked := jumpThresholds[metric]
		if tracked && seen {
			if last, ok := prev[metric]; ok && math.Abs(value-last) > threshold {
				anomaly = true
			}
		}
		prev[metric] = value
	}
	return anomaly
}
