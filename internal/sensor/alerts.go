package sensor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/canopylabs/canopy-core/internal/room"
)

// alertNamespace seeds deterministic alert IDs. The same (alertType,
// readingID) pair always yields the same ID, so re-evaluating a reading
// cannot emit duplicate alerts.
var alertNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// AlertID derives the deterministic alert identifier for an alert type
// raised against a specific reading.
func AlertID(alertType, readingID string) string {
	return uuid.NewSHA1(alertNamespace, []byte(alertType+":"+readingID)).String()
}

// alertRule is one threshold comparison with its severity tiers.
type alertRule struct {
	metric       string
	target       func(room.EnvironmentalTargets) room.Range
	lowType      string
	lowSeverity  Severity
	lowAdvice    string
	highType     string
	highSeverity Severity
	highAdvice   string
}

// alertRules encodes the fixed severity model: the direction of a
// breach decides how urgent it is. High temperature, high humidity and
// high CO2 damage plants fast; their low counterparts are slower
// problems. Dry soil is the one low-side emergency.
var alertRules = []alertRule{
	{
		metric: MetricTemperature,
		target: func(t room.EnvironmentalTargets) room.Range { return t.Temperature },
		lowType: "temperature_low", lowSeverity: SeverityWarning,
		lowAdvice: "Increase heating or check heater operation",
		highType:  "temperature_high", highSeverity: SeverityCritical,
		highAdvice: "Increase cooling and ventilation immediately",
	},
	{
		metric: MetricHumidity,
		target: func(t room.EnvironmentalTargets) room.Range { return t.Humidity },
		lowType: "humidity_low", lowSeverity: SeverityWarning,
		lowAdvice: "Run humidifier or reduce ventilation",
		highType:  "humidity_high", highSeverity: SeverityCritical,
		highAdvice: "Run dehumidifier and increase air circulation",
	},
	{
		metric: MetricCO2,
		target: func(t room.EnvironmentalTargets) room.Range { return t.CO2 },
		lowType: "co2_low", lowSeverity: SeverityInfo,
		lowAdvice: "CO2 enrichment will engage during the light period",
		highType:  "co2_high", highSeverity: SeverityCritical,
		highAdvice: "Ventilate the room and check the CO2 injector",
	},
	{
		metric: MetricVPD,
		target: func(t room.EnvironmentalTargets) room.Range { return t.VPD },
		lowType: "vpd_low", lowSeverity: SeverityWarning,
		lowAdvice: "Raise temperature or lower humidity",
		highType:  "vpd_high", highSeverity: SeverityWarning,
		highAdvice: "Lower temperature or raise humidity",
	},
	{
		metric: MetricSoilMoisture,
		target: func(t room.EnvironmentalTargets) room.Range { return t.SoilMoisture },
		lowType: "soil_moisture_low", lowSeverity: SeverityCritical,
		lowAdvice: "Water immediately or check irrigation lines",
		highType:  "soil_moisture_high", highSeverity: SeverityWarning,
		highAdvice: "Hold watering and check drainage",
	},
	{
		metric: MetricPH,
		target: func(t room.EnvironmentalTargets) room.Range { return t.PH },
		lowType: "ph_low", lowSeverity: SeverityWarning,
		lowAdvice: "Adjust nutrient solution pH upward",
		highType:  "ph_high", highSeverity: SeverityWarning,
		highAdvice: "Adjust nutrient solution pH downward",
	},
	{
		metric: MetricEC,
		target: func(t room.EnvironmentalTargets) room.Range { return t.EC },
		lowType: "ec_low", lowSeverity: SeverityWarning,
		lowAdvice: "Increase nutrient concentration",
		highType:  "ec_high", highSeverity: SeverityWarning,
		highAdvice: "Dilute nutrient solution or flush medium",
	},
}

// AlertEvaluator compares readings against a room's target bands and
// produces alerts for breached metrics.
type AlertEvaluator struct{}

// NewAlertEvaluator creates an AlertEvaluator.
func NewAlertEvaluator() *AlertEvaluator {
	return &AlertEvaluator{}
}

// Evaluate returns one alert per breached metric in the reading.
// Metrics absent from the reading, and target bands left unconfigured
// (zero Min and Max), are skipped.
func (e *AlertEvaluator) Evaluate(reading *Reading, targets room.EnvironmentalTargets) []Alert {
	var alerts []Alert

	for _, rule := range alertRules {
		value, present := reading.Metrics[rule.metric]
		if !present {
			continue
		}
		band := rule.target(targets)
		if band.Min == 0 && band.Max == 0 {
			continue
		}
		if band.Contains(value) {
			continue
		}

		var (
			alertType string
			severity  Severity
			advice    string
			limit     float64
			side      string
		)
		if value < band.Min {
			alertType, severity, advice = rule.lowType, rule.lowSeverity, rule.lowAdvice
			limit, side = band.Min, "below minimum"
		} else {
			alertType, severity, advice = rule.highType, rule.highSeverity, rule.highAdvice
			limit, side = band.Max, "above maximum"
		}

		alerts = append(alerts, Alert{
			ID:             AlertID(alertType, reading.ID),
			DeviceID:       reading.DeviceID,
			RoomID:         reading.RoomID,
			AlertType:      alertType,
			Severity:       severity,
			Message:        fmt.Sprintf("%s %.2f is %s %.2f", rule.metric, value, side, limit),
			Recommendation: advice,
			CreatedAt:      reading.Timestamp,
		})
	}
	return alerts
}

// ActiveAlerts is the in-memory set of unresolved alerts. Alerts enter
// via Add and leave via Dismiss; Acknowledge marks an alert as seen
// without removing it.
//
// All methods are thread-safe.
type ActiveAlerts struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewActiveAlerts creates an empty active-alert set.
func NewActiveAlerts() *ActiveAlerts {
	return &ActiveAlerts{alerts: make(map[string]*Alert)}
}

// Add inserts an alert. Returns false if an alert with the same ID is
// already active, which makes repeated evaluation of the same reading
// idempotent.
func (s *ActiveAlerts) Add(a Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.alerts[a.ID]; exists {
		return false
	}
	cpy := a
	s.alerts[a.ID] = &cpy
	return true
}

// Acknowledge marks an alert as seen. It stays in the active set.
func (s *ActiveAlerts) Acknowledge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	a.Acknowledged = true
	return nil
}

// Dismiss removes an alert from the active set.
func (s *ActiveAlerts) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[id]; !ok {
		return ErrAlertNotFound
	}
	delete(s.alerts, id)
	return nil
}

// List returns copies of all active alerts.
func (s *ActiveAlerts) List() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, *a)
	}
	return out
}

// ListForRoom returns copies of the active alerts for one room.
func (s *ActiveAlerts) ListForRoom(roomID string) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Alert
	for _, a := range s.alerts {
		if a.RoomID == roomID {
			out = append(out, *a)
		}
	}
	return out
}
