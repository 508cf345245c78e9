package control

import "time"

// Domain partitions controllers and metrics. Each control loop owns
// one domain; safety is a separate domain so emergency actions never
// mix counters with routine climate work.
type Domain string

const (
	DomainClimate  Domain = "climate"
	DomainWatering Domain = "watering"
	DomainLighting Domain = "lighting"
	DomainCO2      Domain = "co2"
	DomainSafety   Domain = "safety"
)

// ActionType identifies a computed automation instruction.
type ActionType string

const (
	ActionHeating          ActionType = "heating"
	ActionCooling          ActionType = "cooling"
	ActionHumidification   ActionType = "humidification"
	ActionDehumidification ActionType = "dehumidification"
	ActionCirculation      ActionType = "circulation"
	ActionMaintain         ActionType = "maintain"

	ActionWatering      ActionType = "watering"
	ActionDrainage      ActionType = "drainage"
	ActionWateringLimit ActionType = "watering_limit_alert"

	ActionLightingOn  ActionType = "lighting_on"
	ActionLightingOff ActionType = "lighting_off"

	ActionCO2Enrichment ActionType = "co2_enrichment"
	ActionVentilation   ActionType = "ventilation"
	ActionCO2TankAlert  ActionType = "co2_tank_alert"

	ActionEmergencyShutdown ActionType = "emergency_shutdown"
)

// Action is one computed instruction for one control cycle. Actions
// are ephemeral: produced by a strategy, consumed by dispatch, never
// persisted.
type Action struct {
	Type   ActionType
	Value  float64 // magnitude, usually in [0,1]
	Reason string

	// Priority ranks conflicting actions, 1 (routine) to 10
	// (emergency shutdown).
	Priority int

	// Duration bounds timed actions (watering, CO2 injection).
	// Zero means the actuator's own default.
	Duration time.Duration
}

// Command is the hardware-level instruction derived from an Action.
type Command struct {
	Type     string
	Value    float64
	Duration time.Duration
}

// actionCommands is the fixed action-to-command table. Action types
// with no entry (maintain, alert actions) carry no hardware command;
// the dispatcher completes them without touching a device.
var actionCommands = map[ActionType]string{
	ActionHeating:           "heat",
	ActionCooling:           "cool",
	ActionHumidification:    "humidify",
	ActionDehumidification:  "dehumidify",
	ActionCirculation:       "circulate",
	ActionWatering:          "water",
	ActionDrainage:          "drain",
	ActionLightingOn:        "set_light",
	ActionLightingOff:       "set_light",
	ActionCO2Enrichment:     "inject_co2",
	ActionVentilation:       "ventilate",
	ActionEmergencyShutdown: "emergency_stop",
}

// CommandFor returns the hardware command name for an action type.
// The second return is false for alert and maintain actions.
func CommandFor(t ActionType) (string, bool) {
	cmd, ok := actionCommands[t]
	return cmd, ok
}

// Controller is the mutable per-(room, domain) automation record.
// Exactly one exists per pair; it is created lazily on first use and
// never deleted. All mutation goes through the ControllerStore.
type Controller struct {
	RoomID string
	Domain Domain

	TotalActions   int64
	ErrorCount     int64
	LastActionTime time.Time

	// DailyWateringCount resets on the first check after the local
	// date changes. Only meaningful for the watering domain.
	DailyWateringCount int
	lastWateringDay    string // YYYY-MM-DD in site-local time

	// EnergyConsumed is the accumulated actuator energy estimate (Wh).
	EnergyConsumed float64

	StartedAt time.Time
}

// Snapshot is a read-only copy of a Controller for reporting.
type Snapshot struct {
	RoomID             string    `json:"room_id"`
	Domain             Domain    `json:"domain"`
	TotalActions       int64     `json:"total_actions"`
	ErrorCount         int64     `json:"error_count"`
	LastActionTime     time.Time `json:"last_action_time"`
	DailyWateringCount int       `json:"daily_watering_count"`
	EnergyConsumed     float64   `json:"energy_consumed"`
	StartedAt          time.Time `json:"started_at"`
	Uptime             time.Duration `json:"uptime"`
}

// PerformanceMetrics aggregates a room's controllers across domains.
type PerformanceMetrics struct {
	RoomID       string              `json:"room_id"`
	TotalActions int64               `json:"total_actions"`
	ErrorCount   int64               `json:"error_count"`
	Domains      map[Domain]Snapshot `json:"domains"`
}

// EmergencyShutdown is the immutable record of a critical safety
// breach. Resolution only flips the Resolved flag; the record itself
// is never rewritten.
type EmergencyShutdown struct {
	ID         string     `json:"id"`
	RoomID     string     `json:"room_id"`
	Reason     string     `json:"reason"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Prediction is the smart-watering advisor's answer.
type Prediction struct {
	ShouldWater bool    `json:"should_water"`
	Amount      float64 `json:"amount"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// Notification is an engine-emitted event for external delivery
// (limit reached, tank low, emergency entered).
type Notification struct {
	RoomID    string    `json:"room_id"`
	Domain    Domain    `json:"domain"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}
