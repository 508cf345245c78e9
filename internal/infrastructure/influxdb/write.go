package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading writes a processed sensor reading to InfluxDB.
//
// Each present metric becomes a field on a single "sensor_reading" point
// tagged by room and device. Quality score and anomaly flag are recorded
// alongside so dashboards can filter low-confidence data.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - roomID: Room the reading belongs to
//   - deviceID: Device that produced the reading
//   - fields: Metric name → value pairs (e.g., "temperature_c": 24.5)
//   - timestamp: The reading timestamp
func (c *Client) WriteSensorReading(roomID, deviceID string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"sensor_reading",
		map[string]string{
			"room_id":   roomID,
			"device_id": deviceID,
		},
		fields,
		timestamp,
	)
	c.writeAPI.WritePoint(point)
}

// WriteActionMetric records a dispatched automation action.
//
// Used for auditing control decisions and correlating actuator activity
// with sensor trends.
//
// Parameters:
//   - roomID: Room the action applies to
//   - domain: Control domain ("climate", "watering", "lighting", "co2", "safety")
//   - actionType: The action type (e.g., "heating", "ventilation")
//   - value: Action magnitude
//   - priority: Action priority (1-10)
func (c *Client) WriteActionMetric(roomID, domain, actionType string, value float64, priority int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"automation_action",
		map[string]string{
			"room_id": roomID,
			"domain":  domain,
			"action":  actionType,
		},
		map[string]interface{}{
			"value":    value,
			"priority": priority,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WriteSafetyEvent records a safety evaluation outcome.
//
// Parameters:
//   - roomID: Room the event applies to
//   - level: Severity level ("warning", "critical")
//   - problem: The detected problem (e.g., "high_temperature")
func (c *Client) WriteSafetyEvent(roomID, level, problem string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"safety_event",
		map[string]string{
			"room_id": roomID,
			"level":   level,
		},
		map[string]interface{}{
			"problem": problem,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
