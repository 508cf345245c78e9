package mqtt

import "fmt"

// Topic prefixes for the Canopy MQTT namespace.
//
// Sensor hardware publishes raw metrics on sensor topics (retained, so the
// engine sees the latest value immediately after subscribing). The engine
// publishes actuator commands on command topics and engine events on the
// alert/notification topics.
const (
	// TopicPrefix is the base for all Canopy topics.
	TopicPrefix = "canopy"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "canopy/system"
)

// Topics provides builders for Canopy MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.SensorState("room-veg-1", "th-sensor-1")
//	// Returns: "canopy/sensor/room-veg-1/th-sensor-1"
type Topics struct{}

// SensorState returns the topic a sensor device publishes raw metrics on.
//
// Example: canopy/sensor/room-veg-1/th-sensor-1
func (Topics) SensorState(roomID, deviceID string) string {
	return fmt.Sprintf("%s/sensor/%s/%s", TopicPrefix, roomID, deviceID)
}

// AllSensorStates returns a pattern matching every sensor state topic.
//
// Pattern: canopy/sensor/+/+
func (Topics) AllSensorStates() string {
	return fmt.Sprintf("%s/sensor/+/+", TopicPrefix)
}

// DeviceCommand returns the topic for actuator commands to a device.
//
// Example: canopy/command/room-veg-1/pump-1
func (Topics) DeviceCommand(roomID, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, roomID, deviceID)
}

// TankLevel returns the topic a CO2 tank level sensor publishes on.
//
// Example: canopy/tank/room-veg-1
func (Topics) TankLevel(roomID string) string {
	return fmt.Sprintf("%s/tank/%s", TopicPrefix, roomID)
}

// AllTankLevels returns a pattern matching every tank level topic.
//
// Pattern: canopy/tank/+
func (Topics) AllTankLevels() string {
	return fmt.Sprintf("%s/tank/+", TopicPrefix)
}

// Alert returns the topic for sensor alert events in a room.
//
// Example: canopy/alert/room-veg-1
func (Topics) Alert(roomID string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefix, roomID)
}

// Notification returns the topic for automation notifications in a room.
//
// Example: canopy/notification/room-veg-1
func (Topics) Notification(roomID string) string {
	return fmt.Sprintf("%s/notification/%s", TopicPrefix, roomID)
}

// SystemStatus returns the system status topic.
//
// Example: canopy/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
