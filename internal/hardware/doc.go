// Package hardware adapts the MQTT message bus to the sensing and
// control layers.
//
// Sensor firmware publishes retained metric payloads on the sensor
// topics; the adapter caches the latest payload per device and serves
// it to the intake pipeline on demand. In the other direction it
// publishes actuator commands, alerts and notifications produced by
// the control engine.
//
// The adapter never blocks on the broker during a read: ReadDevice and
// TankLevel answer from the local cache, so a broker outage degrades
// to stale-data errors rather than stalled control loops.
package hardware
