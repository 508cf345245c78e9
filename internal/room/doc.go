// Package room manages grow-room configuration for Canopy Core.
//
// A Room bundles the environmental target bands (temperature, humidity,
// CO2, VPD, light, soil moisture, pH/EC, water level) with per-domain
// automation settings. Rooms are edited externally; the control engine
// only reads them.
//
// # Components
//
//   - Room, EnvironmentalTargets, AutomationSettings: configuration types
//   - Repository: persistence interface with a SQLite implementation
//   - Registry: cached, thread-safe access layer used by the control loops
//
// # Thread Safety
//
// Registry methods are safe for concurrent use. Cached rooms are deep
// copied on the way in and out, so callers never share mutable state.
package room
