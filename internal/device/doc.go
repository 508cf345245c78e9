// Package device manages the sensor and actuator inventory.
//
// Every device belongs to a room and carries a Type that determines
// how the engine treats it: sensor types are sampled on a per-type
// schedule (see SamplingPeriod), actuator types receive commands from
// the dispatch layer (see HandlesCommand).
//
// The package follows the registry-over-repository pattern used
// throughout the codebase: SQLiteRepository persists devices, Registry
// fronts it with a thread-safe in-memory cache keyed by device and by
// room. Intake and dispatch resolve devices on every loop tick, so
// reads are served from the cache with deep-copy isolation.
//
// Calibration offsets are stored per metric on the device and applied
// by the sensor pipeline before smoothing.
package device
