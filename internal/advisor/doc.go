// Package advisor provides the predictive watering heuristic used by
// the smart-watering path of the control engine.
//
// The advisor is deliberately deterministic: given the same room
// configuration and metrics it always returns the same prediction, so
// control behaviour is reproducible and testable. It weighs how close
// the soil is to the room's watering threshold against the current
// evaporative demand (VPD), and reports a confidence the control loop
// gates on before acting.
package advisor
