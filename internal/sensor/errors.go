package sensor

import "errors"

// Domain errors for the sensor package.
var (
	// ErrDeviceUnavailable is returned by a hardware reader when a
	// device cannot be sampled. Transient; the pipeline skips the
	// device and retries on its next sampling tick.
	ErrDeviceUnavailable = errors.New("sensor: device unavailable")

	// ErrNoReading is returned when a room has no cached reading yet.
	ErrNoReading = errors.New("sensor: no reading available")

	// ErrInvalidReading is returned when a sample fails validation
	// and is dropped.
	ErrInvalidReading = errors.New("sensor: invalid reading")

	// ErrAlertNotFound is returned when acknowledging or dismissing
	// an alert that is not in the active set.
	ErrAlertNotFound = errors.New("sensor: alert not found")
)
