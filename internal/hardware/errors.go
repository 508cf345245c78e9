package hardware

import "errors"

var (
	// ErrNoTankLevel indicates no tank level payload has been received
	// for the room, or the last one has gone stale.
	ErrNoTankLevel = errors.New("hardware: no tank level available")

	// ErrMalformedPayload indicates a payload that could not be decoded.
	ErrMalformedPayload = errors.New("hardware: malformed payload")
)
