package room

import "errors"

// Domain errors for the room package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, room.ErrRoomNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("room: not found")

	// ErrRoomExists is returned when creating a room with an ID that already exists.
	ErrRoomExists = errors.New("room: already exists")

	// ErrInvalidRoom is returned when room validation fails.
	ErrInvalidRoom = errors.New("room: invalid")

	// ErrInvalidTargets is returned when a target range has min > max.
	ErrInvalidTargets = errors.New("room: invalid targets")

	// ErrInvalidSettings is returned when automation settings are out of range.
	ErrInvalidSettings = errors.New("room: invalid automation settings")
)
