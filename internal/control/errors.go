package control

import "errors"

// Domain errors for the control package.
var (
	// ErrDispatchFailed is returned when a hardware command could not
	// be delivered. Per-action; a batch continues past it.
	ErrDispatchFailed = errors.New("control: dispatch failed")

	// ErrNoEmergency is returned when resolving a room that has no
	// active emergency.
	ErrNoEmergency = errors.New("control: no active emergency")

	// ErrEngineRunning is returned when starting an engine twice.
	ErrEngineRunning = errors.New("control: engine already running")
)
