package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrOutOfRange) {
//	    // reject the requested position
//	}
var (
	// ErrOutOfRange is returned when a slot position is outside [0, capacity).
	ErrOutOfRange = errors.New("device: position out of range")

	// ErrNotFound is returned when no slot matches a requested name.
	ErrNotFound = errors.New("device: not found")

	// ErrInvalidValue is returned when Configure receives a value of the wrong kind.
	ErrInvalidValue = errors.New("device: invalid configuration value")

	// ErrInvalidCapacity is returned when a selector is created without slots.
	ErrInvalidCapacity = errors.New("device: capacity must be positive")

	// ErrCycle is returned when a parent assignment would make a device its own ancestor.
	ErrCycle = errors.New("device: parent cycle")
)
