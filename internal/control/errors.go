package control

import "errors"

var (
	// ErrUnknownElement is returned by System.Get for an unregistered name.
	ErrUnknownElement = errors.New("control: unknown element")

	// ErrNoObservingBlock is returned when an operation needs a current
	// observing block and there is none.
	ErrNoObservingBlock = errors.New("control: no current observing block")

	// ErrInvalidExposure is returned for an exposure time out of range.
	ErrInvalidExposure = errors.New("control: invalid exposure time")

	// ErrInvalidCount is returned for an image count out of range.
	ErrInvalidCount = errors.New("control: invalid image count")

	// ErrUnknownDevice is returned when no device has the requested name.
	ErrUnknownDevice = errors.New("control: unknown device")

	// ErrNotTurnable is returned by Console.Turn for devices without Turn.
	ErrNotTurnable = errors.New("control: device cannot turn")

	// ErrUnknownAction is returned by the command handler.
	ErrUnknownAction = errors.New("control: unknown action")

	// ErrMetaPath is returned by System.SetMeta for a malformed path.
	ErrMetaPath = errors.New("control: invalid metadata path")

	// ErrHeaderPath is returned when a header template names missing metadata.
	ErrHeaderPath = errors.New("control: header path not found")

	// ErrExposureNotFound is returned by Repository.Get.
	ErrExposureNotFound = errors.New("control: exposure not found")

	// ErrNoRepository is returned when exposures are queried without storage.
	ErrNoRepository = errors.New("control: no exposure repository")
)
