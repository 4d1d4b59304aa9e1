package software

import "errors"

// Package errors for the software device.
var (
	// ErrUnsupported is returned for features disabled in the device
	// capabilities.
	ErrUnsupported = errors.New("software: feature not supported")

	// ErrInvalidDimensions is returned when a width or height is not
	// positive.
	ErrInvalidDimensions = errors.New("software: invalid dimensions")

	// ErrTooLarge is returned when a framebuffer exceeds the configured
	// maximum size.
	ErrTooLarge = errors.New("software: framebuffer too large")

	// ErrDestroyed is returned when using a destroyed framebuffer.
	ErrDestroyed = errors.New("software: framebuffer destroyed")
)
