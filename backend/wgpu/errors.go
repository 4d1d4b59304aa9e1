package wgpu

import "errors"

var (
	// ErrUnsupported is returned for features the device reports absent.
	ErrUnsupported = errors.New("wgpu: unsupported")

	// ErrNoAdapter is returned when no GPU adapter is available.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrInvalidProvider is returned when a device provider does not
	// expose hal types.
	ErrInvalidProvider = errors.New("wgpu: provider does not expose a hal device and queue")

	// ErrInvalidDimensions is returned for framebuffers without pixels.
	ErrInvalidDimensions = errors.New("wgpu: invalid framebuffer dimensions")

	// ErrForeignFramebuffer is returned when a framebuffer of another
	// device is used.
	ErrForeignFramebuffer = errors.New("wgpu: framebuffer belongs to another device")

	// ErrGPUTimeout is returned when submitted work does not complete.
	ErrGPUTimeout = errors.New("wgpu: timed out waiting for the GPU")
)
