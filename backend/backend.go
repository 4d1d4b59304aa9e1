package backend

import (
	"errors"

	"github.com/gogpu/csg/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU reference device.
	BackendSoftware = "software"
	// BackendWGPU is the name of the GPU device on gogpu/wgpu.
	BackendWGPU = "wgpu"
)

// Backend creates CSG devices of one kind.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init checks that the backend can create devices.
	// This should be called before NewDevice.
	Init() error

	// Close releases all backend resources, including devices it created.
	Close()

	// NewDevice creates a device whose main framebuffer has the given
	// size.
	NewDevice(width, height int) (gpucore.Device, error)
}
