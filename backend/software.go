package backend

import (
	"github.com/gogpu/csg/backend/software"
	"github.com/gogpu/csg/gpucore"
)

// SoftwareBackend creates CPU reference devices. It is always available.
type SoftwareBackend struct {
	initialized bool
	opts        []software.Option
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() Backend {
		return &SoftwareBackend{}
	})
}

// NewSoftwareBackend creates a new software backend whose devices are
// configured with opts.
func NewSoftwareBackend(opts ...software.Option) *SoftwareBackend {
	return &SoftwareBackend{opts: opts}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// Init initializes the backend.
func (b *SoftwareBackend) Init() error {
	b.initialized = true
	return nil
}

// Close releases all backend resources.
func (b *SoftwareBackend) Close() {
	b.initialized = false
}

// NewDevice creates a software device.
func (b *SoftwareBackend) NewDevice(width, height int) (gpucore.Device, error) {
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return software.New(width, height, b.opts...)
}
