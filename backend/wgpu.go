package backend

import (
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/csg/backend/wgpu"
	"github.com/gogpu/csg/gpucore"
)

// WGPUBackend creates standalone GPU devices on gogpu/wgpu.
type WGPUBackend struct {
	mu          sync.Mutex
	initialized bool
	opts        []wgpu.Option
	devices     []*wgpu.Device
}

func init() {
	Register(BackendWGPU, func() Backend {
		return &WGPUBackend{}
	})
}

// NewWGPUBackend creates a new wgpu backend whose devices are configured
// with opts.
func NewWGPUBackend(opts ...wgpu.Option) *WGPUBackend {
	return &WGPUBackend{opts: opts}
}

// Name returns the backend identifier.
func (b *WGPUBackend) Name() string {
	return BackendWGPU
}

// Init checks that a Vulkan adapter is present.
func (b *WGPUBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	vk, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return ErrBackendNotAvailable
	}
	instance, err := vk.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return err
	}
	defer instance.Destroy()
	if len(instance.EnumerateAdapters(nil)) == 0 {
		return wgpu.ErrNoAdapter
	}
	b.initialized = true
	return nil
}

// Close closes every device the backend created.
func (b *WGPUBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		d.Close()
	}
	b.devices = nil
	b.initialized = false
}

// NewDevice creates a standalone wgpu device.
func (b *WGPUBackend) NewDevice(width, height int) (gpucore.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	d, err := wgpu.New(width, height, b.opts...)
	if err != nil {
		return nil, err
	}
	b.devices = append(b.devices, d)
	return d, nil
}
