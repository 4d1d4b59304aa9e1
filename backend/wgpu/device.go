package wgpu

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan backend

	"github.com/gogpu/csg/gpucore"
)

// maxFramebufferSize is the texture dimension every WebGPU adapter
// supports.
const maxFramebufferSize = 8192

// emptySourceSize is the size of the placeholder texture-test source.
const emptySourceSize = 4

// waitTimeout bounds how long a readback waits for submitted work.
const waitTimeout = 5 * time.Second

// Capabilities returns what the device offers to the CSG algorithms.
func Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{
		Framebuffers:       gpucore.FramebufferCore,
		NonPowerOfTwo:      true,
		MaxFramebufferSize: maxFramebufferSize,
		StencilBits:        8,
		Occlusion:          gpucore.OcclusionNone,
		PackedChannels:     true,
		Shaders:            true,
	}
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// Device implements [gpucore.Device] with WebGPU render pipelines.
//
// Draw calls cannot fail through the [gpucore.Device] interface, so the
// first recording error is kept and returned by the next Flush or
// readback. Later draws are dropped until then.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // non-nil when the device is owned
	logger   *slog.Logger

	main      *Framebuffer
	bound     *Framebuffer
	viewport  gpucore.Rect
	state     gpucore.State
	transform gpucore.Mat4
	shader    string

	pipelines *pipelineCache
	// empty is bound as the texture-test source when the test is off.
	empty hal.Buffer

	encoder    hal.CommandEncoder
	pass       hal.RenderPassEncoder
	passTarget *Framebuffer
	garbage    []hal.Buffer
	groups     []hal.BindGroup

	err    error
	closed bool
}

var _ gpucore.Device = (*Device)(nil)

// New creates a standalone device on the first Vulkan adapter, preferring
// discrete and integrated GPUs, with a main framebuffer of the given size.
func New(width, height int, opts ...Option) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	d, err := NewFromHAL(openDev.Device, openDev.Queue, width, height, opts...)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.logger.Info("wgpu: device initialized (standalone)", "adapter", selected.Info.Name)
	return d, nil
}

// NewFromProvider creates a device sharing the GPU of a host application.
// The provider must also implement HalDevice() any and HalQueue() any
// returning the hal device and queue.
func NewFromProvider(provider gpucontext.DeviceProvider, width, height int, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrInvalidProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrInvalidProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrInvalidProvider)
	}
	return NewFromHAL(device, queue, width, height, opts...)
}

// NewFromHAL creates a device on an open hal device and queue, which stay
// owned by the caller.
func NewFromHAL(device hal.Device, queue hal.Queue, width, height int, opts ...Option) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	d := &Device{
		device:    device,
		queue:     queue,
		logger:    slog.New(slog.DiscardHandler),
		viewport:  gpucore.Rect{Width: width, Height: height},
		state:     gpucore.DefaultState(),
		transform: gpucore.Identity(),
	}
	for _, opt := range opts {
		opt(d)
	}

	pipelines, err := newPipelineCache(device)
	if err != nil {
		return nil, err
	}
	d.pipelines = pipelines

	empty, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "csg_empty_source",
		Size:  emptySourceSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		pipelines.destroy()
		return nil, fmt.Errorf("create source buffer: %w", err)
	}
	d.empty = empty

	d.main = &Framebuffer{dev: d, kind: gpucore.FramebufferCore}
	if err := d.main.allocate(width, height); err != nil {
		d.Close()
		return nil, err
	}

	// Fresh attachments hold undefined contents; start from a cleared
	// framebuffer like a new GL context.
	d.Clear(gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil, gpucore.ClearValues{Depth: 1})
	return d, nil
}

// SetLogger replaces the device logger. Nil disables logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.logger = l
}

// Main returns the main framebuffer.
func (d *Device) Main() *Framebuffer { return d.main }

func (d *Device) Capabilities() gpucore.Capabilities { return Capabilities() }

func (d *Device) Viewport() gpucore.Rect     { return d.viewport }
func (d *Device) SetViewport(r gpucore.Rect) { d.viewport = r }

func (d *Device) State() gpucore.State     { return d.state }
func (d *Device) SetState(s gpucore.State) { d.state = s }

func (d *Device) Transform() gpucore.Mat4     { return d.transform }
func (d *Device) SetTransform(m gpucore.Mat4) { d.transform = m }

func (d *Device) target() *Framebuffer {
	if d.bound != nil {
		return d.bound
	}
	return d.main
}

// CreateFramebuffer allocates an offscreen core framebuffer.
func (d *Device) CreateFramebuffer(kind gpucore.FramebufferKind, width, height int) (gpucore.Framebuffer, error) {
	if kind != gpucore.FramebufferCore {
		return nil, fmt.Errorf("%w: framebuffer kind %d", ErrUnsupported, kind)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > maxFramebufferSize || height > maxFramebufferSize {
		return nil, fmt.Errorf("%w: %dx%d > %d", ErrInvalidDimensions, width, height, maxFramebufferSize)
	}
	fb := &Framebuffer{dev: d, kind: kind}
	if err := fb.allocate(width, height); err != nil {
		return nil, err
	}
	d.logger.Debug("wgpu: framebuffer created", "width", width, "height", height)
	return fb, nil
}

// BindFramebuffer directs rendering to fb, which must have been created by
// this device, or to the main framebuffer when fb is nil.
func (d *Device) BindFramebuffer(fb gpucore.Framebuffer) {
	if fb == nil {
		d.bound = nil
		return
	}
	wfb, ok := fb.(*Framebuffer)
	if !ok || wfb.dev != d {
		panic(fmt.Errorf("%w: %T", ErrForeignFramebuffer, fb))
	}
	if wfb == d.main {
		d.bound = nil
		return
	}
	d.bound = wfb
}

// BoundFramebuffer returns the bound offscreen framebuffer, or nil when
// rendering goes to the main framebuffer.
func (d *Device) BoundFramebuffer() gpucore.Framebuffer {
	if d.bound == nil {
		return nil
	}
	return d.bound
}

// CreateQuery always fails: the device has no occlusion queries.
func (d *Device) CreateQuery() (gpucore.Query, error) {
	return nil, fmt.Errorf("%w: occlusion queries", ErrUnsupported)
}

// ReadStencil always fails: the device cannot read stencil values back.
func (d *Device) ReadStencil(gpucore.Rect) ([]uint8, error) {
	return nil, fmt.Errorf("%w: stencil readback", ErrUnsupported)
}

// SetVertexShader installs a WGSL vertex stage used while the texture test
// is active. An empty source restores the built-in one.
func (d *Device) SetVertexShader(source string) error {
	if source == d.shader {
		return nil
	}
	// Pipelines referencing the old module may still be recorded.
	if err := d.Flush(); err != nil {
		return err
	}
	if err := d.pipelines.setVertexShader(source); err != nil {
		return err
	}
	d.shader = source
	return nil
}

// Flush submits recorded work, waits for it and releases the per-draw
// buffers. It returns the first error recorded since the last Flush.
func (d *Device) Flush() error {
	if err := d.submit(); err != nil {
		d.fail(err)
	}
	err := d.err
	d.err = nil
	return err
}

// Close flushes pending work and releases every GPU resource. A device
// created with [New] also destroys its hal device.
func (d *Device) Close() {
	if d.closed {
		return
	}
	if err := d.Flush(); err != nil {
		d.logger.Warn("wgpu: flush on close failed", "error", err)
	}
	d.closed = true
	if d.main != nil {
		d.main.destroyTextures()
	}
	d.freeGarbage()
	if d.empty != nil {
		d.device.DestroyBuffer(d.empty)
		d.empty = nil
	}
	if d.pipelines != nil {
		d.pipelines.destroy()
	}
	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
		d.instance = nil
	}
}

// fail records err unless an earlier error is pending.
func (d *Device) fail(err error) {
	if d.err == nil {
		d.logger.Warn("wgpu: recording failed", "error", err)
		d.err = err
	}
}

// releaseTarget submits recorded work before fb's attachments go away.
func (d *Device) releaseTarget(fb *Framebuffer) {
	if d.encoder != nil {
		if err := d.submit(); err != nil {
			d.fail(err)
		}
	}
	if d.bound == fb {
		d.bound = nil
	}
}

// discard schedules buf for destruction after the next submission.
func (d *Device) discard(buf hal.Buffer) {
	if buf != nil {
		d.garbage = append(d.garbage, buf)
	}
}

func (d *Device) freeGarbage() {
	for _, g := range d.groups {
		d.device.DestroyBindGroup(g)
	}
	for _, b := range d.garbage {
		d.device.DestroyBuffer(b)
	}
	d.groups = d.groups[:0]
	d.garbage = d.garbage[:0]
}
