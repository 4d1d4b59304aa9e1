// Package software implements [gpucore.Device] on the CPU.
//
// The device is a reference rasterizer: triangles are clipped against the
// near and far planes, snapped to 1/256 pixel and scan converted with
// integer edge functions and the top-left fill rule, so meshes sharing
// edges are covered exactly once and re-rendering the same geometry yields
// bit-identical depth. Every fixed-function test and stencil operation of
// [gpucore.State] is supported, as are counting occlusion queries, stencil
// readback and offscreen framebuffers. Features can be switched off through
// [WithCapabilities] to exercise the degraded paths of the algorithms.
package software

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/csg/gpucore"
)

// FullCapabilities returns the capabilities of a device with every feature
// enabled.
func FullCapabilities() gpucore.Capabilities {
	return gpucore.Capabilities{
		Framebuffers:    gpucore.FramebufferCore | gpucore.FramebufferEXT,
		NonPowerOfTwo:   true,
		StencilBits:     8,
		Occlusion:       gpucore.OcclusionSampleCount,
		DepthBounds:     true,
		PackedChannels:  true,
		Programs:        true,
		Shaders:         true,
		StencilReadback: true,
	}
}

// Option configures a Device.
type Option func(*Device)

// WithCapabilities replaces the advertised capabilities.
func WithCapabilities(c gpucore.Capabilities) Option {
	return func(d *Device) {
		d.caps = c
	}
}

// WithLogger sets the device logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		d.logger = l
	}
}

// Stats counts the work a device has done.
type Stats struct {
	Triangles int
	Fragments int
	Clears    int
}

// Device is a CPU implementation of [gpucore.Device].
type Device struct {
	caps      gpucore.Capabilities
	main      *Framebuffer
	bound     *Framebuffer
	viewport  gpucore.Rect
	state     gpucore.State
	transform gpucore.Mat4
	query     *query
	shader    string
	logger    *slog.Logger
	stats     Stats
}

var _ gpucore.Device = (*Device)(nil)

// New creates a device with a main framebuffer of the given size. The
// viewport covers the whole framebuffer and the state is
// [gpucore.DefaultState].
func New(width, height int, opts ...Option) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	d := &Device{
		caps:      FullCapabilities(),
		main:      newFramebuffer(gpucore.FramebufferCore, width, height),
		viewport:  gpucore.Rect{Width: width, Height: height},
		state:     gpucore.DefaultState(),
		transform: gpucore.Identity(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
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

// Stats returns the work counters.
func (d *Device) Stats() Stats { return d.stats }

// ResetStats zeroes the work counters.
func (d *Device) ResetStats() { d.stats = Stats{} }

// VertexShader returns the source set by SetVertexShader.
func (d *Device) VertexShader() string { return d.shader }

func (d *Device) Capabilities() gpucore.Capabilities { return d.caps }

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

// CreateFramebuffer allocates an offscreen framebuffer of a supported kind.
func (d *Device) CreateFramebuffer(kind gpucore.FramebufferKind, width, height int) (gpucore.Framebuffer, error) {
	if d.caps.Framebuffers&kind == 0 {
		return nil, fmt.Errorf("%w: framebuffer kind %d", ErrUnsupported, kind)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if limit := d.caps.MaxFramebufferSize; limit > 0 && (width > limit || height > limit) {
		return nil, fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, width, height, limit)
	}
	d.logger.Debug("software: framebuffer created", "width", width, "height", height)
	return newFramebuffer(kind, width, height), nil
}

// BindFramebuffer directs rendering to fb, which must have been created by
// this package, or to the main framebuffer when fb is nil.
func (d *Device) BindFramebuffer(fb gpucore.Framebuffer) {
	if fb == nil {
		d.bound = nil
		return
	}
	sfb, ok := fb.(*Framebuffer)
	if !ok {
		panic(fmt.Sprintf("software: cannot bind foreign framebuffer %T", fb))
	}
	if sfb == d.main {
		d.bound = nil
		return
	}
	d.bound = sfb
}

// BoundFramebuffer returns the bound offscreen framebuffer, or nil when
// rendering goes to the main framebuffer.
func (d *Device) BoundFramebuffer() gpucore.Framebuffer {
	if d.bound == nil {
		return nil
	}
	return d.bound
}

// Clear fills the bound framebuffer honoring scissor and write masks.
func (d *Device) Clear(mask gpucore.ClearMask, v gpucore.ClearValues) {
	fb := d.target()
	d.stats.Clears++
	r := gpucore.Rect{Width: fb.width, Height: fb.height}
	if d.state.ScissorTest {
		r = r.Intersect(d.state.Scissor)
	}
	s := &d.state
	cm := colorMask(s.ColorWriteMask)
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			idx := y*fb.width + x
			if mask&gpucore.ClearColor != 0 {
				writeColor(fb.color[4*idx:4*idx+4], v.Color, cm)
			}
			if mask&gpucore.ClearDepth != 0 && s.DepthWrite {
				fb.depth[idx] = v.Depth
			}
			if mask&gpucore.ClearStencil != 0 {
				wm := s.Stencil.WriteMask
				fb.stencil[idx] = fb.stencil[idx]&^wm | v.Stencil&wm
			}
		}
	}
}

// ReadStencil returns the stencil values of r, clamped to the bound
// framebuffer.
func (d *Device) ReadStencil(r gpucore.Rect) ([]uint8, error) {
	if !d.caps.StencilReadback {
		return nil, fmt.Errorf("%w: stencil readback", ErrUnsupported)
	}
	fb := d.target()
	r = r.Intersect(gpucore.Rect{Width: fb.width, Height: fb.height})
	out := make([]uint8, 0, r.Width*r.Height)
	for y := r.Y; y < r.Y+r.Height; y++ {
		out = append(out, fb.stencil[y*fb.width+r.X:y*fb.width+r.X+r.Width]...)
	}
	return out, nil
}

// ReadColor returns the RGBA bytes of r, clamped to the bound framebuffer.
func (d *Device) ReadColor(r gpucore.Rect) ([]uint8, error) {
	fb := d.target()
	r = r.Intersect(gpucore.Rect{Width: fb.width, Height: fb.height})
	out := make([]uint8, 0, 4*r.Width*r.Height)
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := 4 * (y*fb.width + r.X)
		out = append(out, fb.color[row:row+4*r.Width]...)
	}
	return out, nil
}

// SetVertexShader records the override. The rasterizer always applies the
// current transform, which is what every supported override computes.
func (d *Device) SetVertexShader(source string) error {
	if source != "" && !d.caps.Shaders {
		return fmt.Errorf("%w: vertex shader override", ErrUnsupported)
	}
	d.shader = source
	return nil
}

// Flush is a no-op: all work completes synchronously.
func (d *Device) Flush() error { return nil }
