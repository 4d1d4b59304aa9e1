package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/csg/gpucore"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestDevice(t *testing.T, w, h int) *Device {
	t.Helper()
	device, queue := createNoopDevice(t)
	d, err := NewFromHAL(device, queue, w, h)
	if err != nil {
		t.Fatalf("NewFromHAL: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestShaderCompiles(t *testing.T) {
	spirv, err := naga.Compile(csgShaderSource)
	if err != nil {
		t.Fatalf("naga.Compile: %v", err)
	}
	if len(spirv) == 0 {
		t.Fatal("empty SPIR-V output")
	}
}

func TestNewFromHAL(t *testing.T) {
	d := newTestDevice(t, 64, 32)
	if d.Main().Width() != 64 || d.Main().Height() != 32 {
		t.Errorf("main = %dx%d, want 64x32", d.Main().Width(), d.Main().Height())
	}
	if d.Viewport() != (gpucore.Rect{Width: 64, Height: 32}) {
		t.Errorf("viewport = %+v", d.Viewport())
	}
	if d.State() != gpucore.DefaultState() {
		t.Error("state should start as DefaultState")
	}
	if d.BoundFramebuffer() != nil {
		t.Error("main framebuffer should be bound")
	}
	if err := d.Flush(); err != nil {
		t.Errorf("Flush after initial clear: %v", err)
	}
}

func TestNewFromHALInvalidSize(t *testing.T) {
	device, queue := createNoopDevice(t)
	if _, err := NewFromHAL(device, queue, 0, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("err = %v, want ErrInvalidDimensions", err)
	}
}

func TestNewFromProviderWithoutHAL(t *testing.T) {
	if _, err := NewFromProvider(nil, 8, 8); !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("err = %v, want ErrInvalidProvider", err)
	}
}

func TestCapabilities(t *testing.T) {
	c := Capabilities()
	if c.Occlusion != gpucore.OcclusionNone || c.DepthBounds || c.StencilReadback {
		t.Errorf("unexpected optional features: %+v", c)
	}
	if !c.PackedChannels || !c.Shaders || c.Programs {
		t.Errorf("merge paths = %+v", c)
	}
	if c.StencilBits != 8 || c.Framebuffers != gpucore.FramebufferCore {
		t.Errorf("stencil/framebuffers = %+v", c)
	}
}

func TestUnsupported(t *testing.T) {
	d := newTestDevice(t, 8, 8)
	if _, err := d.CreateQuery(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CreateQuery err = %v", err)
	}
	if _, err := d.ReadStencil(gpucore.Rect{Width: 1, Height: 1}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ReadStencil err = %v", err)
	}
	if _, err := d.CreateFramebuffer(gpucore.FramebufferEXT, 8, 8); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CreateFramebuffer(EXT) err = %v", err)
	}
	if _, err := d.CreateFramebuffer(gpucore.FramebufferCore, maxFramebufferSize+1, 8); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("CreateFramebuffer(too large) err = %v", err)
	}
}

func TestKeyFor(t *testing.T) {
	s := gpucore.DefaultState()
	s.DepthTest = false
	s.DepthWrite = true
	k := keyFor(&s, false)
	if k.depthCompare != gputypes.CompareFunctionAlways || k.depthWrite {
		t.Errorf("disabled depth test = %v/%v, want Always without writes", k.depthCompare, k.depthWrite)
	}
	if k.stencil || k.passOp != gpucore.StencilKeep {
		t.Error("disabled stencil test should keep values")
	}

	s = gpucore.DefaultState()
	s.StencilTest = true
	s.Stencil = gpucore.StencilState{
		Compare:   gputypes.CompareFunctionEqual,
		Ref:       3,
		ReadMask:  0x0f,
		WriteMask: 0x01,
		PassOp:    gpucore.StencilInvert,
	}
	k = keyFor(&s, true)
	if !k.stencil || k.compare != gputypes.CompareFunctionEqual || k.readMask != 0x0f || k.writeMask != 0x01 {
		t.Errorf("stencil key = %+v", k)
	}
	if !k.customShader {
		t.Error("custom shader flag lost")
	}

	// The reference value is dynamic state.
	s2 := s
	s2.Stencil.Ref = 9
	if keyFor(&s2, true) != k {
		t.Error("stencil reference should not change the pipeline key")
	}
}

func TestFlipRect(t *testing.T) {
	got := flipRect(gpucore.Rect{X: 2, Y: 1, Width: 4, Height: 3}, 10)
	want := gpucore.Rect{X: 2, Y: 6, Width: 4, Height: 3}
	if got != want {
		t.Errorf("flipRect = %+v, want %+v", got, want)
	}
}

func TestCodes(t *testing.T) {
	channels := map[gpucore.Channel]uint32{
		gpucore.NoChannel: 0, gpucore.Alpha: 1, gpucore.Red: 2,
		gpucore.Green: 3, gpucore.Blue: 4, gpucore.All: 5,
	}
	for c, want := range channels {
		if got := channelCode(c); got != want {
			t.Errorf("channelCode(%v) = %d, want %d", c, got, want)
		}
	}
	compares := map[gputypes.CompareFunction]uint32{
		gputypes.CompareFunctionNever:        1,
		gputypes.CompareFunctionLess:         2,
		gputypes.CompareFunctionEqual:        3,
		gputypes.CompareFunctionLessEqual:    4,
		gputypes.CompareFunctionGreater:      5,
		gputypes.CompareFunctionNotEqual:     6,
		gputypes.CompareFunctionGreaterEqual: 7,
		gputypes.CompareFunctionAlways:       8,
	}
	for f, want := range compares {
		if got := compareCode(f); got != want {
			t.Errorf("compareCode(%v) = %d, want %d", f, got, want)
		}
	}
}

func TestClearState(t *testing.T) {
	cur := gpucore.DefaultState()
	cur.ColorWriteMask = gputypes.ColorWriteMaskRed
	cur.DepthWrite = false
	cur.Stencil.WriteMask = 0x80
	cur.ScissorTest = true
	cur.Scissor = gpucore.Rect{X: 1, Y: 1, Width: 2, Height: 2}

	s := clearState(&cur, gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil,
		gpucore.ClearValues{Color: gpucore.Splat(7), Depth: 1, Stencil: 5})
	if s.ColorWriteMask != gputypes.ColorWriteMaskRed {
		t.Errorf("color mask = %v, want red only", s.ColorWriteMask)
	}
	if s.DepthTest && s.DepthWrite {
		t.Error("depth must not be written while depth writes are off")
	}
	if !s.StencilTest || s.Stencil.Ref != 5 || s.Stencil.WriteMask != 0x80 || s.Stencil.PassOp != gpucore.StencilReplace {
		t.Errorf("stencil = %+v", s.Stencil)
	}
	if !s.ScissorTest || s.Scissor != cur.Scissor {
		t.Error("clear must honor the scissor")
	}

	s = clearState(&cur, gpucore.ClearStencil, gpucore.ClearValues{})
	if s.ColorWriteMask != gputypes.ColorWriteMaskNone {
		t.Error("stencil-only clear must not write color")
	}
}

func TestUniformBytes(t *testing.T) {
	d := newTestDevice(t, 16, 16)
	fb, err := d.CreateFramebuffer(gpucore.FramebufferCore, 10, 6)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Destroy()
	src := fb.(*Framebuffer)

	s := gpucore.DefaultState()
	test := &gpucore.TextureTest{Source: fb, Channel: gpucore.Green, Compare: gputypes.CompareFunctionEqual, Ref: 42}
	u := uniformBytes(gpucore.Identity(), &s, test, src, gpucore.Rect{X: -3, Y: 2, Width: 10, Height: 6}, 16)
	if len(u) != uniformSize {
		t.Fatalf("len = %d, want %d", len(u), uniformSize)
	}
	word := func(o int) uint32 {
		return uint32(u[o]) | uint32(u[o+1])<<8 | uint32(u[o+2])<<16 | uint32(u[o+3])<<24
	}
	if word(80) != 3 || word(84) != 3 || word(88) != 42 {
		t.Errorf("test = %d %d %d", word(80), word(84), word(88))
	}
	if int32(word(96)) != -3 || word(100) != 2 || word(104) != 16 {
		t.Errorf("frame = %d %d %d", int32(word(96)), word(100), word(104))
	}
	if word(112) != 10 || word(116) != 6 || word(120) != 64 {
		t.Errorf("src = %d %d %d, want 10 6 64", word(112), word(116), word(120))
	}
}

func TestDrawAndFlush(t *testing.T) {
	d := newTestDevice(t, 32, 32)
	fb, err := d.CreateFramebuffer(gpucore.FramebufferCore, 32, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Destroy()

	d.BindFramebuffer(fb)
	d.Clear(gpucore.ClearColor|gpucore.ClearDepth, gpucore.ClearValues{Depth: 1})
	d.DrawTriangles([]gpucore.Vertex{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 0, Y: 1}})
	d.BindFramebuffer(nil)

	s := gpucore.DefaultState()
	s.TextureTest = &gpucore.TextureTest{Source: fb, Channel: gpucore.Alpha, Compare: gputypes.CompareFunctionEqual, Ref: 255}
	d.SetState(s)
	d.DrawQuad(0.5)
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	src := fb.(*Framebuffer)
	if src.snapshot == nil || src.snapshot.version != src.version {
		t.Error("texture test should have taken a current snapshot")
	}
	// Same pipeline state again hits the cache.
	misses := d.pipelines.misses.Load()
	d.DrawQuad(0.5)
	if d.pipelines.misses.Load() != misses {
		t.Error("repeated state should reuse the cached pipeline")
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestReadColorSize(t *testing.T) {
	d := newTestDevice(t, 8, 4)
	px, err := d.ReadColor(gpucore.Rect{X: 6, Y: 2, Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("ReadColor: %v", err)
	}
	if len(px) != 4*2*2 {
		t.Errorf("len = %d, want %d", len(px), 16)
	}
}

func TestSetVertexShader(t *testing.T) {
	d := newTestDevice(t, 8, 8)
	if err := d.SetVertexShader("not wgsl"); err == nil {
		t.Error("invalid WGSL should be rejected")
	}
	if err := d.SetVertexShader(csgShaderSource); err != nil {
		t.Fatalf("SetVertexShader: %v", err)
	}
	if d.pipelines.vertexShader == nil {
		t.Error("override module not installed")
	}
	if err := d.SetVertexShader(""); err != nil {
		t.Fatal(err)
	}
	if d.pipelines.vertexShader != nil {
		t.Error("empty source should restore the built-in stage")
	}
}

func TestBindForeignFramebufferPanics(t *testing.T) {
	a := newTestDevice(t, 8, 8)
	b := newTestDevice(t, 8, 8)
	fb, err := b.CreateFramebuffer(gpucore.FramebufferCore, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Destroy()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrForeignFramebuffer) {
			t.Errorf("recover() = %v, want ErrForeignFramebuffer", r)
		}
	}()
	a.BindFramebuffer(fb)
}

func TestFramebufferResize(t *testing.T) {
	d := newTestDevice(t, 8, 8)
	fb, err := d.CreateFramebuffer(gpucore.FramebufferCore, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Destroy()
	if err := fb.Resize(20, 12); err != nil {
		t.Fatal(err)
	}
	if fb.Width() != 20 || fb.Height() != 12 {
		t.Errorf("size = %dx%d", fb.Width(), fb.Height())
	}
	if err := fb.Resize(0, 1); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("err = %v", err)
	}
}
