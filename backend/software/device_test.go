package software

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/gpucore"
)

func newDevice(t *testing.T, w, h int, opts ...Option) *Device {
	t.Helper()
	d, err := New(w, h, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// countState increments the stencil for every covered fragment.
func countState() gpucore.State {
	s := gpucore.DefaultState()
	s.DepthTest = false
	s.StencilTest = true
	s.Stencil.Compare = gputypes.CompareFunctionAlways
	s.Stencil.PassOp = gpucore.StencilIncr
	return s
}

func TestNewInvalidDimensions(t *testing.T) {
	if _, err := New(0, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("New(0, 10) error = %v, want ErrInvalidDimensions", err)
	}
}

func TestQuadCoversEveryPixelOnce(t *testing.T) {
	d := newDevice(t, 37, 23)
	d.SetState(countState())
	d.DrawQuad(0.5)
	for y := 0; y < 23; y++ {
		for x := 0; x < 37; x++ {
			if s := d.Main().Stencil(x, y); s != 1 {
				t.Fatalf("pixel (%d,%d) covered %d times", x, y, s)
			}
		}
	}
}

func TestTriangleFanIsWatertight(t *testing.T) {
	const w, h, n = 64, 64, 37
	d := newDevice(t, w, h)
	d.SetState(countState())

	// A regular polygon fanned around an off-center point, so edges fall at
	// arbitrary subpixel positions.
	cx, cy := float32(0.113), float32(-0.071)
	var verts []gpucore.Vertex
	for i := 0; i < n; i++ {
		a0 := 2 * math.Pi * float64(i) / n
		a1 := 2 * math.Pi * float64(i+1) / n
		verts = append(verts,
			gpucore.Vertex{X: cx, Y: cy},
			gpucore.Vertex{X: float32(0.9 * math.Cos(a0)), Y: float32(0.9 * math.Sin(a0))},
			gpucore.Vertex{X: float32(0.9 * math.Cos(a1)), Y: float32(0.9 * math.Sin(a1))},
		)
	}
	d.DrawTriangles(verts)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if s := d.Main().Stencil(x, y); s > 1 {
				t.Fatalf("pixel (%d,%d) covered %d times", x, y, s)
			}
		}
	}
	if s := d.Main().Stencil(w/2, h/2); s != 1 {
		t.Fatalf("center pixel covered %d times, want 1", s)
	}
}

func TestCulling(t *testing.T) {
	ccw := []gpucore.Vertex{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: -1, Y: 1}}
	cw := []gpucore.Vertex{{X: -1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: -1}}

	tests := []struct {
		name  string
		cull  gputypes.CullMode
		verts []gpucore.Vertex
		drawn bool
	}{
		{"none ccw", gputypes.CullModeNone, ccw, true},
		{"none cw", gputypes.CullModeNone, cw, true},
		{"back ccw", gputypes.CullModeBack, ccw, true},
		{"back cw", gputypes.CullModeBack, cw, false},
		{"front ccw", gputypes.CullModeFront, ccw, false},
		{"front cw", gputypes.CullModeFront, cw, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDevice(t, 8, 8)
			s := countState()
			s.CullMode = tt.cull
			d.SetState(s)
			d.DrawTriangles(tt.verts)
			if got := d.Main().Stencil(1, 1) == 1; got != tt.drawn {
				t.Errorf("drawn = %v, want %v", got, tt.drawn)
			}
		})
	}
}

func TestDepthTestAndWrite(t *testing.T) {
	d := newDevice(t, 4, 4)
	s := gpucore.DefaultState()
	s.Color = gpucore.Color{R: 10, A: 255}
	d.SetState(s)
	d.DrawQuad(0.6)

	s.Color = gpucore.Color{R: 20, A: 255}
	d.SetState(s)
	d.DrawQuad(0.8) // behind, rejected

	if got := d.Main().Depth(1, 1); got != 0.6 {
		t.Errorf("depth = %v, want 0.6", got)
	}
	if got := d.Main().Color(1, 1).R; got != 10 {
		t.Errorf("color = %d, want 10", got)
	}

	s.DepthWrite = false
	s.DepthCompare = gputypes.CompareFunctionAlways
	d.SetState(s)
	d.DrawQuad(0.9)
	if got := d.Main().Depth(1, 1); got != 0.6 {
		t.Errorf("depth after masked write = %v, want 0.6", got)
	}
}

func TestTriangleDepthInterpolation(t *testing.T) {
	d := newDevice(t, 32, 32)
	d.SetState(gpucore.DefaultState())
	// Plane z = x: window depth runs from 0 at the left to 1 at the right.
	d.DrawTriangles([]gpucore.Vertex{
		{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1},
		{X: -1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: -1},
	})
	for x := 0; x < 32; x++ {
		want := (float64(x) + 0.5) / 32
		if got := float64(d.Main().Depth(x, 7)); math.Abs(got-want) > 1e-5 {
			t.Fatalf("depth at x=%d = %v, want %v", x, got, want)
		}
	}
}

func TestNearPlaneClipping(t *testing.T) {
	d := newDevice(t, 16, 16)
	d.SetState(countState())
	// The top half of the quad lies in front of the near plane.
	d.DrawTriangles([]gpucore.Vertex{
		{X: -1, Y: -1, Z: 0}, {X: 1, Y: -1, Z: 0}, {X: 1, Y: 1, Z: -2},
		{X: -1, Y: -1, Z: 0}, {X: 1, Y: 1, Z: -2}, {X: -1, Y: 1, Z: -2},
	})
	if s := d.Main().Stencil(8, 2); s != 1 {
		t.Errorf("bottom pixel stencil = %d, want 1", s)
	}
	if s := d.Main().Stencil(8, 14); s != 0 {
		t.Errorf("clipped pixel stencil = %d, want 0", s)
	}
}

func TestStencilTestAndOps(t *testing.T) {
	d := newDevice(t, 4, 4)
	s := gpucore.DefaultState()
	s.DepthTest = false
	s.StencilTest = true
	s.Stencil = gpucore.StencilState{
		Compare: gputypes.CompareFunctionAlways, Ref: 5,
		ReadMask: 0xff, WriteMask: 0xff,
		PassOp: gpucore.StencilReplace,
	}
	d.SetState(s)
	d.DrawQuad(0)
	if got := d.Main().Stencil(0, 0); got != 5 {
		t.Fatalf("replace: stencil = %d, want 5", got)
	}

	s.Stencil.Compare = gputypes.CompareFunctionEqual
	s.Stencil.Ref = 4
	s.Stencil.FailOp = gpucore.StencilInvert
	s.Stencil.WriteMask = 0x0f
	d.SetState(s)
	d.DrawQuad(0)
	if got := d.Main().Stencil(0, 0); got != 0x0a {
		t.Fatalf("masked invert on fail: stencil = %#x, want 0x0a", got)
	}

	s.Stencil.Compare = gputypes.CompareFunctionLess // ref < stencil
	s.Stencil.Ref = 1
	s.Stencil.WriteMask = 0xff
	s.Stencil.PassOp = gpucore.StencilDecr
	d.SetState(s)
	d.DrawQuad(0)
	if got := d.Main().Stencil(0, 0); got != 0x09 {
		t.Fatalf("decrement: stencil = %#x, want 0x09", got)
	}
}

func TestClearHonorsScissorAndMasks(t *testing.T) {
	d := newDevice(t, 8, 8)
	s := gpucore.DefaultState()
	s.ScissorTest = true
	s.Scissor = gpucore.Rect{X: 2, Y: 2, Width: 3, Height: 3}
	s.ColorWriteMask = gpucore.Green.WriteMask()
	s.Stencil.WriteMask = 0x01
	d.SetState(s)
	d.Clear(gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil, gpucore.ClearValues{
		Color: gpucore.Splat(200), Depth: 0.25, Stencil: 0xff,
	})

	in, out := d.Main().Color(3, 3), d.Main().Color(6, 6)
	if in != (gpucore.Color{G: 200}) || out != (gpucore.Color{}) {
		t.Errorf("colors = %+v / %+v", in, out)
	}
	if d.Main().Depth(3, 3) != 0.25 || d.Main().Depth(6, 6) != 1 {
		t.Error("depth clear ignored the scissor")
	}
	if d.Main().Stencil(3, 3) != 0x01 {
		t.Errorf("stencil = %#x, want 0x01", d.Main().Stencil(3, 3))
	}
}

func TestTextureTest(t *testing.T) {
	d := newDevice(t, 8, 8)
	fb, err := d.CreateFramebuffer(gpucore.FramebufferCore, 8, 8)
	if err != nil {
		t.Fatal(err)
	}

	// Write 7 into the red channel of the left half of the offscreen buffer.
	d.BindFramebuffer(fb)
	s := gpucore.DefaultState()
	s.DepthTest = false
	s.ColorWriteMask = gpucore.Red.WriteMask()
	s.Color = gpucore.Splat(7)
	s.ScissorTest = true
	s.Scissor = gpucore.Rect{Width: 4, Height: 8}
	d.SetState(s)
	d.DrawQuad(0)
	d.BindFramebuffer(nil)

	s = countState()
	s.TextureTest = &gpucore.TextureTest{Source: fb, Channel: gpucore.Red, Compare: gputypes.CompareFunctionEqual, Ref: 7}
	d.SetState(s)
	d.DrawQuad(0)

	if got := d.Main().Stencil(1, 4); got != 1 {
		t.Errorf("left half stencil = %d, want 1", got)
	}
	if got := d.Main().Stencil(6, 4); got != 0 {
		t.Errorf("right half stencil = %d, want 0", got)
	}
}

func TestOcclusionQuery(t *testing.T) {
	d := newDevice(t, 10, 10)
	q, err := d.CreateQuery()
	if err != nil {
		t.Fatal(err)
	}
	defer q.Destroy()

	s := gpucore.DefaultState()
	s.ScissorTest = true
	s.Scissor = gpucore.Rect{Width: 5, Height: 2}
	d.SetState(s)

	q.Begin()
	d.DrawQuad(0.5)
	q.End()
	if n, _ := q.Result(); n != 10 {
		t.Errorf("samples = %d, want 10", n)
	}

	q.Begin()
	d.DrawQuad(0.7) // behind
	q.End()
	if n, _ := q.Result(); n != 0 {
		t.Errorf("occluded samples = %d, want 0", n)
	}

	caps := FullCapabilities()
	caps.Occlusion = gpucore.OcclusionNone
	if _, err := newDevice(t, 2, 2, WithCapabilities(caps)).CreateQuery(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CreateQuery without support: err = %v", err)
	}
}

func TestReadStencil(t *testing.T) {
	d := newDevice(t, 4, 4)
	s := countState()
	s.ScissorTest = true
	s.Scissor = gpucore.Rect{X: 1, Y: 1, Width: 2, Height: 1}
	d.SetState(s)
	d.DrawQuad(0)
	got, err := d.ReadStencil(gpucore.Rect{Width: 4, Height: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint8{0, 0, 0, 0, 0, 1, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadStencil = %v, want %v", got, want)
		}
	}
}

func TestBindFramebufferRestoresMain(t *testing.T) {
	d := newDevice(t, 4, 4)
	fb, err := d.CreateFramebuffer(gpucore.FramebufferEXT, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	d.BindFramebuffer(fb)
	if d.BoundFramebuffer() != fb {
		t.Fatal("offscreen framebuffer not bound")
	}
	d.BindFramebuffer(nil)
	if d.BoundFramebuffer() != nil {
		t.Fatal("main framebuffer should report nil")
	}
}

func TestImages(t *testing.T) {
	d := newDevice(t, 4, 4)
	d.Clear(gpucore.ClearColor|gpucore.ClearDepth, gpucore.ClearValues{Depth: 1})
	d.SetViewport(gpucore.Rect{Width: 4, Height: 2})
	d.SetState(gpucore.DefaultState())
	d.DrawQuad(0.25)

	img := d.Main().Image()
	if img.RGBAAt(0, 3).R != 255 || img.RGBAAt(0, 0).R != 0 {
		t.Error("Image should put window row 0 at the bottom")
	}
	depth := d.Main().DepthImage(4, 4)
	if got := depth.GrayAt(1, 3).Y; got != 191 {
		t.Errorf("depth 0.25 = gray %d, want 191", got)
	}
	if got := depth.GrayAt(1, 0).Y; got != 0 {
		t.Errorf("far plane = gray %d, want 0", got)
	}
	scaled := d.Main().DepthImage(8, 8)
	if scaled.Bounds().Dx() != 8 || scaled.GrayAt(3, 7).Y != 191 || scaled.GrayAt(3, 0).Y != 0 {
		t.Error("scaled depth image does not match the source")
	}
}

func BenchmarkDrawQuad(b *testing.B) {
	d, _ := New(512, 512)
	d.SetState(gpucore.DefaultState())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.DrawQuad(0.5)
	}
}
