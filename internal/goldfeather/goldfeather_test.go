package goldfeather

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/backend/software"
	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/algo"
	"github.com/gogpu/csg/internal/offscreen"
	"github.com/gogpu/csg/shapes"
)

const size = 48

// ortho looks down -Z with NDC x and y equal to world x and y; window
// depth is (1 - z) / 2 for world z.
var ortho = gpucore.Ortho(-1, 1, -1, 1, 1, 3).Mul(gpucore.Translate(0, 0, -2))

func windowDepth(z float64) float64 { return (1 - z) / 2 }

func pixel(ndc float64) int { return int((ndc + 1) / 2 * size) }

func render(t *testing.T, caps gpucore.Capabilities, dc algo.DepthComplexity, shs ...*shapes.Shape) (*software.Device, algo.Stats) {
	t.Helper()
	dev, err := software.New(size, size, software.WithCapabilities(caps))
	if err != nil {
		t.Fatalf("software.New: %v", err)
	}
	dev.SetTransform(ortho)
	prims := make([]gpucore.Primitive, len(shs))
	for i, s := range shs {
		s.UpdateBounds(ortho)
		prims[i] = s
	}
	pool := offscreen.NewPool(nil)
	t.Cleanup(pool.Close)
	stats, err := Render(prims, algo.Config{
		Device:          dev,
		Pool:            pool,
		Offscreen:       offscreen.FrameBufferObjectARB,
		DepthComplexity: dc,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return dev, stats
}

func alphaOnly() gpucore.Capabilities {
	caps := software.FullCapabilities()
	caps.PackedChannels, caps.Programs, caps.Shaders = false, false, false
	return caps
}

func torus() *shapes.Shape {
	// Nearly edge-on, so rays through the middle of the ring cross the
	// tube twice.
	return shapes.Torus(gpucore.Intersection, 0.55, 0.18,
		shapes.WithSegments(40), shapes.WithModel(gpucore.RotateX(math.Pi/12)))
}

func TestTorusLayers(t *testing.T) {
	tests := []struct {
		dc     algo.DepthComplexity
		passes int
	}{
		{algo.NoDepthComplexitySampling, 2},
		{algo.OcclusionQuery, 2},
		{algo.DepthComplexitySampling, 2},
	}
	var reference []float32
	for _, tt := range tests {
		t.Run(tt.dc.String(), func(t *testing.T) {
			dev, stats := render(t, software.FullCapabilities(), tt.dc, torus())
			if stats.Batches != 1 || stats.Passes != tt.passes {
				t.Errorf("batches, layers = %d, %d; want 1, %d", stats.Batches, stats.Passes, tt.passes)
			}
			got := depths(dev)
			if reference == nil {
				reference = got
				return
			}
			if n := differing(got, reference); n != 0 {
				t.Errorf("%d pixels differ from NoDepthComplexitySampling", n)
			}
		})
	}
}

// The nearest front face of the torus must win even though it may be
// rasterized after the farther one.
func TestTorusSelfOcclusion(t *testing.T) {
	dev, _ := render(t, software.FullCapabilities(), algo.NoDepthComplexitySampling, torus())
	ref, err := software.New(size, size)
	if err != nil {
		t.Fatal(err)
	}
	ref.SetTransform(ortho)
	s := gpucore.DefaultState()
	s.CullMode = gputypes.CullModeBack
	ref.SetState(s)
	torus().Render(ref)
	if n := differing(depths(dev), depths(ref)); n != 0 {
		t.Errorf("%d pixels differ from direct depth-tested rendering", n)
	}
}

func holes() []*shapes.Shape {
	out := []*shapes.Shape{shapes.Box(gpucore.Intersection, 1.6, 1.6, 1.6)}
	for i := range 10 {
		x := -0.6 + 0.3*float64(i%5)
		y := 0.3
		if i >= 5 {
			y = -0.3
		}
		out = append(out, shapes.Sphere(gpucore.Subtraction, 0.1, shapes.At(x, y, 0.8)))
	}
	return out
}

// Ten subtracted primitives need two rounds of eight stencil bits.
func TestParityAcrossStencilRounds(t *testing.T) {
	for _, caps := range []gpucore.Capabilities{software.FullCapabilities(), alphaOnly()} {
		dev, stats := render(t, caps, algo.NoDepthComplexitySampling, holes()...)
		if stats.Batches != 2 {
			t.Errorf("batches = %d, want 2", stats.Batches)
		}
		if stats.Merges != 2 {
			t.Errorf("merges = %d, want 2", stats.Merges)
		}
		fb := dev.Main()
		for i := range 10 {
			x := -0.6 + 0.3*float64(i%5)
			y := 0.3
			if i >= 5 {
				y = -0.3
			}
			d := float64(fb.Depth(pixel(x), pixel(y)))
			if math.Abs(d-windowDepth(0.7)) > 0.005 {
				t.Errorf("hole %d: depth %v, want %v", i, d, windowDepth(0.7))
			}
		}
		if d := float64(fb.Depth(pixel(-0.45), pixel(0))); math.Abs(d-windowDepth(0.8)) > 1e-4 {
			t.Errorf("box front depth = %v, want %v", d, windowDepth(0.8))
		}
	}
}

// With more layers than channels the manager has to merge in between;
// the result must not depend on the number of channels.
func TestChannelPressure(t *testing.T) {
	scene := func() []*shapes.Shape {
		return []*shapes.Shape{
			shapes.Box(gpucore.Intersection, 1.6, 1.6, 1.6),
			torus(),
			shapes.Torus(gpucore.Subtraction, 0.3, 0.1, shapes.At(0.3, 0.3, 0.6), shapes.WithSegments(24)),
		}
	}
	multi, ms := render(t, software.FullCapabilities(), algo.NoDepthComplexitySampling, scene()...)
	single, ss := render(t, alphaOnly(), algo.NoDepthComplexitySampling, scene()...)
	if ms.Passes != ss.Passes {
		t.Errorf("layers differ: %d vs %d", ms.Passes, ss.Passes)
	}
	if ms.Passes <= 4 {
		t.Fatalf("scene has %d layers, want more than four channels", ms.Passes)
	}
	if n := differing(depths(multi), depths(single)); n != 0 {
		t.Errorf("%d pixels differ between four channels and alpha only", n)
	}
}

// A subtracted box entirely in front of the intersected one overlaps it
// on screen but removes nothing.
func TestSubtractedInFront(t *testing.T) {
	alone, _ := render(t, software.FullCapabilities(), algo.NoDepthComplexitySampling,
		shapes.Box(gpucore.Intersection, 1, 1, 1))
	dev, _ := render(t, software.FullCapabilities(), algo.NoDepthComplexitySampling,
		shapes.Box(gpucore.Intersection, 1, 1, 1),
		shapes.Box(gpucore.Subtraction, 0.6, 0.6, 0.3, shapes.At(0.2, 0, 0.8)),
	)
	if n := differing(depths(alone), depths(dev)); n != 0 {
		t.Errorf("%d pixels differ from the intersected box alone", n)
	}
	if d := float64(dev.Main().Depth(pixel(0.2), pixel(0))); math.Abs(d-windowDepth(0.5)) > 1e-4 {
		t.Errorf("front depth = %v, want %v", d, windowDepth(0.5))
	}
}

func TestEmptyIntersection(t *testing.T) {
	dev, stats := render(t, software.FullCapabilities(), algo.NoDepthComplexitySampling,
		shapes.Box(gpucore.Intersection, 0.4, 0.4, 0.4, shapes.At(-0.5, 0, 0)),
		shapes.Box(gpucore.Intersection, 0.4, 0.4, 0.4, shapes.At(0.5, 0, 0)),
	)
	if stats.Passes != 0 || dev.Stats().Triangles != 0 {
		t.Errorf("rendered %d layers and %d triangles, want none", stats.Passes, dev.Stats().Triangles)
	}
}

func depths(dev *software.Device) []float32 {
	fb := dev.Main()
	out := make([]float32, 0, size*size)
	for y := range size {
		for x := range size {
			out = append(out, fb.Depth(x, y))
		}
	}
	return out
}

func differing(a, b []float32) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
