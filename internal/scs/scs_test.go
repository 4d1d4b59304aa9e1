package scs

import (
	"errors"
	"testing"

	"github.com/gogpu/csg/backend/software"
	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/algo"
	"github.com/gogpu/csg/internal/offscreen"
	"github.com/gogpu/csg/internal/sequence"
	"github.com/gogpu/csg/shapes"
)

const size = 48

// ortho looks down -Z at the unit cube with NDC x and y equal to world x
// and y.
var ortho = gpucore.Ortho(-1, 1, -1, 1, 1, 3).Mul(gpucore.Translate(0, 0, -2))

func setup(t *testing.T, caps gpucore.Capabilities, dc algo.DepthComplexity, prims ...*shapes.Shape) (*software.Device, algo.Config, []gpucore.Primitive) {
	t.Helper()
	dev, err := software.New(size, size, software.WithCapabilities(caps))
	if err != nil {
		t.Fatalf("software.New: %v", err)
	}
	dev.SetTransform(ortho)
	out := make([]gpucore.Primitive, len(prims))
	for i, p := range prims {
		p.UpdateBounds(ortho)
		out[i] = p
	}
	pool := offscreen.NewPool(nil)
	t.Cleanup(pool.Close)
	cfg := algo.Config{
		Device:          dev,
		Pool:            pool,
		Offscreen:       offscreen.FrameBufferObjectARB,
		DepthComplexity: dc,
	}
	return dev, cfg, out
}

// stacked returns a box with three subtracted spheres lined up along the
// view direction inside it, none of which reaches its front face.
func stacked() []*shapes.Shape {
	return []*shapes.Shape{
		shapes.Box(gpucore.Intersection, 1.2, 1.2, 1.6),
		shapes.Sphere(gpucore.Subtraction, 0.2, shapes.At(0, 0, 0.4)),
		shapes.Sphere(gpucore.Subtraction, 0.2, shapes.At(0, 0, 0)),
		shapes.Sphere(gpucore.Subtraction, 0.2, shapes.At(0, 0, -0.4)),
	}
}

// diagonal returns a box with three subtracted spheres whose bounding
// boxes overlap in a chain while the spheres themselves never overlap on
// screen.
func diagonal() []*shapes.Shape {
	return []*shapes.Shape{
		shapes.Box(gpucore.Intersection, 1.6, 1.6, 1.6),
		shapes.Sphere(gpucore.Subtraction, 0.16, shapes.At(-0.25, -0.25, 0.8)),
		shapes.Sphere(gpucore.Subtraction, 0.16, shapes.At(0, 0, 0.8)),
		shapes.Sphere(gpucore.Subtraction, 0.16, shapes.At(0.25, 0.25, 0.8)),
	}
}

func TestRenderWithoutIntersectedIsNoop(t *testing.T) {
	dev, cfg, prims := setup(t, software.FullCapabilities(), algo.NoDepthComplexitySampling,
		shapes.Sphere(gpucore.Subtraction, 0.5))
	stats, err := Render(prims, cfg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if dev.Stats().Triangles != 0 || stats.Merges != 0 {
		t.Errorf("drew %d triangles and merged %d channels, want nothing", dev.Stats().Triangles, stats.Merges)
	}
}

func TestTooManyPrimitivesForAlphaIDs(t *testing.T) {
	caps := software.FullCapabilities()
	caps.PackedChannels, caps.Programs, caps.Shaders = false, false, false

	var shs []*shapes.Shape
	for range 256 {
		shs = append(shs, shapes.Box(gpucore.Intersection, 0.1, 0.1, 0.1))
	}
	_, cfg, prims := setup(t, caps, algo.NoDepthComplexitySampling, shs...)
	if _, err := Render(prims, cfg); !errors.Is(err, ErrTooManyPrimitives) {
		t.Fatalf("Render() = %v, want ErrTooManyPrimitives", err)
	}

	caps = software.FullCapabilities()
	_, cfg, prims = setup(t, caps, algo.NoDepthComplexitySampling, shs...)
	if _, err := Render(prims, cfg); err != nil {
		t.Fatalf("Render() with packed IDs = %v", err)
	}
}

func TestSubtractionPasses(t *testing.T) {
	tests := []struct {
		name   string
		scene  func() []*shapes.Shape
		dc     algo.DepthComplexity
		passes int
	}{
		{"stacked/full", stacked, algo.NoDepthComplexitySampling, sequence.NewSchoenfield(3).Len()},
		// Nothing is ever carved, so the loop stops once two passes in a
		// row report no samples, read one pass late.
		{"stacked/occlusion", stacked, algo.OcclusionQuery, 3},
		{"stacked/sampling", stacked, algo.DepthComplexitySampling, sequence.NewBouncing(3).LenForDepthComplexity(3)},
		{"diagonal/full", diagonal, algo.NoDepthComplexitySampling, sequence.NewSchoenfield(2).Len()},
		{"diagonal/sampling", diagonal, algo.DepthComplexitySampling, sequence.NewBouncing(2).LenForDepthComplexity(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cfg, prims := setup(t, software.FullCapabilities(), tt.dc, tt.scene()...)
			stats, err := Render(prims, cfg)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if stats.Passes != tt.passes {
				t.Errorf("passes = %d, want %d", stats.Passes, tt.passes)
			}
			if stats.Merges != 1 {
				t.Errorf("merges = %d, want 1", stats.Merges)
			}
		})
	}
}

func TestHiddenSubtractionKeepsFrontFace(t *testing.T) {
	dev, cfg, prims := setup(t, software.FullCapabilities(), algo.NoDepthComplexitySampling, stacked()...)
	if _, err := Render(prims, cfg); err != nil {
		t.Fatalf("Render: %v", err)
	}
	// The box front face at z = 0.8 is 1.2 from the eye: depth 0.1.
	if d := dev.Main().Depth(size/2, size/2); d < 0.099 || d > 0.101 {
		t.Errorf("center depth = %v, want 0.1", d)
	}
}

func TestCarvedHole(t *testing.T) {
	for _, outside := range []bool{false, true} {
		dev, cfg, prims := setup(t, software.FullCapabilities(), algo.NoDepthComplexitySampling,
			shapes.Box(gpucore.Intersection, 1.2, 1.2, 1.2),
			shapes.Box(gpucore.Subtraction, 0.4, 0.4, 0.7, shapes.At(0, 0, 0.55)),
		)
		cfg.CameraOutside = outside
		if _, err := Render(prims, cfg); err != nil {
			t.Fatalf("Render: %v", err)
		}
		// The pocket floor at z = 0.2 is 1.8 from the eye: depth 0.4.
		if d := dev.Main().Depth(size/2, size/2); d < 0.399 || d > 0.401 {
			t.Errorf("cameraOutside=%v: pocket depth = %v, want 0.4", outside, d)
		}
		// Beside the pocket the box front at z = 0.6 is 1.4 away: 0.2.
		if d := dev.Main().Depth(size/2+10, size/2); d < 0.199 || d > 0.201 {
			t.Errorf("cameraOutside=%v: front depth = %v, want 0.2", outside, d)
		}
	}
}

func TestDisjointIntersectionIsEmpty(t *testing.T) {
	dev, cfg, prims := setup(t, software.FullCapabilities(), algo.NoDepthComplexitySampling,
		shapes.Sphere(gpucore.Intersection, 0.3, shapes.At(-0.5, 0, 0)),
		shapes.Sphere(gpucore.Intersection, 0.3, shapes.At(0.5, 0, 0)),
	)
	if _, err := Render(prims, cfg); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for y := range size {
		for x := range size {
			if d := dev.Main().Depth(x, y); d != 1 {
				t.Fatalf("depth at (%d,%d) = %v, want 1", x, y, d)
			}
		}
	}
}
