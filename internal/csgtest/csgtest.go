// Package csgtest provides a ray-marching depth oracle for end-to-end CSG
// tests: it computes the depth buffer a correct renderer produces for a
// solid described as a signed distance function.
package csgtest

import (
	"fmt"
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/gogpu/csg/backend/software"
	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/parallel"
)

// Far is the cleared depth value.
const Far = 1

const (
	hitDistance   = 1e-6
	maxIterations = 2000
)

// Sphere returns a sphere SDF centered at (x, y, z).
func Sphere(radius, x, y, z float64) sdf.SDF3 {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("csgtest: sphere: %v", err))
	}
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Box returns a box SDF with the given edge lengths centered at (x, y, z).
func Box(sx, sy, sz, x, y, z float64) sdf.SDF3 {
	s, err := sdf.Box3D(v3.Vec{X: sx, Y: sy, Z: sz}, 0)
	if err != nil {
		panic(fmt.Sprintf("csgtest: box: %v", err))
	}
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// Torus is a torus around the Y axis through Center.
type Torus struct {
	Major, Minor float64
	Center       v3.Vec
}

var _ sdf.SDF3 = Torus{}

// Evaluate returns the signed distance from p to the torus surface.
func (t Torus) Evaluate(p v3.Vec) float64 {
	x, y, z := p.X-t.Center.X, p.Y-t.Center.Y, p.Z-t.Center.Z
	q := math.Hypot(x, z) - t.Major
	return math.Hypot(q, y) - t.Minor
}

// BoundingBox returns the bounding box of the torus.
func (t Torus) BoundingBox() sdf.Box3 {
	r := t.Major + t.Minor
	return sdf.Box3{
		Min: v3.Vec{X: t.Center.X - r, Y: t.Center.Y - t.Minor, Z: t.Center.Z - r},
		Max: v3.Vec{X: t.Center.X + r, Y: t.Center.Y + t.Minor, Z: t.Center.Z + r},
	}
}

// DepthMap ray-marches s for every pixel center of a width×height viewport
// under viewProj and returns window depths in rows from the bottom, with
// [Far] where the ray misses.
func DepthMap(s sdf.SDF3, viewProj gpucore.Mat4, width, height int) []float32 {
	inv, ok := viewProj.Inverse()
	if !ok {
		panic("csgtest: singular view-projection matrix")
	}
	unproject := func(x, y, z float64) [3]float64 {
		px, py, pz, pw := inv.Apply(x, y, z)
		return [3]float64{px / pw, py / pw, pz / pw}
	}

	pool := parallel.NewPool(0)
	defer pool.Close()

	out := make([]float32, width*height)
	pool.Rows(height, func(lo, hi int) {
		for py := lo; py < hi; py++ {
			for px := range width {
				nx := (float64(px)+0.5)/float64(width)*2 - 1
				ny := (float64(py)+0.5)/float64(height)*2 - 1
				near := unproject(nx, ny, -1)
				far := unproject(nx, ny, 1)
				out[py*width+px] = march(s, viewProj, near, far)
			}
		}
	})
	return out
}

func march(s sdf.SDF3, viewProj gpucore.Mat4, from, to [3]float64) float32 {
	dir := [3]float64{to[0] - from[0], to[1] - from[1], to[2] - from[2]}
	length := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
	for i := range dir {
		dir[i] /= length
	}
	t := 0.0
	for range maxIterations {
		p := v3.Vec{X: from[0] + dir[0]*t, Y: from[1] + dir[1]*t, Z: from[2] + dir[2]*t}
		d := s.Evaluate(p)
		if d < hitDistance {
			_, _, z, w := viewProj.Apply(p.X, p.Y, p.Z)
			return float32((z/w + 1) / 2)
		}
		t += d
		if t > length {
			break
		}
	}
	return Far
}

// Depths returns the depth buffer of fb in rows from the bottom.
func Depths(fb *software.Framebuffer) []float32 {
	out := make([]float32, fb.Width()*fb.Height())
	for y := range fb.Height() {
		for x := range fb.Width() {
			out[y*fb.Width()+x] = fb.Depth(x, y)
		}
	}
	return out
}

// Mismatches counts pixels that are covered in one map but not the other
// or whose depths differ by more than tol.
func Mismatches(got, want []float32, tol float32) int {
	n := 0
	for i := range want {
		g, w := got[i], want[i]
		if (g >= Far) != (w >= Far) {
			n++
			continue
		}
		if d := g - w; d > tol || d < -tol {
			n++
		}
	}
	return n
}

// Covered counts the pixels of a depth map nearer than [Far].
func Covered(depths []float32) int {
	n := 0
	for _, d := range depths {
		if d < Far {
			n++
		}
	}
	return n
}

// AssertDepth fails t when more than maxFraction of the pixels covered by
// want mismatch got. Silhouettes of tessellated meshes differ from the
// exact solid by a pixel here and there.
func AssertDepth(t testing.TB, got, want []float32, tol float32, maxFraction float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("depth map size = %d, want %d", len(got), len(want))
	}
	covered := max(Covered(want), 1)
	bad := Mismatches(got, want, tol)
	if frac := float64(bad) / float64(covered); frac > maxFraction {
		t.Errorf("%d of %d covered pixels mismatch (%.1f%%, limit %.1f%%)",
			bad, covered, 100*frac, 100*maxFraction)
	}
}
