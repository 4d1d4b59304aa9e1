package main

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg"
	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/shapes"
)

// shadeLevels is the number of intensity buckets triangles are grouped
// into; each bucket is one draw with a flat color.
const shadeLevels = 24

var background = gpucore.Color{R: 28, G: 30, B: 36, A: 255}

// renderScene clears dev, resolves every product's depth with csg.Render
// and shades the visible surfaces with an EQUAL depth pass.
func renderScene(dev gpucore.Device, sc *scene, width, height int) ([]csg.Stats, error) {
	viewProj := sc.camera.viewProj(float64(width) / float64(height))

	dev.BindFramebuffer(nil)
	dev.SetViewport(gpucore.Rect{Width: width, Height: height})
	dev.SetState(gpucore.DefaultState())
	dev.Clear(gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil,
		gpucore.ClearValues{Color: background, Depth: 1})

	light := lightDir(sc.camera)
	stats := make([]csg.Stats, len(sc.products))
	for i, p := range sc.products {
		shapes.UpdateBounds(viewProj, p.shapes...)
		prims := make([]csg.Primitive, len(p.shapes))
		for j, s := range p.shapes {
			prims[j] = s
		}

		dev.SetTransform(viewProj)
		settings := sc.settings
		settings.Stats = &stats[i]
		if err := csg.Render(dev, prims, csg.WithSettings(settings)); err != nil {
			return stats, fmt.Errorf("product %d: %w", i, err)
		}
		shade(dev, viewProj, p, light)
	}
	return stats, dev.Flush()
}

// lightDir returns a unit vector towards a light above and to the left of
// the camera.
func lightDir(c camera) [3]float64 {
	d := [3]float64{c.eye[0] - c.at[0] - 1, c.eye[1] - c.at[1] + 2, c.eye[2] - c.at[2]}
	return normalize(d)
}

func normalize(v [3]float64) [3]float64 {
	l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return v
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

// shade redraws the product's triangles where they produced the stored
// depth. Subtracted surfaces are seen from behind, so the absolute value
// of the cosine is used.
func shade(dev gpucore.Device, viewProj gpucore.Mat4, p product, light [3]float64) {
	s := gpucore.DefaultState()
	s.DepthCompare = gputypes.CompareFunctionEqual
	s.DepthWrite = false
	for _, sh := range p.shapes {
		buckets := bucketTriangles(sh.Mesh(), sh.Model(), light)
		dev.SetTransform(viewProj.Mul(sh.Model()))
		for level, tris := range buckets {
			if len(tris) == 0 {
				continue
			}
			s.Color = levelColor(p.color, level)
			dev.SetState(s)
			dev.DrawTriangles(tris)
		}
	}
	dev.SetTransform(viewProj)
	dev.SetState(gpucore.DefaultState())
}

// bucketTriangles groups the triangles of mesh by their diffuse intensity
// under the world transform model.
func bucketTriangles(mesh []gpucore.Vertex, model gpucore.Mat4, light [3]float64) [shadeLevels][]gpucore.Vertex {
	var buckets [shadeLevels][]gpucore.Vertex
	world := func(v gpucore.Vertex) [3]float64 {
		x, y, z, _ := model.Apply(float64(v.X), float64(v.Y), float64(v.Z))
		return [3]float64{x, y, z}
	}
	for i := 0; i+2 < len(mesh); i += 3 {
		a, b, c := world(mesh[i]), world(mesh[i+1]), world(mesh[i+2])
		u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		n := normalize([3]float64{u[1]*v[2] - u[2]*v[1], u[2]*v[0] - u[0]*v[2], u[0]*v[1] - u[1]*v[0]})
		cos := math.Abs(n[0]*light[0] + n[1]*light[1] + n[2]*light[2])
		level := min(int(cos*shadeLevels), shadeLevels-1)
		buckets[level] = append(buckets[level], mesh[i], mesh[i+1], mesh[i+2])
	}
	return buckets
}

// levelColor returns base lit with ambient 0.2 plus the bucket's diffuse
// term.
func levelColor(base [3]float64, level int) gpucore.Color {
	k := 0.2 + 0.8*(float64(level)+0.5)/shadeLevels
	ch := func(v float64) uint8 {
		return uint8(math.Round(min(max(v*k, 0), 1) * 255))
	}
	return gpucore.Color{R: ch(base[0]), G: ch(base[1]), B: ch(base[2]), A: 255}
}
