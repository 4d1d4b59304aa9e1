package shapes

import (
	"errors"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/gogpu/csg/gpucore"
)

// ErrEmptyMesh is returned by FromSDF when marching cubes finds no surface.
var ErrEmptyMesh = errors.New("shapes: signed distance function produced no triangles")

// FromSDF meshes the zero set of s with uniform marching cubes of the given
// resolution along the longest axis of its bounding box. Each triangle is
// oriented along the gradient of s so that front faces point outward.
// The caller supplies the convexity of the solid.
func FromSDF(op gpucore.Operation, s sdf.SDF3, cells, convexity int, opts ...Option) (*Shape, error) {
	o := buildOptions(opts)
	tris := render.ToTriangles(s, render.NewMarchingCubesUniform(max(cells, 8)))
	bb := s.BoundingBox()
	eps := max(bb.Max.X-bb.Min.X, bb.Max.Y-bb.Min.Y, bb.Max.Z-bb.Min.Z) * 1e-4

	mesh := make([]gpucore.Vertex, 0, len(tris)*3)
	for _, t := range tris {
		a, b, c := toVec(t[0]), toVec(t[1]), toVec(t[2])
		n := b.sub(a).cross(c.sub(a))
		if n.dot(n) == 0 {
			continue
		}
		centroid := vec3{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3, (a[2] + b[2] + c[2]) / 3}
		if n.dot(gradient(s, centroid, eps)) < 0 {
			b, c = c, b
		}
		mesh = append(mesh, vertex(a), vertex(b), vertex(c))
	}
	if len(mesh) == 0 {
		return nil, ErrEmptyMesh
	}
	return newShape(op, convexity, mesh, o), nil
}

func gradient(s sdf.SDF3, p vec3, eps float64) vec3 {
	at := func(dx, dy, dz float64) float64 {
		return s.Evaluate(v3.Vec{X: p[0] + dx, Y: p[1] + dy, Z: p[2] + dz})
	}
	return vec3{
		at(eps, 0, 0) - at(-eps, 0, 0),
		at(0, eps, 0) - at(0, -eps, 0),
		at(0, 0, eps) - at(0, 0, -eps),
	}
}

func toVec(v v3.Vec) vec3 { return vec3{v.X, v.Y, v.Z} }
