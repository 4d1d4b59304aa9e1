package shapes

import (
	"math"

	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/cache"
)

type vec3 [3]float64

func (a vec3) sub(b vec3) vec3 { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func (a vec3) dot(b vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func (a vec3) cross(b vec3) vec3 {
	return vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

// meshBuilder collects triangles and orients each one so that its normal
// points away from the interior reference point returned by inside.
type meshBuilder struct {
	inside func(centroid vec3) vec3
	out    []gpucore.Vertex
}

func (m *meshBuilder) tri(a, b, c vec3) {
	n := b.sub(a).cross(c.sub(a))
	if n.dot(n) < 1e-24 {
		return
	}
	centroid := vec3{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3, (a[2] + b[2] + c[2]) / 3}
	if n.dot(centroid.sub(m.inside(centroid))) < 0 {
		b, c = c, b
	}
	m.out = append(m.out, vertex(a), vertex(b), vertex(c))
}

func (m *meshBuilder) quad(a, b, c, d vec3) {
	m.tri(a, b, c)
	m.tri(a, c, d)
}

func vertex(p vec3) gpucore.Vertex {
	return gpucore.Vertex{X: float32(p[0]), Y: float32(p[1]), Z: float32(p[2])}
}

func origin(vec3) vec3 { return vec3{} }

type meshKind uint8

const (
	sphereMesh meshKind = iota
	boxMesh
	cylinderMesh
	torusMesh
)

type meshKey struct {
	kind     meshKind
	a, b, c  float64
	segments int
}

// meshes holds tessellations shared by shapes with equal parameters.
// Cached meshes are never modified.
var meshes = cache.New[meshKey, []gpucore.Vertex](256)

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Sphere returns a sphere of the given radius centered on the origin.
func Sphere(op gpucore.Operation, radius float64, opts ...Option) *Shape {
	o := buildOptions(opts)
	mesh := meshes.GetOrCreate(meshKey{kind: sphereMesh, a: radius, segments: o.segments}, func() []gpucore.Vertex {
		return tessellateSphere(radius, o.segments)
	})
	return newShape(op, 1, mesh, o)
}

func tessellateSphere(radius float64, segments int) []gpucore.Vertex {
	slices, stacks := segments, max(segments/2, 2)
	point := func(i, j int) vec3 {
		theta := math.Pi * float64(i) / float64(stacks)
		phi := 2 * math.Pi * float64(j%slices) / float64(slices)
		st := math.Sin(theta)
		if i == 0 || i == stacks {
			st = 0
		}
		return vec3{radius * st * math.Cos(phi), radius * math.Cos(theta), radius * st * math.Sin(phi)}
	}
	m := meshBuilder{inside: origin}
	for i := range stacks {
		for j := range slices {
			m.quad(point(i, j), point(i+1, j), point(i+1, j+1), point(i, j+1))
		}
	}
	return m.out
}

// Box returns an axis-aligned box with the given edge lengths centered on
// the origin.
func Box(op gpucore.Operation, sx, sy, sz float64, opts ...Option) *Shape {
	o := buildOptions(opts)
	mesh := meshes.GetOrCreate(meshKey{kind: boxMesh, a: sx, b: sy, c: sz}, func() []gpucore.Vertex {
		return tessellateBox(sx/2, sy/2, sz/2)
	})
	return newShape(op, 1, mesh, o)
}

func tessellateBox(hx, hy, hz float64) []gpucore.Vertex {
	c := func(i int) vec3 {
		p := vec3{-hx, -hy, -hz}
		if i&1 != 0 {
			p[0] = hx
		}
		if i&2 != 0 {
			p[1] = hy
		}
		if i&4 != 0 {
			p[2] = hz
		}
		return p
	}
	m := meshBuilder{inside: origin}
	m.quad(c(0), c(1), c(3), c(2))
	m.quad(c(4), c(5), c(7), c(6))
	m.quad(c(0), c(1), c(5), c(4))
	m.quad(c(2), c(3), c(7), c(6))
	m.quad(c(0), c(2), c(6), c(4))
	m.quad(c(1), c(3), c(7), c(5))
	return m.out
}

// Cylinder returns a closed cylinder around the Y axis centered on the
// origin.
func Cylinder(op gpucore.Operation, radius, height float64, opts ...Option) *Shape {
	o := buildOptions(opts)
	mesh := meshes.GetOrCreate(meshKey{kind: cylinderMesh, a: radius, b: height, segments: o.segments}, func() []gpucore.Vertex {
		return tessellateCylinder(radius, height/2, o.segments)
	})
	return newShape(op, 1, mesh, o)
}

func tessellateCylinder(radius, h float64, segments int) []gpucore.Vertex {
	ring := func(j int, y float64) vec3 {
		phi := 2 * math.Pi * float64(j%segments) / float64(segments)
		return vec3{radius * math.Cos(phi), y, radius * math.Sin(phi)}
	}
	m := meshBuilder{inside: origin}
	top, bottom := vec3{0, h, 0}, vec3{0, -h, 0}
	for j := range segments {
		m.quad(ring(j, -h), ring(j+1, -h), ring(j+1, h), ring(j, h))
		m.tri(top, ring(j, h), ring(j+1, h))
		m.tri(bottom, ring(j, -h), ring(j+1, -h))
	}
	return m.out
}

// Torus returns a torus around the Y axis centered on the origin. Its
// convexity is 2.
func Torus(op gpucore.Operation, major, minor float64, opts ...Option) *Shape {
	o := buildOptions(opts)
	mesh := meshes.GetOrCreate(meshKey{kind: torusMesh, a: major, b: minor, segments: o.segments}, func() []gpucore.Vertex {
		return tessellateTorus(major, minor, o.segments)
	})
	return newShape(op, 2, mesh, o)
}

func tessellateTorus(major, minor float64, segments int) []gpucore.Vertex {
	rings, sides := segments, max(segments/2, 3)
	point := func(i, j int) vec3 {
		u := 2 * math.Pi * float64(i%rings) / float64(rings)
		v := 2 * math.Pi * float64(j%sides) / float64(sides)
		r := major + minor*math.Cos(v)
		return vec3{r * math.Cos(u), minor * math.Sin(v), r * math.Sin(u)}
	}
	core := func(c vec3) vec3 {
		l := math.Hypot(c[0], c[2])
		if l == 0 {
			return vec3{major, 0, 0}
		}
		return vec3{c[0] / l * major, 0, c[2] / l * major}
	}
	m := meshBuilder{inside: core}
	for i := range rings {
		for j := range sides {
			m.quad(point(i, j), point(i+1, j), point(i+1, j+1), point(i, j+1))
		}
	}
	return m.out
}
