// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shapes provides ready-made CSG primitives: tessellated spheres,
// boxes, cylinders and tori, and meshes of arbitrary signed distance
// functions.
//
// A shape keeps its triangles in object space together with a model
// matrix. When rendered it multiplies the model matrix onto the transform
// of the canvas, which is expected to hold the view-projection matrix.
// Bounding boxes are in normalized device coordinates and therefore depend
// on the camera: call [Shape.UpdateBounds] whenever it changes.
package shapes

import (
	"math"

	"github.com/gogpu/csg/gpucore"
)

// Shape is a closed, outward-facing triangle mesh used as a primitive.
type Shape struct {
	gpucore.PrimitiveBase

	model gpucore.Mat4
	mesh  []gpucore.Vertex
	lo    [3]float64
	hi    [3]float64
}

var _ gpucore.Primitive = (*Shape)(nil)

// Option configures a shape at construction.
type Option func(*options)

type options struct {
	segments int
	model    gpucore.Mat4
}

func defaultOptions() options {
	return options{segments: 32, model: gpucore.Identity()}
}

// WithSegments sets the number of segments around curved surfaces.
// Values below 3 are raised to 3.
func WithSegments(n int) Option {
	return func(o *options) { o.segments = max(n, 3) }
}

// WithModel sets the model matrix.
func WithModel(m gpucore.Mat4) Option {
	return func(o *options) { o.model = m }
}

// At places the shape's origin at (x, y, z).
func At(x, y, z float64) Option {
	return WithModel(gpucore.Translate(x, y, z))
}

func newShape(op gpucore.Operation, convexity int, mesh []gpucore.Vertex, o options) *Shape {
	s := &Shape{
		PrimitiveBase: gpucore.NewPrimitiveBase(op, convexity),
		model:         o.model,
		mesh:          mesh,
	}
	s.lo, s.hi = meshBounds(mesh)
	return s
}

// Model returns the model matrix.
func (s *Shape) Model() gpucore.Mat4 { return s.model }

// SetModel replaces the model matrix. The bounding box is not updated.
func (s *Shape) SetModel(m gpucore.Mat4) { s.model = m }

// Mesh returns the object-space triangles, three vertices each. Shapes
// built with the same parameters share the slice; it must not be modified.
func (s *Shape) Mesh() []gpucore.Vertex { return s.mesh }

// Render draws the mesh with the model matrix applied.
func (s *Shape) Render(c gpucore.Canvas) {
	viewProj := c.Transform()
	c.SetTransform(viewProj.Mul(s.model))
	c.DrawTriangles(s.mesh)
	c.SetTransform(viewProj)
}

// UpdateBounds projects the object-space bounding box with viewProj and
// stores the result as the primitive's bounding box. A box reaching behind
// the camera gets the full volume; one that misses the view volume gets an
// empty box.
func (s *Shape) UpdateBounds(viewProj gpucore.Mat4) {
	s.SetBoundingBox(Project(viewProj.Mul(s.model), s.lo, s.hi))
}

// UpdateBounds updates the bounding boxes of all shapes.
func UpdateBounds(viewProj gpucore.Mat4, shapes ...*Shape) {
	for _, s := range shapes {
		s.UpdateBounds(viewProj)
	}
}

// Project returns the NDC bounding box of the object-space box [lo, hi]
// under the clip transform m.
func Project(m gpucore.Mat4, lo, hi [3]float64) gpucore.BoundingBox {
	const minW = 1e-6
	b := gpucore.BoundingBox{
		MinX: math.MaxFloat32, MinY: math.MaxFloat32, MinZ: math.MaxFloat32,
		MaxX: -math.MaxFloat32, MaxY: -math.MaxFloat32, MaxZ: -math.MaxFloat32,
	}
	for i := range 8 {
		x, y, z := lo[0], lo[1], lo[2]
		if i&1 != 0 {
			x = hi[0]
		}
		if i&2 != 0 {
			y = hi[1]
		}
		if i&4 != 0 {
			z = hi[2]
		}
		cx, cy, cz, cw := m.Apply(x, y, z)
		if cw < minW {
			return gpucore.FullVolume()
		}
		nx, ny, nz := float32(cx/cw), float32(cy/cw), float32(cz/cw)
		b.MinX, b.MaxX = min(b.MinX, nx), max(b.MaxX, nx)
		b.MinY, b.MaxY = min(b.MinY, ny), max(b.MaxY, ny)
		b.MinZ, b.MaxZ = min(b.MinZ, nz), max(b.MaxZ, nz)
	}
	if b.MaxX < -1 || b.MinX > 1 || b.MaxY < -1 || b.MinY > 1 || b.MaxZ < -1 || b.MinZ > 1 {
		return gpucore.BoundingBox{MinX: 1, MinY: 1, MinZ: 1, MaxX: -1, MaxY: -1, MaxZ: -1}
	}
	return gpucore.BoundingBox{
		MinX: clamp(b.MinX), MinY: clamp(b.MinY), MinZ: clamp(b.MinZ),
		MaxX: clamp(b.MaxX), MaxY: clamp(b.MaxY), MaxZ: clamp(b.MaxZ),
	}
}

func clamp(v float32) float32 { return min(max(v, -1), 1) }

func meshBounds(mesh []gpucore.Vertex) (lo, hi [3]float64) {
	if len(mesh) == 0 {
		return
	}
	lo = [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range mesh {
		p := [3]float64{float64(v.X), float64(v.Y), float64(v.Z)}
		for i := range 3 {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	return lo, hi
}
