package batch

import (
	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/area"
)

// IntersectXY reports whether the screen-space projections of the bounding
// boxes of a and b overlap. Touching boxes count as overlapping.
func IntersectXY(a, b gpucore.Primitive) bool {
	return overlapXY(a.BoundingBox(), b.BoundingBox())
}

// IntersectsVolume reports whether the bounding box of p overlaps v,
// including depth. Touching boxes count as overlapping.
func IntersectsVolume(p gpucore.Primitive, v area.Volume) bool {
	b := p.BoundingBox()
	return overlapXY(b, v) && b.MinZ <= v.MaxZ && v.MinZ <= b.MaxZ
}

// Visible reports whether the bounding box of p reaches the viewport.
func Visible(p gpucore.Primitive) bool {
	return overlapXY(p.BoundingBox(), area.Full)
}

// CoversViewport reports whether the bounding box of p spans the whole
// viewport, so no other primitive can share a batch with it.
func CoversViewport(p gpucore.Primitive) bool {
	return area.CoversViewport(p.BoundingBox())
}

// Bounds returns the union of the bounding boxes of prims, clamped to the
// NDC cube. It returns an empty volume for an empty list.
func Bounds(prims []gpucore.Primitive) area.Volume {
	if len(prims) == 0 {
		return area.Volume{MinX: 1, MinY: 1, MinZ: 1, MaxX: -1, MaxY: -1, MaxZ: -1}
	}
	v := prims[0].BoundingBox()
	for _, p := range prims[1:] {
		v = area.Union(v, p.BoundingBox())
	}
	return area.Clamp(v)
}

// IntersectedBounds returns the overlap of the bounding boxes of prims,
// clamped to the NDC cube, or the full volume for an empty list.
func IntersectedBounds(prims []gpucore.Primitive) area.Volume {
	v := area.Full
	for _, p := range prims {
		v = area.Intersect(v, p.BoundingBox())
	}
	return v
}

// MaxConvexity returns the largest convexity in prims, or 0 when empty.
func MaxConvexity(prims []gpucore.Primitive) int {
	m := 0
	for _, p := range prims {
		m = max(m, p.Convexity())
	}
	return m
}

// Split partitions prims by operation, preserving order.
func Split(prims []gpucore.Primitive) (intersected, subtracted []gpucore.Primitive) {
	for _, p := range prims {
		if p.Operation() == gpucore.Subtraction {
			subtracted = append(subtracted, p)
		} else {
			intersected = append(intersected, p)
		}
	}
	return intersected, subtracted
}

func overlapXY(a, b area.Volume) bool {
	return a.MinX <= b.MaxX && b.MinX <= a.MaxX && a.MinY <= b.MaxY && b.MinY <= a.MaxY
}
