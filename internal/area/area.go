// Package area converts normalized-device-coordinate volumes to the pixel
// rectangles and depth ranges that scissoring and depth bounds operate on.
package area

import (
	"math"

	"github.com/gogpu/csg/gpucore"
)

// Volume is an axis-aligned volume in normalized device coordinates.
type Volume = gpucore.BoundingBox

// Full is the whole NDC cube.
var Full = gpucore.FullVolume()

// Intersect returns the axis-wise overlap of a and b. The result may be
// empty (see [gpucore.BoundingBox.IsEmpty]).
func Intersect(a, b Volume) Volume {
	return Volume{
		MinX: max(a.MinX, b.MinX), MinY: max(a.MinY, b.MinY), MinZ: max(a.MinZ, b.MinZ),
		MaxX: min(a.MaxX, b.MaxX), MaxY: min(a.MaxY, b.MaxY), MaxZ: min(a.MaxZ, b.MaxZ),
	}
}

// Union returns the smallest volume enclosing a and b.
func Union(a, b Volume) Volume {
	return Volume{
		MinX: min(a.MinX, b.MinX), MinY: min(a.MinY, b.MinY), MinZ: min(a.MinZ, b.MinZ),
		MaxX: max(a.MaxX, b.MaxX), MaxY: max(a.MaxY, b.MaxY), MaxZ: max(a.MaxZ, b.MaxZ),
	}
}

// Clamp restricts v to the NDC cube.
func Clamp(v Volume) Volume { return Intersect(v, Full) }

// PixelArea is a pixel rectangle relative to the viewport origin.
// Max coordinates are exclusive.
type PixelArea struct {
	MinX, MinY, MaxX, MaxY int
}

// Empty reports whether the area covers no pixels.
func (a PixelArea) Empty() bool { return a.MaxX <= a.MinX || a.MaxY <= a.MinY }

// Rect converts the area to window coordinates of viewport vp.
func (a PixelArea) Rect(vp gpucore.Rect) gpucore.Rect {
	if a.Empty() {
		return gpucore.Rect{X: vp.X, Y: vp.Y}
	}
	return gpucore.Rect{X: vp.X + a.MinX, Y: vp.Y + a.MinY, Width: a.MaxX - a.MinX, Height: a.MaxY - a.MinY}
}

// ToPixels converts an NDC volume to the pixel area of a viewport of size
// width x height. The area grows by one pixel on every side so rounding
// never clips a covered pixel, and is clamped to the viewport.
func ToPixels(v Volume, width, height int) PixelArea {
	if v.IsEmpty() {
		return PixelArea{}
	}
	dx, dy := float64(width)/2, float64(height)/2
	a := PixelArea{
		MinX: int(math.Floor((float64(v.MinX)+1)*dx)) - 1,
		MinY: int(math.Floor((float64(v.MinY)+1)*dy)) - 1,
		MaxX: int(math.Ceil((float64(v.MaxX)+1)*dx)) + 1,
		MaxY: int(math.Ceil((float64(v.MaxY)+1)*dy)) + 1,
	}
	a.MinX = clampInt(a.MinX, 0, width)
	a.MinY = clampInt(a.MinY, 0, height)
	a.MaxX = clampInt(a.MaxX, 0, width)
	a.MaxY = clampInt(a.MaxY, 0, height)
	if a.Empty() {
		return PixelArea{}
	}
	return a
}

// DepthRange converts the Z extent of v to window depth in [0, 1].
func DepthRange(v Volume) (near, far float32) {
	near = (max(v.MinZ, -1) + 1) / 2
	far = (min(v.MaxZ, 1) + 1) / 2
	return near, far
}

// CoversViewport reports whether v spans the whole NDC square in X and Y.
func CoversViewport(v Volume) bool {
	return v.MinX <= -1 && v.MinY <= -1 && v.MaxX >= 1 && v.MaxY >= 1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
