package software

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/gpucore"
)

const (
	subpixelBits = 8
	subpixelOne  = 1 << subpixelBits
	subpixelHalf = subpixelOne / 2

	// guardBand bounds X and Y in clip space to keep fixed-point window
	// coordinates small.
	guardBand = 2
	minW      = 1e-9
)

type clipVertex struct{ x, y, z, w float64 }

// winVertex is a window-space vertex with X and Y in fixed point.
type winVertex struct {
	x, y int64
	z    float64
}

// clipPlanes returns the signed distances of v to the clip planes. A vertex
// is inside a plane when its distance is non-negative.
var clipPlanes = [...]func(v clipVertex) float64{
	func(v clipVertex) float64 { return v.z + v.w },           // near
	func(v clipVertex) float64 { return v.w - v.z },           // far
	func(v clipVertex) float64 { return v.w - minW },          // w > 0
	func(v clipVertex) float64 { return guardBand*v.w + v.x }, // left
	func(v clipVertex) float64 { return guardBand*v.w - v.x }, // right
	func(v clipVertex) float64 { return guardBand*v.w + v.y }, // bottom
	func(v clipVertex) float64 { return guardBand*v.w - v.y }, // top
}

// intersect returns the point where the edge from inside vertex a to
// outside vertex b crosses a plane. Always interpolating from the inside
// vertex makes the result independent of the edge direction, so
// neighbouring triangles share the clipped vertex exactly.
func intersect(a, b clipVertex, da, db float64) clipVertex {
	t := da / (da - db)
	return clipVertex{
		x: a.x + t*(b.x-a.x),
		y: a.y + t*(b.y-a.y),
		z: a.z + t*(b.z-a.z),
		w: a.w + t*(b.w-a.w),
	}
}

// clipPolygon clips poly against all planes using buf as scratch space.
func clipPolygon(poly, buf []clipVertex) []clipVertex {
	for _, plane := range clipPlanes {
		if len(poly) == 0 {
			return poly
		}
		out := buf[:0]
		prev := poly[len(poly)-1]
		dPrev := plane(prev)
		for _, cur := range poly {
			dCur := plane(cur)
			switch {
			case dCur >= 0:
				if dPrev < 0 {
					out = append(out, intersect(cur, prev, dCur, dPrev))
				}
				out = append(out, cur)
			case dPrev >= 0:
				out = append(out, intersect(prev, cur, dPrev, dCur))
			}
			prev, dPrev = cur, dCur
		}
		poly, buf = out, poly[:0]
	}
	return poly
}

func (d *Device) toWindow(v clipVertex) winVertex {
	vp := d.viewport
	nx, ny, nz := v.x/v.w, v.y/v.w, v.z/v.w
	wx := float64(vp.X) + (nx+1)*float64(vp.Width)/2
	wy := float64(vp.Y) + (ny+1)*float64(vp.Height)/2
	return winVertex{
		x: int64(math.Round(wx * subpixelOne)),
		y: int64(math.Round(wy * subpixelOne)),
		z: (nz + 1) / 2,
	}
}

// DrawTriangles transforms, clips and rasterizes a triangle list.
func (d *Device) DrawTriangles(vertices []gpucore.Vertex) {
	fb := d.target()
	m := d.transform
	var polyBuf, scratch [16]clipVertex
	for i := 0; i+2 < len(vertices); i += 3 {
		poly := polyBuf[:3]
		for k := 0; k < 3; k++ {
			v := vertices[i+k]
			x, y, z, w := m.Apply(float64(v.X), float64(v.Y), float64(v.Z))
			poly[k] = clipVertex{x, y, z, w}
		}
		poly = clipPolygon(poly, scratch[:0])
		if len(poly) < 3 {
			continue
		}
		var win [16]winVertex
		for k, v := range poly {
			win[k] = d.toWindow(v)
		}
		for k := 1; k+1 < len(poly); k++ {
			d.rasterize(fb, win[0], win[k], win[k+1])
		}
	}
}

// DrawQuad covers the viewport at window depth z.
func (d *Device) DrawQuad(z float32) {
	fb := d.target()
	vp := d.viewport
	x0, y0 := int64(vp.X)*subpixelOne, int64(vp.Y)*subpixelOne
	x1, y1 := int64(vp.X+vp.Width)*subpixelOne, int64(vp.Y+vp.Height)*subpixelOne
	zz := float64(z)
	a := winVertex{x0, y0, zz}
	b := winVertex{x1, y0, zz}
	c := winVertex{x1, y1, zz}
	e := winVertex{x0, y1, zz}
	d.rasterize(fb, a, b, c)
	d.rasterize(fb, a, c, e)
}

func edge(a, b winVertex, px, py int64) int64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether samples exactly on the edge a->b of a
// counter-clockwise triangle belong to it.
func topLeft(a, b winVertex) bool {
	dy, dx := b.y-a.y, b.x-a.x
	return dy < 0 || (dy == 0 && dx < 0)
}

func (d *Device) rasterize(fb *Framebuffer, a, b, c winVertex) {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}
	front := area > 0
	switch d.state.CullMode {
	case gputypes.CullModeBack:
		if !front {
			return
		}
	case gputypes.CullModeFront:
		if front {
			return
		}
	}
	if !front {
		b, c = c, b
		area = -area
	}
	d.stats.Triangles++

	bounds := gpucore.Rect{Width: fb.width, Height: fb.height}.Intersect(d.viewport)
	if d.state.ScissorTest {
		bounds = bounds.Intersect(d.state.Scissor)
	}
	minX := max(int(floorDiv(min(a.x, b.x, c.x), subpixelOne)), bounds.X)
	minY := max(int(floorDiv(min(a.y, b.y, c.y), subpixelOne)), bounds.Y)
	maxX := min(int(floorDiv(max(a.x, b.x, c.x), subpixelOne)), bounds.X+bounds.Width-1)
	maxY := min(int(floorDiv(max(a.y, b.y, c.y), subpixelOne)), bounds.Y+bounds.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	tl0, tl1, tl2 := topLeft(b, c), topLeft(c, a), topLeft(a, b)
	inv := 1 / float64(area)

	px0 := int64(minX)*subpixelOne + subpixelHalf
	for y := minY; y <= maxY; y++ {
		py := int64(y)*subpixelOne + subpixelHalf
		w0 := edge(b, c, px0, py)
		w1 := edge(c, a, px0, py)
		w2 := edge(a, b, px0, py)
		step0 := -(c.y - b.y) * subpixelOne
		step1 := -(a.y - c.y) * subpixelOne
		step2 := -(b.y - a.y) * subpixelOne
		for x := minX; x <= maxX; x++ {
			if covers(w0, tl0) && covers(w1, tl1) && covers(w2, tl2) {
				z := (float64(w0)*a.z + float64(w1)*b.z + float64(w2)*c.z) * inv
				d.fragment(fb, x, y, float32(min(max(z, 0), 1)))
			}
			w0 += step0
			w1 += step1
			w2 += step2
		}
	}
}

func covers(w int64, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// fragment runs the per-fragment tests in pipeline order: depth bounds,
// texture test, stencil test, depth test.
func (d *Device) fragment(fb *Framebuffer, x, y int, z float32) {
	s := &d.state
	idx := y*fb.width + x

	if s.DepthBoundsTest {
		stored := fb.depth[idx]
		if stored < s.DepthBoundsMin || stored > s.DepthBoundsMax {
			return
		}
	}
	if tt := s.TextureTest; tt != nil && !d.textureTest(tt, x, y) {
		return
	}
	if s.StencilTest {
		st := &s.Stencil
		if !gpucore.Compare(st.Compare, st.Ref&st.ReadMask, fb.stencil[idx]&st.ReadMask) {
			applyStencil(fb, idx, st, st.FailOp)
			return
		}
	}
	if s.DepthTest && !gpucore.Compare(s.DepthCompare, z, fb.depth[idx]) {
		if s.StencilTest {
			applyStencil(fb, idx, &s.Stencil, s.Stencil.DepthFailOp)
		}
		return
	}
	if s.StencilTest {
		applyStencil(fb, idx, &s.Stencil, s.Stencil.PassOp)
	}
	if s.DepthTest && s.DepthWrite {
		fb.depth[idx] = z
	}
	writeColor(fb.color[4*idx:4*idx+4], s.Color, colorMask(s.ColorWriteMask))
	d.stats.Fragments++
	if d.query != nil {
		d.query.samples++
	}
}

func (d *Device) textureTest(tt *gpucore.TextureTest, x, y int) bool {
	var value uint32
	if src, ok := tt.Source.(*Framebuffer); ok {
		sx, sy := x-d.viewport.X, y-d.viewport.Y
		value = tt.Channel.Value(src.Color(sx, sy))
	}
	return gpucore.Compare(tt.Compare, value, tt.Ref)
}

func applyStencil(fb *Framebuffer, idx int, st *gpucore.StencilState, op gpucore.StencilOp) {
	if op == gpucore.StencilKeep {
		return
	}
	old := fb.stencil[idx]
	fb.stencil[idx] = old&^st.WriteMask | op.Apply(old, st.Ref)&st.WriteMask
}

func colorMask(m gputypes.ColorWriteMask) [4]bool {
	return [4]bool{
		m&gputypes.ColorWriteMaskRed != 0,
		m&gputypes.ColorWriteMaskGreen != 0,
		m&gputypes.ColorWriteMaskBlue != 0,
		m&gputypes.ColorWriteMaskAlpha != 0,
	}
}

func writeColor(dst []uint8, c gpucore.Color, mask [4]bool) {
	src := [4]uint8{c.R, c.G, c.B, c.A}
	for i, on := range mask {
		if on {
			dst[i] = src[i]
		}
	}
}
