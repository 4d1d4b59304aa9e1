// Package scissor tracks the screen-space and depth-space region the CSG
// algorithms must touch and restricts rendering to it.
package scissor

import (
	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/area"
	"github.com/gogpu/csg/internal/batch"
)

// Memo keeps three NDC volumes: the overlap of all intersected primitives,
// the bounds of the current working set, and their intersection, the area
// that is actually scissored. It also remembers the area each channel was
// rendered with so merging can restore it.
type Memo struct {
	dev         gpucore.Device
	depthBounds bool

	intersected area.Volume
	current     area.Volume
	area        area.Volume

	saved map[gpucore.Channel]area.Volume
}

// NewMemo returns a memo whose volumes all cover the full NDC cube. Depth
// bounds are only used when useDepthBounds is set and dev supports them.
func NewMemo(dev gpucore.Device, useDepthBounds bool) *Memo {
	m := &Memo{
		dev:         dev,
		depthBounds: useDepthBounds && dev.Capabilities().DepthBounds,
		intersected: area.Full,
		current:     area.Full,
		saved:       make(map[gpucore.Channel]area.Volume),
	}
	m.CalculateArea()
	return m
}

// SetIntersected sets the intersected volume to the overlap of the
// bounding boxes of prims.
func (m *Memo) SetIntersected(prims []gpucore.Primitive) {
	m.intersected = batch.IntersectedBounds(prims)
	m.CalculateArea()
}

// SetCurrent sets the current volume to the bounds of prims.
func (m *Memo) SetCurrent(prims []gpucore.Primitive) {
	m.current = batch.Bounds(prims)
	m.CalculateArea()
}

// SetCurrentVolume sets the current volume directly.
func (m *Memo) SetCurrentVolume(v area.Volume) {
	m.current = v
	m.CalculateArea()
}

// CalculateArea recomputes the area from the intersected and current
// volumes.
func (m *Memo) CalculateArea() {
	m.area = area.Intersect(m.intersected, m.current)
}

// Intersected returns the intersected volume.
func (m *Memo) Intersected() area.Volume { return m.intersected }

// Current returns the current volume.
func (m *Memo) Current() area.Volume { return m.current }

// Area returns intersected ∩ current.
func (m *Memo) Area() area.Volume { return m.area }

// Empty reports whether the area contains no pixels of the viewport.
func (m *Memo) Empty() bool {
	vp := m.dev.Viewport()
	return m.area.IsEmpty() || area.ToPixels(m.area, vp.Width, vp.Height).Empty()
}

// Store saves the current area for channel ch.
func (m *Memo) Store(ch gpucore.Channel) {
	m.saved[ch] = m.area
}

// Recall makes the area saved for ch current again. Channels never stored
// recall the full volume.
func (m *Memo) Recall(ch gpucore.Channel) {
	v, ok := m.saved[ch]
	if !ok {
		v = area.Full
	}
	m.area = v
}

// ScissorRect returns the area in window coordinates of the current
// viewport.
func (m *Memo) ScissorRect() gpucore.Rect {
	vp := m.dev.Viewport()
	return area.ToPixels(m.area, vp.Width, vp.Height).Rect(vp)
}

// Apply enables the scissor test, and depth bounds when in use, on s.
func (m *Memo) Apply(s *gpucore.State) {
	s.ScissorTest = true
	s.Scissor = m.ScissorRect()
	if m.depthBounds {
		s.DepthBoundsTest = true
		s.DepthBoundsMin, s.DepthBoundsMax = area.DepthRange(m.area)
	}
}

// ApplyScissor enables only the scissor test on s.
func (m *Memo) ApplyScissor(s *gpucore.State) {
	s.ScissorTest = true
	s.Scissor = m.ScissorRect()
}

// Disable turns scissor and depth bounds off on s.
func Disable(s *gpucore.State) {
	s.ScissorTest = false
	s.DepthBoundsTest = false
}
