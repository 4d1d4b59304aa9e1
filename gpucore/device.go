// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

// Rect is a window-space rectangle. X and Y address the bottom-left pixel.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Intersect returns the overlap of r and o.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.Width, o.X+o.Width), min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Vertex is an object-space position. The device applies the current
// transform to produce clip coordinates.
type Vertex struct {
	X, Y, Z float32
}

// Canvas is the drawing surface a [Primitive] renders into.
type Canvas interface {
	// Transform returns the current model-view-projection matrix.
	Transform() Mat4

	// SetTransform replaces the model-view-projection matrix.
	SetTransform(m Mat4)

	// DrawTriangles rasterizes a triangle list with the current state.
	// Counter-clockwise triangles in window space are front facing.
	DrawTriangles(vertices []Vertex)
}

// FramebufferKind identifies the offscreen framebuffer flavor a device
// provides. A device may support several.
type FramebufferKind uint8

const (
	// FramebufferCore is the core (ARB) framebuffer object.
	FramebufferCore FramebufferKind = 1 << iota
	// FramebufferEXT is the legacy extension framebuffer object.
	FramebufferEXT
)

// Framebuffer is an offscreen render target with RGBA8 color and a
// combined depth/stencil attachment.
type Framebuffer interface {
	Kind() FramebufferKind
	Width() int
	Height() int
	// Resize reallocates the attachments. Contents become undefined.
	Resize(width, height int) error
	Destroy()
}

// OcclusionKind is the flavor of occlusion query a device offers.
type OcclusionKind uint8

const (
	OcclusionNone OcclusionKind = iota
	// OcclusionAnySamples only reports whether any fragment passed.
	OcclusionAnySamples
	// OcclusionSampleCount reports the number of fragments that passed.
	OcclusionSampleCount
)

// Query is a hardware occlusion query.
type Query interface {
	Begin()
	End()
	// Result blocks until the result is available. For
	// OcclusionAnySamples queries it is 0 or 1.
	Result() (uint32, error)
	Destroy()
}

// Capabilities lists the optional features a device supports. Absence of a
// feature selects a slower but correct path; it is never an error.
type Capabilities struct {
	// Framebuffers is the set of supported offscreen framebuffer kinds.
	Framebuffers FramebufferKind
	// NonPowerOfTwo allows framebuffers of arbitrary size.
	NonPowerOfTwo bool
	// MaxFramebufferSize bounds framebuffer width and height. Zero means
	// unbounded.
	MaxFramebufferSize int
	StencilBits        int
	Occlusion          OcclusionKind
	DepthBounds        bool
	// PackedChannels allows the red, green and blue channels to be used as
	// independent masks next to alpha.
	PackedChannels bool
	// Programs is the assembly-program merge path.
	Programs bool
	// Shaders is the high-level shader merge path, which also honors a
	// vertex shader override.
	Shaders bool
	// StencilReadback allows reading stencil values back to the CPU.
	StencilReadback bool
}

// ClearMask selects the buffers cleared by [Device.Clear].
type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
)

// ClearValues holds the values written by [Device.Clear].
type ClearValues struct {
	Color   Color
	Depth   float32
	Stencil uint8
}

// Device is the GPU context the CSG algorithms drive.
//
// A device is single threaded and ordered: every call observes the effects
// of all previous calls. Readbacks (Query.Result, ReadStencil, ReadColor)
// block until the preceding work has completed.
type Device interface {
	Canvas

	Capabilities() Capabilities

	// Viewport returns the window rectangle NDC maps onto.
	Viewport() Rect
	SetViewport(r Rect)

	State() State
	SetState(s State)

	// Clear fills the bound framebuffer. Like glClear it honors the
	// scissor, the color write mask, the depth write flag and the stencil
	// write mask of the current state.
	Clear(mask ClearMask, v ClearValues)

	// DrawQuad draws a front-facing rectangle covering the viewport at
	// window depth z, ignoring the transform.
	DrawQuad(z float32)

	// CreateFramebuffer allocates an offscreen framebuffer.
	CreateFramebuffer(kind FramebufferKind, width, height int) (Framebuffer, error)

	// BindFramebuffer directs rendering to fb, or to the main framebuffer
	// when fb is nil.
	BindFramebuffer(fb Framebuffer)
	BoundFramebuffer() Framebuffer

	// CreateQuery allocates an occlusion query of the device's kind.
	CreateQuery() (Query, error)

	// ReadStencil returns the stencil values of r in the bound framebuffer,
	// row by row from the bottom.
	ReadStencil(r Rect) ([]uint8, error)

	// ReadColor returns the RGBA bytes of r in the bound framebuffer, row
	// by row from the bottom.
	ReadColor(r Rect) ([]uint8, error)

	// SetVertexShader replaces the vertex stage used while the texture
	// test is active. An empty source restores the built-in transform.
	SetVertexShader(source string) error

	// Flush submits all recorded work.
	Flush() error
}
