// Package gpucore provides the shared GPU abstraction the CSG algorithms run on.
//
// The visibility-resolution algorithms in this module are written once against
// the [Device] interface, and thin backends translate it to a concrete API:
//
//	               +-----------------+
//	               |     gpucore     |
//	               | (Device, State) |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  wgpu backend   |          | software backend|
//	|  (hal.Device)   |          | (CPU raster)    |
//	+--------+--------+          +-----------------+
//	         |
//	+--------v--------+
//	|   gogpu/wgpu    |
//	+-----------------+
//
// # Fixed-function state
//
// The algorithms only need a fixed-function view of the GPU: depth test,
// stencil test and operations, color write masks, face culling, scissor,
// depth bounds and a per-fragment "texture test" that compares a channel of
// an offscreen color buffer against a reference value. [State] captures all
// of it as a value type, so saving and restoring it is a copy ([Guard]).
//
// # Coordinates
//
// Window coordinates follow the OpenGL conventions: the origin is the
// bottom-left corner of the framebuffer, and window depth is in [0, 1]
// where 0 is the near plane. Normalized device coordinates span [-1, 1] on
// all three axes. Front faces are counter-clockwise in window space.
//
// # Primitives
//
// A [Primitive] is an opaque render callback. The engine never owns
// primitive geometry; it only reads the operation, convexity and bounding
// box and asks the primitive to draw itself into a [Canvas].
package gpucore
