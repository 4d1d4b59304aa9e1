// Package complexity measures the depth complexity of a set of primitives:
// the largest number of their surfaces covering any single pixel.
package complexity

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/gpucore"
)

// FaceSelector returns the faces of p to leave out of the count.
type FaceSelector func(p gpucore.Primitive) gputypes.CullMode

// AllFaces counts front and back faces.
func AllFaces(gpucore.Primitive) gputypes.CullMode { return gputypes.CullModeNone }

// FrontFaces counts front faces only.
func FrontFaces(gpucore.Primitive) gputypes.CullMode { return gputypes.CullModeBack }

// BackFaces counts back faces only.
func BackFaces(gpucore.Primitive) gputypes.CullMode { return gputypes.CullModeFront }

// Max renders prims into the stencil buffer of the bound framebuffer,
// incrementing once per fragment, and returns the largest count inside
// rect. The stencil buffer inside rect is cleared before and after. Counts
// saturate at 255.
func Max(dev gpucore.Device, prims []gpucore.Primitive, rect gpucore.Rect, faces FaceSelector) (int, error) {
	if rect.Empty() || len(prims) == 0 {
		return 0, nil
	}
	s := gpucore.DefaultState()
	s.DepthTest = false
	s.DepthWrite = false
	s.ColorWriteMask = gputypes.ColorWriteMaskNone
	s.ScissorTest = true
	s.Scissor = rect
	s.StencilTest = true
	s.Stencil = gpucore.StencilState{
		Compare:   gputypes.CompareFunctionAlways,
		ReadMask:  0xff,
		WriteMask: 0xff,
		PassOp:    gpucore.StencilIncr,
	}
	dev.SetState(s)
	dev.Clear(gpucore.ClearStencil, gpucore.ClearValues{})

	for _, p := range prims {
		s.CullMode = faces(p)
		dev.SetState(s)
		p.Render(dev)
	}

	values, err := dev.ReadStencil(rect)
	if err != nil {
		return 0, fmt.Errorf("complexity: read stencil: %w", err)
	}
	dev.Clear(gpucore.ClearStencil, gpucore.ClearValues{})

	m := 0
	for _, v := range values {
		m = max(m, int(v))
	}
	return m, nil
}
