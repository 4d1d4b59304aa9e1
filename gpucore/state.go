// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "github.com/gogpu/gputypes"

// StencilOp is the action applied to a stencil value when a stencil or
// depth test resolves. The semantics are those of OpenGL.
type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	// StencilIncr increments and clamps at the maximum value.
	StencilIncr
	StencilIncrWrap
	// StencilDecr decrements and clamps at zero.
	StencilDecr
	StencilDecrWrap
	StencilInvert
)

// Apply returns the new stencil value for the operation.
func (op StencilOp) Apply(value, ref uint8) uint8 {
	switch op {
	case StencilZero:
		return 0
	case StencilReplace:
		return ref
	case StencilIncr:
		if value == 0xff {
			return value
		}
		return value + 1
	case StencilIncrWrap:
		return value + 1
	case StencilDecr:
		if value == 0 {
			return 0
		}
		return value - 1
	case StencilDecrWrap:
		return value - 1
	case StencilInvert:
		return ^value
	default:
		return value
	}
}

// StencilState configures the stencil test. Both faces share one state.
type StencilState struct {
	// Compare passes when (Ref & ReadMask) Compare (stencil & ReadMask).
	Compare   gputypes.CompareFunction
	Ref       uint8
	ReadMask  uint8
	WriteMask uint8

	FailOp      StencilOp
	DepthFailOp StencilOp
	PassOp      StencilOp
}

// TextureTest discards fragments by comparing a channel of an offscreen
// color buffer against a reference value. The texel is addressed by the
// fragment's window position relative to the current viewport origin, which
// is how the offscreen buffer is projected onto the main canvas.
//
// The test passes when value Compare Ref.
type TextureTest struct {
	Source  Framebuffer
	Channel Channel
	Compare gputypes.CompareFunction
	Ref     uint32
}

// State is the complete fixed-function state a draw is executed with.
type State struct {
	DepthTest    bool
	DepthCompare gputypes.CompareFunction
	DepthWrite   bool

	// DepthBoundsTest discards fragments whose stored depth lies outside
	// [DepthBoundsMin, DepthBoundsMax]. Requires Capabilities.DepthBounds.
	DepthBoundsTest bool
	DepthBoundsMin  float32
	DepthBoundsMax  float32

	ColorWriteMask gputypes.ColorWriteMask
	// Color is written by every fragment that passes all tests.
	Color Color

	CullMode gputypes.CullMode

	StencilTest bool
	Stencil     StencilState

	ScissorTest bool
	Scissor     Rect

	// TextureTest is disabled when nil.
	TextureTest *TextureTest
}

// DefaultState returns the state of a freshly created context: depth test
// with LESS and writes enabled, all colors writable, no culling, stencil
// and scissor disabled.
func DefaultState() State {
	return State{
		DepthTest:      true,
		DepthCompare:   gputypes.CompareFunctionLess,
		DepthWrite:     true,
		DepthBoundsMin: 0,
		DepthBoundsMax: 1,
		ColorWriteMask: gputypes.ColorWriteMaskAll,
		Color:          Color{R: 255, G: 255, B: 255, A: 255},
		CullMode:       gputypes.CullModeNone,
		Stencil: StencilState{
			Compare:   gputypes.CompareFunctionAlways,
			ReadMask:  0xff,
			WriteMask: 0xff,
		},
	}
}

// Compare evaluates a compare function as "a f b".
func Compare[T uint8 | uint32 | float32](f gputypes.CompareFunction, a, b T) bool {
	switch f {
	case gputypes.CompareFunctionNever:
		return false
	case gputypes.CompareFunctionLess:
		return a < b
	case gputypes.CompareFunctionEqual:
		return a == b
	case gputypes.CompareFunctionLessEqual:
		return a <= b
	case gputypes.CompareFunctionGreater:
		return a > b
	case gputypes.CompareFunctionNotEqual:
		return a != b
	case gputypes.CompareFunctionGreaterEqual:
		return a >= b
	default:
		return true
	}
}
