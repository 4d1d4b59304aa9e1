// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "fmt"

// Operation is the boolean operation a primitive contributes to a CSG product.
type Operation uint8

const (
	// Intersection keeps only the volume shared with the primitive.
	Intersection Operation = iota
	// Subtraction removes the primitive's volume from the product.
	Subtraction
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case Intersection:
		return "Intersection"
	case Subtraction:
		return "Subtraction"
	default:
		return fmt.Sprintf("Operation(%d)", o)
	}
}

// BoundingBox is an axis-aligned box in normalized device coordinates.
type BoundingBox struct {
	MinX, MinY, MinZ float32
	MaxX, MaxY, MaxZ float32
}

// FullVolume returns the box covering the whole NDC cube.
func FullVolume() BoundingBox {
	return BoundingBox{MinX: -1, MinY: -1, MinZ: -1, MaxX: 1, MaxY: 1, MaxZ: 1}
}

// IsEmpty reports whether the box encloses no volume on some axis.
func (b BoundingBox) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY || b.MinZ > b.MaxZ
}

// Primitive is one shape of a CSG product.
//
// All methods must return stable results for the duration of a render call.
// Render must only emit geometry through the canvas; it must not touch
// depth, stencil or color state, which the engine owns while rendering.
type Primitive interface {
	// Operation returns how the primitive combines with the product.
	Operation() Operation

	// Convexity returns the maximum number of front faces of the primitive
	// visible along any viewing ray. Convex shapes return 1.
	Convexity() int

	// BoundingBox returns the primitive's extent in normalized device
	// coordinates for the current camera.
	BoundingBox() BoundingBox

	// Render draws the primitive's closed surface.
	Render(c Canvas)
}

// PrimitiveBase implements the attribute half of [Primitive].
// Embed it and add a Render method to get a complete primitive.
//
// The zero value is an intersected, convex primitive with a full-volume
// bounding box.
type PrimitiveBase struct {
	op        Operation
	convexity int
	bbox      BoundingBox
	hasBBox   bool
}

// NewPrimitiveBase returns a base with the given operation and convexity.
func NewPrimitiveBase(op Operation, convexity int) PrimitiveBase {
	return PrimitiveBase{op: op, convexity: convexity}
}

// Operation returns the CSG operation.
func (p *PrimitiveBase) Operation() Operation { return p.op }

// SetOperation changes the CSG operation.
func (p *PrimitiveBase) SetOperation(op Operation) { p.op = op }

// Convexity returns the convexity, at least 1.
func (p *PrimitiveBase) Convexity() int {
	if p.convexity < 1 {
		return 1
	}
	return p.convexity
}

// SetConvexity changes the convexity. Values below 1 are treated as 1.
func (p *PrimitiveBase) SetConvexity(c int) { p.convexity = c }

// BoundingBox returns the bounding box, or the full volume if none was set.
func (p *PrimitiveBase) BoundingBox() BoundingBox {
	if !p.hasBBox {
		return FullVolume()
	}
	return p.bbox
}

// SetBoundingBox sets the bounding box in normalized device coordinates.
func (p *PrimitiveBase) SetBoundingBox(b BoundingBox) {
	p.bbox = b
	p.hasBBox = true
}

// ResetBoundingBox reverts to the full-volume default.
func (p *PrimitiveBase) ResetBoundingBox() {
	p.bbox = BoundingBox{}
	p.hasBBox = false
}
