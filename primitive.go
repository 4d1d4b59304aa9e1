package csg

import "github.com/gogpu/csg/gpucore"

// Primitive is one shape of a CSG product. See [gpucore.Primitive].
type Primitive = gpucore.Primitive

// PrimitiveBase implements the attribute methods of [Primitive].
type PrimitiveBase = gpucore.PrimitiveBase

// Operation is how a primitive combines with the product.
type Operation = gpucore.Operation

// BoundingBox is a box in normalized device coordinates.
type BoundingBox = gpucore.BoundingBox

// Device is what Render draws on.
type Device = gpucore.Device

// Operations.
const (
	Intersection = gpucore.Intersection
	Subtraction  = gpucore.Subtraction
)

// NewPrimitiveBase returns a base with the given operation and convexity
// and a bounding box covering the whole view volume.
func NewPrimitiveBase(op Operation, convexity int) PrimitiveBase {
	return gpucore.NewPrimitiveBase(op, convexity)
}
