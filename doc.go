// Package csg renders Constructive Solid Geometry products with image-based
// algorithms: no boundary representation is ever computed, only depth,
// stencil and color buffer passes over the primitives.
//
// # Overview
//
// A CSG product is a set of primitives, each either intersected with or
// subtracted from the rest. Render resolves which surface of the product
// is visible at every pixel and leaves its depth in the depth buffer of
// the device, so the caller can shade the primitives afterwards with an
// EQUAL depth test.
//
// # Quick Start
//
//	dev, _ := software.New(512, 512)
//	dev.SetTransform(viewProj)
//
//	a := shapes.Sphere(csg.Intersection, 1)
//	b := shapes.Box(csg.Subtraction, 1.2, 1.2, 1.2)
//	shapes.UpdateBounds(viewProj, a, b)
//
//	if err := csg.Render(dev, []csg.Primitive{a, b}); err != nil {
//	    log.Fatal(err)
//	}
//
// # Algorithms
//
// Two algorithms are available:
//   - Goldfeather handles convex and concave primitives. Every surface
//     layer is tested for parity against every primitive.
//   - SCS (Sequenced Convex Subtraction) handles convex primitives only and
//     is usually much faster.
//
// By default the algorithm and its depth-complexity strategy are chosen
// from the primitives and the device capabilities; see [WithAlgorithm] and
// [WithDepthComplexity].
//
// # Devices
//
// The algorithms run on a [gpucore.Device]. backend/software is a complete
// CPU implementation; backend/wgpu runs on GPUs through gogpu/wgpu.
//
// # Coordinate System
//
// Conventions follow OpenGL:
//   - Window origin at the bottom-left
//   - Normalized device coordinates in [-1, 1] on every axis
//   - Window depth in [0, 1], smaller is nearer
//   - Counter-clockwise triangles face the viewer
package csg

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
