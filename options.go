package csg

import "fmt"

// Algorithm selects the CSG algorithm.
type Algorithm int

const (
	// Automatic uses Goldfeather when any primitive is concave and SCS
	// otherwise, and also picks the depth-complexity strategy.
	Automatic Algorithm = 0
	// Goldfeather handles convex and concave primitives.
	Goldfeather Algorithm = 1
	// SCS handles convex primitives only.
	SCS Algorithm = 2
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case Automatic:
		return "Automatic"
	case Goldfeather:
		return "Goldfeather"
	case SCS:
		return "SCS"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// DepthComplexityAlgorithm selects how an algorithm bounds its number of
// passes.
type DepthComplexityAlgorithm int

const (
	// NoDepthComplexitySampling runs every pass the worst case needs.
	NoDepthComplexitySampling DepthComplexityAlgorithm = 0
	// OcclusionQuery stops once passes stop changing the result. It needs
	// occlusion queries and falls back to DepthComplexitySampling.
	OcclusionQuery DepthComplexityAlgorithm = 1
	// DepthComplexitySampling measures the depth complexity once with a
	// stencil readback. It falls back to NoDepthComplexitySampling when the
	// device cannot read the stencil buffer.
	DepthComplexitySampling DepthComplexityAlgorithm = 2
)

// String returns the strategy name.
func (d DepthComplexityAlgorithm) String() string {
	switch d {
	case NoDepthComplexitySampling:
		return "NoDepthComplexitySampling"
	case OcclusionQuery:
		return "OcclusionQuery"
	case DepthComplexitySampling:
		return "DepthComplexitySampling"
	default:
		return fmt.Sprintf("DepthComplexityAlgorithm(%d)", int(d))
	}
}

// OffscreenType selects the kind of offscreen buffer the algorithms render
// intermediate results into.
type OffscreenType int

const (
	// AutomaticOffscreenType probes the device: core framebuffers first,
	// then extension framebuffers.
	AutomaticOffscreenType OffscreenType = 0
	// FrameBufferObject requests a framebuffer of either kind.
	FrameBufferObject OffscreenType = 1
	// FrameBufferObjectARB requests a core framebuffer.
	FrameBufferObjectARB OffscreenType = 3
	// FrameBufferObjectEXT requests an extension framebuffer.
	FrameBufferObjectEXT OffscreenType = 4
)

// Optimization switches an optional optimization.
type Optimization int

const (
	// OptimizationDefault behaves like OptimizationOn.
	OptimizationDefault Optimization = 0
	// OptimizationForceOn enables the optimization unconditionally.
	OptimizationForceOn Optimization = 1
	// OptimizationOn enables the optimization where it is known to be safe.
	OptimizationOn Optimization = 2
	// OptimizationOff disables the optimization.
	OptimizationOff Optimization = 3
)

// Settings configures a Render call. The zero value selects every default.
type Settings struct {
	Algorithm       Algorithm
	DepthComplexity DepthComplexityAlgorithm
	Offscreen       OffscreenType

	// DepthBounds restricts passes to the depth range of the product's
	// intersected volume when the device supports depth bounds tests.
	DepthBounds Optimization

	// CameraOutside assumes the camera lies outside every primitive, which
	// saves a pass per subtraction batch. With OptimizationOn it is only
	// used when no bounding box reaches the near plane.
	CameraOutside Optimization

	// VertexShader replaces the transform used while merging channel
	// results; empty selects the built-in transform.
	VertexShader string

	// OcclusionStability is how many consecutive unchanged SCS passes end
	// the occlusion-query strategy. Zero selects the number of subtraction
	// batches minus one.
	OcclusionStability int

	// Resources holds cached GPU resources; nil selects the process-wide
	// default.
	Resources *Resources

	// Stats, when not nil, receives a description of the work done.
	Stats *Stats
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	return Settings{}
}

// Option configures a Render call.
//
// Example:
//
//	err := csg.Render(dev, prims,
//	    csg.WithAlgorithm(csg.Goldfeather),
//	    csg.WithDepthComplexity(csg.OcclusionQuery))
type Option func(*Settings)

// WithSettings replaces all settings.
func WithSettings(s Settings) Option {
	return func(o *Settings) { *o = s }
}

// WithAlgorithm selects the algorithm.
func WithAlgorithm(a Algorithm) Option {
	return func(o *Settings) { o.Algorithm = a }
}

// WithDepthComplexity selects the depth-complexity strategy. It is ignored
// when the algorithm is Automatic.
func WithDepthComplexity(d DepthComplexityAlgorithm) Option {
	return func(o *Settings) { o.DepthComplexity = d }
}

// WithOffscreenType selects the offscreen buffer type.
func WithOffscreenType(t OffscreenType) Option {
	return func(o *Settings) { o.Offscreen = t }
}

// WithDepthBoundsOptimization switches the depth bounds optimization.
func WithDepthBoundsOptimization(v Optimization) Option {
	return func(o *Settings) { o.DepthBounds = v }
}

// WithCameraOutsideOptimization switches the camera-outside optimization.
func WithCameraOutsideOptimization(v Optimization) Option {
	return func(o *Settings) { o.CameraOutside = v }
}

// WithVertexShader sets the vertex shader source used while merging.
func WithVertexShader(source string) Option {
	return func(o *Settings) { o.VertexShader = source }
}

// WithOcclusionStability sets the SCS occlusion-query stop threshold.
func WithOcclusionStability(n int) Option {
	return func(o *Settings) { o.OcclusionStability = max(n, 0) }
}

// WithResources renders with the resources cached in r.
func WithResources(r *Resources) Option {
	return func(o *Settings) { o.Resources = r }
}

// WithStats makes Render fill s.
func WithStats(s *Stats) Option {
	return func(o *Settings) { o.Stats = s }
}
