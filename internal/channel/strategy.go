package channel

import "github.com/gogpu/csg/gpucore"

// MergeStrategy is the way channel results are composited into the main
// framebuffer. It is probed once from the device capabilities.
type MergeStrategy uint8

const (
	// AlphaOnly compares the alpha channel only; no other channel can be
	// used as a mask.
	AlphaOnly MergeStrategy = iota
	// FixedFunction selects a channel with a packed-channel combine.
	FixedFunction
	// ARBProgram selects a channel in an assembly fragment program.
	ARBProgram
	// GLSLProgram selects a channel in a shader and honors a vertex
	// shader override.
	GLSLProgram
)

// String returns the strategy name.
func (s MergeStrategy) String() string {
	switch s {
	case AlphaOnly:
		return "AlphaOnly"
	case FixedFunction:
		return "FixedFunction"
	case ARBProgram:
		return "ARBProgram"
	case GLSLProgram:
		return "GLSLProgram"
	default:
		return "MergeStrategy(?)"
	}
}

// ProbeStrategy picks the best merge strategy the capabilities allow.
func ProbeStrategy(caps gpucore.Capabilities) MergeStrategy {
	switch {
	case caps.Shaders:
		return GLSLProgram
	case caps.Programs:
		return ARBProgram
	case caps.PackedChannels:
		return FixedFunction
	default:
		return AlphaOnly
	}
}

// MultiChannel reports whether channels other than alpha are usable.
func (s MergeStrategy) MultiChannel() bool { return s != AlphaOnly }

// PackedIDs reports whether primitive IDs can be encoded in all four
// channels. Without programs only the alpha byte is compared exactly.
func (s MergeStrategy) PackedIDs() bool { return s == ARBProgram || s == GLSLProgram }
