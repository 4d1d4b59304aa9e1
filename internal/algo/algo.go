// Package algo holds what the visibility algorithms share: their
// configuration, statistics and the state helpers they build passes from.
package algo

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/channel"
	"github.com/gogpu/csg/internal/offscreen"
	"github.com/gogpu/csg/internal/scissor"
)

// DepthComplexity selects how an algorithm bounds its number of passes.
// The numeric values are part of the public settings.
type DepthComplexity int

const (
	// NoDepthComplexitySampling runs every pass the worst case needs.
	NoDepthComplexitySampling DepthComplexity = 0
	// OcclusionQuery stops as soon as passes stop changing the result.
	OcclusionQuery DepthComplexity = 1
	// DepthComplexitySampling measures the depth complexity up front.
	DepthComplexitySampling DepthComplexity = 2
)

// String returns the strategy name.
func (d DepthComplexity) String() string {
	switch d {
	case NoDepthComplexitySampling:
		return "NoDepthComplexitySampling"
	case OcclusionQuery:
		return "OcclusionQuery"
	case DepthComplexitySampling:
		return "DepthComplexitySampling"
	default:
		return "DepthComplexity(?)"
	}
}

// Config configures one algorithm run.
type Config struct {
	Device    gpucore.Device
	Pool      *offscreen.Pool
	Context   int
	Offscreen offscreen.Type

	DepthComplexity DepthComplexity
	DepthBounds     bool
	CameraOutside   bool
	// OcclusionStability is the number of consecutive unchanged SCS
	// subtraction passes after which the occlusion-query variant stops.
	// Zero means the number of batches minus one.
	OcclusionStability int
	VertexShader       string

	Logger *slog.Logger
}

// Stats describes the work an algorithm run did.
type Stats struct {
	DepthComplexity DepthComplexity
	Batches         int
	// Passes counts SCS subtraction passes or Goldfeather layers.
	Passes int
	Merges int
}

// Log returns the configured logger or one that discards output.
func (c *Config) Log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// NewManager creates the channel manager for a run.
func (c *Config) NewManager(memo *scissor.Memo, mode channel.Mode, id func(gpucore.Primitive) uint32, packed bool) *channel.Manager {
	return channel.New(channel.Config{
		Device:       c.Device,
		Pool:         c.Pool,
		Context:      c.Context,
		Type:         c.Offscreen,
		Memo:         memo,
		Mode:         mode,
		ID:           id,
		PackedIDs:    packed,
		VertexShader: c.VertexShader,
		Logger:       c.Log(),
	})
}

// BaseState returns a state with depth testing on, no writes of any kind
// and every optional test off; passes switch on what they need.
func BaseState() gpucore.State {
	s := gpucore.DefaultState()
	s.DepthTest = true
	s.DepthCompare = gputypes.CompareFunctionLess
	s.DepthWrite = false
	s.ColorWriteMask = gputypes.ColorWriteMaskNone
	return s
}

// Stencil returns a stencil state with full masks.
func Stencil(compare gputypes.CompareFunction, ref uint8, fail, depthFail, pass gpucore.StencilOp) gpucore.StencilState {
	return gpucore.StencilState{
		Compare:     compare,
		Ref:         ref,
		ReadMask:    0xff,
		WriteMask:   0xff,
		FailOp:      fail,
		DepthFailOp: depthFail,
		PassOp:      pass,
	}
}

// ClearArea clears the given buffers of the bound framebuffer inside the
// memo's scissor area. Color is only cleared in channel ch.
func ClearArea(dev gpucore.Device, memo *scissor.Memo, ch gpucore.Channel, mask gpucore.ClearMask, v gpucore.ClearValues) {
	s := gpucore.DefaultState()
	s.DepthWrite = true
	s.ColorWriteMask = ch.WriteMask()
	memo.ApplyScissor(&s)
	dev.SetState(s)
	dev.Clear(mask, v)
}

// RenderAll renders prims with state s, culling per primitive with cull
// when it is not nil.
func RenderAll(dev gpucore.Device, prims []gpucore.Primitive, s gpucore.State, cull func(gpucore.Primitive) gputypes.CullMode) {
	for _, p := range prims {
		if cull != nil {
			s.CullMode = cull(p)
		}
		dev.SetState(s)
		p.Render(dev)
	}
}
