// Package goldfeather implements the layered Goldfeather algorithm, which
// renders products of convex and concave primitives.
//
// Every surface layer of a batch is rendered into its own channel of the
// offscreen buffer as a candidate. A candidate survives only where a
// parity test against each primitive agrees with that primitive's
// operation: inside every intersected primitive and outside every
// subtracted one. Surviving candidates are merged into the main depth
// buffer.
package goldfeather

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/algo"
	"github.com/gogpu/csg/internal/batch"
	"github.com/gogpu/csg/internal/channel"
	"github.com/gogpu/csg/internal/complexity"
	"github.com/gogpu/csg/internal/occlusion"
	"github.com/gogpu/csg/internal/scissor"
)

// maxLayers bounds the layer loop of the occlusion-query strategy; layers
// are counted in an 8-bit stencil buffer.
const maxLayers = 255

// visible is the channel value of a candidate pixel.
var visible = gpucore.Splat(255)

type renderer struct {
	cfg   algo.Config
	dev   gpucore.Device
	memo  *scissor.Memo
	mgr   *channel.Manager
	prims []gpucore.Primitive
	bits  int
	stats algo.Stats
}

// Render renders the product of prims into the depth buffer of the device.
// The color buffer of the bound framebuffer is left untouched.
func Render(prims []gpucore.Primitive, cfg algo.Config) (algo.Stats, error) {
	stats := algo.Stats{DepthComplexity: cfg.DepthComplexity}
	intersected, _ := batch.Split(prims)
	if len(intersected) == 0 {
		return stats, nil
	}

	dev := cfg.Device
	memo := scissor.NewMemo(dev, cfg.DepthBounds)
	memo.SetIntersected(intersected)
	if memo.Empty() {
		return stats, nil
	}

	r := &renderer{
		cfg:   cfg,
		dev:   dev,
		memo:  memo,
		prims: prims,
		bits:  min(max(dev.Capabilities().StencilBits, 1), 8),
		stats: stats,
	}
	r.mgr = cfg.NewManager(memo, channel.Goldfeather, nil, false)
	defer r.mgr.Close()

	if err := r.mgr.Init(); err != nil {
		return r.stats, err
	}

	var err error
	switch cfg.DepthComplexity {
	case algo.OcclusionQuery:
		err = r.renderOcclusion()
	case algo.DepthComplexitySampling:
		err = r.renderSampled()
	default:
		err = r.renderBatched()
	}
	r.mgr.Free()
	r.stats.Merges = r.mgr.Merges()
	return r.stats, err
}

// renderBatched renders every layer of every batch. Batches of convex
// primitives have a single layer that needs no stencil counting.
func (r *renderer) renderBatched() error {
	batches := batch.Make(r.prims)
	r.stats.Batches = len(batches)
	for _, b := range batches {
		layers := batch.MaxConvexity(b)
		if layers == 1 {
			if _, err := r.layer(b, -1, nil); err != nil {
				return err
			}
			continue
		}
		for l := range layers {
			if _, err := r.layer(b, l, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderOcclusion renders the layers of the whole product until one
// produces no fragments.
func (r *renderer) renderOcclusion() error {
	q, err := occlusion.New(r.dev)
	if err != nil {
		return fmt.Errorf("goldfeather: %w", err)
	}
	defer q.Destroy()

	b := batch.Single(r.prims)[0]
	r.stats.Batches = 1
	for l := range maxLayers {
		ok, err := r.layer(b, l, q)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

// renderSampled measures the depth complexity of the relevant faces of
// the product and renders exactly that many layers.
func (r *renderer) renderSampled() error {
	b := batch.Single(r.prims)[0]
	r.stats.Batches = 1

	ch, err := r.request()
	if err != nil {
		return err
	}
	r.memo.SetCurrent(b)
	layers, err := complexity.Max(r.dev, b, r.memo.ScissorRect(), channel.FaceCull)
	if err != nil {
		return fmt.Errorf("goldfeather: %w", err)
	}
	r.cfg.Log().Debug("goldfeather: sampled depth complexity", "layers", layers)

	for l := range layers {
		if l > 0 {
			if ch, err = r.request(); err != nil {
				return err
			}
		}
		r.renderChannel(ch, b, l, nil)
	}
	return nil
}

// request returns a free channel, merging the occupied ones first when
// none is left.
func (r *renderer) request() (gpucore.Channel, error) {
	ch, err := r.mgr.Request()
	if err != nil {
		return gpucore.NoChannel, err
	}
	if ch != gpucore.NoChannel {
		return ch, nil
	}
	r.mgr.Free()
	ch, err = r.mgr.Request()
	if err != nil {
		return gpucore.NoChannel, err
	}
	if ch == gpucore.NoChannel {
		return gpucore.NoChannel, errors.New("goldfeather: no free channel after merge")
	}
	return ch, nil
}

// layer renders layer l of b into a fresh channel. With a query it
// reports whether the layer had any fragment; without one it reports true.
func (r *renderer) layer(b batch.Batch, l int, q *occlusion.Query) (bool, error) {
	ch, err := r.request()
	if err != nil {
		return false, err
	}
	return r.renderChannel(ch, b, l, q), nil
}

func (r *renderer) renderChannel(ch gpucore.Channel, b batch.Batch, l int, q *occlusion.Query) bool {
	r.memo.SetCurrent(b)
	algo.ClearArea(r.dev, r.memo, ch, gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil,
		gpucore.ClearValues{Depth: 1})

	if q != nil {
		q.Begin()
	}
	r.renderLayer(ch, b, l)
	if q != nil {
		q.End()
		ok, err := q.Passed()
		if err != nil || !ok {
			// The channel holds nothing; leaving it unstored keeps it out
			// of the merge.
			return false
		}
	}
	r.stats.Passes++

	r.parity(ch, b)
	r.mgr.Store(ch, b, l)
	return true
}

// renderLayer writes the depth of layer l of b and marks it in ch. A
// negative layer renders the nearest relevant face of each primitive.
func (r *renderer) renderLayer(ch gpucore.Channel, b batch.Batch, l int) {
	s := algo.BaseState()
	s.DepthWrite = true
	s.ColorWriteMask = ch.WriteMask()
	s.Color = visible
	r.memo.ApplyScissor(&s)
	if l >= 0 {
		s.DepthCompare = gputypes.CompareFunctionAlways
		s.StencilTest = true
		s.Stencil = algo.Stencil(gputypes.CompareFunctionEqual, uint8(l),
			gpucore.StencilIncr, gpucore.StencilIncr, gpucore.StencilIncr)
	}
	algo.RenderAll(r.dev, b, s, channel.FaceCull)
}

// parity discards the candidates in ch that lie outside an intersected
// primitive or inside a subtracted one. Each tested primitive toggles its
// own stencil bit once per surface it has on the counted side of the
// candidate; the bits are compared with the expected pattern whenever
// they run out.
func (r *renderer) parity(ch gpucore.Channel, b batch.Batch) {
	algo.ClearArea(r.dev, r.memo, gpucore.NoChannel, gpucore.ClearStencil, gpucore.ClearValues{})

	s := algo.BaseState()
	s.DepthCompare = gputypes.CompareFunctionGreater
	if r.cfg.CameraOutside {
		s.DepthCompare = gputypes.CompareFunctionLessEqual
	}
	s.CullMode = gputypes.CullModeNone
	s.StencilTest = true
	r.memo.Apply(&s)

	// The candidates lie inside the bounds of b. A subtracted primitive
	// whose box misses them has an even number of surfaces on either side.
	bounds := batch.Bounds(b)
	var (
		used     uint8
		expected uint8
		n        int
	)
	for _, p := range r.prims {
		if len(b) == 1 && b[0] == p {
			continue
		}
		if p.Operation() == gpucore.Subtraction && !batch.IntersectsVolume(p, bounds) {
			continue
		}
		bit := uint8(1) << n
		s.Stencil = gpucore.StencilState{
			Compare:   gputypes.CompareFunctionAlways,
			ReadMask:  0xff,
			WriteMask: bit,
			PassOp:    gpucore.StencilInvert,
		}
		r.dev.SetState(s)
		p.Render(r.dev)

		used |= bit
		if p.Operation() == gpucore.Intersection {
			expected |= bit
		}
		n++
		if n == r.bits {
			r.discard(ch, used, expected)
			used, expected, n = 0, 0, 0
		}
	}
	if n > 0 {
		r.discard(ch, used, expected)
	}
}

// discard clears the candidate in ch and pushes its depth to the far plane
// wherever the parity bits in used differ from expected, then clears the
// stencil buffer.
func (r *renderer) discard(ch gpucore.Channel, used, expected uint8) {
	s := algo.BaseState()
	s.DepthCompare = gputypes.CompareFunctionAlways
	s.DepthWrite = true
	s.ColorWriteMask = ch.WriteMask()
	s.Color = gpucore.Color{}
	s.StencilTest = true
	s.Stencil = gpucore.StencilState{
		Compare:     gputypes.CompareFunctionNotEqual,
		Ref:         expected,
		ReadMask:    used,
		WriteMask:   0xff,
		FailOp:      gpucore.StencilZero,
		DepthFailOp: gpucore.StencilZero,
		PassOp:      gpucore.StencilZero,
	}
	r.memo.ApplyScissor(&s)
	r.dev.SetState(s)
	r.dev.DrawQuad(1)
}
