// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package scs implements the Sequenced Convex Subtraction algorithm for
// products of convex primitives.
//
// The algorithm keeps, per pixel, the nearest candidate surface of the
// product in the depth buffer of the offscreen framebuffer and the ID of
// the primitive that surface belongs to in its color buffer:
//
//  1. The front pass finds the furthest front face of the intersected
//     primitives and keeps it only where it lies inside all of them.
//  2. The subtraction pass carves the candidate surface with the back
//     faces of subtracted primitives, visiting batches of them in a
//     sequence that contains every permutation of the batches.
//  3. The back pass zeroes the ID wherever a carved surface lies outside
//     an intersected primitive.
//
// The IDs are then merged into the main depth buffer.
package scs

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/algo"
	"github.com/gogpu/csg/internal/area"
	"github.com/gogpu/csg/internal/batch"
	"github.com/gogpu/csg/internal/channel"
	"github.com/gogpu/csg/internal/complexity"
	"github.com/gogpu/csg/internal/occlusion"
	"github.com/gogpu/csg/internal/scissor"
	"github.com/gogpu/csg/internal/sequence"
)

// ErrTooManyPrimitives is returned when the primitive IDs do not fit the
// ID layout the device supports. The caller should use the Goldfeather
// algorithm instead.
var ErrTooManyPrimitives = errors.New("scs: too many primitives for alpha IDs")

// maxAlphaID is the largest ID an alpha channel holds.
const maxAlphaID = 255

type renderer struct {
	cfg    algo.Config
	dev    gpucore.Device
	memo   *scissor.Memo
	mgr    *channel.Manager
	ids    map[gpucore.Primitive]uint32
	ch     gpucore.Channel
	packed bool
	stats  algo.Stats

	intersected []gpucore.Primitive
	subtracted  []gpucore.Primitive
}

// Render renders the product of prims into the depth buffer of the device.
// The color buffer of the bound framebuffer is left untouched. Every
// primitive must be convex; concave ones produce wrong pixels.
func Render(prims []gpucore.Primitive, cfg algo.Config) (algo.Stats, error) {
	stats := algo.Stats{DepthComplexity: cfg.DepthComplexity}
	intersected, subtracted := batch.Split(prims)
	if len(intersected) == 0 {
		return stats, nil
	}
	dev := cfg.Device
	packed := channel.ProbeStrategy(dev.Capabilities()).PackedIDs()
	if !packed && len(prims) > maxAlphaID {
		return stats, ErrTooManyPrimitives
	}

	memo := scissor.NewMemo(dev, cfg.DepthBounds)
	memo.SetIntersected(intersected)
	if memo.Empty() {
		return stats, nil
	}

	ids := make(map[gpucore.Primitive]uint32, len(prims))
	for i, p := range prims {
		ids[p] = uint32(i + 1)
	}

	r := &renderer{
		cfg:         cfg,
		dev:         dev,
		memo:        memo,
		ids:         ids,
		packed:      packed,
		stats:       stats,
		intersected: intersected,
		subtracted:  subtracted,
	}
	r.mgr = cfg.NewManager(memo, channel.SCS, r.id, packed)
	defer r.mgr.Close()

	if err := r.mgr.Init(); err != nil {
		return r.stats, err
	}
	err := r.render()
	r.stats.Merges = r.mgr.Merges()
	return r.stats, err
}

func (r *renderer) id(p gpucore.Primitive) uint32 { return r.ids[p] }

func (r *renderer) color(p gpucore.Primitive) gpucore.Color {
	return channel.IDColor(r.ids[p], r.packed)
}

func (r *renderer) render() error {
	var err error
	if r.packed {
		r.ch, err = r.mgr.RequestPacked()
	} else {
		r.ch, err = r.mgr.Request()
	}
	if err != nil {
		return err
	}
	if r.ch == gpucore.NoChannel {
		return errors.New("scs: no free channel")
	}

	r.front()
	if len(r.subtracted) > 0 {
		if err := r.subtract(); err != nil {
			return err
		}
		r.back()
	}

	r.memo.SetCurrentVolume(area.Full)
	all := make([]gpucore.Primitive, 0, len(r.intersected)+len(r.subtracted))
	all = append(all, r.intersected...)
	all = append(all, r.subtracted...)
	r.mgr.Store(r.ch, all, -1)
	r.mgr.Free()
	return nil
}

// front writes the furthest front face of the intersected primitives
// where it lies inside every one of them and far depth elsewhere.
func (r *renderer) front() {
	if len(r.intersected) == 1 {
		algo.ClearArea(r.dev, r.memo, r.ch, gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil,
			gpucore.ClearValues{Depth: 1})
		s := algo.BaseState()
		s.DepthWrite = true
		s.ColorWriteMask = r.ch.WriteMask()
		s.CullMode = gputypes.CullModeBack
		s.Color = r.color(r.intersected[0])
		r.memo.ApplyScissor(&s)
		r.dev.SetState(s)
		r.intersected[0].Render(r.dev)
		return
	}

	algo.ClearArea(r.dev, r.memo, r.ch, gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil,
		gpucore.ClearValues{Depth: 0})

	s := algo.BaseState()
	s.DepthCompare = gputypes.CompareFunctionGreater
	s.DepthWrite = true
	s.ColorWriteMask = r.ch.WriteMask()
	s.CullMode = gputypes.CullModeBack
	r.memo.ApplyScissor(&s)
	for _, p := range r.intersected {
		s.Color = r.color(p)
		r.dev.SetState(s)
		p.Render(r.dev)
	}

	// Count the back faces behind the candidate. It lies inside all
	// intersected primitives exactly where every one of them has one.
	s = algo.BaseState()
	s.DepthCompare = gputypes.CompareFunctionGreater
	s.CullMode = gputypes.CullModeFront
	s.StencilTest = true
	s.Stencil = algo.Stencil(gputypes.CompareFunctionAlways, 0, gpucore.StencilKeep, gpucore.StencilKeep, gpucore.StencilIncr)
	r.memo.ApplyScissor(&s)
	algo.RenderAll(r.dev, r.intersected, s, nil)

	s = algo.BaseState()
	s.DepthCompare = gputypes.CompareFunctionAlways
	s.DepthWrite = true
	s.ColorWriteMask = r.ch.WriteMask()
	s.Color = gpucore.Color{}
	s.StencilTest = true
	s.Stencil = algo.Stencil(gputypes.CompareFunctionNotEqual, uint8(min(len(r.intersected), 255)),
		gpucore.StencilKeep, gpucore.StencilKeep, gpucore.StencilKeep)
	r.memo.ApplyScissor(&s)
	r.dev.SetState(s)
	r.dev.DrawQuad(1)
}

// subtract carves the candidate surface with the subtracted primitives.
func (r *renderer) subtract() error {
	batches := batch.Make(r.subtracted)
	r.stats.Batches = len(batches)

	var (
		seq       sequence.Sequencer
		stability int
		queries   [2]*occlusion.Query
	)
	switch r.cfg.DepthComplexity {
	case algo.OcclusionQuery:
		q0, err := occlusion.New(r.dev)
		if err != nil {
			return fmt.Errorf("scs: %w", err)
		}
		q1, err := occlusion.New(r.dev)
		if err != nil {
			q0.Destroy()
			return fmt.Errorf("scs: %w", err)
		}
		queries = [2]*occlusion.Query{q0, q1}
		defer q0.Destroy()
		defer q1.Destroy()

		stability = r.cfg.OcclusionStability
		if stability <= 0 {
			stability = max(len(batches)-1, 1)
		}
		seq = sequence.NewSimple(len(batches))

	case algo.DepthComplexitySampling:
		// Count the faces the carve is keyed on. With the camera inside a
		// subtracted primitive its front faces are clipped away.
		faces := complexity.FrontFaces
		if !r.cfg.CameraOutside {
			faces = complexity.BackFaces
		}
		r.memo.SetCurrent(r.subtracted)
		dc, err := complexity.Max(r.dev, r.subtracted, r.memo.ScissorRect(), faces)
		r.memo.SetCurrentVolume(area.Full)
		if err != nil {
			return fmt.Errorf("scs: %w", err)
		}
		dc = min(max(dc, 1), len(batches))
		b := sequence.NewBouncing(len(batches))
		seq = sequence.Truncate(b, b.LenForDepthComplexity(dc))
		r.cfg.Log().Debug("scs: sampled depth complexity", "complexity", dc, "passes", seq.Len())

	default:
		seq = sequence.NewSchoenfield(len(batches))
	}

	ref := 0
	unchanged := 0
	for i := range seq.Len() {
		ref++
		if i == 0 || ref > 255 {
			ref = 1
			r.memo.SetCurrentVolume(area.Full)
			r.clearStencil()
		}
		b := batches[seq.At(i)]
		r.memo.SetCurrent(b)

		var q *occlusion.Query
		if queries[0] != nil {
			q = queries[i%2]
		}
		r.carve(b, uint8(ref), q)
		r.stats.Passes++

		// The result of the previous pass is read only now, so the
		// device is never waited on for the pass just issued.
		if q != nil && i > 0 {
			n, err := queries[(i-1)%2].Samples()
			if err != nil {
				return fmt.Errorf("scs: %w", err)
			}
			if n == 0 {
				unchanged++
			} else {
				unchanged = 0
			}
			if unchanged >= stability {
				break
			}
		}
	}
	r.memo.SetCurrentVolume(area.Full)
	return nil
}

func (r *renderer) clearStencil() {
	algo.ClearArea(r.dev, r.memo, gpucore.NoChannel, gpucore.ClearStencil, gpucore.ClearValues{})
}

// carve replaces the candidate surface with the back face of a primitive
// in b wherever the candidate lies inside that primitive. Marks carry ref
// so earlier passes never need clearing.
func (r *renderer) carve(b batch.Batch, ref uint8, q *occlusion.Query) {
	mark := algo.BaseState()
	mark.StencilTest = true
	r.memo.Apply(&mark)

	if r.cfg.CameraOutside {
		// Front faces in front of the candidate.
		mark.DepthCompare = gputypes.CompareFunctionLess
		mark.CullMode = gputypes.CullModeBack
		mark.Stencil = algo.Stencil(gputypes.CompareFunctionAlways, ref, gpucore.StencilKeep, gpucore.StencilKeep, gpucore.StencilReplace)
		algo.RenderAll(r.dev, b, mark, nil)
	} else {
		// Back faces behind the candidate, minus front faces behind it.
		mark.DepthCompare = gputypes.CompareFunctionGreater
		mark.CullMode = gputypes.CullModeFront
		mark.Stencil = algo.Stencil(gputypes.CompareFunctionAlways, ref, gpucore.StencilKeep, gpucore.StencilKeep, gpucore.StencilReplace)
		algo.RenderAll(r.dev, b, mark, nil)

		mark.CullMode = gputypes.CullModeBack
		mark.Stencil = algo.Stencil(gputypes.CompareFunctionEqual, ref, gpucore.StencilKeep, gpucore.StencilKeep, gpucore.StencilZero)
		algo.RenderAll(r.dev, b, mark, nil)
	}

	s := algo.BaseState()
	s.DepthCompare = gputypes.CompareFunctionGreater
	s.DepthWrite = true
	s.ColorWriteMask = r.ch.WriteMask()
	s.CullMode = gputypes.CullModeFront
	s.StencilTest = true
	s.Stencil = algo.Stencil(gputypes.CompareFunctionEqual, ref, gpucore.StencilKeep, gpucore.StencilKeep, gpucore.StencilKeep)
	r.memo.Apply(&s)

	if q != nil {
		q.Begin()
	}
	for _, p := range b {
		s.Color = r.color(p)
		r.dev.SetState(s)
		p.Render(r.dev)
	}
	if q != nil {
		q.End()
	}
}

// back zeroes the ID wherever a back face of an intersected primitive is
// nearer than the candidate.
func (r *renderer) back() {
	s := algo.BaseState()
	s.DepthCompare = gputypes.CompareFunctionLess
	s.ColorWriteMask = r.ch.WriteMask()
	s.Color = gpucore.Color{}
	s.CullMode = gputypes.CullModeFront
	r.memo.ApplyScissor(&s)
	algo.RenderAll(r.dev, r.intersected, s, nil)
}
