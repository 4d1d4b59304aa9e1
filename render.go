// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package csg

import (
	"errors"
	"fmt"

	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/algo"
	"github.com/gogpu/csg/internal/goldfeather"
	"github.com/gogpu/csg/internal/offscreen"
	"github.com/gogpu/csg/internal/scs"
)

// Thresholds of the automatic depth-complexity choice.
const (
	occlusionQueryThreshold = 20
	samplingThreshold       = 40
)

// Stats describes the work of one Render call.
type Stats struct {
	Algorithm       Algorithm
	DepthComplexity DepthComplexityAlgorithm
	Offscreen       OffscreenType

	// Batches is the number of primitive batches rendered.
	Batches int
	// Passes counts SCS subtraction passes or Goldfeather layers.
	Passes int
	// Merges counts channels merged into the main depth buffer.
	Merges int

	// Skipped is set when nothing was rendered because the device offers
	// no usable offscreen buffer.
	Skipped bool
}

// Render resolves the visible surface of the CSG product of prims and
// writes its depth into the depth buffer bound on dev, using the transform,
// viewport and scissor currently set on it. The color buffer is not
// touched, and the state of dev is restored before Render returns.
//
// The primitives are rendered several times; they are never retained.
// Missing device capabilities select slower paths and are not errors.
// Errors are returned when resources run out mid-frame, in which case the
// depth and stencil buffers may be partially updated.
func Render(dev gpucore.Device, prims []Primitive, opts ...Option) error {
	if dev == nil {
		return ErrNilDevice
	}
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	stats := Stats{}
	defer func() {
		if s.Stats != nil {
			*s.Stats = stats
		}
	}()
	if len(prims) == 0 {
		return nil
	}

	log := Logger()
	caps := dev.Capabilities()
	res := s.Resources
	if res == nil {
		res = defaultResources
	}

	typ, ok := offscreen.Resolve(offscreen.Type(s.Offscreen), caps)
	if !ok {
		log.Warn("csg: no offscreen buffer available, nothing rendered", "requested", offscreen.Type(s.Offscreen).String())
		stats.Skipped = true
		return nil
	}
	stats.Offscreen = OffscreenType(typ)

	alg, dc := choose(s, prims, caps)
	stats.Algorithm, stats.DepthComplexity = alg, dc
	log.Debug("csg: render", "algorithm", alg.String(), "depthComplexity", dc.String(), "primitives", len(prims))

	guard := gpucore.Acquire(dev)
	defer guard.Release()

	cfg := algo.Config{
		Device:             dev,
		Pool:               res.pool,
		Context:            res.Context(),
		Offscreen:          typ,
		DepthComplexity:    algo.DepthComplexity(dc),
		DepthBounds:        s.DepthBounds != OptimizationOff && caps.DepthBounds,
		CameraOutside:      cameraOutside(s.CameraOutside, prims),
		OcclusionStability: s.OcclusionStability,
		VertexShader:       s.VertexShader,
		Logger:             log,
	}

	var (
		st  algo.Stats
		err error
	)
	if alg == SCS {
		st, err = scs.Render(prims, cfg)
		if errors.Is(err, scs.ErrTooManyPrimitives) {
			log.Warn("csg: too many primitives for SCS without ID programs, using Goldfeather", "primitives", len(prims))
			alg = Goldfeather
			stats.Algorithm = alg
		}
	}
	if alg == Goldfeather {
		st, err = goldfeather.Render(prims, cfg)
	}
	stats.Batches, stats.Passes, stats.Merges = st.Batches, st.Passes, st.Merges

	if ferr := dev.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		return fmt.Errorf("csg: %s: %w", alg, err)
	}
	return nil
}

// choose resolves the algorithm and depth-complexity strategy for prims.
func choose(s Settings, prims []Primitive, caps gpucore.Capabilities) (Algorithm, DepthComplexityAlgorithm) {
	alg, dc := s.Algorithm, s.DepthComplexity
	hasQueries := caps.Occlusion != gpucore.OcclusionNone

	if alg != Goldfeather && alg != SCS {
		alg = SCS
		for _, p := range prims {
			if p.Convexity() > 1 {
				alg = Goldfeather
				break
			}
		}
		switch {
		case hasQueries && len(prims) > occlusionQueryThreshold:
			dc = OcclusionQuery
		case !hasQueries && len(prims) > samplingThreshold:
			dc = DepthComplexitySampling
		default:
			dc = NoDepthComplexitySampling
		}
	}

	if dc == OcclusionQuery && !hasQueries {
		Logger().Warn("csg: occlusion queries unavailable, sampling depth complexity instead")
		dc = DepthComplexitySampling
	}
	if dc == DepthComplexitySampling && !caps.StencilReadback {
		Logger().Warn("csg: stencil readback unavailable, rendering without depth complexity sampling")
		dc = NoDepthComplexitySampling
	}
	if dc != OcclusionQuery && dc != DepthComplexitySampling {
		dc = NoDepthComplexitySampling
	}
	return alg, dc
}

// cameraOutside reports whether the camera-outside optimization applies.
// A bounding box reaching the near plane may contain the camera.
func cameraOutside(v Optimization, prims []Primitive) bool {
	switch v {
	case OptimizationForceOn:
		return true
	case OptimizationOff:
		return false
	}
	for _, p := range prims {
		if p.BoundingBox().MinZ <= -1 {
			return false
		}
	}
	return true
}
