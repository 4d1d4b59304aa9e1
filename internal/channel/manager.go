// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package channel schedules the color channels of the offscreen buffer as
// independent temporary visibility masks and merges finished masks into
// the main depth buffer.
package channel

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/offscreen"
	"github.com/gogpu/csg/internal/scissor"
)

// ErrNotInitialized is returned when requesting a channel before Init.
var ErrNotInitialized = errors.New("channel: manager not initialized")

// Mode selects the merge test of the algorithm owning the manager.
type Mode uint8

const (
	// Goldfeather channels hold 255 where the stored surface is visible.
	Goldfeather Mode = iota
	// SCS channels hold the ID of the primitive whose surface is visible.
	SCS
)

// mergeThreshold splits Goldfeather mask values into visible and not.
const mergeThreshold = 127

// Config holds what a manager needs for one render call.
type Config struct {
	Device  gpucore.Device
	Pool    *offscreen.Pool
	Context int
	Type    offscreen.Type
	Memo    *scissor.Memo
	Mode    Mode

	// ID returns the identifier written for p in SCS mode.
	ID func(p gpucore.Primitive) uint32
	// PackedIDs compares IDs over all four channels in SCS mode; otherwise
	// only the alpha byte is compared.
	PackedIDs bool

	// VertexShader is applied while merging with the GLSL strategy.
	VertexShader string

	Logger *slog.Logger
}

type entry struct {
	prims []gpucore.Primitive
	layer int
}

// Manager allocates channels of the offscreen buffer.
//
// Request hands out channels until none is free; Free composites every
// occupied channel into the main framebuffer and makes them available
// again. One manager exists per render call and context key.
type Manager struct {
	cfg      Config
	dev      gpucore.Device
	buf      *offscreen.Buffer
	strategy MergeStrategy
	logger   *slog.Logger
	release  func()

	mainViewport gpucore.Rect
	initialized  bool

	current  gpucore.Channel
	occupied gpucore.Channel
	stored   map[gpucore.Channel]entry

	merges int
}

// New creates a manager and claims the context key. It panics if another
// manager holds the key.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		cfg:      cfg,
		dev:      cfg.Device,
		strategy: ProbeStrategy(cfg.Device.Capabilities()),
		logger:   logger,
		release:  cfg.Pool.Claim(cfg.Context),
		stored:   make(map[gpucore.Channel]entry),
	}
	return m
}

// Init sizes the offscreen buffer for the current viewport. It returns an
// error when the buffer cannot be allocated; the caller must then render
// nothing.
func (m *Manager) Init() error {
	m.mainViewport = m.dev.Viewport()
	m.buf = m.cfg.Pool.Buffer(m.cfg.Context, m.cfg.Type)
	if err := m.buf.Fit(m.dev, m.mainViewport.Width, m.mainViewport.Height); err != nil {
		return fmt.Errorf("channel: init offscreen buffer: %w", err)
	}
	m.initialized = true
	m.logger.Debug("channel: manager initialized",
		"strategy", m.strategy.String(), "mode", m.cfg.Mode, "buffer", m.buf.Type().String())
	return nil
}

// Close ends any capture and releases the context key.
func (m *Manager) Close() {
	if m.buf != nil && m.buf.Capturing() {
		m.endCapture()
	}
	if m.release != nil {
		m.release()
		m.release = nil
	}
}

// Request returns a free channel and directs rendering to the offscreen
// buffer. It returns [gpucore.NoChannel] when every usable channel is
// occupied; the caller must Free before requesting again.
func (m *Manager) Request() (gpucore.Channel, error) {
	if !m.initialized {
		return gpucore.NoChannel, ErrNotInitialized
	}
	if !m.buf.Capturing() {
		m.beginCapture()
	}
	ch := m.find()
	if ch == gpucore.NoChannel {
		return gpucore.NoChannel, nil
	}
	m.current = ch
	m.occupied |= ch
	return ch, nil
}

// RequestPacked returns the packed All channel, which is only available
// when no single channel is occupied.
func (m *Manager) RequestPacked() (gpucore.Channel, error) {
	if !m.initialized {
		return gpucore.NoChannel, ErrNotInitialized
	}
	if m.occupied != gpucore.NoChannel {
		return gpucore.NoChannel, nil
	}
	if !m.buf.Capturing() {
		m.beginCapture()
	}
	m.current = gpucore.All
	m.occupied = gpucore.All
	return gpucore.All, nil
}

// find returns the first free single channel, alpha first.
func (m *Manager) find() gpucore.Channel {
	order := []gpucore.Channel{gpucore.Alpha}
	if m.strategy.MultiChannel() {
		order = append(order, gpucore.Red, gpucore.Green, gpucore.Blue)
	}
	for _, ch := range order {
		if m.occupied&ch == 0 {
			return ch
		}
	}
	return gpucore.NoChannel
}

// Current returns the channel handed out last.
func (m *Manager) Current() gpucore.Channel { return m.current }

// Occupied returns the set of occupied channels.
func (m *Manager) Occupied() gpucore.Channel { return m.occupied }

// Framebuffer returns the offscreen framebuffer.
func (m *Manager) Framebuffer() gpucore.Framebuffer { return m.buf.Framebuffer() }

// Store records the primitives and layer whose visibility channel ch
// holds. A negative layer means every stored primitive contributes at most
// one surface per pixel.
func (m *Manager) Store(ch gpucore.Channel, prims []gpucore.Primitive, layer int) {
	m.stored[ch] = entry{prims: prims, layer: layer}
	m.cfg.Memo.Store(ch)
}

// Merges returns how many channels have been merged so far.
func (m *Manager) Merges() int { return m.merges }

// Free ends offscreen capture, merges every occupied channel into the main
// framebuffer and releases all channels.
func (m *Manager) Free() {
	if !m.initialized {
		return
	}
	if m.buf.Capturing() {
		m.endCapture()
	}
	if m.occupied != gpucore.NoChannel {
		m.merge()
	}
	m.occupied = gpucore.NoChannel
	m.current = gpucore.NoChannel
	clear(m.stored)
}

func (m *Manager) beginCapture() {
	m.buf.BeginCapture()
	m.dev.SetViewport(gpucore.Rect{Width: m.mainViewport.Width, Height: m.mainViewport.Height})

	s := gpucore.DefaultState()
	m.dev.SetState(s)
	m.dev.Clear(gpucore.ClearColor|gpucore.ClearDepth|gpucore.ClearStencil, gpucore.ClearValues{Depth: 1})
}

func (m *Manager) endCapture() {
	m.buf.EndCapture()
	m.dev.SetViewport(m.mainViewport)
}

// merge commits the depth of every surface marked visible in an occupied
// channel: each stored primitive is rendered again into the main
// framebuffer with a depth test of LESS, color writes off, and a texture
// test that only lets through fragments whose channel value marks them.
func (m *Manager) merge() {
	if m.strategy == GLSLProgram && m.cfg.VertexShader != "" {
		if err := m.dev.SetVertexShader(m.cfg.VertexShader); err != nil {
			m.logger.Warn("channel: vertex shader rejected, using built-in transform", "err", err)
		} else {
			defer func() { _ = m.dev.SetVertexShader("") }()
		}
	}

	for _, ch := range []gpucore.Channel{gpucore.Alpha, gpucore.Red, gpucore.Green, gpucore.Blue, gpucore.All} {
		if m.occupied&ch != ch {
			continue
		}
		e, ok := m.stored[ch]
		if !ok {
			continue
		}
		m.cfg.Memo.Recall(ch)
		m.logger.Debug("channel: merge", "channel", ch.String(), "primitives", len(e.prims), "layer", e.layer)
		switch m.cfg.Mode {
		case SCS:
			m.mergeIDs(ch, e)
		default:
			m.mergeMask(ch, e)
		}
		m.merges++
	}
}

func (m *Manager) mergeState() gpucore.State {
	s := gpucore.DefaultState()
	s.DepthTest = true
	s.DepthCompare = gputypes.CompareFunctionLess
	s.DepthWrite = true
	s.ColorWriteMask = gputypes.ColorWriteMaskNone
	m.cfg.Memo.ApplyScissor(&s)
	return s
}

// mergeMask merges a Goldfeather channel.
func (m *Manager) mergeMask(ch gpucore.Channel, e entry) {
	s := m.mergeState()
	s.TextureTest = &gpucore.TextureTest{
		Source:  m.buf.Framebuffer(),
		Channel: ch,
		Compare: gputypes.CompareFunctionGreater,
		Ref:     mergeThreshold,
	}
	if e.layer >= 0 {
		// Extract the layer-th fragment of the stored primitives in
		// submission order, the same way the layer was rendered.
		s.StencilTest = true
		s.Stencil = gpucore.StencilState{
			Compare:     gputypes.CompareFunctionEqual,
			Ref:         uint8(e.layer),
			ReadMask:    0xff,
			WriteMask:   0xff,
			FailOp:      gpucore.StencilIncr,
			DepthFailOp: gpucore.StencilIncr,
			PassOp:      gpucore.StencilIncr,
		}
		m.dev.SetState(s)
		m.dev.Clear(gpucore.ClearStencil, gpucore.ClearValues{})
	}
	for _, p := range e.prims {
		s.CullMode = FaceCull(p)
		m.dev.SetState(s)
		p.Render(m.dev)
	}
}

// mergeIDs merges an SCS channel: each primitive commits the pixels that
// carry its own ID.
func (m *Manager) mergeIDs(ch gpucore.Channel, e entry) {
	s := m.mergeState()
	compareCh := gpucore.Alpha
	if m.cfg.PackedIDs {
		compareCh = gpucore.All
	}
	for _, p := range e.prims {
		s.TextureTest = &gpucore.TextureTest{
			Source:  m.buf.Framebuffer(),
			Channel: compareCh,
			Compare: gputypes.CompareFunctionEqual,
			Ref:     m.cfg.ID(p),
		}
		s.CullMode = FaceCull(p)
		m.dev.SetState(s)
		p.Render(m.dev)
	}
}

// FaceCull returns the faces of p that can never be a visible surface of
// the product: back faces of intersected primitives and front faces of
// subtracted ones.
func FaceCull(p gpucore.Primitive) gputypes.CullMode {
	if p.Operation() == gpucore.Subtraction {
		return gputypes.CullModeFront
	}
	return gputypes.CullModeBack
}

// IDColor returns the color that encodes id for the ID layout in use.
func IDColor(id uint32, packed bool) gpucore.Color {
	if packed {
		return gpucore.PackID(id)
	}
	return gpucore.Color{A: uint8(id)}
}
