// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package offscreen manages the throwaway framebuffer the CSG algorithms
// render intermediate visibility masks into.
package offscreen

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/csg/gpucore"
)

var (
	// ErrNoFramebuffer means the device offers no usable framebuffer type.
	ErrNoFramebuffer = errors.New("offscreen: no framebuffer type available")

	// ErrTooLarge means the viewport exceeds the device's framebuffer limit.
	ErrTooLarge = errors.New("offscreen: viewport exceeds maximum framebuffer size")
)

// Type selects the offscreen framebuffer implementation. The numeric values
// are part of the public settings.
type Type int

const (
	Automatic Type = 0
	// FrameBufferObject picks the core framebuffer object when available
	// and the extension otherwise.
	FrameBufferObject Type = 1
	// Value 2 was the retired pixel-buffer type.
	FrameBufferObjectARB Type = 3
	FrameBufferObjectEXT Type = 4
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case Automatic:
		return "Automatic"
	case FrameBufferObject:
		return "FrameBufferObject"
	case FrameBufferObjectARB:
		return "FrameBufferObjectARB"
	case FrameBufferObjectEXT:
		return "FrameBufferObjectEXT"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

func (t Type) kind() gpucore.FramebufferKind {
	if t == FrameBufferObjectEXT {
		return gpucore.FramebufferEXT
	}
	return gpucore.FramebufferCore
}

// Resolve maps a requested type to a concrete one the capabilities
// support. A concrete request is honored when available; otherwise the
// core type is preferred over the extension. It returns false when no
// framebuffer type is usable.
func Resolve(requested Type, caps gpucore.Capabilities) (Type, bool) {
	switch requested {
	case FrameBufferObjectARB, FrameBufferObjectEXT:
		if caps.Framebuffers&requested.kind() != 0 {
			return requested, true
		}
	}
	if caps.Framebuffers&gpucore.FramebufferCore != 0 {
		return FrameBufferObjectARB, true
	}
	if caps.Framebuffers&gpucore.FramebufferEXT != 0 {
		return FrameBufferObjectEXT, true
	}
	return Automatic, false
}

// Buffer is an offscreen framebuffer sized to cover recent viewports.
type Buffer struct {
	typ    Type
	dev    gpucore.Device
	fb     gpucore.Framebuffer
	logger LoggerFunc

	width, height sizeTracker

	capturing bool
	previous  gpucore.Framebuffer
}

// LoggerFunc returns the logger to use at the time of the call.
type LoggerFunc func() *slog.Logger

var discard = slog.New(slog.DiscardHandler)

func (f LoggerFunc) get() *slog.Logger {
	if f == nil {
		return discard
	}
	if l := f(); l != nil {
		return l
	}
	return discard
}

// NewBuffer returns an unallocated buffer of a concrete type. A nil logger
// discards output.
func NewBuffer(typ Type, logger LoggerFunc) *Buffer {
	return &Buffer{typ: typ, logger: logger}
}

// Type returns the concrete framebuffer type.
func (b *Buffer) Type() Type { return b.typ }

// Framebuffer returns the underlying framebuffer, or nil before Fit.
func (b *Buffer) Framebuffer() gpucore.Framebuffer { return b.fb }

// Fit makes the buffer at least as large as a viewport of the given size.
// It allocates on first use and resizes when the tracked size over recent
// frames changes; the size is rounded up to a power of two unless the
// device supports arbitrary sizes. Call it once per frame.
func (b *Buffer) Fit(dev gpucore.Device, viewportWidth, viewportHeight int) error {
	caps := dev.Capabilities()
	w := b.width.update(viewportWidth)
	h := b.height.update(viewportHeight)
	if !caps.NonPowerOfTwo {
		w, h = nextPowerOfTwo(w), nextPowerOfTwo(h)
	}
	if limit := caps.MaxFramebufferSize; limit > 0 {
		if viewportWidth > limit || viewportHeight > limit {
			return fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, viewportWidth, viewportHeight, limit)
		}
		w, h = min(w, limit), min(h, limit)
	}

	if b.fb != nil && b.dev != dev {
		b.fb.Destroy()
		b.fb = nil
	}
	b.dev = dev

	if b.fb == nil {
		fb, err := dev.CreateFramebuffer(b.typ.kind(), w, h)
		if err != nil {
			return fmt.Errorf("create %s %dx%d: %w", b.typ, w, h, err)
		}
		b.fb = fb
		b.logger.get().Info("offscreen: buffer allocated", "type", b.typ.String(), "width", w, "height", h)
		return nil
	}
	if b.fb.Width() != w || b.fb.Height() != h {
		if err := b.fb.Resize(w, h); err != nil {
			return fmt.Errorf("resize %s to %dx%d: %w", b.typ, w, h, err)
		}
		b.logger.get().Info("offscreen: buffer resized", "type", b.typ.String(), "width", w, "height", h)
	}
	return nil
}

// BeginCapture directs rendering to the buffer, remembering the
// framebuffer bound before.
func (b *Buffer) BeginCapture() {
	if b.capturing {
		return
	}
	b.previous = b.dev.BoundFramebuffer()
	b.dev.BindFramebuffer(b.fb)
	b.capturing = true
}

// EndCapture rebinds the framebuffer that was bound at BeginCapture.
func (b *Buffer) EndCapture() {
	if !b.capturing {
		return
	}
	b.dev.BindFramebuffer(b.previous)
	b.previous = nil
	b.capturing = false
}

// Capturing reports whether rendering is directed to the buffer.
func (b *Buffer) Capturing() bool { return b.capturing }

// Destroy releases the framebuffer.
func (b *Buffer) Destroy() {
	if b.capturing {
		b.EndCapture()
	}
	if b.fb != nil {
		b.fb.Destroy()
		b.fb = nil
	}
}
