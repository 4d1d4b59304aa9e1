// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "github.com/gogpu/gputypes"

// Color is an 8-bit RGBA color as stored in a color buffer.
type Color struct {
	R, G, B, A uint8
}

// PackID encodes a 32-bit identifier as a color so that the little-endian
// RGBA texel equals id.
func PackID(id uint32) Color {
	return Color{R: uint8(id), G: uint8(id >> 8), B: uint8(id >> 16), A: uint8(id >> 24)}
}

// Packed returns the color as a little-endian RGBA word, the inverse of
// [PackID].
func (c Color) Packed() uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

// Channel selects color-buffer channels used as temporary visibility
// masks. Single channels are bits; All is the packed 32-bit slot.
type Channel uint8

const (
	NoChannel Channel = 0
	Alpha     Channel = 1 << 0
	Red       Channel = 1 << 1
	Green     Channel = 1 << 2
	Blue      Channel = 1 << 3
	All       Channel = Alpha | Red | Green | Blue
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case NoChannel:
		return "None"
	case Alpha:
		return "Alpha"
	case Red:
		return "Red"
	case Green:
		return "Green"
	case Blue:
		return "Blue"
	case All:
		return "All"
	default:
		return "Channel(mixed)"
	}
}

// WriteMask returns the color write mask that restricts writes to c.
func (c Channel) WriteMask() gputypes.ColorWriteMask {
	var m gputypes.ColorWriteMask
	if c&Red != 0 {
		m |= gputypes.ColorWriteMaskRed
	}
	if c&Green != 0 {
		m |= gputypes.ColorWriteMaskGreen
	}
	if c&Blue != 0 {
		m |= gputypes.ColorWriteMaskBlue
	}
	if c&Alpha != 0 {
		m |= gputypes.ColorWriteMaskAlpha
	}
	return m
}

// Value extracts the channel value from a color. Single channels yield the
// byte; All yields the packed word.
func (c Channel) Value(col Color) uint32 {
	switch c {
	case Alpha:
		return uint32(col.A)
	case Red:
		return uint32(col.R)
	case Green:
		return uint32(col.G)
	case Blue:
		return uint32(col.B)
	case All:
		return col.Packed()
	default:
		return 0
	}
}

// Splat returns a color with v written to every single channel.
// Combined with a write mask it targets one channel.
func Splat(v uint8) Color {
	return Color{R: v, G: v, B: v, A: v}
}
