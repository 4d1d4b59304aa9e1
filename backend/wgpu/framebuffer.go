package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/csg/gpucore"
)

const (
	colorFormat = gputypes.TextureFormatRGBA8Unorm
	depthFormat = gputypes.TextureFormatDepth24PlusStencil8

	// copyPitchAlignment is the row alignment WebGPU requires for
	// texture-to-buffer copies.
	copyPitchAlignment = 256
)

// Framebuffer is a color texture with a depth/stencil texture of the same
// size.
type Framebuffer struct {
	dev    *Device
	kind   gpucore.FramebufferKind
	width  int
	height int

	color     hal.Texture
	colorView hal.TextureView
	depth     hal.Texture
	depthView hal.TextureView

	// version counts the passes that wrote to the framebuffer; a snapshot
	// of the color attachment is current while its version matches.
	version  uint64
	snapshot *snapshot
}

// snapshot is a storage-buffer copy of a color attachment, one u32 per
// texel, rows top-down and padded to the copy alignment.
type snapshot struct {
	buf     hal.Buffer
	version uint64
	size    uint64
}

var _ gpucore.Framebuffer = (*Framebuffer)(nil)

func (fb *Framebuffer) Kind() gpucore.FramebufferKind { return fb.kind }
func (fb *Framebuffer) Width() int                    { return fb.width }
func (fb *Framebuffer) Height() int                   { return fb.height }

// Resize reallocates the attachments. Their contents are undefined.
func (fb *Framebuffer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width == fb.width && height == fb.height && fb.color != nil {
		return nil
	}
	fb.dev.releaseTarget(fb)
	fb.destroyTextures()
	return fb.allocate(width, height)
}

// Destroy releases the attachments.
func (fb *Framebuffer) Destroy() {
	fb.dev.releaseTarget(fb)
	fb.destroyTextures()
}

func (fb *Framebuffer) allocate(width, height int) error {
	device := fb.dev.device
	size := hal.Extent3D{
		Width:              uint32(width),  //nolint:gosec // checked positive
		Height:             uint32(height), //nolint:gosec // checked positive
		DepthOrArrayLayers: 1,
	}

	color, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "csg_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        colorFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create color texture: %w", err)
	}
	fb.color = color

	colorView, err := device.CreateTextureView(color, &hal.TextureViewDescriptor{Label: "csg_color_view"})
	if err != nil {
		fb.destroyTextures()
		return fmt.Errorf("create color texture view: %w", err)
	}
	fb.colorView = colorView

	depth, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "csg_depth_stencil",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		fb.destroyTextures()
		return fmt.Errorf("create depth/stencil texture: %w", err)
	}
	fb.depth = depth

	depthView, err := device.CreateTextureView(depth, &hal.TextureViewDescriptor{Label: "csg_depth_stencil_view"})
	if err != nil {
		fb.destroyTextures()
		return fmt.Errorf("create depth/stencil texture view: %w", err)
	}
	fb.depthView = depthView

	fb.width, fb.height = width, height
	fb.version++
	return nil
}

func (fb *Framebuffer) destroyTextures() {
	device := fb.dev.device
	if fb.snapshot != nil {
		fb.dev.discard(fb.snapshot.buf)
		fb.snapshot = nil
	}
	if fb.depthView != nil {
		device.DestroyTextureView(fb.depthView)
		fb.depthView = nil
	}
	if fb.depth != nil {
		device.DestroyTexture(fb.depth)
		fb.depth = nil
	}
	if fb.colorView != nil {
		device.DestroyTextureView(fb.colorView)
		fb.colorView = nil
	}
	if fb.color != nil {
		device.DestroyTexture(fb.color)
		fb.color = nil
	}
	fb.width, fb.height = 0, 0
}

// alignedRow returns the padded byte length of one color row in a
// texture-to-buffer copy.
func (fb *Framebuffer) alignedRow() uint32 {
	row := uint32(fb.width) * 4 //nolint:gosec // width is positive
	return (row + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}
