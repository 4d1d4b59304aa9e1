package software

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/csg/gpucore"
)

// Framebuffer holds RGBA8 color, float32 depth and 8-bit stencil planes.
// Row 0 is the bottom row.
type Framebuffer struct {
	kind          gpucore.FramebufferKind
	width, height int
	color         []uint8
	depth         []float32
	stencil       []uint8
	destroyed     bool
}

func newFramebuffer(kind gpucore.FramebufferKind, width, height int) *Framebuffer {
	fb := &Framebuffer{kind: kind}
	fb.allocate(width, height)
	return fb
}

func (fb *Framebuffer) allocate(width, height int) {
	n := width * height
	fb.width, fb.height = width, height
	fb.color = make([]uint8, 4*n)
	fb.depth = make([]float32, n)
	fb.stencil = make([]uint8, n)
	for i := range fb.depth {
		fb.depth[i] = 1
	}
}

// Kind returns the framebuffer flavor.
func (fb *Framebuffer) Kind() gpucore.FramebufferKind { return fb.kind }

// Width returns the width in pixels.
func (fb *Framebuffer) Width() int { return fb.width }

// Height returns the height in pixels.
func (fb *Framebuffer) Height() int { return fb.height }

// Resize reallocates all planes. Depth is reset to 1, color and stencil to 0.
func (fb *Framebuffer) Resize(width, height int) error {
	if fb.destroyed {
		return ErrDestroyed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	fb.allocate(width, height)
	return nil
}

// Destroy releases the planes.
func (fb *Framebuffer) Destroy() {
	fb.destroyed = true
	fb.color, fb.depth, fb.stencil = nil, nil, nil
	fb.width, fb.height = 0, 0
}

func (fb *Framebuffer) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < fb.width && y < fb.height
}

// Depth returns the depth at (x, y), or 1 outside the framebuffer.
func (fb *Framebuffer) Depth(x, y int) float32 {
	if !fb.inside(x, y) {
		return 1
	}
	return fb.depth[y*fb.width+x]
}

// Stencil returns the stencil value at (x, y).
func (fb *Framebuffer) Stencil(x, y int) uint8 {
	if !fb.inside(x, y) {
		return 0
	}
	return fb.stencil[y*fb.width+x]
}

// Color returns the color at (x, y).
func (fb *Framebuffer) Color(x, y int) gpucore.Color {
	if !fb.inside(x, y) {
		return gpucore.Color{}
	}
	i := 4 * (y*fb.width + x)
	return gpucore.Color{R: fb.color[i], G: fb.color[i+1], B: fb.color[i+2], A: fb.color[i+3]}
}

// Image returns the color plane as an image with the usual top-down rows.
func (fb *Framebuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
	stride := 4 * fb.width
	for y := 0; y < fb.height; y++ {
		src := fb.color[y*stride : (y+1)*stride]
		copy(img.Pix[(fb.height-1-y)*img.Stride:], src)
	}
	return img
}

// DepthImage renders the depth plane as grayscale, near surfaces bright,
// scaled to width x height.
func (fb *Framebuffer) DepthImage(width, height int) *image.Gray {
	src := image.NewGray(image.Rect(0, 0, fb.width, fb.height))
	for y := 0; y < fb.height; y++ {
		for x := 0; x < fb.width; x++ {
			d := fb.depth[y*fb.width+x]
			src.SetGray(x, fb.height-1-y, color.Gray{Y: uint8(255 * (1 - d))})
		}
	}
	if width == fb.width && height == fb.height {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
