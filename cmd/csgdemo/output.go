package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/csg/gpucore"
)

// readImage reads the main framebuffer of dev into an image with the usual
// top-down row order.
func readImage(dev gpucore.Device, width, height int) (*image.RGBA, error) {
	dev.BindFramebuffer(nil)
	px, err := dev.ReadColor(gpucore.Rect{Width: width, Height: height})
	if err != nil {
		return nil, fmt.Errorf("read color: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := 4 * width
	for y := range height {
		src := px[(height-1-y)*row : (height-y)*row]
		copy(img.Pix[y*img.Stride:y*img.Stride+row], src)
	}
	return img, nil
}

// caption draws lines of text in the bottom-left corner of img.
func caption(img *image.RGBA, lines ...string) {
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 235, G: 235, B: 235, A: 255}),
		Face: face,
	}
	y := img.Bounds().Max.Y - 6 - lineHeight*(len(lines)-1)
	for _, line := range lines {
		d.Dot = fixed.P(6, y)
		d.DrawString(line)
		y += lineHeight
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
