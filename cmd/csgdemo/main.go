// Command csgdemo renders a CSG scene described by a zygomys script to a
// PNG file.
//
// A script declares a camera, render settings and any number of products:
//
//	(camera :eye (vec3 3 2 4) :at (vec3 0 0 0) :fov 40)
//	(settings :algorithm :goldfeather :depth-complexity :occlusion-query)
//	(product :color (vec3 0.9 0.5 0.2)
//	  (box :size (vec3 1.5 1.5 1.5))
//	  (sphere :radius 1 :op :subtract :at (vec3 0.75 0.75 0.75)))
//
// Shapes are sphere, box, cylinder and torus; each accepts :op, :at,
// :rotate (degrees) and :segments.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/csg"
	"github.com/gogpu/csg/backend"
	"github.com/gogpu/csg/backend/software"
)

func main() {
	var (
		width       = flag.Int("width", 800, "image width")
		height      = flag.Int("height", 600, "image height")
		output      = flag.String("output", "csg.png", "output file")
		script      = flag.String("script", "", "scene script (default: built-in scene)")
		backendName = flag.String("backend", "", "device backend: wgpu or software (default: best available)")
		depthOut    = flag.String("depth", "", "also write the depth buffer to this file (software backend only)")
		verbose     = flag.Bool("v", false, "log algorithm decisions")
	)
	flag.Parse()

	if *verbose {
		csg.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	source := defaultScript
	if *script != "" {
		data, err := os.ReadFile(*script)
		if err != nil {
			log.Fatalf("Failed to read script: %v", err)
		}
		source = string(data)
	}
	sc, err := parseScene(source)
	if err != nil {
		log.Fatalf("Failed to evaluate script: %v", err)
	}

	b, err := openBackend(*backendName)
	if err != nil {
		log.Fatalf("Failed to open backend: %v", err)
	}
	defer b.Close()

	dev, err := b.NewDevice(*width, *height)
	if err != nil {
		log.Fatalf("Failed to create device: %v", err)
	}
	stats, err := renderScene(dev, sc, *width, *height)
	if err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	img, err := readImage(dev, *width, *height)
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}
	caption(img, summary(b.Name(), stats)...)

	if err := savePNG(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Scene saved to %s (%dx%d, %s)\n", *output, *width, *height, b.Name())

	if *depthOut != "" {
		sw, ok := dev.(*software.Device)
		if !ok {
			log.Fatalf("Depth output needs the software backend, have %s", b.Name())
		}
		if err := savePNG(*depthOut, sw.Main().DepthImage(*width, *height)); err != nil {
			log.Fatalf("Failed to save depth: %v", err)
		}
		log.Printf("Depth saved to %s\n", *depthOut)
	}
}

func openBackend(name string) (backend.Backend, error) {
	if name == "" {
		return backend.InitDefault()
	}
	b := backend.Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrBackendNotAvailable, name)
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// summary describes each product's render in one caption line.
func summary(backendName string, stats []csg.Stats) []string {
	lines := []string{"backend: " + backendName}
	for i, s := range stats {
		lines = append(lines, fmt.Sprintf("#%d %s/%s: %d batches, %d passes, %d merges",
			i+1, s.Algorithm, s.DepthComplexity, s.Batches, s.Passes, s.Merges))
	}
	return lines
}
