// Package backend provides a registry of CSG device backends.
//
// The CSG algorithms run on any [gpucore.Device]. This package lets
// applications pick one at runtime without importing every
// implementation themselves.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// Both built-in backends are registered on import:
//
//	import "github.com/gogpu/csg/backend"
//
// # Backend Selection
//
// Use InitDefault() to get the best backend that works on this machine, or
// Get() to request a specific backend by name:
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	dev, err := b.NewDevice(800, 600)
//
// # Available Backends
//
// - "wgpu": GPU device on gogpu/wgpu (preferred when a Vulkan adapter exists)
// - "software": CPU reference rasterizer (always available)
package backend
