// Package wgpu implements [gpucore.Device] on top of the gogpu/wgpu
// hardware abstraction layer.
//
// The device emulates the fixed-function state of [gpucore.State] with a
// single WGSL program and a cache of render pipelines keyed by the parts of
// the state WebGPU bakes into a pipeline: depth test and write, color
// write mask, face culling and the stencil functions and masks. Scissor
// rectangles, viewports and stencil references are dynamic pass state.
//
// The texture test reads a snapshot of the source framebuffer's color
// attachment. The snapshot is a storage buffer refreshed by a texture copy
// whenever the source has been drawn to since the last one, so a merge
// pass sees exactly the channels written during capture.
//
// Work is recorded into one command encoder and submitted on [Device.Flush]
// or when a readback needs the results. Every draw uploads its own vertex
// and uniform buffers, which are released after submission.
//
// # Capabilities
//
// WebGPU has no depth bounds test and the hal layer offers neither
// occlusion queries nor stencil readback here, so the device reports them
// absent and the CSG algorithms take their degraded paths:
// NoDepthComplexitySampling everywhere and scissoring without depth
// bounds. Offscreen framebuffers are always core framebuffers of any size.
//
// # Vertex shader override
//
// [Device.SetVertexShader] accepts WGSL that declares the same Uniforms
// block at group 0 binding 0 and a vs_main entry point taking a vec3<f32>
// position at location 0. The source is validated with naga before use.
//
// # Creating a device
//
//	dev, err := wgpu.New(800, 600)          // standalone Vulkan device
//	dev, err := wgpu.NewFromProvider(p, w, h) // device shared with a host
//
// A provider must expose HalDevice() and HalQueue() returning the hal
// device and queue, as gogpu does.
package wgpu
