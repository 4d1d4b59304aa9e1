package wgpu

import (
	_ "embed"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/csg/gpucore"
)

//go:embed shaders/csg.wgsl
var csgShaderSource string

// uniformSize is the byte size of the Uniforms block: a mat4x4<f32>, a
// vec4<f32> color and three four-component integer vectors.
const uniformSize = 64 + 16 + 3*16

// vertexStride is the byte stride of one float32x3 position.
const vertexStride = 12

// pipelineKey holds the parts of [gpucore.State] that WebGPU bakes into a
// render pipeline.
type pipelineKey struct {
	depthCompare gputypes.CompareFunction
	depthWrite   bool
	colorMask    gputypes.ColorWriteMask
	cull         gputypes.CullMode

	stencil      bool
	compare      gputypes.CompareFunction
	readMask     uint8
	writeMask    uint8
	failOp       gpucore.StencilOp
	depthFailOp  gpucore.StencilOp
	passOp       gpucore.StencilOp
	customShader bool
}

// keyFor derives the pipeline key of s. A disabled depth test becomes an
// always-passing test without writes, a disabled stencil test an
// always-passing one that keeps every value.
func keyFor(s *gpucore.State, customShader bool) pipelineKey {
	k := pipelineKey{
		depthCompare: gputypes.CompareFunctionAlways,
		colorMask:    s.ColorWriteMask,
		cull:         s.CullMode,
		compare:      gputypes.CompareFunctionAlways,
		readMask:     0xff,
		writeMask:    0xff,
		customShader: customShader,
	}
	if s.DepthTest {
		k.depthCompare = s.DepthCompare
		k.depthWrite = s.DepthWrite
	}
	if s.StencilTest {
		k.stencil = true
		k.compare = s.Stencil.Compare
		k.readMask = s.Stencil.ReadMask
		k.writeMask = s.Stencil.WriteMask
		k.failOp = s.Stencil.FailOp
		k.depthFailOp = s.Stencil.DepthFailOp
		k.passOp = s.Stencil.PassOp
	}
	return k
}

func stencilOperation(op gpucore.StencilOp) hal.StencilOperation {
	switch op {
	case gpucore.StencilZero:
		return hal.StencilOperationZero
	case gpucore.StencilReplace:
		return hal.StencilOperationReplace
	case gpucore.StencilIncr:
		return hal.StencilOperationIncrementClamp
	case gpucore.StencilIncrWrap:
		return hal.StencilOperationIncrementWrap
	case gpucore.StencilDecr:
		return hal.StencilOperationDecrementClamp
	case gpucore.StencilDecrWrap:
		return hal.StencilOperationDecrementWrap
	case gpucore.StencilInvert:
		return hal.StencilOperationInvert
	default:
		return hal.StencilOperationKeep
	}
}

// compareCode numbers compare functions the way the fragment shader's
// compare function expects them.
func compareCode(f gputypes.CompareFunction) uint32 {
	switch f {
	case gputypes.CompareFunctionNever:
		return 1
	case gputypes.CompareFunctionLess:
		return 2
	case gputypes.CompareFunctionEqual:
		return 3
	case gputypes.CompareFunctionLessEqual:
		return 4
	case gputypes.CompareFunctionGreater:
		return 5
	case gputypes.CompareFunctionNotEqual:
		return 6
	case gputypes.CompareFunctionGreaterEqual:
		return 7
	default:
		return 8
	}
}

// channelCode numbers texture-test channels for the fragment shader; zero
// disables the test.
func channelCode(c gpucore.Channel) uint32 {
	switch c {
	case gpucore.Alpha:
		return 1
	case gpucore.Red:
		return 2
	case gpucore.Green:
		return 3
	case gpucore.Blue:
		return 4
	case gpucore.All:
		return 5
	default:
		return 0
	}
}

// compileWGSL validates source with naga and creates a shader module
// from it.
func compileWGSL(device hal.Device, label, source string) (hal.ShaderModule, error) {
	if _, err := naga.Compile(source); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s module: %w", label, err)
	}
	return module, nil
}

// pipelineCache creates render pipelines on demand and keeps them for the
// lifetime of the device. It is safe for concurrent use.
type pipelineCache struct {
	device hal.Device

	shader       hal.ShaderModule
	vertexShader hal.ShaderModule
	layout       hal.BindGroupLayout
	pipeLayout   hal.PipelineLayout

	mu        sync.RWMutex
	pipelines map[pipelineKey]hal.RenderPipeline

	hits   atomic.Uint64
	misses atomic.Uint64
}

func newPipelineCache(device hal.Device) (*pipelineCache, error) {
	c := &pipelineCache{
		device:    device,
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}

	shader, err := compileWGSL(device, "csg_shader", csgShaderSource)
	if err != nil {
		return nil, err
	}
	c.shader = shader

	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "csg_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		c.destroy()
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	c.layout = layout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "csg_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{layout},
	})
	if err != nil {
		c.destroy()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	c.pipeLayout = pipeLayout
	return c, nil
}

// setVertexShader replaces the custom vertex module and drops every
// pipeline built from the previous one. An empty source removes it.
func (c *pipelineCache) setVertexShader(source string) error {
	var module hal.ShaderModule
	if source != "" {
		m, err := compileWGSL(c.device, "csg_vertex_override", source)
		if err != nil {
			return err
		}
		module = m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.pipelines {
		if k.customShader {
			c.device.DestroyRenderPipeline(p)
			delete(c.pipelines, k)
		}
	}
	if c.vertexShader != nil {
		c.device.DestroyShaderModule(c.vertexShader)
	}
	c.vertexShader = module
	return nil
}

func (c *pipelineCache) get(k pipelineKey) (hal.RenderPipeline, error) {
	c.mu.RLock()
	p, ok := c.pipelines[k]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pipelines[k]; ok {
		c.hits.Add(1)
		return p, nil
	}
	c.misses.Add(1)
	p, err := c.create(k)
	if err != nil {
		return nil, err
	}
	c.pipelines[k] = p
	return p, nil
}

// Caller must hold c.mu.
func (c *pipelineCache) create(k pipelineKey) (hal.RenderPipeline, error) {
	vertex := c.shader
	if k.customShader && c.vertexShader != nil {
		vertex = c.vertexShader
	}
	face := hal.StencilFaceState{
		Compare:     k.compare,
		FailOp:      stencilOperation(k.failOp),
		DepthFailOp: stencilOperation(k.depthFailOp),
		PassOp:      stencilOperation(k.passOp),
	}
	p, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "csg_pipeline",
		Layout: c.pipeLayout,
		Vertex: hal.VertexState{
			Module:     vertex,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: vertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{{
					Format:         gputypes.VertexFormatFloat32x3,
					Offset:         0,
					ShaderLocation: 0,
				}},
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     c.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    colorFormat,
				WriteMask: k.colorMask,
			}},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: k.depthWrite,
			DepthCompare:      k.depthCompare,
			StencilFront:      face,
			StencilBack:       face,
			StencilReadMask:   uint32(k.readMask),
			StencilWriteMask:  uint32(k.writeMask),
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  k.cull,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	return p, nil
}

func (c *pipelineCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

func (c *pipelineCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.pipelines {
		c.device.DestroyRenderPipeline(p)
		delete(c.pipelines, k)
	}
	if c.pipeLayout != nil {
		c.device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.layout != nil {
		c.device.DestroyBindGroupLayout(c.layout)
		c.layout = nil
	}
	if c.vertexShader != nil {
		c.device.DestroyShaderModule(c.vertexShader)
		c.vertexShader = nil
	}
	if c.shader != nil {
		c.device.DestroyShaderModule(c.shader)
		c.shader = nil
	}
}
