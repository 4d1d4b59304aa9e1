package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/csg/gpucore"
)

// DrawTriangles records a triangle list with the current state.
func (d *Device) DrawTriangles(vertices []gpucore.Vertex) {
	if len(vertices) < 3 {
		return
	}
	d.draw(vertices, d.transform, d.state, d.viewport)
}

// DrawQuad records a rectangle covering the viewport at window depth z.
func (d *Device) DrawQuad(z float32) {
	ndc := 2*z - 1
	d.draw(quad(ndc), gpucore.Identity(), d.state, d.viewport)
}

// Clear fills the bound framebuffer by drawing a quad whose state writes
// exactly the cleared buffers, so scissor and write masks apply as they
// do for glClear.
func (d *Device) Clear(mask gpucore.ClearMask, v gpucore.ClearValues) {
	s := clearState(&d.state, mask, v)
	fb := d.target()
	full := gpucore.Rect{Width: fb.width, Height: fb.height}
	d.draw(quad(2*v.Depth-1), gpucore.Identity(), s, full)
}

// clearState derives the draw state that implements a clear under cur.
func clearState(cur *gpucore.State, mask gpucore.ClearMask, v gpucore.ClearValues) gpucore.State {
	s := gpucore.DefaultState()
	s.DepthTest = false
	s.ColorWriteMask = gputypes.ColorWriteMaskNone
	s.ScissorTest = cur.ScissorTest
	s.Scissor = cur.Scissor
	s.Color = v.Color
	if mask&gpucore.ClearColor != 0 {
		s.ColorWriteMask = cur.ColorWriteMask
	}
	if mask&gpucore.ClearDepth != 0 && cur.DepthWrite {
		s.DepthTest = true
		s.DepthCompare = gputypes.CompareFunctionAlways
		s.DepthWrite = true
	}
	if mask&gpucore.ClearStencil != 0 {
		s.StencilTest = true
		s.Stencil = gpucore.StencilState{
			Compare:     gputypes.CompareFunctionAlways,
			Ref:         v.Stencil,
			ReadMask:    0xff,
			WriteMask:   cur.Stencil.WriteMask,
			FailOp:      gpucore.StencilReplace,
			DepthFailOp: gpucore.StencilReplace,
			PassOp:      gpucore.StencilReplace,
		}
	}
	return s
}

// quad returns two counter-clockwise triangles covering NDC at depth z.
func quad(z float32) []gpucore.Vertex {
	return []gpucore.Vertex{
		{X: -1, Y: -1, Z: z}, {X: 1, Y: -1, Z: z}, {X: 1, Y: 1, Z: z},
		{X: -1, Y: -1, Z: z}, {X: 1, Y: 1, Z: z}, {X: -1, Y: 1, Z: z},
	}
}

// flipRect converts a bottom-left origin rectangle to the top-left origin
// WebGPU uses for viewports and scissors.
func flipRect(r gpucore.Rect, height int) gpucore.Rect {
	return gpucore.Rect{X: r.X, Y: height - (r.Y + r.Height), Width: r.Width, Height: r.Height}
}

func (d *Device) draw(vertices []gpucore.Vertex, mvp gpucore.Mat4, s gpucore.State, viewport gpucore.Rect) {
	if d.err != nil || d.closed || viewport.Empty() {
		return
	}
	fb := d.target()
	full := gpucore.Rect{Width: fb.width, Height: fb.height}
	scissor := full
	if s.ScissorTest {
		scissor = full.Intersect(s.Scissor)
	}
	if scissor.Empty() {
		return
	}

	source, sourceSize := d.empty, uint64(emptySourceSize)
	var test *gpucore.TextureTest
	var src *Framebuffer
	if s.TextureTest != nil && s.TextureTest.Source != nil {
		test = s.TextureTest
		var ok bool
		src, ok = test.Source.(*Framebuffer)
		if !ok || src.dev != d {
			d.fail(fmt.Errorf("%w: texture test source %T", ErrForeignFramebuffer, test.Source))
			return
		}
		snap, err := d.snapshotOf(src)
		if err != nil {
			d.fail(err)
			return
		}
		source, sourceSize = snap.buf, snap.size
	}

	pipeline, err := d.pipelines.get(keyFor(&s, test != nil && d.shader != ""))
	if err != nil {
		d.fail(err)
		return
	}

	vbuf, err := d.upload("csg_vertices", vertexBytes(vertices), gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		d.fail(err)
		return
	}
	u := uniformBytes(mvp, &s, test, src, viewport, fb.height)
	ubuf, err := d.upload("csg_uniforms", u, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		d.fail(err)
		return
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "csg_bind",
		Layout: d.pipelines.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: ubuf.NativeHandle(), Offset: 0, Size: uniformSize,
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: source.NativeHandle(), Offset: 0, Size: sourceSize,
			}},
		},
	})
	if err != nil {
		d.fail(fmt.Errorf("create bind group: %w", err))
		return
	}
	d.groups = append(d.groups, group)

	rp, err := d.beginPass(fb)
	if err != nil {
		d.fail(err)
		return
	}
	vp := flipRect(viewport, fb.height)
	sc := flipRect(scissor, fb.height)
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, group, nil)
	rp.SetVertexBuffer(0, vbuf, 0)
	rp.SetViewport(float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height), 0, 1)
	rp.SetScissorRect(uint32(sc.X), uint32(sc.Y), uint32(sc.Width), uint32(sc.Height)) //nolint:gosec // clipped to the target
	rp.SetStencilReference(uint32(s.Stencil.Ref))
	rp.Draw(uint32(len(vertices)), 1, 0, 0) //nolint:gosec // slice length
	fb.version++
}

// upload creates a buffer holding data that lives until the next
// submission.
func (d *Device) upload(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, data)
	d.garbage = append(d.garbage, buf)
	return buf, nil
}

func vertexBytes(vertices []gpucore.Vertex) []byte {
	buf := make([]byte, len(vertices)*vertexStride)
	for i, v := range vertices {
		o := i * vertexStride
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(buf[o+4:], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(buf[o+8:], math.Float32bits(v.Z))
	}
	return buf
}

// uniformBytes lays out the Uniforms block of the CSG shader.
func uniformBytes(mvp gpucore.Mat4, s *gpucore.State, test *gpucore.TextureTest, src *Framebuffer, viewport gpucore.Rect, targetHeight int) []byte {
	buf := make([]byte, uniformSize)
	put := func(o int, v uint32) { binary.LittleEndian.PutUint32(buf[o:], v) }
	for i, m := range mvp.Float32() {
		put(4*i, math.Float32bits(m))
	}
	c := s.Color
	put(64, math.Float32bits(float32(c.R)/255))
	put(68, math.Float32bits(float32(c.G)/255))
	put(72, math.Float32bits(float32(c.B)/255))
	put(76, math.Float32bits(float32(c.A)/255))
	if test != nil {
		put(80, channelCode(test.Channel))
		put(84, compareCode(test.Compare))
		put(88, test.Ref)
	}
	put(96, uint32(int32(viewport.X)))  //nolint:gosec // two's complement
	put(100, uint32(int32(viewport.Y))) //nolint:gosec // two's complement
	put(104, uint32(targetHeight))      //nolint:gosec // positive
	if src != nil {
		put(112, uint32(src.width))  //nolint:gosec // positive
		put(116, uint32(src.height)) //nolint:gosec // positive
		put(120, src.alignedRow()/4)
	}
	return buf
}

func (d *Device) ensureEncoder() error {
	if d.encoder != nil {
		return nil
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "csg_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("csg_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	d.encoder = encoder
	return nil
}

// beginPass returns a render pass drawing into fb, reusing the open one
// when it already targets fb.
func (d *Device) beginPass(fb *Framebuffer) (hal.RenderPassEncoder, error) {
	if d.pass != nil && d.passTarget == fb {
		return d.pass, nil
	}
	d.endPass()
	if err := d.ensureEncoder(); err != nil {
		return nil, err
	}
	d.pass = d.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "csg_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    fb.colorView,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:           fb.depthView,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		},
	})
	d.passTarget = fb
	return d.pass, nil
}

func (d *Device) endPass() {
	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass = nil
	d.passTarget = nil
}

// copyColor records a copy of fb's color attachment into dst, rows
// top-down and padded to the copy alignment.
func (d *Device) copyColor(fb *Framebuffer, dst hal.Buffer) error {
	d.endPass()
	if err := d.ensureEncoder(); err != nil {
		return err
	}
	w, h := uint32(fb.width), uint32(fb.height) //nolint:gosec // positive
	d.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: fb.color,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	d.encoder.CopyTextureToBuffer(fb.color, dst, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: fb.alignedRow(), RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: fb.color, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	d.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: fb.color,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	return nil
}

// snapshotOf returns a storage-buffer copy of fb's color attachment that
// reflects every draw recorded so far.
func (d *Device) snapshotOf(fb *Framebuffer) (*snapshot, error) {
	if fb.snapshot != nil && fb.snapshot.version == fb.version {
		return fb.snapshot, nil
	}
	size := uint64(fb.alignedRow()) * uint64(fb.height) //nolint:gosec // positive
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "csg_snapshot",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot buffer: %w", err)
	}
	if err := d.copyColor(fb, buf); err != nil {
		d.device.DestroyBuffer(buf)
		return nil, err
	}
	// Draws recorded earlier may still read the previous snapshot.
	if fb.snapshot != nil {
		d.discard(fb.snapshot.buf)
	}
	fb.snapshot = &snapshot{buf: buf, version: fb.version, size: size}
	return fb.snapshot, nil
}

// ReadColor returns the RGBA bytes of r, clamped to the bound framebuffer,
// row by row from the bottom.
func (d *Device) ReadColor(r gpucore.Rect) ([]uint8, error) {
	if d.err != nil {
		return nil, d.Flush()
	}
	fb := d.target()
	r = r.Intersect(gpucore.Rect{Width: fb.width, Height: fb.height})
	if r.Empty() {
		return []uint8{}, nil
	}
	row := int(fb.alignedRow())
	size := uint64(row) * uint64(fb.height) //nolint:gosec // positive
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "csg_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	if err := d.copyColor(fb, staging); err != nil {
		return nil, err
	}
	if err := d.Flush(); err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, data); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	out := make([]uint8, 0, 4*r.Width*r.Height)
	for y := r.Y; y < r.Y+r.Height; y++ {
		o := (fb.height-1-y)*row + 4*r.X
		out = append(out, data[o:o+4*r.Width]...)
	}
	return out, nil
}

// submit ends encoding, submits the commands and waits for them.
func (d *Device) submit() error {
	d.endPass()
	if d.encoder == nil {
		d.freeGarbage()
		return nil
	}
	encoder := d.encoder
	d.encoder = nil
	defer d.freeGarbage()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, waitTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return ErrGPUTimeout
	}
	return nil
}
