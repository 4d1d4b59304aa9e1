package gpucore

// Guard records the caller-visible device state and restores it on
// Release. Acquire it at the top of an algorithm and defer Release so
// every exit path leaves the caller's state intact.
//
//	g := gpucore.Acquire(dev)
//	defer g.Release()
type Guard struct {
	dev       Device
	state     State
	transform Mat4
	viewport  Rect
	fb        Framebuffer
	released  bool
}

// Acquire snapshots the state of dev.
func Acquire(dev Device) *Guard {
	return &Guard{
		dev:       dev,
		state:     dev.State(),
		transform: dev.Transform(),
		viewport:  dev.Viewport(),
		fb:        dev.BoundFramebuffer(),
	}
}

// State returns the state captured at acquisition.
func (g *Guard) State() State { return g.state }

// Transform returns the transform captured at acquisition.
func (g *Guard) Transform() Mat4 { return g.transform }

// Viewport returns the viewport captured at acquisition.
func (g *Guard) Viewport() Rect { return g.viewport }

// Release restores the captured state. Calling it again is a no-op.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.dev.BindFramebuffer(g.fb)
	g.dev.SetViewport(g.viewport)
	g.dev.SetTransform(g.transform)
	g.dev.SetState(g.state)
}
