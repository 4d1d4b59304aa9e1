package software

import "github.com/gogpu/csg/gpucore"

type query struct {
	dev     *Device
	kind    gpucore.OcclusionKind
	samples uint32
}

// CreateQuery returns an occlusion query of the advertised kind.
func (d *Device) CreateQuery() (gpucore.Query, error) {
	if d.caps.Occlusion == gpucore.OcclusionNone {
		return nil, ErrUnsupported
	}
	return &query{dev: d, kind: d.caps.Occlusion}, nil
}

func (q *query) Begin() {
	q.samples = 0
	q.dev.query = q
}

func (q *query) End() {
	if q.dev.query == q {
		q.dev.query = nil
	}
}

func (q *query) Result() (uint32, error) {
	if q.kind == gpucore.OcclusionAnySamples && q.samples > 0 {
		return 1, nil
	}
	return q.samples, nil
}

func (q *query) Destroy() { q.End() }
