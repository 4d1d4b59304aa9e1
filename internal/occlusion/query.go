// Package occlusion wraps device occlusion queries behind one type whose
// flavor is fixed when it is created.
package occlusion

import (
	"errors"
	"fmt"

	"github.com/gogpu/csg/gpucore"
)

// ErrUnsupported is returned by New when the device offers no occlusion
// queries.
var ErrUnsupported = errors.New("occlusion: queries not supported")

// Kind is the query flavor selected from the device capabilities.
type Kind = gpucore.OcclusionKind

// Query counts fragments that pass all tests between Begin and End.
type Query struct {
	kind Kind
	q    gpucore.Query
}

// Available reports the query kind a device supports.
func Available(dev gpucore.Device) Kind {
	return dev.Capabilities().Occlusion
}

// New creates a query on dev.
func New(dev gpucore.Device) (*Query, error) {
	kind := Available(dev)
	if kind == gpucore.OcclusionNone {
		return nil, ErrUnsupported
	}
	q, err := dev.CreateQuery()
	if err != nil {
		return nil, fmt.Errorf("create occlusion query: %w", err)
	}
	return &Query{kind: kind, q: q}, nil
}

// Kind returns the query flavor.
func (q *Query) Kind() Kind { return q.kind }

// Begin starts counting.
func (q *Query) Begin() { q.q.Begin() }

// End stops counting.
func (q *Query) End() { q.q.End() }

// Passed reports whether any fragment passed. It blocks until the result
// is available.
func (q *Query) Passed() (bool, error) {
	n, err := q.q.Result()
	if err != nil {
		return false, fmt.Errorf("occlusion query result: %w", err)
	}
	return n > 0, nil
}

// Samples returns the number of fragments that passed. For queries that
// only detect any samples the result is 0 or 1, which is enough for the
// zero tests the algorithms make.
func (q *Query) Samples() (uint32, error) {
	n, err := q.q.Result()
	if err != nil {
		return 0, fmt.Errorf("occlusion query result: %w", err)
	}
	if q.kind == gpucore.OcclusionAnySamples && n > 1 {
		n = 1
	}
	return n, nil
}

// Destroy releases the query.
func (q *Query) Destroy() {
	if q.q != nil {
		q.q.Destroy()
		q.q = nil
	}
}
