// Package batch groups primitives whose screen-space bounding boxes do not
// overlap, so that their visibility can be resolved in one shared pass.
package batch

import "github.com/gogpu/csg/gpucore"

// Batch is an ordered, non-owning list of primitives whose bounding boxes
// are pairwise disjoint in X and Y.
type Batch []gpucore.Primitive

// Make partitions prims into batches.
//
// Primitives outside the viewport are dropped. A primitive covering the
// whole viewport gets a batch of its own; these batches come first, in
// input order. Every other primitive joins the first batch, in creation
// order, whose members it does not overlap, or opens a new batch. Input
// order is preserved within each batch.
func Make(prims []gpucore.Primitive) []Batch {
	var covering, batches []Batch
	for _, p := range prims {
		if !Visible(p) {
			continue
		}
		if CoversViewport(p) {
			covering = append(covering, Batch{p})
			continue
		}
		placed := false
		for i, b := range batches {
			if !b.overlaps(p) {
				batches[i] = append(b, p)
				placed = true
				break
			}
		}
		if !placed {
			batches = append(batches, Batch{p})
		}
	}
	return append(covering, batches...)
}

// Single returns all visible primitives of prims as one batch, used when
// the caller resolves layers over the whole product at once.
func Single(prims []gpucore.Primitive) []Batch {
	var b Batch
	for _, p := range prims {
		if Visible(p) {
			b = append(b, p)
		}
	}
	if len(b) == 0 {
		return nil
	}
	return []Batch{b}
}

func (b Batch) overlaps(p gpucore.Primitive) bool {
	for _, q := range b {
		if IntersectXY(p, q) {
			return true
		}
	}
	return false
}

// Contains reports whether p is a member of b.
func (b Batch) Contains(p gpucore.Primitive) bool {
	for _, q := range b {
		if q == p {
			return true
		}
	}
	return false
}
