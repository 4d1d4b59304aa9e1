// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package csg

import (
	"sync"

	"github.com/gogpu/csg/internal/offscreen"
)

// Resources caches GPU resources between Render calls, scoped by an
// integer context key. Applications with several graphics contexts that
// do not share objects give each its own key.
//
// Resources is safe for concurrent use, but one context key must not be
// used by two Render calls at the same time.
type Resources struct {
	mu      sync.Mutex
	context int
	pool    *offscreen.Pool
}

// defaultResources is used by Render unless WithResources is given.
var defaultResources = NewResources()

// NewResources returns an empty cache with context key 0.
func NewResources() *Resources {
	return &Resources{pool: offscreen.NewPool(Logger)}
}

// SetContext selects the context key subsequent Render calls use.
func (r *Resources) SetContext(id int) {
	r.mu.Lock()
	r.context = id
	r.mu.Unlock()
}

// Context returns the current context key.
func (r *Resources) Context() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.context
}

// FreeResources releases every resource cached under the current context
// key. The graphics context of that key must still be current.
func (r *Resources) FreeResources() {
	r.pool.Free(r.Context())
}

// Close releases the resources of every context key.
func (r *Resources) Close() {
	r.pool.Close()
}

// SetContext selects the context key of the default resources.
func SetContext(id int) { defaultResources.SetContext(id) }

// Context returns the context key of the default resources.
func Context() int { return defaultResources.Context() }

// FreeResources releases the default resources of the current context key.
func FreeResources() { defaultResources.FreeResources() }
