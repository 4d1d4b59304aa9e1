package offscreen

import (
	"fmt"
	"sync"
)

// Pool caches offscreen buffers per context key and type.
type Pool struct {
	mu      sync.Mutex
	buffers map[int]map[Type]*Buffer
	claimed map[int]bool
	logger  LoggerFunc
}

// NewPool returns an empty pool. Its buffers log through logger, which is
// consulted on every message; nil discards output.
func NewPool(logger LoggerFunc) *Pool {
	return &Pool{
		buffers: make(map[int]map[Type]*Buffer),
		claimed: make(map[int]bool),
		logger:  logger,
	}
}

// Buffer returns the buffer of type typ cached under key, creating an
// unallocated one on first use.
func (p *Pool) Buffer(key int, typ Type) *Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	byType := p.buffers[key]
	if byType == nil {
		byType = make(map[Type]*Buffer)
		p.buffers[key] = byType
	}
	b := byType[typ]
	if b == nil {
		b = NewBuffer(typ, p.logger)
		byType[typ] = b
	}
	return b
}

// Claim marks the buffers of key as in use by one render call and returns
// the function that releases them. Claiming a key that is already claimed
// is a programming error and panics: a context key must not be used by two
// render calls at once.
func (p *Pool) Claim(key int) (release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.claimed[key] {
		panic(fmt.Sprintf("offscreen: context %d is already in use by another render call", key))
	}
	p.claimed[key] = true
	return func() {
		p.mu.Lock()
		delete(p.claimed, key)
		p.mu.Unlock()
	}
}

// Free destroys every buffer cached under key.
func (p *Pool) Free(key int) {
	p.mu.Lock()
	byType := p.buffers[key]
	delete(p.buffers, key)
	p.mu.Unlock()
	for _, b := range byType {
		b.Destroy()
	}
}

// Len returns the number of buffers cached under key.
func (p *Pool) Len(key int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers[key])
}

// Close destroys all cached buffers.
func (p *Pool) Close() {
	p.mu.Lock()
	all := p.buffers
	p.buffers = make(map[int]map[Type]*Buffer)
	p.mu.Unlock()
	for _, byType := range all {
		for _, b := range byType {
			b.Destroy()
		}
	}
}
