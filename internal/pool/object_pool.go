// Package pool provides object pooling on top of sync.Pool.
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)
	// keep decides whether an object goes back to the pool at all.
	keep func(T) bool

	// Metrics
	gets    atomic.Int64
	puts    atomic.Int64
	news    atomic.Int64
	dropped atomic.Int64
}

// NewPool creates a new object pool. resetFunc and keepFunc may be nil.
func NewPool[T any](newFunc func() T, resetFunc func(*T), keepFunc func(T) bool) *Pool[T] {
	p := &Pool[T]{
		reset: resetFunc,
		keep:  keepFunc,
	}
	p.pool.New = func() any {
		p.news.Add(1)
		return newFunc()
	}
	return p
}

// Get retrieves an object from the pool.
func (p *Pool[T]) Get() T {
	p.gets.Add(1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool, unless keep rejects it.
func (p *Pool[T]) Put(obj T) {
	if p.keep != nil && !p.keep(obj) {
		p.dropped.Add(1)
		return
	}
	p.puts.Add(1)
	if p.reset != nil {
		p.reset(&obj)
	}
	p.pool.Put(obj)
}

// Stats returns pool statistics.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Gets:    p.gets.Load(),
		Puts:    p.puts.Load(),
		News:    p.news.Load(),
		Dropped: p.dropped.Load(),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Gets    int64 `json:"gets"`
	Puts    int64 `json:"puts"`
	News    int64 `json:"news"`
	Dropped int64 `json:"dropped"`
}

// HitRate returns the fraction of Gets served without allocating.
func (s PoolStats) HitRate() float64 {
	if s.Gets == 0 {
		return 0
	}
	return float64(s.Gets-s.News) / float64(s.Gets)
}

// NewBufferPool returns a pool of byte buffers. Buffers that grew beyond
// maxRetained bytes are released to the GC instead of pooled.
func NewBufferPool(initial, maxRetained int) *Pool[*bytes.Buffer] {
	return NewPool(
		func() *bytes.Buffer {
			return bytes.NewBuffer(make([]byte, 0, initial))
		},
		func(b **bytes.Buffer) {
			(*b).Reset()
		},
		func(b *bytes.Buffer) bool {
			return b.Cap() <= maxRetained
		},
	)
}

// ResponseBufferPool holds buffers for upstream image replies. Typical replies
// are a few MB of base64; anything above 16 MiB is not retained.
var ResponseBufferPool = NewBufferPool(64<<10, 16<<20)
