//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPooledStaging caps how many readback buffers the pool retains.
// A chunked invocation reuses one buffer per output array, so the cap
// only matters when problem shapes keep changing.
const maxPooledStaging = 16

type pooledStaging struct {
	buf  *wgpu.Buffer
	size uint64
}

// stagingPool recycles MapRead staging buffers between readbacks.
// Upload staging is not pooled: mapped-at-creation buffers are one-shot,
// and remapping one for write would block on the queue anyway. A
// readback buffer only needs Unmap to become reusable.
type stagingPool struct {
	dev *wgpu.Device

	mu     sync.Mutex
	free   []pooledStaging
	active map[*wgpu.Buffer]uint64
	hits   uint64
	misses uint64
}

func newStagingPool(dev *wgpu.Device) *stagingPool {
	return &stagingPool{
		dev:    dev,
		free:   make([]pooledStaging, 0, maxPooledStaging),
		active: make(map[*wgpu.Buffer]uint64),
	}
}

// acquire returns a MapRead|CopyDst buffer of at least size bytes,
// reusing a pooled one when it fits. Callers must copy with explicit
// sizes; the buffer may be larger than requested.
func (p *stagingPool) acquire(size uint64) *wgpu.Buffer {
	p.mu.Lock()
	for i, s := range p.free {
		if s.size >= size {
			p.free = append(p.free[:i], p.free[i+1:]...)
			p.hits++
			p.active[s.buf] = s.size
			p.mu.Unlock()
			return s.buf
		}
	}
	p.misses++
	p.mu.Unlock()

	buf := p.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if buf != nil {
		p.mu.Lock()
		p.active[buf] = size
		p.mu.Unlock()
	}
	return buf
}

// release returns an acquired buffer to the pool, or frees it when the
// pool is full. The buffer must be unmapped.
func (p *stagingPool) release(buf *wgpu.Buffer) {
	if buf == nil {
		return
	}
	p.mu.Lock()
	size, ok := p.active[buf]
	delete(p.active, buf)
	if !ok || len(p.free) >= maxPooledStaging {
		p.mu.Unlock()
		buf.Release()
		return
	}
	p.free = append(p.free, pooledStaging{buf: buf, size: size})
	p.mu.Unlock()
}

// clear frees every pooled buffer. Outstanding acquisitions are the
// caller's to release.
func (p *stagingPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.free {
		s.buf.Release()
	}
	p.free = p.free[:0]
}

// stats reports reuse effectiveness and the retained buffer count.
func (p *stagingPool) stats() (hits, misses uint64, pooled int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses, len(p.free)
}
