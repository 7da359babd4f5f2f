package device

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// scratchBuffer wraps a GPU buffer with its allocation metadata.
type scratchBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// Scratch is a per-converter allocator for transient GPU buffers
// (staging uploads, uniform parameter blocks). Buffers acquired during
// a conversion stay in flight until Reset; resetting before the queue
// work that references them has retired corrupts later conversions, so
// Reset must only run after a device Sync.
type Scratch struct {
	gpu *GPU

	mu       sync.Mutex
	free     []*scratchBuffer
	inflight []*scratchBuffer
}

// NewScratch creates a scratch allocator on the given device.
func NewScratch(gpu *GPU) *Scratch {
	return &Scratch{gpu: gpu}
}

// Acquire returns a buffer of at least the requested size with the
// requested usage, reusing a free one when possible. The buffer is
// tracked as in flight until Reset.
func (s *Scratch) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sb := range s.free {
		if sb.size >= size && sb.usage&usage == usage {
			s.free = append(s.free[:i], s.free[i+1:]...)
			s.inflight = append(s.inflight, sb)
			return sb.buffer
		}
	}

	buffer := s.gpu.CreateEmptyBuffer(size, usage)
	s.inflight = append(s.inflight, &scratchBuffer{buffer: buffer, size: size, usage: usage})
	return buffer
}

// Adopt takes ownership of an externally created buffer, tracking it
// as in flight so it survives until Reset and is reusable afterwards.
func (s *Scratch) Adopt(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	s.mu.Lock()
	s.inflight = append(s.inflight, &scratchBuffer{buffer: buffer, size: size, usage: usage})
	s.mu.Unlock()
}

// Upload acquires a buffer and writes data into it through a mapped
// creation, tracking it as in flight.
func (s *Scratch) Upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	buffer := s.gpu.CreateBuffer(data, usage)

	s.mu.Lock()
	s.inflight = append(s.inflight, &scratchBuffer{buffer: buffer, size: uint64(len(data)), usage: usage})
	s.mu.Unlock()

	return buffer
}

// Reset returns all in-flight buffers to the free list. Callers must
// have drained the device first.
func (s *Scratch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.free = append(s.free, s.inflight...)
	s.inflight = s.inflight[:0]
}

// InFlight returns the number of buffers currently in flight.
func (s *Scratch) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Clear releases every buffer held by the allocator.
func (s *Scratch) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sb := range s.free {
		sb.buffer.Release()
	}
	s.free = s.free[:0]
	for _, sb := range s.inflight {
		sb.buffer.Release()
	}
	s.inflight = s.inflight[:0]
}
