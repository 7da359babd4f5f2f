package binding

import (
	"sync"

	"github.com/tensorbind/tensorbind/internal/converters"
	"github.com/tensorbind/tensorbind/internal/device"
	"github.com/tensorbind/tensorbind/internal/execution"
)

// Session owns the resources binding calls share: the GPU device (nil
// for CPU-only sessions), the converter stores, and the allocators it
// hands out. A session is safe for concurrent binding calls.
type Session struct {
	gpu *device.GPU

	tensorizers   *converters.Store
	detensorizers *converters.Store
}

// NewSession creates a session over the given device. Pass nil to run
// CPU-only.
func NewSession(gpu *device.GPU) *Session {
	factory := func(key converters.Key) (*converters.Resource, error) {
		return converters.NewResource(key, gpu)
	}
	return &Session{
		gpu:           gpu,
		tensorizers:   converters.NewStore(factory),
		detensorizers: converters.NewStore(factory),
	}
}

// UsingGPU reports whether allocations and conversions target the
// device.
func (s *Session) UsingGPU() bool { return s.gpu != nil }

// GPU returns the session's device, nil for CPU-only sessions.
func (s *Session) GPU() *device.GPU { return s.gpu }

// Tensorizers returns the store of pooled tensorize converters.
func (s *Session) Tensorizers() *converters.Store { return s.tensorizers }

// Detensorizers returns the store of pooled detensorize converters.
func (s *Session) Detensorizers() *converters.Store { return s.detensorizers }

// NewAllocator returns a fresh allocator on the session's target.
func (s *Session) NewAllocator() execution.Allocator {
	if s.gpu != nil {
		return device.NewAllocator(s.gpu)
	}
	return execution.NewCPUAllocator()
}

// Close drops the pooled converters and their device resources. The
// session must be idle.
func (s *Session) Close() {
	s.tensorizers.Clear()
	s.detensorizers.Clear()
}

// Context is the per-call binding record: direction, the model-side
// descriptor, the property overrides, and the session to run against.
// It also holds converter leases whose release is deferred until the
// device work that references them has retired.
type Context struct {
	Direction  Direction
	Descriptor Descriptor
	Properties Properties
	Session    *Session

	mu     sync.Mutex
	leases []*converters.Lease
}

// AttachLease defers a lease's release to ReleaseConverter.
func (c *Context) AttachLease(l *converters.Lease) {
	c.mu.Lock()
	c.leases = append(c.leases, l)
	c.mu.Unlock()
}

// ReleaseConverter drains the device, recycles the deferred
// converters' scratch buffers, and returns them to their pools.
// Readback calls this when it finishes; input-only runs must call it
// once execution completes.
func (c *Context) ReleaseConverter() error {
	c.mu.Lock()
	leases := c.leases
	c.leases = nil
	c.mu.Unlock()

	if len(leases) == 0 {
		return nil
	}

	// Leases are deferred only on the device path; their scratch
	// buffers stay referenced until the queue drains.
	if c.Session != nil && c.Session.UsingGPU() {
		if err := c.Session.GPU().Sync(); err != nil {
			for _, l := range leases {
				l.Release()
			}
			return err
		}
	}

	for _, l := range leases {
		l.Resource().Detensorizer.ResetScratch()
		l.Release()
	}
	return nil
}
