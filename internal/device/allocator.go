package device

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tensorbind/tensorbind/internal/execution"
	"github.com/tensorbind/tensorbind/internal/tensor"
)

// Allocator allocates device-resident tensor storage. It implements
// execution.Allocator over wgpu storage buffers.
type Allocator struct {
	gpu *GPU

	mu      sync.Mutex
	freed   bool
	buffers []*wgpu.Buffer
}

// NewAllocator creates a device allocator.
func NewAllocator(gpu *GPU) *Allocator {
	return &Allocator{gpu: gpu}
}

// Alloc allocates a device storage buffer sized for the tensor and
// wraps it in a Value whose memory location names the adapter.
func (a *Allocator) Alloc(shape tensor.Shape, dtype tensor.DataType) (*execution.Value, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return nil, fmt.Errorf("allocator already freed")
	}

	byteSize := uint64(shape.NumElements() * dtype.Size())
	buffer := a.gpu.CreateEmptyBuffer(byteSize,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	a.buffers = append(a.buffers, buffer)

	raw, err := tensor.NewDeviceRaw(shape, dtype, tensor.NewDeviceData(unsafe.Pointer(buffer), byteSize))
	if err != nil {
		buffer.Release()
		return nil, fmt.Errorf("alloc device tensor: %w", err)
	}

	return execution.NewValue(raw, a.Location()), nil
}

// Location returns the device memory location.
func (a *Allocator) Location() execution.Location {
	return execution.Location{Kind: execution.LocationGPU, Name: a.gpu.AdapterID()}
}

// Free releases every buffer the allocator handed out. Outstanding
// conversions referencing them must have completed.
func (a *Allocator) Free() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return fmt.Errorf("allocator already freed")
	}
	a.freed = true

	for _, b := range a.buffers {
		b.Release()
	}
	a.buffers = nil
	return nil
}

// ResolveResource returns the wgpu buffer backing a device-resident
// value. This is the execution engine's resource-lookup capability for
// allocations it handed out.
func ResolveResource(v *execution.Value) (*wgpu.Buffer, error) {
	ptr := v.DeviceResource()
	if ptr == nil {
		return nil, fmt.Errorf("value has no device resource")
	}
	return (*wgpu.Buffer)(ptr), nil
}

// SurfaceBuffer returns the wgpu buffer behind an opaque frame surface
// pointer.
func SurfaceBuffer(surface unsafe.Pointer) *wgpu.Buffer {
	return (*wgpu.Buffer)(surface)
}
