// Package execution abstracts the tensor allocation surface of the
// model-execution engine. The engine itself is an external
// collaborator; binding only allocates tensors, touches their memory,
// and asks where that memory lives.
package execution

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/tensorbind/tensorbind/internal/tensor"
)

// LocationKind classifies a tensor's backing memory.
type LocationKind int

// Supported memory kinds.
const (
	LocationCPU LocationKind = iota
	LocationGPU
)

// Location describes where a tensor allocation lives.
type Location struct {
	Kind LocationKind
	Name string
}

// CPULocation is the location reported for host allocations.
var CPULocation = Location{Kind: LocationCPU, Name: "Cpu"}

// Value is a tensor handle produced by an Allocator. It is owned by
// exactly one binding value and is only valid until that owner frees
// the allocator.
type Value struct {
	raw *tensor.RawTensor
	loc Location
}

// NewValue wraps an allocated raw tensor with its memory location.
func NewValue(raw *tensor.RawTensor, loc Location) *Value {
	return &Value{raw: raw, loc: loc}
}

// Raw returns the underlying raw tensor.
func (v *Value) Raw() *tensor.RawTensor { return v.raw }

// Location returns where the value's memory lives.
func (v *Value) Location() Location { return v.loc }

// MutableData returns the writable byte buffer of a CPU-resident value.
func (v *Value) MutableData() ([]byte, error) {
	if v.loc.Kind != LocationCPU {
		return nil, fmt.Errorf("tensor memory is %s-resident", v.raw.Location())
	}
	return v.raw.Data(), nil
}

// DeviceResource returns the opaque device buffer pointer of a
// GPU-resident value, or nil for CPU values.
func (v *Value) DeviceResource() unsafe.Pointer {
	if d := v.raw.Device(); d != nil {
		return d.Ptr()
	}
	return nil
}

// Allocator hands out tensor allocations in one memory location. It is
// owned by the binding value that requested it and freed exactly once
// at teardown, after outstanding conversions have completed.
type Allocator interface {
	Alloc(shape tensor.Shape, dtype tensor.DataType) (*Value, error)
	Location() Location
	Free() error
}

// CPUAllocator allocates host tensors.
type CPUAllocator struct {
	mu     sync.Mutex
	freed  bool
	values []*Value
}

// NewCPUAllocator creates an allocator for host memory.
func NewCPUAllocator() *CPUAllocator {
	return &CPUAllocator{}
}

// Alloc allocates a zeroed host tensor.
func (a *CPUAllocator) Alloc(shape tensor.Shape, dtype tensor.DataType) (*Value, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return nil, fmt.Errorf("allocator already freed")
	}

	raw, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("alloc tensor: %w", err)
	}
	v := NewValue(raw, CPULocation)
	a.values = append(a.values, v)
	return v, nil
}

// Location returns the host location.
func (a *CPUAllocator) Location() Location { return CPULocation }

// Free releases the allocator. Host memory is garbage collected; Free
// only marks the allocator unusable so double-free is observable.
func (a *CPUAllocator) Free() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return fmt.Errorf("allocator already freed")
	}
	a.freed = true
	a.values = nil
	return nil
}
