package tensor

import (
	"fmt"
	"unsafe"
)

// Location identifies where a tensor's backing memory lives.
type Location int

// Supported memory locations.
const (
	CPU Location = iota
	GPU
)

// String returns a human-readable location name.
func (l Location) String() string {
	switch l {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// DeviceData references GPU-resident backing storage for a tensor.
// The pointer is an opaque handle to a device buffer (*wgpu.Buffer);
// only the device package dereferences it.
type DeviceData struct {
	ptr  unsafe.Pointer
	size uint64
}

// NewDeviceData wraps a device buffer pointer and its byte size.
func NewDeviceData(ptr unsafe.Pointer, size uint64) *DeviceData {
	return &DeviceData{ptr: ptr, size: size}
}

// Ptr returns the opaque device buffer pointer.
func (d *DeviceData) Ptr() unsafe.Pointer { return d.ptr }

// Size returns the device buffer size in bytes.
func (d *DeviceData) Size() uint64 { return d.size }

// RawTensor is the low-level tensor representation used for binding
// buffers. CPU tensors own a byte buffer; GPU tensors carry an opaque
// device buffer reference instead.
type RawTensor struct {
	data     []byte
	shape    Shape
	stride   []int
	dtype    DataType
	location Location
	device   *DeviceData
}

// NewRaw creates a new CPU RawTensor with the given shape and type.
// Memory is allocated zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()
	return &RawTensor{
		data:     make([]byte, byteSize),
		shape:    shape.Clone(),
		stride:   shape.ComputeStrides(),
		dtype:    dtype,
		location: CPU,
	}, nil
}

// NewDeviceRaw creates a RawTensor whose storage lives on a device.
// No CPU memory is allocated; Data and the typed views panic for
// device tensors.
func NewDeviceRaw(shape Shape, dtype DataType, device *DeviceData) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if device == nil {
		return nil, fmt.Errorf("nil device data")
	}

	return &RawTensor{
		shape:    shape.Clone(),
		stride:   shape.ComputeStrides(),
		dtype:    dtype,
		location: GPU,
		device:   device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Location returns where the tensor's memory lives.
func (r *RawTensor) Location() Location {
	return r.location
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice of a CPU tensor.
// Panics for device-resident tensors.
func (r *RawTensor) Data() []byte {
	if r.location != CPU {
		panic("tensor data is device-resident")
	}
	return r.data
}

// Device returns the device backing storage, or nil for CPU tensors.
func (r *RawTensor) Device() *DeviceData {
	return r.device
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), r.NumElements())
}

// AsFloat16 interprets the data as raw half-precision bits.
// Panics if the tensor's dtype is not Float16.
func (r *RawTensor) AsFloat16() []uint16 {
	if r.dtype != Float16 {
		panic(fmt.Sprintf("tensor dtype is %s, not float16", r.dtype))
	}
	data := r.Data()
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*uint16)(unsafe.Pointer(&data[0])), r.NumElements())
}

// String returns a human-readable representation of the tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", r.dtype, r.shape, r.location)
}
