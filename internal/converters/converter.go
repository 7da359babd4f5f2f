package converters

import (
	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tensorbind/tensorbind/internal/device"
	"github.com/tensorbind/tensorbind/internal/imaging"
)

// Key identifies a pooled converter: the pixel format and target size
// it converts through, and the device it targets. Adapter is empty for
// CPU-targeted converters, the GPU adapter identity otherwise.
type Key struct {
	Format  imaging.PixelFormat
	Width   int
	Height  int
	Adapter string
}

// Tensorizer converts a frame region into one batch slot of an NCHW
// tensor buffer.
type Tensorizer interface {
	// ToSoftwareTensor converts into a per-frame CPU byte slice.
	ToSoftwareTensor(frame *imaging.Frame, bounds imaging.Rect, desc TensorDescription, dst []byte) error
	// ToDeviceTensor submits a conversion targeting batch slot
	// batchIdx of a device-resident tensor buffer. Submission is
	// asynchronous; the converter's resources must stay checked out
	// until the queue work retires.
	ToDeviceTensor(batchIdx int, frame *imaging.Frame, bounds imaging.Rect, desc TensorDescription, dst *wgpu.Buffer) error
}

// Detensorizer converts one batch slot of an NCHW tensor back into a
// frame.
type Detensorizer interface {
	// FromSoftwareTensor reads a per-frame CPU byte slice into the frame.
	FromSoftwareTensor(src []byte, desc TensorDescription, frame *imaging.Frame) error
	// FromDeviceTensor converts batch slot batchIdx of a device
	// tensor buffer into the frame.
	FromDeviceTensor(batchIdx int, src *wgpu.Buffer, desc TensorDescription, frame *imaging.Frame) error
	// ResetScratch recycles the converter's internal buffers. Only
	// safe after the device work referencing them has drained.
	ResetScratch()
}

// Resource is one pooled converter entry: a tensorizer/detensorizer
// pair bound to a Key.
type Resource struct {
	Key          Key
	Tensorizer   Tensorizer
	Detensorizer Detensorizer

	close func()
}

// Close releases any device resources the entry holds. Called by the
// store when the pool itself is cleared, never by borrowers.
func (r *Resource) Close() {
	if r.close != nil {
		r.close()
	}
}

// NewResource builds the default converter entry for a key: a software
// converter for CPU-targeted keys, a device converter otherwise.
func NewResource(key Key, gpu *device.GPU) (*Resource, error) {
	if key.Adapter == "" {
		sc := &softwareConverter{key: key}
		return &Resource{Key: key, Tensorizer: sc, Detensorizer: sc}, nil
	}

	dc := newDeviceConverter(key, gpu)
	return &Resource{
		Key:          key,
		Tensorizer:   dc,
		Detensorizer: dc,
		close:        dc.release,
	}, nil
}
