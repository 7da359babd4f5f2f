// Package converters provides the pooled image-tensor conversion
// resources: a keyed store with scoped checkout, a software converter
// and a WebGPU device converter.
package converters

import (
	"fmt"

	"github.com/tensorbind/tensorbind/internal/tensor"
)

// ChannelLayout is the channel order of an image tensor's planes.
type ChannelLayout int

// Supported channel layouts.
const (
	LayoutBGR ChannelLayout = iota
	LayoutRGB
	LayoutGray
)

// String returns a human-readable layout name.
func (l ChannelLayout) String() string {
	switch l {
	case LayoutBGR:
		return "BGR"
	case LayoutRGB:
		return "RGB"
	case LayoutGray:
		return "Gray"
	default:
		return "Unknown"
	}
}

// TensorDescription describes the fixed NCHW layout of an image
// tensor: element type, channel order and the four axis sizes. It is
// produced fresh per bind call and never mutated afterwards.
type TensorDescription struct {
	DataType tensor.DataType
	Layout   ChannelLayout
	Sizes    [4]int64 // batch, channels, height, width
}

// Batch returns the batch axis size.
func (d TensorDescription) Batch() int64 { return d.Sizes[0] }

// Channels returns the channel axis size.
func (d TensorDescription) Channels() int64 { return d.Sizes[1] }

// Height returns the height axis size.
func (d TensorDescription) Height() int64 { return d.Sizes[2] }

// Width returns the width axis size.
func (d TensorDescription) Width() int64 { return d.Sizes[3] }

// Shape returns the NCHW sizes as a tensor shape.
func (d TensorDescription) Shape() tensor.Shape {
	return tensor.Shape{int(d.Sizes[0]), int(d.Sizes[1]), int(d.Sizes[2]), int(d.Sizes[3])}
}

// ByteSize returns the total buffer size in bytes.
func (d TensorDescription) ByteSize() int64 {
	n := int64(1)
	for _, s := range d.Sizes {
		n *= s
	}
	return n * int64(d.DataType.Size())
}

// FrameByteSize returns the per-frame slice of the buffer. The batch
// axis always divides the total exactly.
func (d TensorDescription) FrameByteSize() int64 {
	return d.ByteSize() / d.Sizes[0]
}

// Validate checks the description is internally consistent.
func (d TensorDescription) Validate() error {
	if !d.DataType.Valid() {
		return fmt.Errorf("unsupported tensor data type %v", d.DataType)
	}
	for i, s := range d.Sizes {
		if s <= 0 {
			return fmt.Errorf("tensor axis %d has non-positive size %d", i, s)
		}
	}
	if d.Sizes[1] != 1 && d.Sizes[1] != 3 {
		return fmt.Errorf("tensor channel axis must be 1 or 3, got %d", d.Sizes[1])
	}
	return nil
}
