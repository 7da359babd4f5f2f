// Package binding resolves image batches against model input/output
// descriptors and drives the tensorize/detensorize engines: shape
// inference under free dimensions, center-crop policy, pixel-format
// precedence, and the per-call binding context.
package binding

import (
	"github.com/tensorbind/tensorbind/internal/imaging"
	"github.com/tensorbind/tensorbind/internal/tensor"
)

// FreeDimension marks an image descriptor axis whose size is taken
// from the bound frames.
const FreeDimension = ^uint32(0)

// FreeAxis marks a tensor descriptor axis whose size is taken from the
// bound frames (spatial axes) or the batch (batch axis).
const FreeAxis int64 = -1

// Direction says which way a binding moves data.
type Direction int

// Binding directions.
const (
	Input Direction = iota
	Output
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	if d == Input {
		return "Input"
	}
	return "Output"
}

// Descriptor declares the model-side slot an image batch binds to.
// The two concrete kinds mirror how models declare image inputs:
// either explicitly as an image, or as a bare NCHW tensor.
type Descriptor interface {
	// ElementType is the declared element type of the slot.
	ElementType() tensor.DataType

	isDescriptor()
}

// ImageDescriptor declares an image-typed slot: target width/height
// (FreeDimension for axes the frames decide) and, optionally, the
// pixel format the model was trained against.
type ImageDescriptor struct {
	Width  uint32
	Height uint32

	// Format is the declared pixel format; only meaningful when
	// HasFormat is set.
	Format    imaging.PixelFormat
	HasFormat bool

	DataType tensor.DataType
}

// ElementType returns the declared element type.
func (d ImageDescriptor) ElementType() tensor.DataType { return d.DataType }

func (ImageDescriptor) isDescriptor() {}

// TensorDescriptor declares a bare tensor slot. Image binding applies
// only when the shape is rank 4 with a channel axis of 1 or 3; other
// shapes are declined, not failed.
type TensorDescriptor struct {
	Shape    []int64
	DataType tensor.DataType
}

// ElementType returns the declared element type.
func (d TensorDescriptor) ElementType() tensor.DataType { return d.DataType }

func (TensorDescriptor) isDescriptor() {}
