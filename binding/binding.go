// Copyright 2025 The TensorBind Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package binding is the public API for binding image batches to model
// input and output tensors.
//
// Example:
//
//	import (
//	    "github.com/tensorbind/tensorbind/binding"
//	    "github.com/tensorbind/tensorbind/imaging"
//	)
//
//	func main() {
//	    sess := binding.NewSession(nil) // CPU-only
//	    frame, _ := imaging.NewFrame(imaging.BGRA8, 640, 480)
//	    value, _ := binding.NewImageValue(frame)
//	    defer value.Close()
//
//	    input, err := value.Bind(&binding.Context{
//	        Direction: binding.Input,
//	        Descriptor: binding.TensorDescriptor{
//	            Shape:    []int64{1, 3, 224, 224},
//	            DataType: tensor.Float32,
//	        },
//	        Session: sess,
//	    })
//	    // feed input to the model run...
//	}
package binding

import (
	"github.com/tensorbind/tensorbind/internal/binding"
	"github.com/tensorbind/tensorbind/internal/device"
	"github.com/tensorbind/tensorbind/internal/execution"
	"github.com/tensorbind/tensorbind/internal/imaging"
)

// Binding failure categories, matched with errors.Is.
var (
	ErrInvalidBinding    = binding.ErrInvalidBinding
	ErrUnsupportedConfig = binding.ErrUnsupportedConfig
	ErrSizeMismatch      = binding.ErrSizeMismatch
	ErrNotApplicable     = binding.ErrNotApplicable
)

// Direction says which way a binding moves data.
type Direction = binding.Direction

// Binding directions.
const (
	Input  Direction = binding.Input
	Output Direction = binding.Output
)

// FreeDimension marks an image descriptor axis sized by the frames.
const FreeDimension = binding.FreeDimension

// FreeAxis marks a tensor descriptor axis sized by the frames or the
// batch.
const FreeAxis = binding.FreeAxis

// Descriptor declares the model-side slot an image batch binds to.
type Descriptor = binding.Descriptor

// ImageDescriptor declares an image-typed slot.
type ImageDescriptor = binding.ImageDescriptor

// TensorDescriptor declares a bare NCHW tensor slot.
type TensorDescriptor = binding.TensorDescriptor

// Properties are per-call binding overrides.
type Properties = binding.Properties

// Recognized property keys.
const (
	KeyPixelFormat = binding.KeyPixelFormat
	KeyBounds      = binding.KeyBounds
)

// Session owns the shared binding resources: device, converter pools
// and allocators.
type Session = binding.Session

// Context is the per-call binding record.
type Context = binding.Context

// ImageValue binds a batch of frames to a model slot.
type ImageValue = binding.ImageValue

// Value is a bound tensor allocation.
type Value = execution.Value

// NewSession creates a session over the given device; nil runs
// CPU-only.
func NewSession(gpu *device.GPU) *Session {
	return binding.NewSession(gpu)
}

// NewImageValue wraps a single frame.
func NewImageValue(frame *imaging.Frame) (*ImageValue, error) {
	return binding.NewImageValue(frame)
}

// NewImageValueBatch wraps an ordered batch of frames.
func NewImageValueBatch(frames ...*imaging.Frame) (*ImageValue, error) {
	return binding.NewImageValueBatch(frames...)
}

// NewImageValuePlaceholder fabricates blank CPU frames, typically to
// receive a model output.
func NewImageValuePlaceholder(batchSize int, format imaging.PixelFormat, width, height uint32) (*ImageValue, error) {
	return binding.NewImageValuePlaceholder(batchSize, format, width, height)
}

// CenterCrop computes the centered crop of a frame with the target
// aspect ratio, the policy input bindings apply by default.
func CenterCrop(frameW, frameH, targetW, targetH uint32) (imaging.Rect, error) {
	return binding.CenterCrop(frameW, frameH, targetW, targetH)
}
