// Copyright 2025 The TensorBind Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types of TensorBind: the
// element types, shapes and raw buffers that image conversions read
// and write.
package tensor

import (
	"github.com/tensorbind/tensorbind/internal/tensor"
)

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Supported element types.
const (
	Float32 DataType = tensor.Float32
	Float16 DataType = tensor.Float16
)

// Shape represents the dimensions of a tensor.
// Example: Shape{1, 3, 224, 224} is a single-image NCHW shape.
type Shape = tensor.Shape

// RawTensor is the low-level tensor buffer: bytes plus shape, strides,
// element type and memory location.
type RawTensor = tensor.RawTensor

// Location says where a tensor's bytes live.
type Location = tensor.Location

// Memory locations.
const (
	CPU Location = tensor.CPU
	GPU Location = tensor.GPU
)

// NewRaw allocates a zeroed CPU tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}
