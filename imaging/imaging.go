// Copyright 2025 The TensorBind Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package imaging provides the public image types of TensorBind:
// pixel formats, crop rectangles, frames (CPU bitmaps or GPU
// surfaces) and homogeneous frame batches.
package imaging

import (
	"unsafe"

	"github.com/tensorbind/tensorbind/internal/imaging"
)

// PixelFormat identifies a packed 8-bit pixel layout.
type PixelFormat = imaging.PixelFormat

// Supported pixel formats.
const (
	BGRA8 PixelFormat = imaging.BGRA8
	RGBA8 PixelFormat = imaging.RGBA8
	Gray8 PixelFormat = imaging.Gray8
)

// Rect is a pixel-space rectangle.
type Rect = imaging.Rect

// Frame is one image: a CPU bitmap or a GPU surface.
type Frame = imaging.Frame

// Batch is an ordered, residency-homogeneous collection of frames.
type Batch = imaging.Batch

// NewFrame allocates a zeroed CPU frame.
func NewFrame(format PixelFormat, width, height uint32) (*Frame, error) {
	return imaging.NewFrame(format, width, height)
}

// NewFrameWithPixels wraps existing packed pixel data as a CPU frame.
func NewFrameWithPixels(format PixelFormat, width, height uint32, pix []byte) (*Frame, error) {
	return imaging.NewFrameWithPixels(format, width, height, pix)
}

// NewSurfaceFrame wraps a device surface as a GPU-resident frame. The
// surface pointer must reference a wgpu storage buffer of
// width×height packed texels.
func NewSurfaceFrame(format PixelFormat, width, height uint32, surface unsafe.Pointer) (*Frame, error) {
	return imaging.NewSurfaceFrame(format, width, height, surface)
}

// NewBatch groups frames for one binding call. All frames must share
// residency and have non-zero dimensions.
func NewBatch(frames ...*Frame) (*Batch, error) {
	return imaging.NewBatch(frames...)
}
