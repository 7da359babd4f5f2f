// Copyright 2025 The TensorBind Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu exposes the WebGPU device used for GPU-side image
// conversion.
//
// Example:
//
//	if webgpu.IsAvailable() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//	    sess := binding.NewSession(gpu)
//	    // ...
//	}
package webgpu

import (
	"github.com/tensorbind/tensorbind/internal/device"
)

// GPU owns a WebGPU instance, adapter, device and queue.
type GPU = device.GPU

// Allocator allocates device-resident tensor values.
type Allocator = device.Allocator

// New initializes the WebGPU device. Call Release when done.
//
// Returns an error when no compatible adapter or native library is
// present.
func New() (*GPU, error) {
	return device.New()
}

// IsAvailable reports whether a WebGPU adapter can be initialized on
// this system.
func IsAvailable() bool {
	return device.IsAvailable()
}

// NewAllocator returns an allocator of device-resident tensors.
func NewAllocator(gpu *GPU) *Allocator {
	return device.NewAllocator(gpu)
}
