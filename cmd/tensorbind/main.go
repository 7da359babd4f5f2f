// Package main provides the TensorBind CLI.
package main

import (
	"fmt"
	"os"

	"github.com/tensorbind/tensorbind/device/webgpu"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("TensorBind %s\n", version)
			return
		case "gpu":
			probeGPU()
			return
		}
	}

	fmt.Println("TensorBind - Image/Tensor Binding for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  gpu        Probe the WebGPU adapter")
}

func probeGPU() {
	if !webgpu.IsAvailable() {
		fmt.Println("WebGPU: no adapter available, conversions run on the CPU")
		return
	}

	gpu, err := webgpu.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "WebGPU: initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer gpu.Release()

	fmt.Printf("WebGPU: %s\n", gpu.AdapterID())
}
