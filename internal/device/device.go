// Package device wraps the WebGPU device used for GPU-side image
// conversion: adapter identity, buffer management, compute pipeline
// caching and the explicit device-drain primitive.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO bindings.
package device

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// GPU owns a WebGPU instance, adapter, device and queue. A nil *GPU
// means the session runs CPU-only.
type GPU struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfoGo

	// Fence buffer for Sync(): a staging readback of this buffer
	// retires all previously submitted queue work.
	fence *wgpu.Buffer
}

// New creates a new GPU device wrapper.
// Returns an error if WebGPU is not available or initialization fails.
func New() (g *GPU, err error) {
	// Recover from panic if the wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("device: native library not available: %v", r)
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return nil, fmt.Errorf("device: failed to create instance: %w", instErr)
	}

	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("device: failed to request adapter: %w", adapterErr)
	}

	// Info may be unavailable; AdapterID falls back to a generic name.
	adapterInfo, _ := adapter.GetInfo()

	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to request device: %w", deviceErr)
	}

	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("device: failed to get queue")
	}

	fence := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:  4,
	})

	return &GPU{
		instance:    instance,
		adapter:     adapter,
		device:      dev,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: adapterInfo,
		fence:       fence,
	}, nil
}

// IsAvailable checks if a WebGPU adapter is present on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// AdapterID returns a stable identity string for the GPU adapter. It is
// the device component of converter pool keys.
func (g *GPU) AdapterID() string {
	if g.adapterInfo != nil {
		return fmt.Sprintf("%s/%s", g.adapterInfo.Vendor, g.adapterInfo.Device)
	}
	return "webgpu"
}

// Device returns the underlying wgpu device.
func (g *GPU) Device() *wgpu.Device { return g.device }

// Queue returns the device's command queue.
func (g *GPU) Queue() *wgpu.Queue { return g.queue }

// Submit places command buffers on the device queue in program order.
func (g *GPU) Submit(cmds ...*wgpu.CommandBuffer) {
	g.queue.Submit(cmds...)
}

// Shader returns a cached compiled shader module, compiling it on
// first use.
func (g *GPU) Shader(name, code string) *wgpu.ShaderModule {
	g.mu.RLock()
	if shader, exists := g.shaders[name]; exists {
		g.mu.RUnlock()
		return shader
	}
	g.mu.RUnlock()

	shader := g.device.CreateShaderModuleWGSL(code)

	g.mu.Lock()
	g.shaders[name] = shader
	g.mu.Unlock()

	return shader
}

// Pipeline returns a cached compute pipeline for the named shader,
// creating it on first use.
func (g *GPU) Pipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	g.mu.RLock()
	if pipeline, exists := g.pipelines[name]; exists {
		g.mu.RUnlock()
		return pipeline
	}
	g.mu.RUnlock()

	pipeline := g.device.CreateComputePipelineSimple(nil, shader, "main")

	g.mu.Lock()
	g.pipelines[name] = pipeline
	g.mu.Unlock()

	return pipeline
}

// CreateBuffer creates a GPU buffer and uploads the given data.
func (g *GPU) CreateBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))

	buffer := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// CreateEmptyBuffer creates an uninitialized GPU buffer of the given size.
func (g *GPU) CreateEmptyBuffer(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	return g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// CreateUniformBuffer creates a uniform buffer with 16-byte alignment.
func (g *GPU) CreateUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// ReadBuffer copies a GPU buffer back to CPU memory through a staging
// buffer. Blocks until the copy (and all previously submitted queue
// work) has completed.
func (g *GPU) ReadBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := g.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	g.queue.Submit(cmdBuffer)

	err := stagingBuffer.MapAsync(g.device, wgpu.MapModeRead, 0, size)
	if err != nil {
		return nil, fmt.Errorf("device: failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)

	stagingBuffer.Unmap()

	return result, nil
}

// Sync blocks the calling thread until all work submitted to the queue
// so far has retired. Queue program order makes the fence readback
// complete only after every earlier submission.
func (g *GPU) Sync() error {
	_, err := g.ReadBuffer(g.fence, 4)
	if err != nil {
		return fmt.Errorf("device: sync: %w", err)
	}
	return nil
}

// Release releases all WebGPU resources owned by the wrapper.
func (g *GPU) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.pipelines {
		p.Release()
	}
	g.pipelines = nil

	for _, s := range g.shaders {
		s.Release()
	}
	g.shaders = nil

	if g.fence != nil {
		g.fence.Release()
		g.fence = nil
	}
	if g.queue != nil {
		g.queue.Release()
		g.queue = nil
	}
	if g.device != nil {
		g.device.Release()
		g.device = nil
	}
	if g.adapter != nil {
		g.adapter.Release()
		g.adapter = nil
	}
	if g.instance != nil {
		g.instance.Release()
		g.instance = nil
	}
}
