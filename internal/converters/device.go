package converters

import (
	"encoding/binary"
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tensorbind/tensorbind/internal/device"
	"github.com/tensorbind/tensorbind/internal/imaging"
	"github.com/tensorbind/tensorbind/internal/tensor"
)

// Each converter serves both directions of its pool key.
var (
	_ Tensorizer   = (*deviceConverter)(nil)
	_ Detensorizer = (*deviceConverter)(nil)
)

// deviceConverter runs tensorize/detensorize as WebGPU compute passes.
// Conversions are submitted asynchronously; the scratch allocator keeps
// staging and uniform buffers alive until ResetScratch, which callers
// run after draining the device.
type deviceConverter struct {
	key     Key
	gpu     *device.GPU
	scratch *device.Scratch
}

func newDeviceConverter(key Key, gpu *device.GPU) *deviceConverter {
	return &deviceConverter{key: key, gpu: gpu, scratch: device.NewScratch(gpu)}
}

// tensorizeParams mirrors the Params uniform block of tensorizeShader.
type tensorizeParams struct {
	srcWidth uint32
	cropX    uint32
	cropY    uint32
	cropW    uint32
	cropH    uint32
	dstW     uint32
	dstH     uint32
	channels uint32
	batchIdx uint32
	layout   uint32
	srcRGBA  uint32
}

func (c *deviceConverter) ToDeviceTensor(batchIdx int, frame *imaging.Frame, bounds imaging.Rect, desc TensorDescription, dst *wgpu.Buffer) error {
	if desc.DataType != tensor.Float32 {
		return fmt.Errorf("device tensorize: unsupported data type %v", desc.DataType)
	}
	if !bounds.Within(frame.Width(), frame.Height()) {
		return fmt.Errorf("device tensorize: bounds %v outside %dx%d frame", bounds, frame.Width(), frame.Height())
	}

	params := tensorizeParams{
		cropW:    bounds.Width,
		cropH:    bounds.Height,
		dstW:     uint32(desc.Width()),
		dstH:     uint32(desc.Height()),
		channels: uint32(desc.Channels()),
		batchIdx: uint32(batchIdx),
		layout:   uint32(desc.Layout),
	}
	if frame.Format() == imaging.RGBA8 {
		params.srcRGBA = 1
	}

	var src *wgpu.Buffer
	var srcSize uint64
	if frame.GPUResident() {
		if frame.Format().BytesPerPixel() != 4 {
			return fmt.Errorf("device tensorize: %v surfaces are not supported", frame.Format())
		}
		src = device.SurfaceBuffer(frame.Surface())
		srcSize = uint64(frame.Width()) * uint64(frame.Height()) * 4
		params.srcWidth = frame.Width()
		params.cropX = bounds.X
		params.cropY = bounds.Y
	} else {
		// CPU-resident frames upload only the crop region, packed
		// to 4 bytes per pixel so the shader indexes u32 texels.
		region, err := frame.ReadRegion(bounds)
		if err != nil {
			return fmt.Errorf("device tensorize: %w", err)
		}
		texels := packTexels(region, frame.Format())
		src = c.scratch.Upload(texels, wgpu.BufferUsageStorage)
		srcSize = uint64(len(texels))
		params.srcWidth = bounds.Width
	}

	plane := uint32(desc.Width()) * uint32(desc.Height())
	c.dispatch("tensorize", tensorizeShader, src, srcSize, dst, uint64(desc.ByteSize()), params.encode(), plane)
	return nil
}

// detensorizeParams mirrors the Params uniform block of detensorizeShader.
type detensorizeParams struct {
	frameWidth uint32
	outW       uint32
	outH       uint32
	tensorW    uint32
	tensorH    uint32
	channels   uint32
	batchIdx   uint32
	layout     uint32
	dstRGBA    uint32
}

func (c *deviceConverter) FromDeviceTensor(batchIdx int, src *wgpu.Buffer, desc TensorDescription, frame *imaging.Frame) error {
	if desc.DataType != tensor.Float32 {
		return fmt.Errorf("device detensorize: unsupported data type %v", desc.DataType)
	}

	outW := minU32(uint32(desc.Width()), frame.Width())
	outH := minU32(uint32(desc.Height()), frame.Height())

	params := detensorizeParams{
		outW:     outW,
		outH:     outH,
		tensorW:  uint32(desc.Width()),
		tensorH:  uint32(desc.Height()),
		channels: uint32(desc.Channels()),
		batchIdx: uint32(batchIdx),
		layout:   uint32(desc.Layout),
	}
	switch frame.Format() {
	case imaging.RGBA8:
		params.dstRGBA = 1
	case imaging.Gray8:
		params.dstRGBA = 2
	}

	if frame.GPUResident() {
		if frame.Format().BytesPerPixel() != 4 {
			return fmt.Errorf("device detensorize: %v surfaces are not supported", frame.Format())
		}
		params.frameWidth = frame.Width()
		dst := device.SurfaceBuffer(frame.Surface())
		c.dispatch("detensorize", detensorizeShader, src, uint64(desc.ByteSize()), dst, uint64(frame.Width())*uint64(frame.Height())*4, params.encode(), outW*outH)
		return nil
	}

	// CPU-resident frames go through a scratch pixel buffer that is
	// read back synchronously and unpacked into the frame.
	params.frameWidth = outW
	dstSize := uint64(outW) * uint64(outH) * 4
	dst := c.scratch.Acquire(dstSize, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	c.dispatch("detensorize", detensorizeShader, src, uint64(desc.ByteSize()), dst, dstSize, params.encode(), outW*outH)

	texels, err := c.gpu.ReadBuffer(dst, dstSize)
	if err != nil {
		return fmt.Errorf("device detensorize: %w", err)
	}
	return frame.WriteRegion(imaging.Rect{Width: outW, Height: outH}, unpackTexels(texels, frame.Format()))
}

func (c *deviceConverter) ToSoftwareTensor(*imaging.Frame, imaging.Rect, TensorDescription, []byte) error {
	return fmt.Errorf("device converter cannot target a software tensor")
}

func (c *deviceConverter) FromSoftwareTensor([]byte, TensorDescription, *imaging.Frame) error {
	return fmt.Errorf("device converter cannot read a software tensor")
}

// ResetScratch recycles the staging and uniform buffers used since the
// last reset. Callers must have drained the device first.
func (c *deviceConverter) ResetScratch() {
	c.scratch.Reset()
}

func (c *deviceConverter) release() {
	c.scratch.Clear()
}

// dispatch records and submits one compute pass over the cached
// pipeline for the named shader.
func (c *deviceConverter) dispatch(name, code string, src *wgpu.Buffer, srcSize uint64, dst *wgpu.Buffer, dstSize uint64, params []byte, elems uint32) {
	shader := c.gpu.Shader(name, code)
	pipeline := c.gpu.Pipeline(name, shader)

	uniform := c.gpu.CreateUniformBuffer(params)
	c.scratch.Adopt(uniform, uint64((len(params)+15)&^15), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)

	layout := pipeline.GetBindGroupLayout(0)
	bindGroup := c.gpu.Device().CreateBindGroupSimple(layout,
		[]wgpu.BindGroupEntry{
			wgpu.BufferBindingEntry(0, src, 0, srcSize),
			wgpu.BufferBindingEntry(1, dst, 0, dstSize),
			wgpu.BufferBindingEntry(2, uniform, 0, uint64((len(params)+15)&^15)),
		})
	defer bindGroup.Release()

	encoder := c.gpu.Device().CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups((elems+workgroupSize-1)/workgroupSize, 1, 1)
	pass.End()

	c.gpu.Submit(encoder.Finish(nil))
}

func (p tensorizeParams) encode() []byte {
	return encodeU32(p.srcWidth, p.cropX, p.cropY, p.cropW, p.cropH,
		p.dstW, p.dstH, p.channels, p.batchIdx, p.layout, p.srcRGBA, 0)
}

func (p detensorizeParams) encode() []byte {
	return encodeU32(p.frameWidth, p.outW, p.outH, p.tensorW, p.tensorH,
		p.channels, p.batchIdx, p.layout, p.dstRGBA, 0, 0, 0)
}

func encodeU32(vs ...uint32) []byte {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// packTexels widens a packed region to one u32 texel per pixel in the
// source byte order the shaders expect. 4-byte formats pass through.
func packTexels(region []byte, format imaging.PixelFormat) []byte {
	if format.BytesPerPixel() == 4 {
		return region
	}
	// Gray8: replicate into the low three bytes so the luminance
	// weights sum back to the original value.
	out := make([]byte, len(region)*4)
	for i, v := range region {
		out[i*4] = v
		out[i*4+1] = v
		out[i*4+2] = v
		out[i*4+3] = 0xFF
	}
	return out
}

// unpackTexels narrows u32 texels back to the frame's packed layout.
func unpackTexels(texels []byte, format imaging.PixelFormat) []byte {
	if format.BytesPerPixel() == 4 {
		return texels
	}
	out := make([]byte, len(texels)/4)
	for i := range out {
		out[i] = texels[i*4]
	}
	return out
}
