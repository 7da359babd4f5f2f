package converters

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/x448/float16"

	"github.com/tensorbind/tensorbind/internal/imaging"
	"github.com/tensorbind/tensorbind/internal/tensor"
)

var (
	_ Tensorizer   = (*softwareConverter)(nil)
	_ Detensorizer = (*softwareConverter)(nil)
)

// softwareConverter converts CPU frames to and from NCHW buffers. It
// samples nearest-neighbor between the crop region and the target
// size, normalizes to [0,1] and honors the description's channel
// order. It holds no resources beyond its scope, so leases can be
// released as each frame completes.
type softwareConverter struct {
	key Key
}

func (c *softwareConverter) ToSoftwareTensor(frame *imaging.Frame, bounds imaging.Rect, desc TensorDescription, dst []byte) error {
	if frame.GPUResident() {
		return fmt.Errorf("software tensorize: frame is device-resident")
	}
	if int64(len(dst)) != desc.FrameByteSize() {
		return fmt.Errorf("software tensorize: destination is %d bytes, want %d", len(dst), desc.FrameByteSize())
	}
	if !bounds.Within(frame.Width(), frame.Height()) {
		return fmt.Errorf("software tensorize: bounds %v outside %dx%d frame", bounds, frame.Width(), frame.Height())
	}

	region, err := frame.ReadRegion(bounds)
	if err != nil {
		return fmt.Errorf("software tensorize: %w", err)
	}

	dw := int(desc.Width())
	dh := int(desc.Height())
	plane := dw * dh
	bpp := frame.Format().BytesPerPixel()
	srcW := int(bounds.Width)

	for y := 0; y < dh; y++ {
		sy := int(bounds.Height) * y / dh
		for x := 0; x < dw; x++ {
			sx := srcW * x / dw
			r, g, b := samplePixel(region, (sy*srcW+sx)*bpp, frame.Format())

			idx := y*dw + x
			switch desc.Layout {
			case LayoutGray:
				putElement(dst, idx, luminance(r, g, b), desc.DataType)
			case LayoutBGR:
				putElement(dst, idx, b, desc.DataType)
				putElement(dst, plane+idx, g, desc.DataType)
				putElement(dst, 2*plane+idx, r, desc.DataType)
			case LayoutRGB:
				putElement(dst, idx, r, desc.DataType)
				putElement(dst, plane+idx, g, desc.DataType)
				putElement(dst, 2*plane+idx, b, desc.DataType)
			}
		}
	}
	return nil
}

func (c *softwareConverter) ToDeviceTensor(int, *imaging.Frame, imaging.Rect, TensorDescription, *wgpu.Buffer) error {
	return fmt.Errorf("software converter cannot target a device tensor")
}

func (c *softwareConverter) FromSoftwareTensor(src []byte, desc TensorDescription, frame *imaging.Frame) error {
	if frame.GPUResident() {
		return fmt.Errorf("software detensorize: frame is device-resident")
	}
	if int64(len(src)) != desc.FrameByteSize() {
		return fmt.Errorf("software detensorize: source is %d bytes, want %d", len(src), desc.FrameByteSize())
	}

	// Output is written into the top-left region, up to the frame's
	// own size.
	w := minU32(uint32(desc.Width()), frame.Width())
	h := minU32(uint32(desc.Height()), frame.Height())

	dw := int(desc.Width())
	plane := dw * int(desc.Height())
	bpp := frame.Format().BytesPerPixel()

	out := make([]byte, int(w)*int(h)*bpp)
	for y := 0; y < int(h); y++ {
		for x := 0; x < int(w); x++ {
			idx := y*dw + x

			var r, g, b float32
			switch desc.Layout {
			case LayoutGray:
				v := getElement(src, idx, desc.DataType)
				r, g, b = v, v, v
			case LayoutBGR:
				b = getElement(src, idx, desc.DataType)
				g = getElement(src, plane+idx, desc.DataType)
				r = getElement(src, 2*plane+idx, desc.DataType)
			case LayoutRGB:
				r = getElement(src, idx, desc.DataType)
				g = getElement(src, plane+idx, desc.DataType)
				b = getElement(src, 2*plane+idx, desc.DataType)
			}

			writePixel(out, (y*int(w)+x)*bpp, frame.Format(), r, g, b)
		}
	}

	if err := frame.WriteRegion(imaging.Rect{X: 0, Y: 0, Width: w, Height: h}, out); err != nil {
		return fmt.Errorf("software detensorize: %w", err)
	}
	return nil
}

func (c *softwareConverter) FromDeviceTensor(int, *wgpu.Buffer, TensorDescription, *imaging.Frame) error {
	return fmt.Errorf("software converter cannot read a device tensor")
}

func (c *softwareConverter) ResetScratch() {}

// samplePixel extracts a normalized r,g,b triple from packed pixels.
func samplePixel(pix []byte, off int, format imaging.PixelFormat) (r, g, b float32) {
	switch format {
	case imaging.BGRA8:
		return float32(pix[off+2]) / 255, float32(pix[off+1]) / 255, float32(pix[off]) / 255
	case imaging.RGBA8:
		return float32(pix[off]) / 255, float32(pix[off+1]) / 255, float32(pix[off+2]) / 255
	case imaging.Gray8:
		v := float32(pix[off]) / 255
		return v, v, v
	default:
		panic("unknown pixel format")
	}
}

// writePixel stores a normalized r,g,b triple as packed pixel bytes.
func writePixel(pix []byte, off int, format imaging.PixelFormat, r, g, b float32) {
	switch format {
	case imaging.BGRA8:
		pix[off] = quantize(b)
		pix[off+1] = quantize(g)
		pix[off+2] = quantize(r)
		pix[off+3] = 0xFF
	case imaging.RGBA8:
		pix[off] = quantize(r)
		pix[off+1] = quantize(g)
		pix[off+2] = quantize(b)
		pix[off+3] = 0xFF
	case imaging.Gray8:
		pix[off] = quantize(luminance(r, g, b))
	default:
		panic("unknown pixel format")
	}
}

// luminance is the BT.601 weighting used for gray tensors.
func luminance(r, g, b float32) float32 {
	return 0.299*r + 0.587*g + 0.114*b
}

func quantize(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xFF
	}
	return byte(v*255 + 0.5)
}

func putElement(dst []byte, idx int, v float32, dtype tensor.DataType) {
	switch dtype {
	case tensor.Float32:
		binary.LittleEndian.PutUint32(dst[idx*4:], math.Float32bits(v))
	case tensor.Float16:
		binary.LittleEndian.PutUint16(dst[idx*2:], float16.Fromfloat32(v).Bits())
	default:
		panic("unknown tensor data type")
	}
}

func getElement(src []byte, idx int, dtype tensor.DataType) float32 {
	switch dtype {
	case tensor.Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src[idx*4:]))
	case tensor.Float16:
		return float16.Frombits(binary.LittleEndian.Uint16(src[idx*2:])).Float32()
	default:
		panic("unknown tensor data type")
	}
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
