package imaging

import (
	"fmt"
	"unsafe"
)

// Frame is a single image, either a CPU bitmap or a GPU surface. The
// variant is resolved once at construction; callers use the shared
// capability set and only the conversion engines branch on residency.
type Frame struct {
	width  uint32
	height uint32
	format PixelFormat

	// CPU bitmap storage. nil when the frame is GPU-resident.
	pix    []byte
	stride int

	// Opaque device surface pointer (*wgpu.Buffer) for GPU frames.
	surface unsafe.Pointer
}

// NewFrame creates a CPU-resident frame with zeroed pixel storage.
func NewFrame(format PixelFormat, width, height uint32) (*Frame, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported pixel format %v", format)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("frame dimensions must be non-zero, got %dx%d", width, height)
	}

	stride := int(width) * format.BytesPerPixel()
	return &Frame{
		width:  width,
		height: height,
		format: format,
		pix:    make([]byte, stride*int(height)),
		stride: stride,
	}, nil
}

// NewFrameWithPixels creates a CPU-resident frame over an existing
// bitmap. The pixel slice is used directly, not copied.
func NewFrameWithPixels(format PixelFormat, width, height uint32, pix []byte) (*Frame, error) {
	f, err := NewFrame(format, width, height)
	if err != nil {
		return nil, err
	}
	if len(pix) != len(f.pix) {
		return nil, fmt.Errorf("pixel buffer is %d bytes, want %d", len(pix), len(f.pix))
	}
	f.pix = pix
	return f, nil
}

// NewSurfaceFrame creates a GPU-resident frame over an existing device
// surface. The surface pointer is an opaque *wgpu.Buffer handle holding
// row-major pixels in the given format.
func NewSurfaceFrame(format PixelFormat, width, height uint32, surface unsafe.Pointer) (*Frame, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported pixel format %v", format)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("frame dimensions must be non-zero, got %dx%d", width, height)
	}
	if surface == nil {
		return nil, fmt.Errorf("nil device surface")
	}

	return &Frame{
		width:   width,
		height:  height,
		format:  format,
		surface: surface,
	}, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() uint32 { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() uint32 { return f.height }

// Format returns the frame's pixel format.
func (f *Frame) Format() PixelFormat { return f.format }

// GPUResident reports whether the frame's pixels live on a device.
func (f *Frame) GPUResident() bool { return f.surface != nil }

// Surface returns the opaque device surface pointer, or nil for CPU frames.
func (f *Frame) Surface() unsafe.Pointer { return f.surface }

// Pixels returns the CPU bitmap bytes. Panics for GPU frames.
func (f *Frame) Pixels() []byte {
	if f.GPUResident() {
		panic("frame pixels are device-resident")
	}
	return f.pix
}

// Stride returns the CPU bitmap row stride in bytes.
func (f *Frame) Stride() int { return f.stride }

// ReadRegion copies the rectangle r out of a CPU frame into a tightly
// packed buffer (rows of r.Width pixels, no padding).
func (f *Frame) ReadRegion(r Rect) ([]byte, error) {
	if f.GPUResident() {
		return nil, fmt.Errorf("read region: frame is device-resident")
	}
	if !r.Within(f.width, f.height) {
		return nil, fmt.Errorf("read region %v outside %dx%d frame", r, f.width, f.height)
	}

	bpp := f.format.BytesPerPixel()
	rowBytes := int(r.Width) * bpp
	out := make([]byte, rowBytes*int(r.Height))
	for row := 0; row < int(r.Height); row++ {
		srcOff := (int(r.Y)+row)*f.stride + int(r.X)*bpp
		copy(out[row*rowBytes:(row+1)*rowBytes], f.pix[srcOff:srcOff+rowBytes])
	}
	return out, nil
}

// WriteRegion copies a tightly packed pixel buffer into the rectangle r
// of a CPU frame.
func (f *Frame) WriteRegion(r Rect, pix []byte) error {
	if f.GPUResident() {
		return fmt.Errorf("write region: frame is device-resident")
	}
	if !r.Within(f.width, f.height) {
		return fmt.Errorf("write region %v outside %dx%d frame", r, f.width, f.height)
	}

	bpp := f.format.BytesPerPixel()
	rowBytes := int(r.Width) * bpp
	if len(pix) != rowBytes*int(r.Height) {
		return fmt.Errorf("write region: buffer is %d bytes, want %d", len(pix), rowBytes*int(r.Height))
	}
	for row := 0; row < int(r.Height); row++ {
		dstOff := (int(r.Y)+row)*f.stride + int(r.X)*bpp
		copy(f.pix[dstOff:dstOff+rowBytes], pix[row*rowBytes:(row+1)*rowBytes])
	}
	return nil
}

// FullRect returns the rectangle covering the whole frame.
func (f *Frame) FullRect() Rect {
	return Rect{X: 0, Y: 0, Width: f.width, Height: f.height}
}
