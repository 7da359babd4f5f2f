// Package imaging provides the frame and batch primitives the binding
// pipeline converts to and from tensors.
package imaging

import "fmt"

// PixelFormat identifies the pixel layout of a frame.
type PixelFormat int

// The supported pixel formats.
const (
	BGRA8 PixelFormat = iota
	RGBA8
	Gray8
)

// Channels returns the number of tensor channels the format maps to.
func (f PixelFormat) Channels() int {
	switch f {
	case BGRA8, RGBA8:
		return 3
	case Gray8:
		return 1
	default:
		panic("unknown pixel format")
	}
}

// BytesPerPixel returns the per-pixel byte width of the format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case BGRA8, RGBA8:
		return 4
	case Gray8:
		return 1
	default:
		panic("unknown pixel format")
	}
}

// Valid reports whether f is one of the supported formats.
func (f PixelFormat) Valid() bool {
	return f == BGRA8 || f == RGBA8 || f == Gray8
}

// String returns a human-readable format name.
func (f PixelFormat) String() string {
	switch f {
	case BGRA8:
		return "Bgra8"
	case RGBA8:
		return "Rgba8"
	case Gray8:
		return "Gray8"
	default:
		return "Unknown"
	}
}

// Rect is a pixel rectangle within a frame.
type Rect struct {
	X, Y          uint32
	Width, Height uint32
}

// Within reports whether the rectangle lies entirely inside a
// width×height frame.
func (r Rect) Within(width, height uint32) bool {
	return r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= width && r.Y+r.Height <= height
}

// String returns a human-readable rectangle description.
func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
