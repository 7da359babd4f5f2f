package binding

import (
	"fmt"

	"github.com/tensorbind/tensorbind/internal/imaging"
)

// Property keys recognized on a binding call. Unknown keys are
// ignored; a recognized key with the wrong type or value is an invalid
// binding.
const (
	// KeyPixelFormat overrides the resolved pixel format. Value must
	// be an imaging.PixelFormat.
	KeyPixelFormat = "PixelFormat"

	// KeyBounds overrides the per-frame conversion rectangle. Value
	// must be a [4]uint32 of x, y, width, height; it applies to every
	// frame in the batch.
	KeyBounds = "Bounds"
)

// Properties are per-call binding overrides.
type Properties map[string]any

// PixelFormat returns the format override, if present.
func (p Properties) PixelFormat() (imaging.PixelFormat, bool, error) {
	v, ok := p[KeyPixelFormat]
	if !ok {
		return 0, false, nil
	}
	format, ok := v.(imaging.PixelFormat)
	if !ok {
		return 0, false, fmt.Errorf("%w: property %q holds %T, want imaging.PixelFormat", ErrInvalidBinding, KeyPixelFormat, v)
	}
	if !format.Valid() {
		return 0, false, fmt.Errorf("%w: pixel format override %d is not a supported format", ErrUnsupportedConfig, format)
	}
	return format, true, nil
}

// Bounds returns the bounds override, if present.
func (p Properties) Bounds() (imaging.Rect, bool, error) {
	v, ok := p[KeyBounds]
	if !ok {
		return imaging.Rect{}, false, nil
	}
	vals, ok := v.([4]uint32)
	if !ok {
		return imaging.Rect{}, false, fmt.Errorf("%w: property %q holds %T, want [4]uint32", ErrInvalidBinding, KeyBounds, v)
	}
	r := imaging.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if r.Width == 0 || r.Height == 0 {
		return imaging.Rect{}, false, fmt.Errorf("%w: bounds override %v has a zero extent", ErrInvalidBinding, r)
	}
	return r, true, nil
}
