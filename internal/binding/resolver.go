package binding

import (
	"fmt"
	"math"

	"github.com/tensorbind/tensorbind/internal/converters"
	"github.com/tensorbind/tensorbind/internal/imaging"
	"github.com/tensorbind/tensorbind/internal/tensor"
)

// Metadata is the resolved conversion plan for one binding call: the
// concrete NCHW description and one conversion rectangle per frame.
// It is computed fresh per call and never mutated afterwards.
type Metadata struct {
	Desc   converters.TensorDescription
	Bounds []imaging.Rect
}

// resolveMetadata turns the context's descriptor, the property
// overrides, and the batch's frame dimensions into a concrete plan.
//
// Outcomes are three-way: a plan, a soft decline (ErrNotApplicable,
// the descriptor is simply not image-shaped), or a hard failure (one
// of the other sentinels).
func resolveMetadata(ctx *Context, widths, heights []uint32) (*Metadata, error) {
	n := len(widths)
	if n == 0 || len(heights) != n {
		return nil, fmt.Errorf("%w: no frames to resolve against", ErrInvalidBinding)
	}

	var (
		dtype     tensor.DataType
		width     uint32
		height    uint32
		declared  imaging.PixelFormat
		hasFormat bool
		channels  int64
		err       error
	)

	switch d := ctx.Descriptor.(type) {
	case ImageDescriptor:
		dtype = d.DataType
		declared, hasFormat = d.Format, d.HasFormat
		if width, err = resolveAxis(d.Width, widths); err != nil {
			return nil, fmt.Errorf("width: %w", err)
		}
		if height, err = resolveAxis(d.Height, heights); err != nil {
			return nil, fmt.Errorf("height: %w", err)
		}

	case TensorDescriptor:
		if len(d.Shape) != 4 {
			return nil, fmt.Errorf("%w: rank %d tensor", ErrNotApplicable, len(d.Shape))
		}
		if c := d.Shape[1]; c != 1 && c != 3 {
			return nil, fmt.Errorf("%w: channel axis %d", ErrNotApplicable, c)
		}
		if b := d.Shape[0]; b != FreeAxis && b != int64(n) {
			return nil, fmt.Errorf("%w: descriptor batch axis %d, bound batch %d", ErrSizeMismatch, b, n)
		}
		dtype = d.DataType
		channels = d.Shape[1]
		if width, err = resolveTensorAxis(d.Shape[3], widths); err != nil {
			return nil, fmt.Errorf("width: %w", err)
		}
		if height, err = resolveTensorAxis(d.Shape[2], heights); err != nil {
			return nil, fmt.Errorf("height: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: descriptor %T", ErrNotApplicable, ctx.Descriptor)
	}

	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: element type %v", ErrUnsupportedConfig, dtype)
	}
	if ctx.Session != nil && ctx.Session.UsingGPU() && dtype == tensor.Float16 {
		return nil, fmt.Errorf("%w: %v tensors on the device path", ErrUnsupportedConfig, dtype)
	}

	format, err := resolveFormat(ctx.Properties, declared, hasFormat, channels)
	if err != nil {
		return nil, err
	}
	if channels != 0 && int64(format.Channels()) != channels {
		return nil, fmt.Errorf("%w: %v maps to %d tensor channels, descriptor declares %d",
			ErrSizeMismatch, format, format.Channels(), channels)
	}

	desc := converters.TensorDescription{
		DataType: dtype,
		Layout:   layoutFor(format),
		Sizes:    [4]int64{int64(n), int64(format.Channels()), int64(height), int64(width)},
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}

	bounds, err := resolveBounds(ctx, widths, heights, width, height)
	if err != nil {
		return nil, err
	}
	return &Metadata{Desc: desc, Bounds: bounds}, nil
}

// resolveAxis settles a declared axis against the per-frame values: a
// concrete declaration is authoritative, a free axis takes the common
// frame value and rejects a batch that disagrees.
func resolveAxis(declared uint32, frameVals []uint32) (uint32, error) {
	if declared != FreeDimension {
		if declared == 0 {
			return 0, fmt.Errorf("%w: declared axis size 0", ErrInvalidBinding)
		}
		return declared, nil
	}

	v := frameVals[0]
	for _, x := range frameVals[1:] {
		if x != v {
			return 0, fmt.Errorf("%w: free dimension is ambiguous across the batch (%d vs %d)", ErrInvalidBinding, v, x)
		}
	}
	return v, nil
}

// resolveTensorAxis settles a tensor descriptor spatial axis. FreeAxis
// defers to the frames; anything else must be a size that survives the
// uint32 conversion intact.
func resolveTensorAxis(v int64, frameVals []uint32) (uint32, error) {
	if v == FreeAxis {
		return resolveAxis(FreeDimension, frameVals)
	}
	if v < 0 || v >= math.MaxUint32 {
		return 0, fmt.Errorf("%w: tensor axis size %d", ErrInvalidBinding, v)
	}
	return resolveAxis(uint32(v), frameVals)
}

// resolveFormat applies the pixel-format precedence: property override
// first, then the descriptor's declared format, then inference from
// the tensor channel count.
func resolveFormat(props Properties, declared imaging.PixelFormat, hasDeclared bool, channels int64) (imaging.PixelFormat, error) {
	if override, ok, err := props.PixelFormat(); err != nil {
		return 0, err
	} else if ok {
		return override, nil
	}
	if hasDeclared {
		if !declared.Valid() {
			return 0, fmt.Errorf("%w: declared pixel format %d", ErrUnsupportedConfig, declared)
		}
		return declared, nil
	}
	switch channels {
	case 1:
		return imaging.Gray8, nil
	case 0, 3:
		// An image descriptor without a declared format (channels 0)
		// defaults like a 3-channel tensor.
		return imaging.BGRA8, nil
	default:
		return 0, fmt.Errorf("%w: no pixel format satisfies %d tensor channels", ErrSizeMismatch, channels)
	}
}

func layoutFor(format imaging.PixelFormat) converters.ChannelLayout {
	switch format {
	case imaging.RGBA8:
		return converters.LayoutRGB
	case imaging.Gray8:
		return converters.LayoutGray
	default:
		return converters.LayoutBGR
	}
}

// resolveBounds fixes one conversion rectangle per frame: an override
// applies to every frame and must fit each of them; otherwise inputs
// center-crop to the target aspect ratio and outputs cover the full
// frame.
func resolveBounds(ctx *Context, widths, heights []uint32, targetW, targetH uint32) ([]imaging.Rect, error) {
	bounds := make([]imaging.Rect, len(widths))

	if override, ok, err := ctx.Properties.Bounds(); err != nil {
		return nil, err
	} else if ok {
		for i := range bounds {
			if !override.Within(widths[i], heights[i]) {
				return nil, fmt.Errorf("%w: bounds override %v outside %dx%d frame %d",
					ErrInvalidBinding, override, widths[i], heights[i], i)
			}
			bounds[i] = override
		}
		return bounds, nil
	}

	for i := range bounds {
		if ctx.Direction == Input {
			r, err := CenterCrop(widths[i], heights[i], targetW, targetH)
			if err != nil {
				return nil, err
			}
			bounds[i] = r
		} else {
			bounds[i] = imaging.Rect{Width: widths[i], Height: heights[i]}
		}
	}
	return bounds, nil
}
