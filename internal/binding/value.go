package binding

import (
	"fmt"
	"sync"

	"github.com/tensorbind/tensorbind/internal/engine"
	"github.com/tensorbind/tensorbind/internal/execution"
	"github.com/tensorbind/tensorbind/internal/imaging"
)

// ImageValue binds a batch of frames to a model input or output slot.
// It owns every tensor allocation its Bind calls make; Close frees
// them.
type ImageValue struct {
	batch *imaging.Batch

	mu         sync.Mutex
	allocators []execution.Allocator
	closed     bool
}

// NewImageValue wraps a single frame.
func NewImageValue(frame *imaging.Frame) (*ImageValue, error) {
	return NewImageValueBatch(frame)
}

// NewImageValueBatch wraps an ordered, residency-homogeneous batch of
// frames.
func NewImageValueBatch(frames ...*imaging.Frame) (*ImageValue, error) {
	batch, err := imaging.NewBatch(frames...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	return &ImageValue{batch: batch}, nil
}

// NewImageValuePlaceholder fabricates a batch of blank CPU frames,
// typically to receive a model output.
func NewImageValuePlaceholder(batchSize int, format imaging.PixelFormat, width, height uint32) (*ImageValue, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", ErrInvalidBinding, batchSize)
	}
	frames := make([]*imaging.Frame, batchSize)
	for i := range frames {
		f, err := imaging.NewFrame(format, width, height)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
		}
		frames[i] = f
	}
	return NewImageValueBatch(frames...)
}

// Frames returns the bound frames in batch order.
func (v *ImageValue) Frames() []*imaging.Frame { return v.batch.Frames() }

// Frame returns the first bound frame.
func (v *ImageValue) Frame() *imaging.Frame { return v.batch.Frame(0) }

// Batch reports whether more than one frame is bound.
func (v *ImageValue) Batch() bool { return v.batch.Len() > 1 }

// Bind resolves the context's descriptor against the batch, allocates
// the tensor on the session's target, and, for input bindings, fills
// it from the frames. Output bindings get an empty allocation for the
// model to write into.
//
// A descriptor that is not image-shaped declines with ErrNotApplicable
// so the caller can bind another way.
func (v *ImageValue) Bind(ctx *Context) (*execution.Value, error) {
	meta, err := resolveMetadata(ctx, v.batch.Widths(), v.batch.Heights())
	if err != nil {
		return nil, err
	}
	if v.batch.GPUResident() && !ctx.Session.UsingGPU() {
		return nil, fmt.Errorf("%w: device-resident frames on a CPU session", ErrInvalidBinding)
	}

	alloc := ctx.Session.NewAllocator()
	val, err := alloc.Alloc(meta.Desc.Shape(), meta.Desc.DataType)
	if err != nil {
		alloc.Free()
		return nil, fmt.Errorf("%w: allocate %v: %v", ErrInvalidBinding, meta.Desc.Shape(), err)
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		alloc.Free()
		return nil, fmt.Errorf("%w: value is closed", ErrInvalidBinding)
	}
	v.allocators = append(v.allocators, alloc)
	v.mu.Unlock()

	if ctx.Direction == Input {
		err := engine.Tensorize(v.batch, meta.Bounds, meta.Desc, val,
			ctx.Session.Tensorizers(), ctx.Session.GPU(), ctx)
		if err != nil {
			return nil, err
		}
	}
	return val, nil
}

// ReadBack converts a model-written allocation back into the bound
// frames, choosing the conversion path by where the allocation lives,
// and returns the context's deferred converters to their pools.
func (v *ImageValue) ReadBack(ctx *Context, val *execution.Value) error {
	meta, err := resolveMetadata(ctx, v.batch.Widths(), v.batch.Heights())
	if err != nil {
		return err
	}

	err = engine.Detensorize(val, meta.Desc, v.batch,
		ctx.Session.Detensorizers(), ctx.Session.GPU(), ctx)
	relErr := ctx.ReleaseConverter()
	if err != nil {
		return err
	}
	return relErr
}

// Close frees every allocation made through this value. Safe to call
// more than once.
func (v *ImageValue) Close() error {
	v.mu.Lock()
	allocators := v.allocators
	v.allocators = nil
	v.closed = true
	v.mu.Unlock()

	var first error
	for _, a := range allocators {
		if err := a.Free(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
