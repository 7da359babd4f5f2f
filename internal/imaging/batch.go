package imaging

import "fmt"

// Batch is an ordered, non-empty sequence of frames. Insertion order is
// batch order. Per-frame dimensions are captured once at construction
// so metadata resolution never re-queries frames.
type Batch struct {
	frames  []*Frame
	widths  []uint32
	heights []uint32
	gpu     bool
}

// NewBatch builds a batch from the given frames. The batch must be
// non-empty, every frame must have non-zero dimensions, and all frames
// must share the same residency (all CPU bitmaps or all GPU surfaces).
func NewBatch(frames ...*Frame) (*Batch, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("batch must contain at least one frame")
	}

	b := &Batch{
		frames:  frames,
		widths:  make([]uint32, len(frames)),
		heights: make([]uint32, len(frames)),
	}
	for i, f := range frames {
		if f == nil {
			return nil, fmt.Errorf("frame %d is nil", i)
		}
		if i == 0 {
			b.gpu = f.GPUResident()
		}
		if f.Width() == 0 || f.Height() == 0 {
			return nil, fmt.Errorf("frame %d has zero dimension %dx%d", i, f.Width(), f.Height())
		}
		if f.GPUResident() != b.gpu {
			return nil, fmt.Errorf("frame %d mixes CPU and GPU residency within one batch", i)
		}
		b.widths[i] = f.Width()
		b.heights[i] = f.Height()
	}
	return b, nil
}

// Len returns the batch size.
func (b *Batch) Len() int { return len(b.frames) }

// Frame returns the frame at batch index i.
func (b *Batch) Frame(i int) *Frame { return b.frames[i] }

// Frames returns the frames in batch order.
func (b *Batch) Frames() []*Frame { return b.frames }

// Widths returns the per-frame widths, parallel to the frame order.
func (b *Batch) Widths() []uint32 { return b.widths }

// Heights returns the per-frame heights, parallel to the frame order.
func (b *Batch) Heights() []uint32 { return b.heights }

// GPUResident reports whether the batch's frames live on a device.
func (b *Batch) GPUResident() bool { return b.gpu }
