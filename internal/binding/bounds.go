package binding

import (
	"fmt"

	"github.com/tensorbind/tensorbind/internal/imaging"
)

// CenterCrop computes the largest centered sub-rectangle of a
// frameW×frameH frame with the targetW:targetH aspect ratio. One axis
// keeps the full frame extent; the other is scaled by the target ratio
// with round-half-up, clamped to the frame, and centered with the
// remainder split by integer halving (the odd pixel goes to the
// right/bottom).
func CenterCrop(frameW, frameH, targetW, targetH uint32) (imaging.Rect, error) {
	if frameW == 0 || frameH == 0 || targetW == 0 || targetH == 0 {
		return imaging.Rect{}, fmt.Errorf("%w: center crop with zero extent (frame %dx%d, target %dx%d)",
			ErrInvalidBinding, frameW, frameH, targetW, targetH)
	}

	ratio := float32(targetW) / float32(targetH)

	var r imaging.Rect
	if ratio*float32(frameH) < float32(frameW) {
		// Frame is too wide: cut off left and right.
		r.Width = minU32(uint32(ratio*float32(frameH)+0.5), frameW)
		r.Height = frameH
		r.X = (frameW - r.Width) / 2
	} else {
		// Frame is too tall: cut off top and bottom.
		r.Width = frameW
		r.Height = minU32(uint32(float32(frameW)/ratio+0.5), frameH)
		r.Y = (frameH - r.Height) / 2
	}

	if !r.Within(frameW, frameH) {
		return imaging.Rect{}, fmt.Errorf("%w: center crop %v escapes %dx%d frame", ErrInvalidBinding, r, frameW, frameH)
	}
	return r, nil
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
