// Package engine moves pixel data between image batches and tensor
// allocations, selecting the software or device conversion path by the
// allocation's own memory location.
package engine

import (
	"fmt"

	"github.com/tensorbind/tensorbind/internal/converters"
	"github.com/tensorbind/tensorbind/internal/device"
	"github.com/tensorbind/tensorbind/internal/execution"
	"github.com/tensorbind/tensorbind/internal/imaging"
)

// Tensorize converts every frame of the batch into its slot of the
// destination allocation, in batch order.
//
// The software path is synchronous: each converter lease is released
// as its frame completes. The device path submits asynchronously and
// attaches every lease to the sink, so the converters stay checked out
// until the caller drains the device and releases them.
func Tensorize(batch *imaging.Batch, meta []imaging.Rect, desc converters.TensorDescription,
	dst *execution.Value, store *converters.Store, gpu *device.GPU, sink converters.LeaseSink) error {

	if len(meta) != batch.Len() {
		return fmt.Errorf("tensorize: %d bounds for %d frames", len(meta), batch.Len())
	}

	if dst.Location().Kind == execution.LocationCPU {
		return tensorizeSoftware(batch, meta, desc, dst, store)
	}
	return tensorizeDevice(batch, meta, desc, dst, store, gpu, sink)
}

func tensorizeSoftware(batch *imaging.Batch, meta []imaging.Rect, desc converters.TensorDescription,
	dst *execution.Value, store *converters.Store) error {

	buf, err := dst.MutableData()
	if err != nil {
		return fmt.Errorf("tensorize: %w", err)
	}
	stride := desc.FrameByteSize()

	for i, frame := range batch.Frames() {
		lease, err := store.Fetch(softwareKey(desc))
		if err != nil {
			return fmt.Errorf("tensorize frame %d: %w", i, err)
		}

		err = lease.Resource().Tensorizer.ToSoftwareTensor(frame, meta[i], desc, buf[int64(i)*stride:int64(i+1)*stride])
		lease.Release()
		if err != nil {
			return fmt.Errorf("tensorize frame %d: %w", i, err)
		}
	}
	return nil
}

func tensorizeDevice(batch *imaging.Batch, meta []imaging.Rect, desc converters.TensorDescription,
	dst *execution.Value, store *converters.Store, gpu *device.GPU, sink converters.LeaseSink) error {

	buffer, err := device.ResolveResource(dst)
	if err != nil {
		return fmt.Errorf("tensorize: %w", err)
	}

	for i, frame := range batch.Frames() {
		lease, err := store.Fetch(deviceKey(desc, gpu))
		if err != nil {
			return fmt.Errorf("tensorize frame %d: %w", i, err)
		}
		// The submission may already be in flight when conversion
		// errors, so the lease defers to the sink either way.
		convErr := lease.Resource().Tensorizer.ToDeviceTensor(i, frame, meta[i], desc, buffer)
		sink.AttachLease(lease)
		if convErr != nil {
			return fmt.Errorf("tensorize frame %d: %w", i, convErr)
		}
	}
	return nil
}

// Converters parameterize over each frame's own format, so pool keys
// carry the fixed default format and one entry per target size serves
// every source format.

func softwareKey(desc converters.TensorDescription) converters.Key {
	return converters.Key{
		Format: imaging.BGRA8,
		Width:  int(desc.Width()),
		Height: int(desc.Height()),
	}
}

func deviceKey(desc converters.TensorDescription, gpu *device.GPU) converters.Key {
	return converters.Key{
		Format:  imaging.BGRA8,
		Width:   int(desc.Width()),
		Height:  int(desc.Height()),
		Adapter: gpu.AdapterID(),
	}
}
