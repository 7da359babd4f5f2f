package engine

import (
	"fmt"

	"github.com/tensorbind/tensorbind/internal/converters"
	"github.com/tensorbind/tensorbind/internal/device"
	"github.com/tensorbind/tensorbind/internal/execution"
	"github.com/tensorbind/tensorbind/internal/imaging"
)

// Detensorize converts every batch slot of the source allocation back
// into its frame.
//
// On the device path each frame's conversion is followed by a full
// device drain before the converter's scratch buffers are recycled and
// its lease returns to the pool; the drain also guarantees the model
// run that produced the allocation has retired.
func Detensorize(src *execution.Value, desc converters.TensorDescription, batch *imaging.Batch,
	store *converters.Store, gpu *device.GPU, sink converters.LeaseSink) error {

	if src.Location().Kind == execution.LocationCPU {
		return detensorizeSoftware(src, desc, batch, store)
	}
	return detensorizeDevice(src, desc, batch, store, gpu, sink)
}

func detensorizeSoftware(src *execution.Value, desc converters.TensorDescription, batch *imaging.Batch,
	store *converters.Store) error {

	buf, err := src.MutableData()
	if err != nil {
		return fmt.Errorf("detensorize: %w", err)
	}
	stride := desc.FrameByteSize()

	for i, frame := range batch.Frames() {
		lease, err := store.Fetch(softwareKey(desc))
		if err != nil {
			return fmt.Errorf("detensorize frame %d: %w", i, err)
		}

		err = lease.Resource().Detensorizer.FromSoftwareTensor(buf[int64(i)*stride:int64(i+1)*stride], desc, frame)
		lease.Release()
		if err != nil {
			return fmt.Errorf("detensorize frame %d: %w", i, err)
		}
	}
	return nil
}

func detensorizeDevice(src *execution.Value, desc converters.TensorDescription, batch *imaging.Batch,
	store *converters.Store, gpu *device.GPU, sink converters.LeaseSink) error {

	buffer, err := device.ResolveResource(src)
	if err != nil {
		return fmt.Errorf("detensorize: %w", err)
	}

	for i, frame := range batch.Frames() {
		lease, err := store.Fetch(deviceKey(desc, gpu))
		if err != nil {
			return fmt.Errorf("detensorize frame %d: %w", i, err)
		}
		det := lease.Resource().Detensorizer

		if err := det.FromDeviceTensor(i, buffer, desc, frame); err != nil {
			sink.AttachLease(lease)
			return fmt.Errorf("detensorize frame %d: %w", i, err)
		}

		// Drain before recycling the scratch buffers the pass still
		// references.
		if err := gpu.Sync(); err != nil {
			sink.AttachLease(lease)
			return fmt.Errorf("detensorize frame %d: %w", i, err)
		}
		det.ResetScratch()
		lease.Release()
	}
	return nil
}
