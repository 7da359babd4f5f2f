package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorbind/tensorbind/internal/converters"
	"github.com/tensorbind/tensorbind/internal/device"
	"github.com/tensorbind/tensorbind/internal/execution"
	"github.com/tensorbind/tensorbind/internal/imaging"
	"github.com/tensorbind/tensorbind/internal/tensor"
)

// leaseSink collects deferred leases the way a binding context does.
type leaseSink struct {
	mu     sync.Mutex
	leases []*converters.Lease
}

func (s *leaseSink) AttachLease(l *converters.Lease) {
	s.mu.Lock()
	s.leases = append(s.leases, l)
	s.mu.Unlock()
}

func (s *leaseSink) releaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leases {
		l.Release()
	}
	s.leases = nil
}

func newStore(gpu *device.GPU) *converters.Store {
	return converters.NewStore(func(key converters.Key) (*converters.Resource, error) {
		return converters.NewResource(key, gpu)
	})
}

func grayBatch(t *testing.T, values ...byte) *imaging.Batch {
	t.Helper()
	frames := make([]*imaging.Frame, len(values))
	for i, v := range values {
		f, err := imaging.NewFrameWithPixels(imaging.Gray8, 1, 1, []byte{v})
		require.NoError(t, err)
		frames[i] = f
	}
	batch, err := imaging.NewBatch(frames...)
	require.NoError(t, err)
	return batch
}

func TestTensorizeSoftwareBatchOffsets(t *testing.T) {
	batch := grayBatch(t, 51, 102, 255)
	desc := converters.TensorDescription{
		DataType: tensor.Float32,
		Layout:   converters.LayoutGray,
		Sizes:    [4]int64{3, 1, 1, 1},
	}

	alloc := execution.NewCPUAllocator()
	defer alloc.Free()
	val, err := alloc.Alloc(desc.Shape(), desc.DataType)
	require.NoError(t, err)

	bounds := []imaging.Rect{{Width: 1, Height: 1}, {Width: 1, Height: 1}, {Width: 1, Height: 1}}
	require.NoError(t, Tensorize(batch, bounds, desc, val, newStore(nil), nil, nil))

	// Each frame lands in its own batch slot.
	floats := val.Raw().AsFloat32()
	assert.InDelta(t, 51.0/255.0, floats[0], 1e-6)
	assert.InDelta(t, 102.0/255.0, floats[1], 1e-6)
	assert.InDelta(t, 1.0, floats[2], 1e-6)
}

func TestDetensorizeSoftwareBatchOffsets(t *testing.T) {
	batch := grayBatch(t, 0, 0)
	desc := converters.TensorDescription{
		DataType: tensor.Float32,
		Layout:   converters.LayoutGray,
		Sizes:    [4]int64{2, 1, 1, 1},
	}

	alloc := execution.NewCPUAllocator()
	defer alloc.Free()
	val, err := alloc.Alloc(desc.Shape(), desc.DataType)
	require.NoError(t, err)

	floats := val.Raw().AsFloat32()
	floats[0] = 0.2
	floats[1] = 1.0

	require.NoError(t, Detensorize(val, desc, batch, newStore(nil), nil, nil))
	assert.Equal(t, []byte{51}, batch.Frame(0).Pixels())
	assert.Equal(t, []byte{255}, batch.Frame(1).Pixels())
}

func TestSoftwarePoolKeyIgnoresFrameFormat(t *testing.T) {
	gray, err := imaging.NewFrameWithPixels(imaging.Gray8, 1, 1, []byte{255})
	require.NoError(t, err)
	bgra, err := imaging.NewFrameWithPixels(imaging.BGRA8, 1, 1, []byte{255, 255, 255, 255})
	require.NoError(t, err)
	batch, err := imaging.NewBatch(gray, bgra)
	require.NoError(t, err)

	desc := converters.TensorDescription{
		DataType: tensor.Float32,
		Layout:   converters.LayoutGray,
		Sizes:    [4]int64{2, 1, 1, 1},
	}

	alloc := execution.NewCPUAllocator()
	defer alloc.Free()
	val, err := alloc.Alloc(desc.Shape(), desc.DataType)
	require.NoError(t, err)

	store := newStore(nil)
	bounds := []imaging.Rect{{Width: 1, Height: 1}, {Width: 1, Height: 1}}
	require.NoError(t, Tensorize(batch, bounds, desc, val, store, nil, nil))

	// A mixed-format batch shares one pooled converter entry keyed on
	// the fixed default format.
	assert.Equal(t, 1, store.Created(softwareKey(desc)))
	assert.Equal(t, 0, store.Created(converters.Key{Format: imaging.Gray8, Width: 1, Height: 1}))

	floats := val.Raw().AsFloat32()
	assert.InDelta(t, 1.0, floats[0], 1e-6)
	assert.InDelta(t, 1.0, floats[1], 1e-6)
}

func TestTensorizeBoundsCountMismatch(t *testing.T) {
	batch := grayBatch(t, 1, 2)
	desc := converters.TensorDescription{
		DataType: tensor.Float32,
		Layout:   converters.LayoutGray,
		Sizes:    [4]int64{2, 1, 1, 1},
	}

	alloc := execution.NewCPUAllocator()
	defer alloc.Free()
	val, err := alloc.Alloc(desc.Shape(), desc.DataType)
	require.NoError(t, err)

	err = Tensorize(batch, []imaging.Rect{{Width: 1, Height: 1}}, desc, val, newStore(nil), nil, nil)
	assert.Error(t, err)
}

func TestDeviceTensorizeMatchesSoftware(t *testing.T) {
	if !device.IsAvailable() {
		t.Skip("no WebGPU adapter available")
	}
	gpu, err := device.New()
	require.NoError(t, err)
	defer gpu.Release()

	frame, err := imaging.NewFrameWithPixels(imaging.BGRA8, 2, 2, []byte{
		10, 20, 30, 255, 40, 50, 60, 255,
		70, 80, 90, 255, 100, 110, 120, 255,
	})
	require.NoError(t, err)
	batch, err := imaging.NewBatch(frame)
	require.NoError(t, err)

	desc := converters.TensorDescription{
		DataType: tensor.Float32,
		Layout:   converters.LayoutBGR,
		Sizes:    [4]int64{1, 3, 2, 2},
	}
	bounds := []imaging.Rect{frame.FullRect()}

	// Software reference.
	cpuAlloc := execution.NewCPUAllocator()
	defer cpuAlloc.Free()
	ref, err := cpuAlloc.Alloc(desc.Shape(), desc.DataType)
	require.NoError(t, err)
	require.NoError(t, Tensorize(batch, bounds, desc, ref, newStore(nil), nil, nil))

	// Device conversion of the same batch.
	gpuAlloc := device.NewAllocator(gpu)
	defer gpuAlloc.Free()
	val, err := gpuAlloc.Alloc(desc.Shape(), desc.DataType)
	require.NoError(t, err)

	sink := &leaseSink{}
	store := newStore(gpu)
	require.NoError(t, Tensorize(batch, bounds, desc, val, store, gpu, sink))
	require.NoError(t, gpu.Sync())
	sink.releaseAll()

	buffer, err := device.ResolveResource(val)
	require.NoError(t, err)
	got, err := gpu.ReadBuffer(buffer, uint64(desc.ByteSize()))
	require.NoError(t, err)

	refData, err := ref.MutableData()
	require.NoError(t, err)
	assert.Equal(t, refData, got)
}

func TestDeviceDetensorizeRoundTrip(t *testing.T) {
	if !device.IsAvailable() {
		t.Skip("no WebGPU adapter available")
	}
	gpu, err := device.New()
	require.NoError(t, err)
	defer gpu.Release()

	src, err := imaging.NewFrameWithPixels(imaging.BGRA8, 2, 2, []byte{
		10, 20, 30, 255, 40, 50, 60, 255,
		70, 80, 90, 255, 100, 110, 120, 255,
	})
	require.NoError(t, err)
	inBatch, err := imaging.NewBatch(src)
	require.NoError(t, err)

	desc := converters.TensorDescription{
		DataType: tensor.Float32,
		Layout:   converters.LayoutBGR,
		Sizes:    [4]int64{1, 3, 2, 2},
	}

	gpuAlloc := device.NewAllocator(gpu)
	defer gpuAlloc.Free()
	val, err := gpuAlloc.Alloc(desc.Shape(), desc.DataType)
	require.NoError(t, err)

	sink := &leaseSink{}
	store := newStore(gpu)
	require.NoError(t, Tensorize(inBatch, []imaging.Rect{src.FullRect()}, desc, val, store, gpu, sink))
	require.NoError(t, gpu.Sync())
	sink.releaseAll()

	out, err := imaging.NewFrame(imaging.BGRA8, 2, 2)
	require.NoError(t, err)
	outBatch, err := imaging.NewBatch(out)
	require.NoError(t, err)

	require.NoError(t, Detensorize(val, desc, outBatch, store, gpu, sink))
	assert.Equal(t, src.Pixels(), out.Pixels())
}
