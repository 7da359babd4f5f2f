package converters

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorbind/tensorbind/internal/imaging"
	"github.com/tensorbind/tensorbind/internal/tensor"
)

func TestTensorDescriptionSizes(t *testing.T) {
	d := TensorDescription{
		DataType: tensor.Float32,
		Layout:   LayoutBGR,
		Sizes:    [4]int64{2, 3, 224, 224},
	}

	require.NoError(t, d.Validate())
	assert.Equal(t, int64(2*3*224*224*4), d.ByteSize())
	assert.Equal(t, int64(3*224*224*4), d.FrameByteSize())
	assert.Equal(t, tensor.Shape{2, 3, 224, 224}, d.Shape())

	half := d
	half.DataType = tensor.Float16
	assert.Equal(t, d.ByteSize()/2, half.ByteSize())
}

func TestTensorDescriptionValidate(t *testing.T) {
	tests := []struct {
		name  string
		sizes [4]int64
	}{
		{"zero batch", [4]int64{0, 3, 4, 4}},
		{"two channels", [4]int64{1, 2, 4, 4}},
		{"negative width", [4]int64{1, 3, 4, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := TensorDescription{DataType: tensor.Float32, Sizes: tt.sizes}
			assert.Error(t, d.Validate())
		})
	}
}

func TestSoftwareTensorizeBGR(t *testing.T) {
	// 2x1 BGRA frame: blue pixel, red pixel.
	frame, err := imaging.NewFrameWithPixels(imaging.BGRA8, 2, 1, []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	})
	require.NoError(t, err)

	desc := TensorDescription{
		DataType: tensor.Float32,
		Layout:   LayoutBGR,
		Sizes:    [4]int64{1, 3, 1, 2},
	}

	dst := make([]byte, desc.FrameByteSize())
	sc := &softwareConverter{}
	require.NoError(t, sc.ToSoftwareTensor(frame, frame.FullRect(), desc, dst))

	// B plane, then G, then R.
	assert.Equal(t, float32(1), getElement(dst, 0, tensor.Float32))
	assert.Equal(t, float32(0), getElement(dst, 1, tensor.Float32))
	assert.Equal(t, float32(0), getElement(dst, 2, tensor.Float32))
	assert.Equal(t, float32(0), getElement(dst, 3, tensor.Float32))
	assert.Equal(t, float32(0), getElement(dst, 4, tensor.Float32))
	assert.Equal(t, float32(1), getElement(dst, 5, tensor.Float32))
}

func TestSoftwareTensorizeGrayLuminance(t *testing.T) {
	frame, err := imaging.NewFrameWithPixels(imaging.BGRA8, 1, 1, []byte{0, 255, 0, 255})
	require.NoError(t, err)

	desc := TensorDescription{
		DataType: tensor.Float32,
		Layout:   LayoutGray,
		Sizes:    [4]int64{1, 1, 1, 1},
	}

	dst := make([]byte, desc.FrameByteSize())
	sc := &softwareConverter{}
	require.NoError(t, sc.ToSoftwareTensor(frame, frame.FullRect(), desc, dst))

	assert.InDelta(t, 0.587, getElement(dst, 0, tensor.Float32), 1e-6)
}

func TestSoftwareTensorizeCrop(t *testing.T) {
	// 4x4 gray ramp; crop the bottom-right 2x2.
	pix := make([]byte, 16)
	for i := range pix {
		pix[i] = byte(i * 16)
	}
	frame, err := imaging.NewFrameWithPixels(imaging.Gray8, 4, 4, pix)
	require.NoError(t, err)

	desc := TensorDescription{
		DataType: tensor.Float32,
		Layout:   LayoutGray,
		Sizes:    [4]int64{1, 1, 2, 2},
	}

	dst := make([]byte, desc.FrameByteSize())
	sc := &softwareConverter{}
	require.NoError(t, sc.ToSoftwareTensor(frame, imaging.Rect{X: 2, Y: 2, Width: 2, Height: 2}, desc, dst))

	for i, srcIdx := range []int{10, 11, 14, 15} {
		assert.InDelta(t, float32(pix[srcIdx])/255.0, getElement(dst, i, tensor.Float32), 1e-6)
	}
}

func TestSoftwareTensorizeRejects(t *testing.T) {
	frame, err := imaging.NewFrame(imaging.BGRA8, 4, 4)
	require.NoError(t, err)

	desc := TensorDescription{
		DataType: tensor.Float32,
		Layout:   LayoutBGR,
		Sizes:    [4]int64{1, 3, 4, 4},
	}
	sc := &softwareConverter{}

	// Wrong destination size.
	assert.Error(t, sc.ToSoftwareTensor(frame, frame.FullRect(), desc, make([]byte, 8)))

	// Bounds outside the frame.
	dst := make([]byte, desc.FrameByteSize())
	assert.Error(t, sc.ToSoftwareTensor(frame, imaging.Rect{X: 2, Y: 2, Width: 4, Height: 4}, desc, dst))
}

func TestSoftwareRoundTrip(t *testing.T) {
	for _, dt := range []tensor.DataType{tensor.Float32, tensor.Float16} {
		t.Run(dt.String(), func(t *testing.T) {
			src, err := imaging.NewFrameWithPixels(imaging.BGRA8, 2, 2, []byte{
				10, 20, 30, 255, 40, 50, 60, 255,
				70, 80, 90, 255, 100, 110, 120, 255,
			})
			require.NoError(t, err)

			desc := TensorDescription{
				DataType: dt,
				Layout:   LayoutBGR,
				Sizes:    [4]int64{1, 3, 2, 2},
			}

			buf := make([]byte, desc.FrameByteSize())
			sc := &softwareConverter{}
			require.NoError(t, sc.ToSoftwareTensor(src, src.FullRect(), desc, buf))

			out, err := imaging.NewFrame(imaging.BGRA8, 2, 2)
			require.NoError(t, err)
			require.NoError(t, sc.FromSoftwareTensor(buf, desc, out))

			// 8-bit values survive the float round trip exactly,
			// alpha comes back opaque.
			assert.Equal(t, src.Pixels(), out.Pixels())
		})
	}
}

func TestSoftwareDetensorizeClampsToFrame(t *testing.T) {
	desc := TensorDescription{
		DataType: tensor.Float32,
		Layout:   LayoutGray,
		Sizes:    [4]int64{1, 1, 4, 4},
	}
	buf := make([]byte, desc.FrameByteSize())
	for i := 0; i < 16; i++ {
		putElement(buf, i, 1.0, tensor.Float32)
	}

	// A 2x2 frame only receives the top-left 2x2 of the tensor.
	out, err := imaging.NewFrame(imaging.Gray8, 2, 2)
	require.NoError(t, err)

	sc := &softwareConverter{}
	require.NoError(t, sc.FromSoftwareTensor(buf, desc, out))
	assert.Equal(t, []byte{255, 255, 255, 255}, out.Pixels())
}

func TestStoreReusesReleasedEntries(t *testing.T) {
	store := NewStore(func(key Key) (*Resource, error) {
		sc := &softwareConverter{key: key}
		return &Resource{Key: key, Tensorizer: sc, Detensorizer: sc}, nil
	})
	key := Key{Format: imaging.BGRA8, Width: 224, Height: 224}

	lease, err := store.Fetch(key)
	require.NoError(t, err)
	first := lease.Resource()
	lease.Release()

	lease2, err := store.Fetch(key)
	require.NoError(t, err)
	defer lease2.Release()

	assert.Same(t, first, lease2.Resource())
	assert.Equal(t, 1, store.Created(key))
}

func TestStoreDistinctKeysDoNotShare(t *testing.T) {
	store := NewStore(func(key Key) (*Resource, error) {
		sc := &softwareConverter{key: key}
		return &Resource{Key: key, Tensorizer: sc, Detensorizer: sc}, nil
	})

	a, err := store.Fetch(Key{Format: imaging.BGRA8, Width: 224, Height: 224})
	require.NoError(t, err)
	b, err := store.Fetch(Key{Format: imaging.BGRA8, Width: 640, Height: 480})
	require.NoError(t, err)

	assert.NotSame(t, a.Resource(), b.Resource())
	a.Release()
	b.Release()
}

func TestStoreConcurrentFetch(t *testing.T) {
	store := NewStore(func(key Key) (*Resource, error) {
		sc := &softwareConverter{key: key}
		return &Resource{Key: key, Tensorizer: sc, Detensorizer: sc}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key{Format: imaging.BGRA8, Width: 32 + i%4, Height: 32}
			for j := 0; j < 100; j++ {
				lease, err := store.Fetch(key)
				if err != nil {
					t.Error(err)
					return
				}
				lease.Release()
			}
		}(i)
	}
	wg.Wait()

	// Serial reuse per key means each pool holds at most as many
	// entries as its peak concurrent borrowers.
	for i := 0; i < 4; i++ {
		key := Key{Format: imaging.BGRA8, Width: 32 + i, Height: 32}
		assert.LessOrEqual(t, store.Created(key), 2)
		assert.Equal(t, store.Created(key), store.Idle(key))
	}
}

func TestLeaseReleaseIdempotent(t *testing.T) {
	store := NewStore(func(key Key) (*Resource, error) {
		sc := &softwareConverter{key: key}
		return &Resource{Key: key, Tensorizer: sc, Detensorizer: sc}, nil
	})
	key := Key{Format: imaging.Gray8, Width: 8, Height: 8}

	lease, err := store.Fetch(key)
	require.NoError(t, err)
	lease.Release()
	lease.Release()

	assert.Equal(t, 1, store.Idle(key))
}

func TestConvertersRejectCrossPath(t *testing.T) {
	frame, err := imaging.NewFrame(imaging.BGRA8, 2, 2)
	require.NoError(t, err)
	desc := TensorDescription{
		DataType: tensor.Float32,
		Layout:   LayoutBGR,
		Sizes:    [4]int64{1, 3, 2, 2},
	}
	buf := make([]byte, desc.FrameByteSize())

	// Software converters have no device path.
	sc := &softwareConverter{}
	assert.Error(t, sc.ToDeviceTensor(0, frame, frame.FullRect(), desc, nil))
	assert.Error(t, sc.FromDeviceTensor(0, nil, desc, frame))

	// Device converters have no software path.
	dc := newDeviceConverter(Key{Format: imaging.BGRA8, Width: 2, Height: 2, Adapter: "x"}, nil)
	assert.Error(t, dc.ToSoftwareTensor(frame, frame.FullRect(), desc, buf))
	assert.Error(t, dc.FromSoftwareTensor(buf, desc, frame))
}

func TestStoreFactoryError(t *testing.T) {
	boom := fmt.Errorf("no adapter")
	store := NewStore(func(Key) (*Resource, error) { return nil, boom })

	_, err := store.Fetch(Key{Format: imaging.BGRA8, Width: 8, Height: 8, Adapter: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
