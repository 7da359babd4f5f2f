package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorbind/tensorbind/internal/tensor"
)

func TestCPUAllocatorAlloc(t *testing.T) {
	a := NewCPUAllocator()

	v, err := a.Alloc(tensor.Shape{2, 3, 4, 4}, tensor.Float32)
	require.NoError(t, err)

	assert.Equal(t, LocationCPU, v.Location().Kind)
	assert.Equal(t, "Cpu", v.Location().Name)

	data, err := v.MutableData()
	require.NoError(t, err)
	assert.Len(t, data, 2*3*4*4*4)

	assert.Nil(t, v.DeviceResource())
}

func TestCPUAllocatorFreeOnce(t *testing.T) {
	a := NewCPUAllocator()
	require.NoError(t, a.Free())
	assert.Error(t, a.Free(), "double free must be reported")

	_, err := a.Alloc(tensor.Shape{1}, tensor.Float32)
	assert.Error(t, err, "alloc after free must fail")
}

func TestAllocRejectsInvalidShape(t *testing.T) {
	a := NewCPUAllocator()
	_, err := a.Alloc(tensor.Shape{1, 0, 4, 4}, tensor.Float32)
	assert.Error(t, err)
}
