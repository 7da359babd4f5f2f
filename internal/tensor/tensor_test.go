package tensor

import (
	"testing"
)

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float16, 2},
	}

	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		dtype DataType
		str   string
	}{
		{Float32, "float32"},
		{Float16, "float16"},
		{DataType(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.dtype.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
	}
}

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape    Shape
		expected int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{1, 3, 224, 224}, 150528},
		{Shape{2, 1, 8, 8}, 128},
	}

	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.expected {
			t.Errorf("Shape%v.NumElements() = %d, want %d", tt.shape, got, tt.expected)
		}
	}
}

func TestShapeValidation(t *testing.T) {
	validShapes := []Shape{
		{1},
		{3, 4},
		{1, 3, 224, 224},
	}
	for _, s := range validShapes {
		if err := s.Validate(); err != nil {
			t.Errorf("Shape%v.Validate() failed: %v", s, err)
		}
	}

	invalidShapes := []Shape{
		{0},
		{3, 0},
		{-1},
		{1, 3, -224, 224},
	}
	for _, s := range invalidShapes {
		if err := s.Validate(); err == nil {
			t.Errorf("Shape%v.Validate() should have failed", s)
		}
	}
}

func TestShapeComputeStrides(t *testing.T) {
	s := Shape{2, 3, 4, 5}
	strides := s.ComputeStrides()
	expected := []int{60, 20, 5, 1}
	for i := range expected {
		if strides[i] != expected[i] {
			t.Errorf("stride[%d] = %d, want %d", i, strides[i], expected[i])
		}
	}
}

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{1, 3, 4, 4}, Float32)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if raw.ByteSize() != 1*3*4*4*4 {
		t.Errorf("ByteSize() = %d, want %d", raw.ByteSize(), 1*3*4*4*4)
	}
	if raw.Location() != CPU {
		t.Errorf("Location() = %v, want CPU", raw.Location())
	}
	if len(raw.Data()) != raw.ByteSize() {
		t.Errorf("len(Data()) = %d, want %d", len(raw.Data()), raw.ByteSize())
	}

	// Zero-initialized
	for i, b := range raw.Data() {
		if b != 0 {
			t.Fatalf("byte %d not zero-initialized", i)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{1, 0, 4, 4}, Float32); err == nil {
		t.Error("NewRaw should reject zero dimension")
	}
}

func TestAsFloat32RoundTrip(t *testing.T) {
	raw, err := NewRaw(Shape{2, 2}, Float32)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	view := raw.AsFloat32()
	view[0] = 1.5
	view[3] = -2.25

	again := raw.AsFloat32()
	if again[0] != 1.5 || again[3] != -2.25 {
		t.Errorf("typed view not backed by tensor memory: %v", again)
	}
}

func TestAsFloat16View(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float16)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if raw.ByteSize() != 8 {
		t.Errorf("ByteSize() = %d, want 8", raw.ByteSize())
	}

	bits := raw.AsFloat16()
	bits[2] = 0x3C00 // 1.0 in IEEE half
	if raw.Data()[4] != 0x00 || raw.Data()[5] != 0x3C {
		t.Errorf("half bits not written to backing bytes: % x", raw.Data())
	}
}

func TestTypedViewDTypeMismatch(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float16)
	defer func() {
		if recover() == nil {
			t.Error("AsFloat32 on a float16 tensor should panic")
		}
	}()
	_ = raw.AsFloat32()
}
