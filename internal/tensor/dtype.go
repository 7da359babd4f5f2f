// Package tensor provides the tensor layout primitives used by image binding.
package tensor

// DataType represents runtime type information for tensor elements.
type DataType int

// Supported element types for image-backed tensors.
const (
	Float32 DataType = iota
	Float16
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float16:
		return 2
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}

// Valid reports whether dt is one of the supported element types.
func (dt DataType) Valid() bool {
	return dt == Float32 || dt == Float16
}
