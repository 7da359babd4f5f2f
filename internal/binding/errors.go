package binding

import "errors"

// Binding failure categories. Callers classify with errors.Is; every
// failure returned out of this package wraps exactly one of these.
var (
	// ErrInvalidBinding marks inputs that can never bind: a crop
	// outside the frame, a free dimension the batch disagrees on, or
	// a malformed property override.
	ErrInvalidBinding = errors.New("invalid binding")

	// ErrUnsupportedConfig marks declared configurations outside the
	// supported surface, such as an element type that is neither
	// float32 nor float16.
	ErrUnsupportedConfig = errors.New("unsupported configuration")

	// ErrSizeMismatch marks shape arithmetic that cannot line up,
	// such as a channel axis no pixel format can satisfy.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrNotApplicable is a soft decline: the descriptor is valid but
	// not image-shaped, so another binding strategy should be tried.
	// It is never a failure of this call's inputs.
	ErrNotApplicable = errors.New("not applicable to image binding")
)
