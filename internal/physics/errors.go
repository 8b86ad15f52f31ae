package physics

import "errors"

// ErrLengthMismatch is the panic value (wrapped) raised when a body slice and
// its acceleration slice are not index-aligned.
var ErrLengthMismatch = errors.New("physics: bodies and accelerations differ in length")

// ErrUnstable is returned when a body's state stops being finite.
var ErrUnstable = errors.New("physics: simulation unstable (non-finite state)")
