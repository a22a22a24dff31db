package preview

import "errors"

// Sentinel errors.
var (
	ErrOutOfBounds = errors.New("index out of range")
	ErrNoRegistry  = errors.New("no variable registry")
)
