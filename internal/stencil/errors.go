package stencil

import "errors"

var (
	// ErrInvalidSettings is returned for levels, opacity or curves outside
	// their allowed ranges.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrDimensionMismatch is returned when two buffers that must share
	// dimensions do not.
	ErrDimensionMismatch = errors.New("buffer dimensions differ")

	// ErrEmptyBuffer is returned when the source buffer has no pixels.
	ErrEmptyBuffer = errors.New("empty pixel buffer")
)
