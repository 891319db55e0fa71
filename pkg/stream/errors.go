// ABOUTME: Stream engine error taxonomy
// ABOUTME: Sentinel errors returned by engine and sample operations
package stream

import "errors"

var (
	// ErrInvalidSource is returned when a source index is outside the
	// engine's fixed source range.
	ErrInvalidSource = errors.New("source index out of range")

	// ErrInvalidSample is returned when an operation requires an attached
	// sample but none is present.
	ErrInvalidSample = errors.New("no sample attached")

	// ErrInvalidBuffer is returned when a buffer handle does not belong to
	// the sample it was used with.
	ErrInvalidBuffer = errors.New("buffer does not belong to sample")

	// ErrAllocationFailed is returned when the mixer cannot allocate the
	// requested sources or buffers.
	ErrAllocationFailed = errors.New("mixer allocation failed")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")
)
