// ABOUTME: Mixer capability interface and handle types
// ABOUTME: The stream engine treats the mixer as an opaque buffer queue
package mixer

import (
	"errors"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// Source is an opaque handle to one mixer output channel.
type Source uint32

// Buffer is an opaque handle to one queueable audio buffer.
type Buffer uint32

// NoBuffer is the zero, never-allocated buffer handle.
const NoBuffer Buffer = 0

var (
	// ErrAllocFailed is returned when the mixer cannot allocate a handle.
	ErrAllocFailed = errors.New("mixer allocation failed")

	// ErrBadHandle is returned for operations on unknown handles.
	ErrBadHandle = errors.New("unknown mixer handle")
)

// Mixer owns hardware-facing source and buffer handles. Data queued to a
// source plays in order; consumed buffers accumulate as "processed" until
// unqueued, which is how callers recycle them.
//
// Position is exposed as three independent scalar setters: the underlying
// outputs have no vector property interface.
type Mixer interface {
	// NewSource allocates an output channel.
	NewSource() (Source, error)

	// FreeSource stops and releases an output channel.
	FreeSource(src Source)

	// NewBuffers allocates n buffer handles.
	NewBuffers(n int) ([]Buffer, error)

	// FreeBuffers releases buffer handles. Queued buffers are dropped.
	FreeBuffers(bufs []Buffer)

	// Queue submits PCM data under the given buffer handle.
	Queue(src Source, buf Buffer, data []byte, format audio.Format) error

	// Processed reports how many queued buffers have been fully consumed.
	Processed(src Source) int

	// Unqueue pops the oldest processed buffer handle, or (NoBuffer, false).
	Unqueue(src Source) (Buffer, bool)

	// UnqueueAll drains every buffer, consumed or not. Used on stop.
	UnqueueAll(src Source) []Buffer

	// Play, Stop, Pause, and Resume control source playback state.
	Play(src Source)
	Stop(src Source)
	Pause(src Source)
	Resume(src Source)

	// SetGain sets the source amplification (0..1); Gain reads it back.
	SetGain(src Source, gain float32)
	Gain(src Source) float32

	// SetPositionX, SetPositionY, and SetPositionZ set one positional
	// scalar each; backends derive a distance attenuation from them.
	SetPositionX(src Source, v float32)
	SetPositionY(src Source, v float32)
	SetPositionZ(src Source, v float32)

	// Close releases all mixer resources.
	Close() error
}
