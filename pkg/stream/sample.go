// ABOUTME: Refcounted sample lifecycle and buffer tagging
// ABOUTME: Bundles a decoder, a mixer buffer pool, tags, and playback callbacks
package stream

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/mixer"
)

// Callbacks receives sample lifecycle notifications. All methods are invoked
// without any engine or sample lock held, so implementations may freely call
// back into the engine or the sample.
type Callbacks interface {
	// OnStart fires before a sample begins playing. Returning false aborts
	// playback before anything is queued.
	OnStart(s *Sample) bool

	// OnChunkEnd fires when the sample's decoder reports end-of-stream and
	// the sample is not looping. last is the most recently queued buffer, or
	// mixer.NoBuffer if nothing was queued. Returning true signals that a
	// replacement decoder has been installed and decoding should continue.
	OnChunkEnd(s *Sample, last mixer.Buffer) bool

	// OnStreamEnd fires once all queued audio has played out after the final
	// chunk ended. The source stops after this returns.
	OnStreamEnd(s *Sample)

	// OnTaggedBuffer fires when a tagged buffer has been consumed by the
	// mixer. The tag is cleared before this is invoked.
	OnTaggedBuffer(s *Sample, tag any)
}

// NopCallbacks is the default Callbacks implementation: playback always
// proceeds and every notification is ignored.
type NopCallbacks struct{}

func (NopCallbacks) OnStart(*Sample) bool                   { return true }
func (NopCallbacks) OnChunkEnd(*Sample, mixer.Buffer) bool  { return false }
func (NopCallbacks) OnStreamEnd(*Sample)                    {}
func (NopCallbacks) OnTaggedBuffer(*Sample, any)            {}

// Sample bundles one decoder with a pool of mixer buffers and a parallel tag
// array. Samples are reference counted: the engine and a caller may each hold
// one; the mixer buffers are released when the last reference drops.
type Sample struct {
	mu        sync.Mutex
	id        uuid.UUID
	refs      atomic.Int32
	dec       decode.Decoder
	format    audio.Format
	buffers   []mixer.Buffer
	tags      []any
	looping   bool
	callbacks Callbacks
	engine    *Engine
}

// NewSample allocates bufferCount mixer buffers and wraps them with the given
// decoder. cb may be nil for no callbacks. The returned sample holds one
// reference; call Release when done.
func (e *Engine) NewSample(dec decode.Decoder, bufferCount int, cb Callbacks) (*Sample, error) {
	if bufferCount <= 0 {
		bufferCount = e.cfg.BufferCount
	}
	if cb == nil {
		cb = NopCallbacks{}
	}

	bufs, err := e.mix.NewBuffers(bufferCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	s := &Sample{
		id:        uuid.New(),
		dec:       dec,
		format:    dec.Format(),
		buffers:   bufs,
		tags:      make([]any, bufferCount),
		callbacks: cb,
		engine:    e,
	}
	s.refs.Store(1)
	return s, nil
}

// ID returns the sample's identity, for logging and correlation.
func (s *Sample) ID() uuid.UUID { return s.id }

// Format reports the PCM format of the sample's current decoder.
func (s *Sample) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// Acquire adds a reference.
func (s *Sample) Acquire() { s.refs.Add(1) }

// Release drops a reference. The last release frees the mixer buffers and
// closes the decoder. Safe on a sample that never played.
func (s *Sample) Release() {
	if s.refs.Add(-1) != 0 {
		return
	}
	s.engine.mix.FreeBuffers(s.buffers)
	s.mu.Lock()
	dec := s.dec
	s.dec = nil
	s.mu.Unlock()
	if dec != nil {
		if err := dec.Close(); err != nil {
			log.Printf("Sample %s: decoder close: %v", s.id, err)
		}
	}
}

// SetLooping controls whether the decoder rewinds at end-of-stream.
func (s *Sample) SetLooping(loop bool) {
	s.mu.Lock()
	s.looping = loop
	s.mu.Unlock()
}

// Looping reports whether the sample rewinds at end-of-stream.
func (s *Sample) Looping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.looping
}

// SwapDecoder installs a replacement decoder and returns the previous one.
// The caller owns the returned decoder. Used to advance across track chunks
// without a playback gap.
func (s *Sample) SwapDecoder(dec decode.Decoder) decode.Decoder {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.dec
	s.dec = dec
	if dec != nil {
		s.format = dec.Format()
	}
	return old
}

// Length reports the current decoder's total duration, or 0 if unknown.
func (s *Sample) Length() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec == nil {
		return 0
	}
	return s.dec.Length()
}

// TagBuffer attaches tag to one of the sample's buffers so the engine can
// report when that buffer has actually been consumed.
func (s *Sample) TagBuffer(buf mixer.Buffer, tag any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(buf)
	if i < 0 {
		return ErrInvalidBuffer
	}
	s.tags[i] = tag
	return nil
}

// FindTaggedBuffer returns the buffer currently carrying tag.
func (s *Sample) FindTaggedBuffer(tag any) (mixer.Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tags {
		if t == tag {
			return s.buffers[i], true
		}
	}
	return mixer.NoBuffer, false
}

// ClearBufferTag removes any tag from buf.
func (s *Sample) ClearBufferTag(buf mixer.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(buf)
	if i < 0 {
		return ErrInvalidBuffer
	}
	s.tags[i] = nil
	return nil
}

// indexOf locates buf in the buffer pool. Called with s.mu held. The pool is
// small and fixed, so a linear scan is fine.
func (s *Sample) indexOf(buf mixer.Buffer) int {
	for i, b := range s.buffers {
		if b == buf {
			return i
		}
	}
	return -1
}

// takeTag removes and returns the tag on buf, if any. Called by the engine
// sweep when buf surfaces as processed.
func (s *Sample) takeTag(buf mixer.Buffer) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(buf)
	if i < 0 || s.tags[i] == nil {
		return nil
	}
	tag := s.tags[i]
	s.tags[i] = nil
	return tag
}

// decodeChunk pulls the next chunk of PCM from the sample's decoder.
func (s *Sample) decodeChunk(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec == nil {
		return 0, ErrInvalidSample
	}
	return s.dec.DecodeChunk(buf)
}

// seek repositions the sample's decoder.
func (s *Sample) seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dec == nil {
		return ErrInvalidSample
	}
	return s.dec.Seek(pos)
}
