// ABOUTME: Stream engine core and decoder goroutine
// ABOUTME: Fixed source slots swept by one background goroutine that keeps the mixer fed
package stream

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio/mixer"
)

// Well-known source slots. Sound effect channels occupy FirstSFXSource and up.
const (
	MusicSource    = 0
	SpeechSource   = 1
	FirstSFXSource = 2
)

// Config controls engine sizing. Zero values take defaults.
type Config struct {
	// Sources is the number of fixed source slots.
	Sources int

	// BufferCount is the default mixer buffer pool size per sample.
	BufferCount int

	// BufferSize is how many PCM bytes are decoded into each buffer.
	BufferSize int

	// SweepInterval bounds how long the decoder goroutine sleeps between
	// sweeps when nothing wakes it explicitly.
	SweepInterval time.Duration

	// ScopeDepth is the per-source scope ring size in bytes.
	ScopeDepth int

	// Now overrides the engine clock; tests use it to drive fades and
	// position math deterministically. Defaults to time.Now.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Sources <= 0 {
		c.Sources = 8
	}
	if c.BufferCount <= 0 {
		c.BufferCount = 4
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 16384
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Millisecond
	}
	if c.ScopeDepth <= 0 {
		c.ScopeDepth = 32768
	}
}

// Engine owns a fixed set of playable source slots and one background
// decoder goroutine that keeps each playing source's mixer queue full,
// advances fades, and feeds the scope rings.
type Engine struct {
	cfg     Config
	mix     mixer.Mixer
	sources []*sourceState

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	now func() time.Time
}

type sourceState struct {
	mu      sync.Mutex
	index   int
	handle  mixer.Source
	sample  *Sample
	scope   *scopeRing
	fade    fadeState
	scratch []byte

	playing      bool
	paused       bool
	decoderDone  bool
	chunkPending bool
	queued       int
	free         []mixer.Buffer
	lastQueued   mixer.Buffer
	volume       float32
	startTime    time.Time
	pausedAt     time.Time
}

// NewEngine allocates one mixer source per slot and starts the decoder
// goroutine. The engine does not own the mixer; closing the engine frees its
// sources but leaves the mixer open.
func NewEngine(mix mixer.Mixer, cfg Config) (*Engine, error) {
	cfg.applyDefaults()

	e := &Engine{
		cfg:     cfg,
		mix:     mix,
		sources: make([]*sourceState, cfg.Sources),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		now:     cfg.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}

	for i := range e.sources {
		h, err := mix.NewSource()
		if err != nil {
			for _, s := range e.sources[:i] {
				mix.FreeSource(s.handle)
			}
			return nil, fmt.Errorf("%w: source %d: %v", ErrAllocationFailed, i, err)
		}
		e.sources[i] = &sourceState{
			index:   i,
			handle:  h,
			scope:   newScopeRing(cfg.ScopeDepth),
			scratch: make([]byte, cfg.BufferSize),
			volume:  1.0,
		}
	}

	go e.run()
	log.Printf("Stream engine started: %d sources, %d byte buffers", cfg.Sources, cfg.BufferSize)
	return e, nil
}

// Close shuts down the decoder goroutine, stops every source, and frees the
// engine's mixer sources. Idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.stop)
		<-e.done
		for _, s := range e.sources {
			s.mu.Lock()
			e.stopLocked(s)
			s.mu.Unlock()
			e.mix.FreeSource(s.handle)
		}
		log.Printf("Stream engine stopped")
	})
	return nil
}

// Wake nudges the decoder goroutine to sweep immediately instead of waiting
// out its interval.
func (e *Engine) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) source(idx int) (*sourceState, error) {
	if idx < 0 || idx >= len(e.sources) {
		return nil, ErrInvalidSource
	}
	return e.sources[idx], nil
}

// Play attaches smp to the source slot and starts it. The sample's OnStart
// callback runs first; returning false from it aborts silently. Any sample
// already attached is stopped and released.
func (e *Engine) Play(src int, smp *Sample, loop bool) error {
	s, err := e.source(src)
	if err != nil {
		return err
	}
	if smp == nil {
		return ErrInvalidSample
	}
	if e.closed.Load() {
		return ErrEngineClosed
	}

	if !smp.callbacks.OnStart(smp) {
		return nil
	}
	smp.SetLooping(loop)
	smp.Acquire()

	s.mu.Lock()
	if s.sample != nil {
		e.stopLocked(s)
	}
	s.sample = smp
	s.playing = true
	s.paused = false
	s.decoderDone = false
	s.chunkPending = false
	s.queued = 0
	s.lastQueued = mixer.NoBuffer
	s.free = append([]mixer.Buffer(nil), smp.buffers...)
	s.startTime = e.now()
	s.pausedAt = time.Time{}
	s.scope.reset()
	e.mix.SetGain(s.handle, s.volume)

	deferred := e.refillLocked(s, smp)
	e.mix.Play(s.handle)
	s.mu.Unlock()

	for _, fn := range deferred {
		fn()
	}
	e.Wake()
	return nil
}

// Stop halts the source and resets all of its state: sample reference, queued
// buffers, scope, fade, and timing. A full reset, not a pause.
func (e *Engine) Stop(src int) error {
	s, err := e.source(src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	e.stopLocked(s)
	s.mu.Unlock()
	return nil
}

// stopLocked resets a source. Called with s.mu held.
func (e *Engine) stopLocked(s *sourceState) {
	e.mix.Stop(s.handle)
	e.mix.UnqueueAll(s.handle)
	if s.sample != nil {
		s.sample.Release()
		s.sample = nil
	}
	s.playing = false
	s.paused = false
	s.decoderDone = false
	s.chunkPending = false
	s.queued = 0
	s.free = nil
	s.lastQueued = mixer.NoBuffer
	s.startTime = time.Time{}
	s.pausedAt = time.Time{}
	s.scope.reset()
	s.fade.reset()
}

// Pause suspends playback, recording when so Resume can keep position
// queries monotonic. A no-op if already paused or not playing.
func (e *Engine) Pause(src int) error {
	s, err := e.source(src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.paused {
		return nil
	}
	s.paused = true
	s.pausedAt = e.now()
	e.mix.Pause(s.handle)
	return nil
}

// Resume continues a paused source, shifting its conceptual start time
// forward by the pause duration. A no-op if not paused.
func (e *Engine) Resume(src int) error {
	s, err := e.source(src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return nil
	}
	s.startTime = s.startTime.Add(e.now().Sub(s.pausedAt))
	s.pausedAt = time.Time{}
	s.paused = false
	e.mix.Resume(s.handle)
	e.Wake()
	return nil
}

// Playing reports whether the source slot has an active sample. Paused
// sources still count as playing.
func (e *Engine) Playing(src int) bool {
	s, err := e.source(src)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Seek repositions the attached sample to an absolute playback time and
// restarts buffering from there.
func (e *Engine) Seek(src int, pos time.Duration) error {
	s, err := e.source(src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	smp := s.sample
	if smp == nil {
		s.mu.Unlock()
		return ErrInvalidSample
	}
	if err := smp.seek(pos); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("seek source %d: %w", src, err)
	}

	// Everything queued predates the seek; flush it.
	e.mix.Stop(s.handle)
	e.mix.UnqueueAll(s.handle)
	s.queued = 0
	s.free = append([]mixer.Buffer(nil), smp.buffers...)
	s.decoderDone = false
	s.chunkPending = false
	s.lastQueued = mixer.NoBuffer
	s.startTime = e.now().Add(-pos)
	if s.paused {
		s.pausedAt = e.now()
	}
	s.scope.reset()

	deferred := e.refillLocked(s, smp)
	if s.playing && !s.paused {
		e.mix.Play(s.handle)
	}
	s.mu.Unlock()

	for _, fn := range deferred {
		fn()
	}
	e.Wake()
	return nil
}

// Position reports how long the source has been playing, excluding paused
// time. Returns 0 for an idle source.
func (e *Engine) Position(src int) time.Duration {
	s, err := e.source(src)
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.startTime.IsZero() {
		return 0
	}
	if s.paused {
		return s.pausedAt.Sub(s.startTime)
	}
	return e.now().Sub(s.startTime)
}

// Sample returns the sample attached to the slot, or nil.
func (e *Engine) Sample(src int) *Sample {
	s, err := e.source(src)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample
}

// SetVolume sets the source gain directly, cancelling any active fade.
func (e *Engine) SetVolume(src int, volume float32) error {
	s, err := e.source(src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fade.reset()
	s.volume = volume
	e.mix.SetGain(s.handle, volume)
	return nil
}

// Volume reports the source's current gain, mid-fade values included.
func (e *Engine) Volume(src int) float32 {
	s, err := e.source(src)
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, active, _ := s.fade.value(e.now()); active {
		return g
	}
	return s.volume
}

// SetPosition sets the source's positional scalars. The mixer exposes three
// independent setters, so this issues three calls.
func (e *Engine) SetPosition(src int, x, y, z float32) error {
	s, err := e.source(src)
	if err != nil {
		return err
	}
	e.mix.SetPositionX(s.handle, x)
	e.mix.SetPositionY(s.handle, y)
	e.mix.SetPositionZ(s.handle, z)
	return nil
}

// SetFade starts a linear fade toward target over d. Returns false and does
// nothing when d is zero. A fade started mid-fade anchors at the
// instantaneous current volume, so rapid repeated calls compose smoothly.
// The last call always wins; no completion notification is delivered.
func (e *Engine) SetFade(src int, target float32, d time.Duration) bool {
	s, err := e.source(src)
	if err != nil || d == 0 {
		return false
	}
	s.mu.Lock()
	now := e.now()
	current := s.volume
	if g, active, _ := s.fade.value(now); active {
		current = g
	}
	s.fade.begin(now, current, target, d)
	s.mu.Unlock()
	e.Wake()
	return true
}

// RenderScope writes up to width oscilloscope Y coordinates for the source
// into out, scaled to [0, height). When wantSpeech is set and the speech
// slot is active, the speech stream is rendered instead. Returns the number
// of coordinates written; 0 when no stream is active.
func (e *Engine) RenderScope(src int, out []int, width, height int, wantSpeech bool) int {
	if wantSpeech {
		if n := e.renderSlot(SpeechSource, out, width, height); n > 0 {
			return n
		}
	}
	return e.renderSlot(src, out, width, height)
}

func (e *Engine) renderSlot(idx int, out []int, width, height int) int {
	s, err := e.source(idx)
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.sample == nil {
		return 0
	}
	return s.scope.render(out, width, height, s.sample.Format())
}

// run is the decoder goroutine. It sweeps all sources on a periodic tick or
// an explicit wake until the engine closes.
func (e *Engine) run() {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
		case <-e.wake:
		}
		e.sweep()
	}
}

// sweep services every source once: fade advance, processed-buffer reclaim,
// decode refill, and end-of-stream detection. Callback invocations collected
// during a source's critical section run after its lock is released.
func (e *Engine) sweep() {
	for _, s := range e.sources {
		deferred := e.sweepSource(s)
		for _, fn := range deferred {
			fn()
		}
	}
}

func (e *Engine) sweepSource(s *sourceState) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deferred []func()

	if g, active, done := s.fade.value(e.now()); active {
		s.volume = g
		e.mix.SetGain(s.handle, g)
		if done {
			s.fade.reset()
		}
	}

	smp := s.sample
	if smp == nil || !s.playing || s.paused {
		return deferred
	}

	// Reclaim consumed buffers, surfacing tags to the callback owner.
	for e.mix.Processed(s.handle) > 0 {
		buf, ok := e.mix.Unqueue(s.handle)
		if !ok {
			break
		}
		s.queued--
		s.free = append(s.free, buf)
		if tag := smp.takeTag(buf); tag != nil {
			t := tag
			deferred = append(deferred, func() { smp.callbacks.OnTaggedBuffer(smp, t) })
		}
	}

	deferred = append(deferred, e.refillLocked(s, smp)...)

	if s.decoderDone && !s.chunkPending && s.queued == 0 {
		smp.Acquire()
		deferred = append(deferred, func() {
			smp.callbacks.OnStreamEnd(smp)
			smp.Release()
		})
		e.stopLocked(s)
	}
	return deferred
}

// refillLocked decodes into every free buffer and queues the results. Called
// with s.mu held; returns callbacks to run after the lock drops. Decode and
// queue failures stop this source only, never the sweep.
func (e *Engine) refillLocked(s *sourceState, smp *Sample) []func() {
	var deferred []func()

	for len(s.free) > 0 && !s.decoderDone && !s.chunkPending {
		n, err := smp.decodeChunk(s.scratch)
		if n > 0 {
			buf := s.free[0]
			s.free = s.free[1:]
			if qerr := e.mix.Queue(s.handle, buf, s.scratch[:n], smp.Format()); qerr != nil {
				log.Printf("source %d: queue buffer: %v", s.index, qerr)
				s.decoderDone = true
				break
			}
			s.queued++
			s.lastQueued = buf
			s.scope.write(s.scratch[:n])
		}
		if err == nil {
			continue
		}
		if err == io.EOF {
			if smp.Looping() {
				if serr := smp.seek(0); serr != nil {
					log.Printf("source %d: loop rewind: %v", s.index, serr)
					s.decoderDone = true
				}
				continue
			}
			// End of this decoder. The callback may install a successor;
			// decoding stalls until it answers.
			s.chunkPending = true
			last := s.lastQueued
			deferred = append(deferred, func() {
				cont := smp.callbacks.OnChunkEnd(smp, last)
				s.mu.Lock()
				s.chunkPending = false
				if !cont {
					s.decoderDone = true
				}
				s.mu.Unlock()
				if cont {
					e.Wake()
				}
			})
			break
		}
		log.Printf("source %d: decode: %v", s.index, err)
		s.decoderDone = true
	}
	return deferred
}
