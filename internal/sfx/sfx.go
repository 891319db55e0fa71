// ABOUTME: Sound effect channel allocator
// ABOUTME: Round-robin assignment of one-shot sounds to the engine's SFX slots
package sfx

import (
	"fmt"
	"sync"

	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
	"github.com/Soundline-Audio/soundline-go/pkg/stream"
)

// Pool hands out the engine's sound-effect slots. Idle channels are
// preferred; when all are busy the oldest assignment is replaced.
type Pool struct {
	mu       sync.Mutex
	engine   *stream.Engine
	channels int
	next     int
}

// New creates a pool over `channels` slots starting at FirstSFXSource.
func New(engine *stream.Engine, channels int) *Pool {
	return &Pool{engine: engine, channels: channels}
}

// Play starts a one-shot effect at the given position and returns the slot
// it landed on. The pool drops its sample reference immediately; the engine
// frees the sample when the effect finishes.
func (p *Pool) Play(dec decode.Decoder, x, y, z float32) (int, error) {
	src := p.allocate()

	smp, err := p.engine.NewSample(dec, 0, nil)
	if err != nil {
		return 0, fmt.Errorf("sfx sample: %w", err)
	}
	if err := p.engine.Play(src, smp, false); err != nil {
		smp.Release()
		return 0, fmt.Errorf("play sfx: %w", err)
	}
	p.engine.SetPosition(src, x, y, z)
	smp.Release()
	return src, nil
}

// allocate picks an idle channel, falling back to round-robin.
func (p *Pool) allocate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < p.channels; i++ {
		src := stream.FirstSFXSource + (p.next+i)%p.channels
		if !p.engine.Playing(src) {
			p.next = (p.next + i + 1) % p.channels
			return src
		}
	}
	src := stream.FirstSFXSource + p.next
	p.next = (p.next + 1) % p.channels
	return src
}

// Stop halts one channel.
func (p *Pool) Stop(src int) { p.engine.Stop(src) }

// StopAll halts every SFX channel.
func (p *Pool) StopAll() {
	for i := 0; i < p.channels; i++ {
		p.engine.Stop(stream.FirstSFXSource + i)
	}
}
