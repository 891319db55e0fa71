// ABOUTME: Music convenience wrapper over the engine's music source
// ABOUTME: Open-and-play, fades, and volume for background music
package music

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
	"github.com/Soundline-Audio/soundline-go/pkg/stream"
)

// Manager drives the engine's music slot: one background track at a time.
type Manager struct {
	mu      sync.Mutex
	engine  *stream.Engine
	current *stream.Sample
}

// New creates a music manager on the given engine.
func New(engine *stream.Engine) *Manager {
	return &Manager{engine: engine}
}

// Play opens the named file and starts it on the music slot, replacing
// whatever was playing.
func (m *Manager) Play(path string, loop bool) error {
	dec, err := decode.Open(path)
	if err != nil {
		return fmt.Errorf("open music: %w", err)
	}

	smp, err := m.engine.NewSample(dec, 0, nil)
	if err != nil {
		dec.Close()
		return fmt.Errorf("music sample: %w", err)
	}

	if err := m.engine.Play(stream.MusicSource, smp, loop); err != nil {
		smp.Release()
		return fmt.Errorf("play music: %w", err)
	}
	log.Printf("Music: playing %s (loop=%v)", path, loop)

	m.mu.Lock()
	old := m.current
	m.current = smp
	m.mu.Unlock()
	if old != nil {
		old.Release()
	}
	return nil
}

// Stop halts music playback.
func (m *Manager) Stop() {
	m.engine.Stop(stream.MusicSource)
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()
	if old != nil {
		old.Release()
	}
}

// Pause suspends music playback.
func (m *Manager) Pause() { m.engine.Pause(stream.MusicSource) }

// Resume continues paused music.
func (m *Manager) Resume() { m.engine.Resume(stream.MusicSource) }

// Playing reports whether music is active.
func (m *Manager) Playing() bool { return m.engine.Playing(stream.MusicSource) }

// Position reports how far into the track playback is.
func (m *Manager) Position() time.Duration { return m.engine.Position(stream.MusicSource) }

// SetVolume sets the music gain directly.
func (m *Manager) SetVolume(v float32) { m.engine.SetVolume(stream.MusicSource, v) }

// Volume reports the current music gain.
func (m *Manager) Volume() float32 { return m.engine.Volume(stream.MusicSource) }

// FadeTo ramps the music volume toward target over d.
func (m *Manager) FadeTo(target float32, d time.Duration) bool {
	return m.engine.SetFade(stream.MusicSource, target, d)
}

// Seek repositions the current track.
func (m *Manager) Seek(pos time.Duration) error {
	return m.engine.Seek(stream.MusicSource, pos)
}
