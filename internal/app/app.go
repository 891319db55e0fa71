// ABOUTME: Demo application glue
// ABOUTME: Wires a mixer backend, the stream engine, and the music/track/sfx layers
package app

import (
	"fmt"
	"log"

	"github.com/Soundline-Audio/soundline-go/internal/music"
	"github.com/Soundline-Audio/soundline-go/internal/sfx"
	"github.com/Soundline-Audio/soundline-go/pkg/audio"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/mixer"
	"github.com/Soundline-Audio/soundline-go/pkg/stream"
	"github.com/Soundline-Audio/soundline-go/pkg/track"
)

// Config selects the output backend and what to play.
type Config struct {
	// Backend is "oto", "beep", or "virtual".
	Backend string

	// File is the audio file to play.
	File string

	// Subtitle, when non-empty, plays File as a speech track with this text
	// instead of as music.
	Subtitle string

	Loop   bool
	Volume float32
}

// App owns the audio stack for the demo player.
type App struct {
	cfg    Config
	mix    mixer.Mixer
	Engine *stream.Engine
	Music  *music.Manager
	Track  *track.Player
	SFX    *sfx.Pool
}

// New builds the stack: mixer backend, engine, and the convenience layers.
func New(cfg Config) (*App, error) {
	if cfg.Volume <= 0 {
		cfg.Volume = 1.0
	}

	mix, err := newMixer(cfg.Backend)
	if err != nil {
		return nil, err
	}

	engine, err := stream.NewEngine(mix, stream.Config{})
	if err != nil {
		mix.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &App{
		cfg:    cfg,
		mix:    mix,
		Engine: engine,
		Music:  music.New(engine),
		Track:  track.New(engine, track.Config{}),
		SFX:    sfx.New(engine, 4),
	}, nil
}

func newMixer(backend string) (mixer.Mixer, error) {
	switch backend {
	case "", "oto":
		return mixer.NewOto(audio.CD.SampleRate, audio.CD.Channels)
	case "beep":
		return mixer.NewBeep(audio.CD.SampleRate)
	case "virtual":
		return mixer.NewVirtual(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// Start begins playback of the configured file.
func (a *App) Start() error {
	if a.cfg.File == "" {
		return nil
	}

	a.Engine.SetVolume(stream.MusicSource, a.cfg.Volume)
	a.Engine.SetVolume(stream.SpeechSource, a.cfg.Volume)

	if a.cfg.Subtitle != "" {
		dec, err := decode.Open(a.cfg.File)
		if err != nil {
			return fmt.Errorf("open track: %w", err)
		}
		if err := a.Track.SpliceTrack(dec, a.cfg.Subtitle); err != nil {
			dec.Close()
			return err
		}
		log.Printf("Playing speech track: %s", a.cfg.File)
		return a.Track.PlayTrack()
	}

	return a.Music.Play(a.cfg.File, a.cfg.Loop)
}

// SetVolume adjusts the active playback volume, 0..100.
func (a *App) SetVolume(percent int) {
	v := float32(percent) / 100
	a.Engine.SetVolume(stream.MusicSource, v)
	a.Engine.SetVolume(stream.SpeechSource, v)
}

// SetPaused pauses or resumes whatever is playing.
func (a *App) SetPaused(paused bool) {
	for _, src := range []int{stream.MusicSource, stream.SpeechSource} {
		if paused {
			a.Engine.Pause(src)
		} else {
			a.Engine.Resume(src)
		}
	}
}

// Stop halts all playback.
func (a *App) Stop() {
	a.Track.StopTrack()
	a.Music.Stop()
	a.SFX.StopAll()
}

// Close tears the stack down.
func (a *App) Close() {
	a.Stop()
	a.Engine.Close()
	if err := a.mix.Close(); err != nil {
		log.Printf("mixer close: %v", err)
	}
}
