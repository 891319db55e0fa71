// ABOUTME: Oto-based mixer backend
// ABOUTME: Plays queued PCM through the oto library, one pipe player per source
package mixer

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/resample"
)

// Oto is a Mixer playing through the oto library. Each source gets its own
// pipe-fed oto player; a pump goroutine per source feeds queued buffers into
// the pipe and records them as processed once written.
type Oto struct {
	mu         sync.Mutex
	ctx        *oto.Context
	device     audio.Format
	nextHandle uint32
	sources    map[Source]*otoSource
	buffers    map[Buffer]bool
	closed     bool
}

type otoSource struct {
	mu         sync.Mutex
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	queued     []queuedBuffer
	processed  []Buffer
	notify     chan struct{}
	done       chan struct{}
	gain       float32
	x, y, z    float32
	resampler  *resample.Resampler
	inRate     int
}

// NewOto creates an oto-backed mixer with the given device format. oto
// allows one context per process, so at most one Oto mixer should exist.
func NewOto(sampleRate, channels int) (*Oto, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	log.Printf("Oto mixer initialized: %dHz, %d channels", sampleRate, channels)

	return &Oto{
		ctx:        ctx,
		device:     audio.Format{SampleRate: sampleRate, Channels: channels, BitDepth: 16},
		sources:    make(map[Source]*otoSource),
		buffers:    make(map[Buffer]bool),
		nextHandle: 1,
	}, nil
}

func (m *Oto) NewSource() (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrAllocFailed
	}

	pr, pw := io.Pipe()
	s := &otoSource{
		player:     m.ctx.NewPlayer(pr),
		pipeReader: pr,
		pipeWriter: pw,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		gain:       1.0,
	}

	h := Source(m.nextHandle)
	m.nextHandle++
	m.sources[h] = s

	go m.pump(s)
	return h, nil
}

// pump feeds queued buffers into the source's pipe. A write blocks until the
// player consumes the data, which naturally paces buffer consumption.
func (m *Oto) pump(s *otoSource) {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			s.mu.Lock()
			if len(s.queued) == 0 {
				s.mu.Unlock()
				break
			}
			q := s.queued[0]
			s.queued = s.queued[1:]
			data := m.prepare(s, q)
			s.mu.Unlock()

			if _, err := s.pipeWriter.Write(data); err != nil {
				// Pipe closed during teardown.
				return
			}

			s.mu.Lock()
			s.processed = append(s.processed, q.handle)
			s.mu.Unlock()
		}
	}
}

// prepare converts queued PCM to the device format and applies gain and
// distance attenuation. Called with s.mu held.
func (m *Oto) prepare(s *otoSource, q queuedBuffer) []byte {
	samples := make([]int16, len(q.data)/2)
	audio.BytesToInt16(q.data, samples)

	samples = adaptChannels(samples, q.format.Channels, m.device.Channels)

	if q.format.SampleRate != m.device.SampleRate {
		if s.resampler == nil || s.inRate != q.format.SampleRate {
			s.resampler = resample.New(q.format.SampleRate, m.device.SampleRate, m.device.Channels)
			s.inRate = q.format.SampleRate
		}
		out := make([]int16, s.resampler.OutputSamplesNeeded(len(samples))+m.device.Channels)
		n := s.resampler.Resample(samples, out)
		samples = out[:n]
	}

	gain := s.gain * attenuation(s.x, s.y, s.z)
	if gain != 1.0 {
		for i, v := range samples {
			samples[i] = int16(float32(v) * gain)
		}
	}

	out := make([]byte, len(samples)*2)
	audio.Int16ToBytes(samples, out)
	return out
}

func (m *Oto) source(src Source) *otoSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources[src]
}

func (m *Oto) FreeSource(src Source) {
	m.mu.Lock()
	s := m.sources[src]
	delete(m.sources, src)
	m.mu.Unlock()
	if s == nil {
		return
	}
	close(s.done)
	s.pipeWriter.Close()
	s.player.Close()
	s.pipeReader.Close()
}

func (m *Oto) NewBuffers(n int) ([]Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrAllocFailed
	}
	bufs := make([]Buffer, n)
	for i := range bufs {
		bufs[i] = Buffer(m.nextHandle)
		m.nextHandle++
		m.buffers[bufs[i]] = true
	}
	return bufs, nil
}

func (m *Oto) FreeBuffers(bufs []Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bufs {
		delete(m.buffers, b)
	}
}

func (m *Oto) Queue(src Source, buf Buffer, data []byte, format audio.Format) error {
	s := m.source(src)
	if s == nil {
		return ErrBadHandle
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.queued = append(s.queued, queuedBuffer{handle: buf, data: cp, format: format})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (m *Oto) Processed(src Source) int {
	s := m.source(src)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

func (m *Oto) Unqueue(src Source) (Buffer, bool) {
	s := m.source(src)
	if s == nil {
		return NoBuffer, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.processed) == 0 {
		return NoBuffer, false
	}
	b := s.processed[0]
	s.processed = s.processed[1:]
	return b, true
}

func (m *Oto) UnqueueAll(src Source) []Buffer {
	s := m.source(src)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Buffer{}, s.processed...)
	for _, q := range s.queued {
		out = append(out, q.handle)
	}
	s.processed = nil
	s.queued = nil
	return out
}

func (m *Oto) Play(src Source) {
	if s := m.source(src); s != nil {
		s.player.Play()
	}
}

func (m *Oto) Stop(src Source) {
	if s := m.source(src); s != nil {
		s.player.Pause()
	}
}

func (m *Oto) Pause(src Source) {
	if s := m.source(src); s != nil {
		s.player.Pause()
	}
}

func (m *Oto) Resume(src Source) {
	if s := m.source(src); s != nil {
		s.player.Play()
	}
}

func (m *Oto) SetGain(src Source, gain float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.gain = gain
		s.mu.Unlock()
	}
}

func (m *Oto) Gain(src Source) float32 {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.gain
	}
	return 0
}

func (m *Oto) SetPositionX(src Source, v float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.x = v
		s.mu.Unlock()
	}
}

func (m *Oto) SetPositionY(src Source, v float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.y = v
		s.mu.Unlock()
	}
}

func (m *Oto) SetPositionZ(src Source, v float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.z = v
		s.mu.Unlock()
	}
}

func (m *Oto) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sources := m.sources
	m.sources = make(map[Source]*otoSource)
	m.mu.Unlock()

	for _, s := range sources {
		close(s.done)
		s.pipeWriter.Close()
		s.player.Close()
		s.pipeReader.Close()
	}
	// oto contexts cannot be destroyed; suspend instead.
	m.ctx.Suspend()
	return nil
}
