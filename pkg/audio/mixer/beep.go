// ABOUTME: Beep/speaker mixer backend
// ABOUTME: Each source is a beep.Streamer pulling from its queued buffer list
package mixer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/resample"
)

// Beep is a Mixer playing through the beep speaker. Each source registers a
// streamer with the speaker; the streamer drains the source's queued buffers
// and emits silence while the queue is empty or the source is stopped.
type Beep struct {
	mu         sync.Mutex
	rate       beep.SampleRate
	nextHandle uint32
	sources    map[Source]*beepSource
	buffers    map[Buffer]bool
	closed     bool
}

var speakerInit sync.Once

// NewBeep creates a beep-backed mixer. The speaker is initialized once per
// process with a 100ms buffer.
func NewBeep(sampleRate int) (*Beep, error) {
	sr := beep.SampleRate(sampleRate)
	var initErr error
	speakerInit.Do(func() {
		initErr = speaker.Init(sr, sr.N(time.Millisecond*100))
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", initErr)
	}

	log.Printf("Beep mixer initialized: %dHz", sampleRate)

	return &Beep{
		rate:       sr,
		sources:    make(map[Source]*beepSource),
		buffers:    make(map[Buffer]bool),
		nextHandle: 1,
	}, nil
}

type beepSource struct {
	mu        sync.Mutex
	rate      beep.SampleRate
	queued    []queuedBuffer
	processed []Buffer
	cur       []int16 // device-rate stereo samples of the buffer being drained
	curBuf    Buffer
	curPos    int
	playing   bool
	paused    bool
	freed     bool
	gain      float32
	x, y, z   float32
	resampler *resample.Resampler
	inRate    int
}

// Stream implements beep.Streamer. It is invoked by the speaker goroutine.
func (s *beepSource) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.freed {
		return 0, false
	}

	gain := float64(s.gain * attenuation(s.x, s.y, s.z))
	n := 0
	for n < len(samples) {
		if s.paused || !s.playing || !s.fill() {
			samples[n] = [2]float64{}
			n++
			continue
		}
		l := float64(s.cur[s.curPos]) / 32768.0
		r := float64(s.cur[s.curPos+1]) / 32768.0
		samples[n] = [2]float64{l * gain, r * gain}
		s.curPos += 2
		n++
	}
	return n, true
}

// Err implements beep.Streamer.
func (s *beepSource) Err() error { return nil }

// fill ensures cur holds undrained samples, pulling the next queued buffer
// when the current one runs out. Called with s.mu held. Reports whether any
// samples are available.
func (s *beepSource) fill() bool {
	for s.curPos >= len(s.cur) {
		if s.cur != nil {
			s.processed = append(s.processed, s.curBuf)
			s.cur = nil
			s.curPos = 0
		}
		if len(s.queued) == 0 {
			return false
		}
		q := s.queued[0]
		s.queued = s.queued[1:]
		s.cur = s.convert(q)
		s.curBuf = q.handle
		s.curPos = 0
	}
	return true
}

// convert turns queued PCM into device-rate stereo samples. Called with
// s.mu held.
func (s *beepSource) convert(q queuedBuffer) []int16 {
	samples := make([]int16, len(q.data)/2)
	audio.BytesToInt16(q.data, samples)

	samples = adaptChannels(samples, q.format.Channels, 2)

	if q.format.SampleRate != int(s.rate) {
		if s.resampler == nil || s.inRate != q.format.SampleRate {
			s.resampler = resample.New(q.format.SampleRate, int(s.rate), 2)
			s.inRate = q.format.SampleRate
		}
		out := make([]int16, s.resampler.OutputSamplesNeeded(len(samples))+2)
		n := s.resampler.Resample(samples, out)
		samples = out[:n]
	}
	return samples
}

func (m *Beep) NewSource() (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrAllocFailed
	}
	s := &beepSource{rate: m.rate, gain: 1.0}
	h := Source(m.nextHandle)
	m.nextHandle++
	m.sources[h] = s
	speaker.Play(s)
	return h, nil
}

func (m *Beep) source(src Source) *beepSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources[src]
}

func (m *Beep) FreeSource(src Source) {
	m.mu.Lock()
	s := m.sources[src]
	delete(m.sources, src)
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.mu.Lock()
	s.freed = true
	s.mu.Unlock()
}

func (m *Beep) NewBuffers(n int) ([]Buffer, error) {
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

func (m *Beep) FreeBuffers(bufs []Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bufs {
		delete(m.buffers, b)
	}
}

func (m *Beep) Queue(src Source, buf Buffer, data []byte, format audio.Format) error {
	s := m.source(src)
	if s == nil {
		return ErrBadHandle
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.queued = append(s.queued, queuedBuffer{handle: buf, data: cp, format: format})
	s.mu.Unlock()
	return nil
}

func (m *Beep) Processed(src Source) int {
	s := m.source(src)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

func (m *Beep) Unqueue(src Source) (Buffer, bool) {
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

func (m *Beep) UnqueueAll(src Source) []Buffer {
	s := m.source(src)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Buffer{}, s.processed...)
	if s.cur != nil {
		out = append(out, s.curBuf)
		s.cur = nil
		s.curPos = 0
	}
	for _, q := range s.queued {
		out = append(out, q.handle)
	}
	s.processed = nil
	s.queued = nil
	return out
}

func (m *Beep) Play(src Source) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.playing = true
		s.paused = false
		s.mu.Unlock()
	}
}

func (m *Beep) Stop(src Source) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.playing = false
		s.paused = false
		s.mu.Unlock()
	}
}

func (m *Beep) Pause(src Source) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		if s.playing {
			s.paused = true
		}
		s.mu.Unlock()
	}
}

func (m *Beep) Resume(src Source) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.paused = false
		s.mu.Unlock()
	}
}

func (m *Beep) SetGain(src Source, gain float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.gain = gain
		s.mu.Unlock()
	}
}

func (m *Beep) Gain(src Source) float32 {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.gain
	}
	return 0
}

func (m *Beep) SetPositionX(src Source, v float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.x = v
		s.mu.Unlock()
	}
}

func (m *Beep) SetPositionY(src Source, v float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.y = v
		s.mu.Unlock()
	}
}

func (m *Beep) SetPositionZ(src Source, v float32) {
	if s := m.source(src); s != nil {
		s.mu.Lock()
		s.z = v
		s.mu.Unlock()
	}
}

func (m *Beep) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sources := m.sources
	m.sources = make(map[Source]*beepSource)
	m.mu.Unlock()

	for _, s := range sources {
		s.mu.Lock()
		s.freed = true
		s.mu.Unlock()
	}
	return nil
}
