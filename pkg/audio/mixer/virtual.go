// ABOUTME: In-memory mixer backend
// ABOUTME: Deterministic, headless mixer for tests and silent operation
package mixer

import (
	"sync"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// Virtual is an in-memory Mixer. Nothing is played; queued buffers stay
// pending until Advance moves them to the processed list, which lets tests
// drive buffer consumption deterministically.
type Virtual struct {
	mu         sync.Mutex
	nextHandle uint32
	sources    map[Source]*virtualSource
	buffers    map[Buffer]bool
	maxSources int
	maxBuffers int
}

type virtualSource struct {
	queued    []queuedBuffer
	processed []Buffer
	playing   bool
	paused    bool
	gain      float32
	x, y, z   float32
}

type queuedBuffer struct {
	handle Buffer
	data   []byte
	format audio.Format
}

// NewVirtual creates an in-memory mixer with no allocation limits.
func NewVirtual() *Virtual {
	return &Virtual{
		sources:    make(map[Source]*virtualSource),
		buffers:    make(map[Buffer]bool),
		nextHandle: 1,
	}
}

// SetLimits caps allocations; 0 means unlimited. Used to test engine
// behavior when the mixer runs out of handles.
func (m *Virtual) SetLimits(maxSources, maxBuffers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSources = maxSources
	m.maxBuffers = maxBuffers
}

func (m *Virtual) NewSource() (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxSources > 0 && len(m.sources) >= m.maxSources {
		return 0, ErrAllocFailed
	}
	h := Source(m.nextHandle)
	m.nextHandle++
	m.sources[h] = &virtualSource{gain: 1.0}
	return h, nil
}

func (m *Virtual) FreeSource(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, src)
}

func (m *Virtual) NewBuffers(n int) ([]Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBuffers > 0 && len(m.buffers)+n > m.maxBuffers {
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

func (m *Virtual) FreeBuffers(bufs []Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bufs {
		delete(m.buffers, b)
	}
}

func (m *Virtual) Queue(src Source, buf Buffer, data []byte, format audio.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[src]
	if !ok {
		return ErrBadHandle
	}
	if !m.buffers[buf] {
		return ErrBadHandle
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.queued = append(s.queued, queuedBuffer{handle: buf, data: cp, format: format})
	return nil
}

func (m *Virtual) Processed(src Source) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		return len(s.processed)
	}
	return 0
}

func (m *Virtual) Unqueue(src Source) (Buffer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[src]
	if !ok || len(s.processed) == 0 {
		return NoBuffer, false
	}
	b := s.processed[0]
	s.processed = s.processed[1:]
	return b, true
}

func (m *Virtual) UnqueueAll(src Source) []Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[src]
	if !ok {
		return nil
	}
	out := append([]Buffer{}, s.processed...)
	for _, q := range s.queued {
		out = append(out, q.handle)
	}
	s.processed = nil
	s.queued = nil
	return out
}

func (m *Virtual) Play(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		s.playing = true
		s.paused = false
	}
}

func (m *Virtual) Stop(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		s.playing = false
		s.paused = false
	}
}

func (m *Virtual) Pause(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok && s.playing {
		s.paused = true
	}
}

func (m *Virtual) Resume(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		s.paused = false
	}
}

func (m *Virtual) SetGain(src Source, gain float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		s.gain = gain
	}
}

func (m *Virtual) Gain(src Source) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		return s.gain
	}
	return 0
}

func (m *Virtual) SetPositionX(src Source, v float32) { m.setPos(src, &v, nil, nil) }
func (m *Virtual) SetPositionY(src Source, v float32) { m.setPos(src, nil, &v, nil) }
func (m *Virtual) SetPositionZ(src Source, v float32) { m.setPos(src, nil, nil, &v) }

func (m *Virtual) setPos(src Source, x, y, z *float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[src]
	if !ok {
		return
	}
	if x != nil {
		s.x = *x
	}
	if y != nil {
		s.y = *y
	}
	if z != nil {
		s.z = *z
	}
}

// Position reports the positional scalars, for tests.
func (m *Virtual) Position(src Source) (x, y, z float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		return s.x, s.y, s.z
	}
	return 0, 0, 0
}

// Advance marks up to n queued buffers on src as consumed, simulating the
// hardware draining the queue.
func (m *Virtual) Advance(src Source, n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[src]
	if !ok {
		return 0
	}
	moved := 0
	for moved < n && len(s.queued) > 0 {
		q := s.queued[0]
		s.queued = s.queued[1:]
		s.processed = append(s.processed, q.handle)
		moved++
	}
	return moved
}

// Pending reports how many buffers are queued but not yet consumed.
func (m *Virtual) Pending(src Source) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		return len(s.queued)
	}
	return 0
}

// Playing reports the playback state of src, for tests.
func (m *Virtual) Playing(src Source) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[src]; ok {
		return s.playing && !s.paused
	}
	return false
}

func (m *Virtual) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = make(map[Source]*virtualSource)
	m.buffers = make(map[Buffer]bool)
	return nil
}
