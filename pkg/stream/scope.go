// ABOUTME: Oscilloscope scope ring buffer
// ABOUTME: Circular PCM capture with peak-tracking gain control for waveform rendering
package stream

import (
	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

const (
	// scopeDecay shrinks the tracked peak each render so the automatic gain
	// recovers after loud passages.
	scopeDecay = 0.975

	// scopeGate is the peak amplitude below which the scope renders flat,
	// suppressing noise-floor wiggle when nothing meaningful is playing.
	scopeGate = 400
)

// scopeRing captures recently queued PCM in a circular byte buffer so an
// oscilloscope view can sample it without touching the decode path.
type scopeRing struct {
	data  []byte
	w     int
	total int
	peak  float64
}

func newScopeRing(size int) *scopeRing {
	return &scopeRing{data: make([]byte, size)}
}

// write appends PCM bytes, wrapping at the buffer boundary. Writes larger
// than the ring keep only the trailing portion.
func (r *scopeRing) write(p []byte) {
	if len(p) >= len(r.data) {
		p = p[len(p)-len(r.data):]
	}
	n := copy(r.data[r.w:], p)
	if n < len(p) {
		copy(r.data, p[n:])
	}
	r.w = (r.w + len(p)) % len(r.data)
	r.total += len(p)
}

// reset discards all captured audio and the gain state.
func (r *scopeRing) reset() {
	r.w = 0
	r.total = 0
	r.peak = 0
}

// render writes width Y coordinates into out, scaled to [0, height). It walks
// the most recent width frames of the first channel, normalizing by a slowly
// decaying peak so quiet and loud audio both fill the display. Returns the
// number of coordinates written: width, or 0 when not enough audio has been
// captured or the signal sits under the gate.
func (r *scopeRing) render(out []int, width, height int, f audio.Format) int {
	if width <= 0 || height <= 1 || len(out) < width {
		return 0
	}
	frame := f.FrameSize()
	if frame == 0 {
		return 0
	}
	need := width * frame
	if r.total < need || need > len(r.data) {
		return 0
	}

	// Find this window's peak first so scaling is uniform across it.
	var winPeak float64
	for i := 0; i < width; i++ {
		v := float64(r.sampleAt(need - i*frame))
		if v < 0 {
			v = -v
		}
		if v > winPeak {
			winPeak = v
		}
	}

	r.peak *= scopeDecay
	if winPeak > r.peak {
		r.peak = winPeak
	}
	if r.peak < scopeGate {
		return 0
	}

	mid := height / 2
	scale := float64(mid-1) / r.peak
	for i := 0; i < width; i++ {
		v := float64(r.sampleAt(need-i*frame)) * scale
		y := mid + int(v)
		if y < 0 {
			y = 0
		}
		if y >= height {
			y = height - 1
		}
		out[i] = y
	}
	return width
}

// sampleAt reads the first-channel sample located back bytes behind the
// write cursor.
func (r *scopeRing) sampleAt(back int) int16 {
	i := r.w - back
	i %= len(r.data)
	if i < 0 {
		i += len(r.data)
	}
	// A frame never straddles the ring boundary when size is frame-aligned;
	// guard the last byte anyway.
	if i+1 >= len(r.data) {
		return int16(r.data[i])
	}
	return audio.SampleAt(r.data, i)
}
