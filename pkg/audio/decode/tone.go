// ABOUTME: Sine tone decoder
// ABOUTME: Generates a fixed-frequency test tone as a decoder
package decode

import (
	"io"
	"math"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// ToneDecoder generates a sine wave at a fixed frequency, at half amplitude
// to leave headroom for mixing.
type ToneDecoder struct {
	format    audio.Format
	frequency float64
	length    time.Duration
	frame     uint64
	total     uint64
}

// NewTone creates a tone decoder. A length of 0 means endless.
func NewTone(format audio.Format, frequency float64, length time.Duration) *ToneDecoder {
	var total uint64
	if length > 0 {
		total = uint64(int64(length) * int64(format.SampleRate) / int64(time.Second))
	}
	return &ToneDecoder{
		format:    format,
		frequency: frequency,
		length:    length,
		total:     total,
	}
}

func (d *ToneDecoder) DecodeChunk(buf []byte) (int, error) {
	frames := len(buf) / d.format.FrameSize()
	if frames == 0 {
		return 0, nil
	}
	if d.total > 0 {
		left := d.total - d.frame
		if left == 0 {
			return 0, io.EOF
		}
		if uint64(frames) > left {
			frames = int(left)
		}
	}

	for i := 0; i < frames; i++ {
		t := float64(d.frame+uint64(i)) / float64(d.format.SampleRate)
		v := int16(math.Sin(2*math.Pi*d.frequency*t) * 32767.0 * 0.5)
		for ch := 0; ch < d.format.Channels; ch++ {
			off := (i*d.format.Channels + ch) * 2
			buf[off] = byte(v)
			buf[off+1] = byte(uint16(v) >> 8)
		}
	}
	d.frame += uint64(frames)
	return frames * d.format.FrameSize(), nil
}

func (d *ToneDecoder) Seek(pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}
	frame := uint64(int64(pos) * int64(d.format.SampleRate) / int64(time.Second))
	if d.total > 0 && frame > d.total {
		frame = d.total
	}
	d.frame = frame
	return nil
}

func (d *ToneDecoder) Format() audio.Format  { return d.format }
func (d *ToneDecoder) Length() time.Duration { return d.length }
func (d *ToneDecoder) Close() error          { return nil }
