// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Vorbis streams via jfreymuth/oggvorbis
package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// VorbisDecoder decodes Ogg Vorbis streams.
type VorbisDecoder struct {
	r        *oggvorbis.Reader
	format   audio.Format
	seekable bool
	floats   []float32
}

// NewVorbis creates a Vorbis decoder reading from r. Seeking is only
// available when r is an io.ReadSeeker.
func NewVorbis(r io.Reader) (Decoder, error) {
	or, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open vorbis stream: %w", err)
	}

	_, seekable := r.(io.ReadSeeker)
	return &VorbisDecoder{
		r: or,
		format: audio.Format{
			SampleRate: or.SampleRate(),
			Channels:   or.Channels(),
			BitDepth:   16,
		},
		seekable: seekable,
	}, nil
}

// DecodeChunk fills buf with decoded PCM bytes.
func (d *VorbisDecoder) DecodeChunk(buf []byte) (int, error) {
	samples := len(buf) / 2
	if samples == 0 {
		return 0, nil
	}
	// Reader.Read wants a buffer holding whole frames.
	samples -= samples % d.format.Channels
	if cap(d.floats) < samples {
		d.floats = make([]float32, samples)
	}

	n, err := d.r.Read(d.floats[:samples])
	if n == 0 {
		if err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("vorbis decode: %w", err)
		}
		return 0, nil
	}

	for i := 0; i < n; i++ {
		f := d.floats[i]
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		s := int16(f * 32767)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(uint16(s) >> 8)
	}
	return n * 2, nil
}

// Seek repositions to an absolute playback time.
func (d *VorbisDecoder) Seek(pos time.Duration) error {
	if !d.seekable {
		return ErrNotSeekable
	}
	frame := int64(pos) * int64(d.format.SampleRate) / int64(time.Second)
	if err := d.r.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis seek: %w", err)
	}
	return nil
}

// Format reports the decoded PCM format.
func (d *VorbisDecoder) Format() audio.Format { return d.format }

// Length reports the total stream duration, or 0 when the input is not
// seekable and the length is unknown.
func (d *VorbisDecoder) Length() time.Duration {
	frames := d.r.Length()
	if frames <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(d.format.SampleRate)
}

// Close releases decoder resources.
func (d *VorbisDecoder) Close() error { return nil }
