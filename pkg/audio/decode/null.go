// ABOUTME: Null and silence decoders
// ABOUTME: Empty and all-zero PCM sources for fallbacks and tests
package decode

import (
	"io"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// NullDecoder reports end-of-stream immediately. It stands in wherever a
// decoder is required but no audio exists.
type NullDecoder struct {
	format audio.Format
}

// NewNull creates a decoder that is already at end-of-stream.
func NewNull(format audio.Format) *NullDecoder {
	return &NullDecoder{format: format}
}

func (d *NullDecoder) DecodeChunk(buf []byte) (int, error) { return 0, io.EOF }
func (d *NullDecoder) Seek(pos time.Duration) error        { return nil }
func (d *NullDecoder) Format() audio.Format                { return d.format }
func (d *NullDecoder) Length() time.Duration               { return 0 }
func (d *NullDecoder) Close() error                        { return nil }

// SilenceDecoder produces zeroed PCM for a fixed duration.
type SilenceDecoder struct {
	format    audio.Format
	length    time.Duration
	remaining int
}

// NewSilence creates a decoder producing length worth of silence.
func NewSilence(format audio.Format, length time.Duration) *SilenceDecoder {
	return &SilenceDecoder{
		format:    format,
		length:    length,
		remaining: format.Bytes(length),
	}
}

func (d *SilenceDecoder) DecodeChunk(buf []byte) (int, error) {
	if d.remaining <= 0 {
		return 0, io.EOF
	}
	n := len(buf)
	if n > d.remaining {
		n = d.remaining
	}
	for i := 0; i < n; i++ {
		buf[i] = 0
	}
	d.remaining -= n
	return n, nil
}

func (d *SilenceDecoder) Seek(pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}
	if pos > d.length {
		pos = d.length
	}
	d.remaining = d.format.Bytes(d.length - pos)
	return nil
}

func (d *SilenceDecoder) Format() audio.Format  { return d.format }
func (d *SilenceDecoder) Length() time.Duration { return d.length }
func (d *SilenceDecoder) Close() error          { return nil }
