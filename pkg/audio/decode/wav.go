// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE PCM via go-audio/wav
package decode

import (
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// WAVDecoder decodes RIFF/WAVE PCM files.
type WAVDecoder struct {
	rs      io.ReadSeeker
	dec     *wav.Decoder
	format  audio.Format
	length  time.Duration
	intBuf *goaudio.IntBuffer
	pos    int // decoded bytes delivered since last seek/open
}

// NewWAV creates a WAV decoder reading from rs.
func NewWAV(rs io.ReadSeeker) (Decoder, error) {
	dec := wav.NewDecoder(rs)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	format := audio.Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   16,
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported WAV bit depth: %d (supported: 16)", dec.BitDepth)
	}

	length, err := dec.Duration()
	if err != nil {
		length = 0
	}

	return &WAVDecoder{
		rs:     rs,
		dec:    dec,
		format: format,
		length: length,
	}, nil
}

// DecodeChunk fills buf with decoded PCM bytes.
func (d *WAVDecoder) DecodeChunk(buf []byte) (int, error) {
	samples := len(buf) / 2
	if samples == 0 {
		return 0, nil
	}
	if d.intBuf == nil || cap(d.intBuf.Data) < samples {
		d.intBuf = &goaudio.IntBuffer{
			Data: make([]int, samples),
			Format: &goaudio.Format{
				NumChannels: d.format.Channels,
				SampleRate:  d.format.SampleRate,
			},
		}
	}
	d.intBuf.Data = d.intBuf.Data[:samples]

	n, err := d.dec.PCMBuffer(d.intBuf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wav decode: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		s := int16(d.intBuf.Data[i])
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(uint16(s) >> 8)
	}
	d.pos += n * 2
	return n * 2, nil
}

// Seek repositions to an absolute playback time by re-opening the stream and
// skipping forward; go-audio exposes no direct sample-accurate seek.
func (d *WAVDecoder) Seek(pos time.Duration) error {
	if _, err := d.rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav seek: %w", err)
	}
	dec := wav.NewDecoder(d.rs)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return fmt.Errorf("wav seek: stream no longer valid")
	}
	d.dec = dec
	d.pos = 0

	skip := d.format.Bytes(pos)
	scratch := make([]byte, 8192)
	for skip > 0 {
		want := len(scratch)
		if want > skip {
			want = skip
		}
		n, err := d.DecodeChunk(scratch[:want])
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		skip -= n
	}
	d.pos = 0
	return nil
}

// Format reports the decoded PCM format.
func (d *WAVDecoder) Format() audio.Format { return d.format }

// Length reports the total stream duration.
func (d *WAVDecoder) Length() time.Duration { return d.length }

// Close releases decoder resources.
func (d *WAVDecoder) Close() error { return nil }
