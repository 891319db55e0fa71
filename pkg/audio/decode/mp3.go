// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 streams via hajimehoshi/go-mp3
package decode

import (
	"fmt"
	"io"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// MP3Decoder decodes MP3 streams. go-mp3 always outputs 16-bit stereo.
type MP3Decoder struct {
	dec    *mp3.Decoder
	format audio.Format
}

// NewMP3 creates an MP3 decoder reading from r.
func NewMP3(r io.Reader) (Decoder, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open mp3 stream: %w", err)
	}

	return &MP3Decoder{
		dec: dec,
		format: audio.Format{
			SampleRate: dec.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

// DecodeChunk fills buf with decoded PCM bytes.
func (d *MP3Decoder) DecodeChunk(buf []byte) (int, error) {
	n, err := d.dec.Read(buf)
	if n == 0 {
		if err == io.EOF {
			return 0, io.EOF
		}
		if err != nil {
			return 0, fmt.Errorf("mp3 decode: %w", err)
		}
	}
	return n, nil
}

// Seek repositions to an absolute playback time.
func (d *MP3Decoder) Seek(pos time.Duration) error {
	offset := int64(d.format.Bytes(pos))
	if _, err := d.dec.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek: %w", err)
	}
	return nil
}

// Format reports the decoded PCM format.
func (d *MP3Decoder) Format() audio.Format { return d.format }

// Length reports the total stream duration, or 0 if unknown.
func (d *MP3Decoder) Length() time.Duration {
	n := d.dec.Length()
	if n <= 0 {
		return 0
	}
	return d.format.Duration(int(n))
}

// Close releases decoder resources.
func (d *MP3Decoder) Close() error { return nil }
