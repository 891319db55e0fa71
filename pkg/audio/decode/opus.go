// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes ogg-encapsulated Opus via hraban/opus
package decode

import (
	"fmt"
	"io"
	"time"

	opus "gopkg.in/hraban/opus.v2"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// opusChannels is fixed: the decoder is configured for stereo output, the
// usual encapsulation for speech and music assets.
const opusChannels = 2

// OpusDecoder decodes ogg-encapsulated Opus streams. Opus always decodes at
// 48 kHz; the stream offers no sample-accurate seek.
type OpusDecoder struct {
	stream *opus.Stream
	format audio.Format
	pcm    []int16
}

// NewOpus creates an Opus decoder reading from r.
func NewOpus(r io.Reader) (Decoder, error) {
	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("open opus stream: %w", err)
	}

	return &OpusDecoder{
		stream: stream,
		format: audio.Format{
			SampleRate: 48000,
			Channels:   opusChannels,
			BitDepth:   16,
		},
	}, nil
}

// DecodeChunk fills buf with decoded PCM bytes.
func (d *OpusDecoder) DecodeChunk(buf []byte) (int, error) {
	samples := len(buf) / 2
	if samples == 0 {
		return 0, nil
	}
	if cap(d.pcm) < samples {
		d.pcm = make([]int16, samples)
	}

	frames, err := d.stream.Read(d.pcm[:samples])
	if frames == 0 {
		if err == io.EOF {
			return 0, io.EOF
		}
		if err != nil {
			return 0, fmt.Errorf("opus decode: %w", err)
		}
		return 0, nil
	}

	n := frames * opusChannels
	if n > samples {
		n = samples
	}
	return audio.Int16ToBytes(d.pcm[:n], buf), nil
}

// Seek is unsupported; opus streams deliver audio strictly forward.
func (d *OpusDecoder) Seek(pos time.Duration) error { return ErrNotSeekable }

// Format reports the decoded PCM format.
func (d *OpusDecoder) Format() audio.Format { return d.format }

// Length reports 0: total duration is unknown without a full scan.
func (d *OpusDecoder) Length() time.Duration { return 0 }

// Close releases decoder resources.
func (d *OpusDecoder) Close() error {
	return d.stream.Close()
}
