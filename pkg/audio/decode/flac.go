// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC streams frame-by-frame via mewkiz/flac
package decode

import (
	"fmt"
	"io"
	"time"

	"github.com/mewkiz/flac"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// FLACDecoder decodes FLAC streams.
type FLACDecoder struct {
	stream  *flac.Stream
	format  audio.Format
	srcBits int
	length  time.Duration
	pending []byte // decoded bytes not yet delivered
}

// NewFLAC creates a FLAC decoder reading from rs.
func NewFLAC(rs io.ReadSeeker) (Decoder, error) {
	stream, err := flac.NewSeek(rs)
	if err != nil {
		return nil, fmt.Errorf("open flac stream: %w", err)
	}

	info := stream.Info
	format := audio.Format{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		BitDepth:   16,
	}

	var length time.Duration
	if info.NSamples > 0 {
		length = time.Duration(info.NSamples) * time.Second / time.Duration(info.SampleRate)
	}

	return &FLACDecoder{
		stream:  stream,
		format:  format,
		srcBits: int(info.BitsPerSample),
		length:  length,
	}, nil
}

// DecodeChunk fills buf with decoded PCM bytes.
func (d *FLACDecoder) DecodeChunk(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		if len(d.pending) > 0 {
			n := copy(buf[total:], d.pending)
			d.pending = d.pending[n:]
			total += n
			continue
		}

		frame, err := d.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				if total > 0 {
					return total, nil
				}
				return 0, io.EOF
			}
			return total, fmt.Errorf("flac decode: %w", err)
		}

		blockSize := int(frame.BlockSize)
		chans := d.format.Channels
		out := make([]byte, blockSize*chans*2)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < chans; ch++ {
				s := d.to16(frame.Subframes[ch].Samples[i])
				off := (i*chans + ch) * 2
				out[off] = byte(s)
				out[off+1] = byte(uint16(s) >> 8)
			}
		}
		d.pending = out
	}
	return total, nil
}

// to16 scales a source-depth sample into 16-bit range.
func (d *FLACDecoder) to16(sample int32) int16 {
	switch {
	case d.srcBits == 16:
		return int16(sample)
	case d.srcBits > 16:
		return int16(sample >> (d.srcBits - 16))
	default:
		return int16(sample << (16 - d.srcBits))
	}
}

// Seek repositions to an absolute playback time.
func (d *FLACDecoder) Seek(pos time.Duration) error {
	frame := uint64(int64(pos) * int64(d.format.SampleRate) / int64(time.Second))
	if _, err := d.stream.Seek(frame); err != nil {
		return fmt.Errorf("flac seek: %w", err)
	}
	d.pending = nil
	return nil
}

// Format reports the decoded PCM format.
func (d *FLACDecoder) Format() audio.Format { return d.format }

// Length reports the total stream duration, or 0 if unknown.
func (d *FLACDecoder) Length() time.Duration { return d.length }

// Close releases decoder resources.
func (d *FLACDecoder) Close() error { return nil }
