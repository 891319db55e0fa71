// ABOUTME: Decoder interface definition and format-sniffing open
// ABOUTME: Common pull-based interface for all audio decoders
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

var (
	// ErrNotSeekable is returned by decoders whose input cannot be repositioned.
	ErrNotSeekable = errors.New("decoder does not support seeking")

	// ErrUnknownFormat is returned by Open when no decoder recognizes the input.
	ErrUnknownFormat = errors.New("unrecognized audio format")
)

// Decoder produces decoded PCM chunks on demand. Implementations return
// io.EOF from DecodeChunk once the stream is exhausted; a partial chunk
// followed by io.EOF on the next call is also valid.
type Decoder interface {
	// DecodeChunk fills buf with interleaved 16-bit little-endian PCM and
	// returns the number of bytes written.
	DecodeChunk(buf []byte) (int, error)

	// Seek repositions the stream to an absolute playback time.
	Seek(pos time.Duration) error

	// Format reports the PCM format of the decoded output.
	Format() audio.Format

	// Length reports the total stream duration, or 0 if unknown.
	Length() time.Duration

	// Close releases decoder resources.
	Close() error
}

// Open opens the named file and selects a decoder by sniffing its leading
// bytes, falling back on nothing: unknown content is an error.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	dec, err := OpenReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &fileDecoder{Decoder: dec, f: f}, nil
}

// OpenReader selects a decoder for rs by sniffing its leading bytes.
func OpenReader(rs io.ReadSeeker) (Decoder, error) {
	var magic [12]byte
	if _, err := io.ReadFull(rs, magic[:]); err != nil {
		return nil, fmt.Errorf("detecting audio format: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding input: %w", err)
	}

	switch sniff(magic[:]) {
	case "wav":
		return NewWAV(rs)
	case "ogg":
		// OggS pages carry either Vorbis or Opus; try Vorbis first since it
		// is by far the common case for game assets.
		if dec, err := NewVorbis(rs); err == nil {
			return dec, nil
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding input: %w", err)
		}
		return NewOpus(rs)
	case "flac":
		return NewFLAC(rs)
	case "mp3":
		return NewMP3(rs)
	}
	return nil, ErrUnknownFormat
}

// sniff identifies a container by its magic bytes.
func sniff(magic []byte) string {
	switch {
	case bytes.Equal(magic[:4], []byte("RIFF")) && bytes.Equal(magic[8:12], []byte("WAVE")):
		return "wav"
	case bytes.Equal(magic[:4], []byte("OggS")):
		return "ogg"
	case bytes.Equal(magic[:4], []byte("fLaC")):
		return "flac"
	case bytes.Equal(magic[:3], []byte("ID3")):
		return "mp3"
	case magic[0] == 0xFF && (magic[1] == 0xFB || magic[1] == 0xF3 || magic[1] == 0xF2):
		return "mp3"
	}
	return ""
}

// fileDecoder closes the backing file along with the decoder.
type fileDecoder struct {
	Decoder
	f *os.File
}

func (d *fileDecoder) Close() error {
	err := d.Decoder.Close()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}
