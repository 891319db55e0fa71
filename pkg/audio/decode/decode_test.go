// ABOUTME: Tests for decoder helpers
// ABOUTME: Tests null, silence, tone, slice decoders and format sniffing
package decode

import (
	"io"
	"testing"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

func TestNullDecoderImmediateEOF(t *testing.T) {
	d := NewNull(audio.CD)
	buf := make([]byte, 1024)

	n, err := d.DecodeChunk(buf)
	if n != 0 {
		t.Errorf("expected 0 bytes, got %d", n)
	}
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if d.Length() != 0 {
		t.Errorf("expected zero length")
	}
}

func TestSilenceDecoderLength(t *testing.T) {
	d := NewSilence(audio.CD, 100*time.Millisecond)
	want := audio.CD.Bytes(100 * time.Millisecond)

	buf := make([]byte, 4096)
	total := 0
	for {
		n, err := d.DecodeChunk(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		for i := 0; i < n; i++ {
			if buf[i] != 0 {
				t.Fatalf("silence produced non-zero byte at %d", i)
			}
		}
	}
	if total != want {
		t.Errorf("expected %d bytes of silence, got %d", want, total)
	}
}

func TestSilenceDecoderSeek(t *testing.T) {
	d := NewSilence(audio.CD, 100*time.Millisecond)
	if err := d.Seek(50 * time.Millisecond); err != nil {
		t.Fatalf("seek: %v", err)
	}

	buf := make([]byte, 1<<20)
	n, _ := d.DecodeChunk(buf)
	want := audio.CD.Bytes(50 * time.Millisecond)
	if n != want {
		t.Errorf("expected %d bytes after mid seek, got %d", want, n)
	}
}

func TestToneDecoderProducesSignal(t *testing.T) {
	d := NewTone(audio.CD, 440, 50*time.Millisecond)
	buf := make([]byte, 4096)

	n, err := d.DecodeChunk(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n == 0 {
		t.Fatal("tone produced no data")
	}

	nonZero := false
	for i := 0; i+1 < n; i += 2 {
		if audio.SampleAt(buf, i) != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("tone output is all zeros")
	}
}

func TestSliceDecoderBounds(t *testing.T) {
	base := NewSilence(audio.CD, time.Second)
	s := Slice(base, 200*time.Millisecond, 100*time.Millisecond, true)

	if s.Length() != 100*time.Millisecond {
		t.Errorf("expected slice length 100ms, got %v", s.Length())
	}

	buf := make([]byte, 1<<20)
	total := 0
	for {
		n, err := s.DecodeChunk(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if n == 0 {
			break
		}
	}
	want := audio.CD.Bytes(100 * time.Millisecond)
	if total != want {
		t.Errorf("expected %d bytes from slice, got %d", want, total)
	}
}

func TestSliceDecoderSeekClamps(t *testing.T) {
	base := NewSilence(audio.CD, time.Second)
	s := Slice(base, 0, 100*time.Millisecond, true)

	if err := s.Seek(10 * time.Second); err != nil {
		t.Fatalf("seek past end: %v", err)
	}
	n, err := s.DecodeChunk(make([]byte, 256))
	if n != 0 || err != io.EOF {
		t.Errorf("expected EOF at clamped end, got n=%d err=%v", n, err)
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name  string
		magic []byte
		want  string
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVE"), "wav"},
		{"ogg", []byte("OggS\x00\x00\x00\x00\x00\x00\x00\x00"), "ogg"},
		{"flac", []byte("fLaC\x00\x00\x00\x00\x00\x00\x00\x00"), "flac"},
		{"mp3 id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), "mp3"},
		{"mp3 frame", []byte{0xFF, 0xFB, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, "mp3"},
		{"unknown", []byte("NOPE\x00\x00\x00\x00\x00\x00\x00\x00"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniff(tt.magic); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
