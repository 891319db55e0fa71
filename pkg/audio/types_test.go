// ABOUTME: Tests for audio types
// ABOUTME: Tests format math and PCM byte conversion
package audio

import (
	"testing"
	"time"
)

func TestFormatMath(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

	if got := f.FrameSize(); got != 4 {
		t.Errorf("expected frame size 4, got %d", got)
	}
	if got := f.BytesPerSecond(); got != 176400 {
		t.Errorf("expected 176400 bytes/sec, got %d", got)
	}
}

func TestDurationBytesRoundTrip(t *testing.T) {
	f := CD

	tests := []struct {
		name string
		d    time.Duration
	}{
		{"one second", time.Second},
		{"half second", 500 * time.Millisecond},
		{"ten ms", 10 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := f.Bytes(tt.d)
			if n%f.FrameSize() != 0 {
				t.Errorf("byte count %d not frame aligned", n)
			}
			back := f.Duration(n)
			diff := back - tt.d
			if diff < 0 {
				diff = -diff
			}
			if diff > time.Millisecond {
				t.Errorf("round trip drifted: %v -> %d bytes -> %v", tt.d, n, back)
			}
		})
	}
}

func TestBytesNegativeDuration(t *testing.T) {
	if got := CD.Bytes(-time.Second); got != 0 {
		t.Errorf("expected 0 bytes for negative duration, got %d", got)
	}
}

func TestInt16ByteConversion(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	buf := make([]byte, len(samples)*2)

	n := Int16ToBytes(samples, buf)
	if n != len(buf) {
		t.Fatalf("expected %d bytes written, got %d", len(buf), n)
	}

	back := make([]int16, len(samples))
	BytesToInt16(buf, back)
	for i, want := range samples {
		if back[i] != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, back[i])
		}
	}

	if got := SampleAt(buf, 2); got != 100 {
		t.Errorf("SampleAt(2): expected 100, got %d", got)
	}
}
