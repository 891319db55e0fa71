// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and PCM conversion helpers
package audio

import (
	"encoding/binary"
	"time"
)

// Format describes a PCM audio stream. All decoded audio in this module is
// interleaved signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// CD is a reasonable default format for generated audio.
var CD = Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

// FrameSize returns the byte size of one frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.Channels * (f.BitDepth / 8)
}

// BytesPerSecond returns the PCM data rate in bytes.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Duration converts a PCM byte count to playback time.
func (f Format) Duration(nbytes int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(nbytes) * time.Second / time.Duration(bps)
}

// Bytes converts a playback time to a frame-aligned PCM byte count.
func (f Format) Bytes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := int(int64(d) * int64(f.BytesPerSecond()) / int64(time.Second))
	fs := f.FrameSize()
	if fs == 0 {
		return n
	}
	return n - n%fs
}

// Int16ToBytes encodes interleaved int16 samples as little-endian PCM.
func Int16ToBytes(samples []int16, out []byte) int {
	n := len(samples)
	if len(out)/2 < n {
		n = len(out) / 2
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(samples[i]))
	}
	return n * 2
}

// BytesToInt16 decodes little-endian PCM bytes into int16 samples.
func BytesToInt16(data []byte, out []int16) int {
	n := len(data) / 2
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return n
}

// SampleAt reads the int16 sample starting at byte offset i.
func SampleAt(data []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(data[i:]))
}
