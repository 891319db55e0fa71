// ABOUTME: Range-bounding decoder adapter
// ABOUTME: Exposes a [start, start+length) window of another decoder
package decode

import (
	"io"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
)

// SliceDecoder bounds another decoder to a time window. Several slices may
// share one underlying decoder as long as they are played in order; each
// slice seeks the underlying stream to its own start on first use.
type SliceDecoder struct {
	base      Decoder
	start     time.Duration
	length    time.Duration
	remaining int
	started   bool
	ownsBase  bool
}

// Slice creates a view of base covering [start, start+length). When ownsBase
// is set, closing the slice closes the underlying decoder; exactly one slice
// per shared decoder should own it.
func Slice(base Decoder, start, length time.Duration, ownsBase bool) *SliceDecoder {
	return &SliceDecoder{
		base:      base,
		start:     start,
		length:    length,
		remaining: base.Format().Bytes(length),
		ownsBase:  ownsBase,
	}
}

func (d *SliceDecoder) DecodeChunk(buf []byte) (int, error) {
	if !d.started {
		if err := d.base.Seek(d.start); err != nil && err != ErrNotSeekable {
			return 0, err
		}
		d.started = true
	}
	if d.remaining <= 0 {
		return 0, io.EOF
	}
	want := len(buf)
	if want > d.remaining {
		want = d.remaining
	}
	n, err := d.base.DecodeChunk(buf[:want])
	d.remaining -= n
	return n, err
}

// Seek repositions within the slice; positions are relative to the slice
// start and clamped to its window.
func (d *SliceDecoder) Seek(pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}
	if pos > d.length {
		pos = d.length
	}
	if err := d.base.Seek(d.start + pos); err != nil {
		return err
	}
	d.started = true
	d.remaining = d.base.Format().Bytes(d.length - pos)
	return nil
}

func (d *SliceDecoder) Format() audio.Format  { return d.base.Format() }
func (d *SliceDecoder) Length() time.Duration { return d.length }

func (d *SliceDecoder) Close() error {
	if d.ownsBase {
		return d.base.Close()
	}
	return nil
}
