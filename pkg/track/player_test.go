// ABOUTME: Tests for the track player
// ABOUTME: Tests splicing, teardown, seek clamping, subtitle queries, and playback
package track

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/mixer"
	"github.com/Soundline-Audio/soundline-go/pkg/stream"
)

func newTestPlayer(t *testing.T, cfg Config) (*Player, *mixer.Virtual) {
	t.Helper()
	mix := mixer.NewVirtual()
	engine, err := stream.NewEngine(mix, stream.Config{SweepInterval: 2 * time.Millisecond})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	p := New(engine, cfg)
	t.Cleanup(func() {
		p.StopTrack()
		engine.Close()
		mix.Close()
	})
	return p, mix
}

// drain simulates the hardware consuming queued buffers.
func drain(mix *mixer.Virtual, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		for h := 1; h <= 16; h++ {
			mix.Advance(mixer.Source(h), 4)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStopTrackDropsLongChainIteratively(t *testing.T) {
	p, _ := newTestPlayer(t, Config{})

	const chunks = 10000
	for i := 0; i < chunks; i++ {
		if err := p.SpliceTrack(decode.NewSilence(audio.CD, 10*time.Millisecond), ""); err != nil {
			t.Fatalf("splice %d: %v", i, err)
		}
	}
	if got := p.Tracks(); got != chunks {
		t.Fatalf("expected %d units, got %d", chunks, got)
	}

	// A recursive drop would blow the stack at this depth.
	p.StopTrack()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.decodeCur != nil || p.subCur != nil {
		t.Error("cursors not zeroed")
	}
	if p.head != nil || p.tail != nil {
		t.Error("list not dropped")
	}
	if p.count != 0 {
		t.Errorf("expected 0 chunks, got %d", p.count)
	}
}

func TestSeekTrackClamps(t *testing.T) {
	p, _ := newTestPlayer(t, Config{})

	for i := 0; i < 3; i++ {
		if err := p.SpliceTrack(decode.NewSilence(audio.CD, 100*time.Millisecond), ""); err != nil {
			t.Fatalf("splice: %v", err)
		}
	}

	tests := []struct {
		name string
		pos  int
		want int
	}{
		{"far negative", -5, 0},
		{"zero", 0, 0},
		{"in range", 2, 2},
		{"end", 3, 3},
		{"one past end", 4, 4},
		{"far past end", 100, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.SeekTrack(tt.pos); got != tt.want {
				t.Errorf("SeekTrack(%d): expected %d, got %d", tt.pos, tt.want, got)
			}
		})
	}
}

func TestJumpTrack(t *testing.T) {
	p, _ := newTestPlayer(t, Config{})

	for i := 0; i < 4; i++ {
		p.SpliceTrack(decode.NewSilence(audio.CD, 100*time.Millisecond), "")
	}

	if got := p.JumpTrack(2); got != 2 {
		t.Errorf("expected unit 2, got %d", got)
	}
	if got := p.JumpTrack(-1); got != 1 {
		t.Errorf("expected unit 1, got %d", got)
	}
	if got := p.JumpTrack(-10); got != 0 {
		t.Errorf("expected clamp at 0, got %d", got)
	}
}

func TestPlayTrackWithoutSplice(t *testing.T) {
	p, _ := newTestPlayer(t, Config{})
	if err := p.PlayTrack(); err != ErrNoTrack {
		t.Errorf("expected ErrNoTrack, got %v", err)
	}
}

func TestSubtitleQueriesDoNotMoveCursors(t *testing.T) {
	p, _ := newTestPlayer(t, Config{})

	p.SpliceTrack(decode.NewSilence(audio.CD, 100*time.Millisecond), "hello")
	p.SpliceTrack(decode.NewSilence(audio.CD, 100*time.Millisecond), "world")

	first := p.FirstSubtitle()
	if first == nil || p.SubtitleText(first) != "hello" {
		t.Fatalf("expected first subtitle 'hello', got %q", p.SubtitleText(first))
	}
	second := p.NextSubtitle(first)
	if second == nil || p.SubtitleText(second) != "world" {
		t.Fatalf("expected next subtitle 'world', got %q", p.SubtitleText(second))
	}
	if p.NextSubtitle(second) != nil {
		t.Error("expected nil past the last subtitle")
	}

	p.mu.Lock()
	moved := p.decodeCur != nil || p.subCur != nil
	p.mu.Unlock()
	if moved {
		t.Error("read-only queries moved playback cursors")
	}
}

func TestSubtitleAtPosition(t *testing.T) {
	p, _ := newTestPlayer(t, Config{})

	p.SpliceTrack(decode.NewSilence(audio.CD, 100*time.Millisecond), "one")
	p.SpliceTrack(decode.NewSilence(audio.CD, 100*time.Millisecond), "two")

	if s := p.SubtitleAtPosition(-time.Second); s != nil {
		t.Error("expected nil before the first page")
	}
	if s := p.SubtitleAtPosition(50 * time.Millisecond); p.SubtitleText(s) != "one" {
		t.Errorf("at 50ms expected 'one', got %q", p.SubtitleText(s))
	}
	if s := p.SubtitleAtPosition(150 * time.Millisecond); p.SubtitleText(s) != "two" {
		t.Errorf("at 150ms expected 'two', got %q", p.SubtitleText(s))
	}
	if s := p.SubtitleAtPosition(time.Hour); p.SubtitleText(s) != "two" {
		t.Errorf("past the end expected 'two', got %q", p.SubtitleText(s))
	}
}

func TestPlayTrackToCompletion(t *testing.T) {
	p, mix := newTestPlayer(t, Config{})

	if err := p.SpliceTrack(decode.NewSilence(audio.CD, 50*time.Millisecond), "brief line"); err != nil {
		t.Fatalf("splice: %v", err)
	}
	if err := p.PlayTrack(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !p.PlayingTrack() {
		t.Fatal("expected playing after PlayTrack")
	}
	if p.SubtitleText(nil) != "brief line" {
		t.Errorf("expected current subtitle at start, got %q", p.SubtitleText(nil))
	}

	stop := make(chan struct{})
	go drain(mix, stop)
	defer close(stop)

	waitFor(t, time.Second, func() bool { return !p.PlayingTrack() },
		"track never finished")
}

func TestMultiPageTrackAdvancesSubtitles(t *testing.T) {
	p, mix := newTestPlayer(t, Config{MaxPageChars: 11})

	// Two pages over a 200ms stream, second page starting at 100ms.
	dec := decode.NewSilence(audio.CD, 200*time.Millisecond)
	if err := p.SpliceTrack(dec, "first page second page", 0, 100*time.Millisecond); err != nil {
		t.Fatalf("splice: %v", err)
	}

	var fired atomic.Int32
	p.OnPageCallback(func() { fired.Add(1) })

	p.mu.Lock()
	pageCount := p.count
	p.mu.Unlock()
	if pageCount != 2 {
		t.Fatalf("expected 2 chunks, got %d", pageCount)
	}

	if err := p.PlayTrack(); err != nil {
		t.Fatalf("play: %v", err)
	}

	stop := make(chan struct{})
	go drain(mix, stop)
	defer close(stop)

	waitFor(t, 2*time.Second, func() bool { return !p.PlayingTrack() },
		"multi-page track never finished")

	if fired.Load() != 1 {
		t.Errorf("expected second page callback to fire once, got %d", fired.Load())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subCur == nil || p.subCur != p.tail {
		t.Error("subtitle cursor did not advance to the final page")
	}
	if !p.subCur.finalPage() {
		t.Error("final page marker missing")
	}
}

func TestSpliceMultiTrack(t *testing.T) {
	p, _ := newTestPlayer(t, Config{})

	decs := []decode.Decoder{
		decode.NewSilence(audio.CD, 50*time.Millisecond),
		decode.NewSilence(audio.CD, 50*time.Millisecond),
		decode.NewSilence(audio.CD, 50*time.Millisecond),
	}
	if err := p.SpliceMultiTrack(decs, "group line"); err != nil {
		t.Fatalf("splice multi: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count != 3 {
		t.Fatalf("expected 3 chunks, got %d", p.count)
	}
	tracks := map[int]bool{}
	for c := p.head; c != nil; c = c.next {
		tracks[c.track] = true
	}
	if len(tracks) != 3 {
		t.Errorf("expected 3 distinct track indices, got %d", len(tracks))
	}
	if p.head.text != "group line" {
		t.Errorf("text should attach to the first chunk, got %q", p.head.text)
	}
	if !p.tail.finalPage() {
		t.Error("last chunk should carry the splice-end marker")
	}
}
