// ABOUTME: Tests for the stream engine
// ABOUTME: Tests playback lifecycle, end-of-stream handling, fades, and error returns
package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/mixer"
)

func newTestEngine(t *testing.T) (*Engine, *mixer.Virtual) {
	t.Helper()
	mix := mixer.NewVirtual()
	e, err := NewEngine(mix, Config{SweepInterval: 2 * time.Millisecond})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() {
		e.Close()
		mix.Close()
	})
	return e, mix
}

// drain keeps moving queued buffers to processed on every mixer source so
// playback can run to completion without hardware.
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

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestPlayNullDecoderEndsWithoutDeadlock(t *testing.T) {
	e, _ := newTestEngine(t)

	smp, err := e.NewSample(decode.NewNull(audio.CD), 4, nil)
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	defer smp.Release()

	if err := e.Play(MusicSource, smp, false); err != nil {
		t.Fatalf("play: %v", err)
	}

	waitFor(t, time.Second, func() bool { return !e.Playing(MusicSource) },
		"source never stopped after immediate end-of-stream")
}

func TestStopResetsSourceState(t *testing.T) {
	e, _ := newTestEngine(t)

	smp, err := e.NewSample(decode.NewSilence(audio.CD, time.Second), 4, nil)
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	defer smp.Release()

	if err := e.Play(MusicSource, smp, false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !e.Playing(MusicSource) {
		t.Fatal("expected playing after Play")
	}
	e.SetFade(MusicSource, 0, time.Second)

	if err := e.Stop(MusicSource); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if e.Playing(MusicSource) {
		t.Error("expected not playing after Stop")
	}
	if e.Position(MusicSource) != 0 {
		t.Error("expected zero position after Stop")
	}

	s := e.sources[MusicSource]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sample != nil {
		t.Error("sample reference not cleared")
	}
	if s.queued != 0 || len(s.free) != 0 {
		t.Error("buffer bookkeeping not cleared")
	}
	if s.scope.total != 0 {
		t.Error("scope buffer not cleared")
	}
	if !s.startTime.IsZero() || !s.pausedAt.IsZero() {
		t.Error("timing not cleared")
	}
	if _, active, _ := s.fade.value(time.Now()); active {
		t.Error("fade not cleared")
	}
}

type abortCallbacks struct {
	NopCallbacks
}

func (abortCallbacks) OnStart(*Sample) bool { return false }

func TestOnStartFalseAbortsPlayback(t *testing.T) {
	e, _ := newTestEngine(t)

	smp, err := e.NewSample(decode.NewSilence(audio.CD, time.Second), 4, abortCallbacks{})
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	defer smp.Release()

	if err := e.Play(MusicSource, smp, false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if e.Playing(MusicSource) {
		t.Error("expected no playback when OnStart returns false")
	}
}

func TestInvalidIndexErrors(t *testing.T) {
	e, _ := newTestEngine(t)

	smp, _ := e.NewSample(decode.NewNull(audio.CD), 2, nil)
	defer smp.Release()

	if err := e.Play(-1, smp, false); err != ErrInvalidSource {
		t.Errorf("Play(-1): expected ErrInvalidSource, got %v", err)
	}
	if err := e.Stop(99); err != ErrInvalidSource {
		t.Errorf("Stop(99): expected ErrInvalidSource, got %v", err)
	}
	if err := e.Seek(MusicSource, 0); err != ErrInvalidSample {
		t.Errorf("Seek with no sample: expected ErrInvalidSample, got %v", err)
	}
	if err := e.Play(MusicSource, nil, false); err != ErrInvalidSample {
		t.Errorf("Play(nil): expected ErrInvalidSample, got %v", err)
	}
}

func newClockedEngine(t *testing.T, clock *fakeClock) *Engine {
	t.Helper()
	mix := mixer.NewVirtual()
	e, err := NewEngine(mix, Config{SweepInterval: 2 * time.Millisecond, Now: clock.now})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() {
		e.Close()
		mix.Close()
	})
	return e
}

func TestPauseResumeKeepsPositionMonotonic(t *testing.T) {
	clock := newFakeClock()
	e := newClockedEngine(t, clock)

	smp, err := e.NewSample(decode.NewSilence(audio.CD, time.Minute), 4, nil)
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	defer smp.Release()

	if err := e.Play(MusicSource, smp, false); err != nil {
		t.Fatalf("play: %v", err)
	}

	clock.advance(2 * time.Second)
	if pos := e.Position(MusicSource); pos != 2*time.Second {
		t.Fatalf("expected position 2s, got %v", pos)
	}

	e.Pause(MusicSource)
	clock.advance(10 * time.Second)
	if pos := e.Position(MusicSource); pos != 2*time.Second {
		t.Errorf("paused position should hold at 2s, got %v", pos)
	}

	// Pause again is a no-op.
	e.Pause(MusicSource)

	e.Resume(MusicSource)
	clock.advance(time.Second)
	if pos := e.Position(MusicSource); pos != 3*time.Second {
		t.Errorf("expected position 3s after resume, got %v", pos)
	}

	// Resume again is a no-op.
	e.Resume(MusicSource)
	if pos := e.Position(MusicSource); pos != 3*time.Second {
		t.Errorf("double resume shifted position to %v", pos)
	}
}

func TestSetFadeZeroDurationIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	if e.SetFade(MusicSource, 0.5, 0) {
		t.Error("expected false for zero duration fade")
	}
	if v := e.Volume(MusicSource); v != 1.0 {
		t.Errorf("volume should be untouched, got %v", v)
	}
}

func TestSetFadeReanchorsMidFade(t *testing.T) {
	clock := newFakeClock()
	e := newClockedEngine(t, clock)

	if !e.SetFade(MusicSource, 0.0, time.Second) {
		t.Fatal("expected fade to start")
	}

	clock.advance(500 * time.Millisecond)
	if v := e.Volume(MusicSource); v < 0.49 || v > 0.51 {
		t.Fatalf("expected ~0.5 mid-fade, got %v", v)
	}

	// Second fade anchors at the instantaneous volume, not at 1.0.
	e.SetFade(MusicSource, 1.0, time.Second)
	if v := e.Volume(MusicSource); v < 0.49 || v > 0.51 {
		t.Errorf("expected re-anchored ~0.5, got %v", v)
	}

	clock.advance(time.Second)
	if v := e.Volume(MusicSource); v != 1.0 {
		t.Errorf("expected exactly 1.0 at fade end, got %v", v)
	}
	clock.advance(time.Hour)
	if v := e.Volume(MusicSource); v != 1.0 {
		t.Errorf("expected no overshoot, got %v", v)
	}
}

func TestLoopingRewindsAtEOF(t *testing.T) {
	e, mix := newTestEngine(t)

	smp, err := e.NewSample(decode.NewSilence(audio.CD, 50*time.Millisecond), 4, nil)
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	defer smp.Release()

	if err := e.Play(MusicSource, smp, true); err != nil {
		t.Fatalf("play: %v", err)
	}

	stop := make(chan struct{})
	go drain(mix, stop)
	defer close(stop)

	// The 50ms stream would end many times over; looping keeps it alive.
	time.Sleep(200 * time.Millisecond)
	if !e.Playing(MusicSource) {
		t.Error("looping source stopped at end-of-stream")
	}
}

type chainCallbacks struct {
	mu         sync.Mutex
	next       decode.Decoder
	chunkEnds  int
	streamEnds int
}

func (c *chainCallbacks) OnStart(*Sample) bool { return true }

func (c *chainCallbacks) OnChunkEnd(s *Sample, _ mixer.Buffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunkEnds++
	if c.next == nil {
		return false
	}
	s.SwapDecoder(c.next)
	c.next = nil
	return true
}

func (c *chainCallbacks) OnStreamEnd(*Sample) {
	c.mu.Lock()
	c.streamEnds++
	c.mu.Unlock()
}

func (c *chainCallbacks) OnTaggedBuffer(*Sample, any) {}

func TestChunkEndSwapsDecoderGaplessly(t *testing.T) {
	e, mix := newTestEngine(t)

	cb := &chainCallbacks{next: decode.NewSilence(audio.CD, 30*time.Millisecond)}
	first := decode.NewSilence(audio.CD, 30*time.Millisecond)

	smp, err := e.NewSample(first, 4, cb)
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	defer smp.Release()

	if err := e.Play(SpeechSource, smp, false); err != nil {
		t.Fatalf("play: %v", err)
	}

	stop := make(chan struct{})
	go drain(mix, stop)
	defer close(stop)

	waitFor(t, time.Second, func() bool { return !e.Playing(SpeechSource) },
		"chained playback never finished")

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.chunkEnds != 2 {
		t.Errorf("expected 2 chunk ends, got %d", cb.chunkEnds)
	}
	if cb.streamEnds != 1 {
		t.Errorf("expected 1 stream end, got %d", cb.streamEnds)
	}
}

func TestCloseIdempotent(t *testing.T) {
	mix := mixer.NewVirtual()
	defer mix.Close()
	e, err := NewEngine(mix, Config{SweepInterval: 2 * time.Millisecond})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSampleAllocationFailure(t *testing.T) {
	mix := mixer.NewVirtual()
	defer mix.Close()
	e, err := NewEngine(mix, Config{Sources: 2, SweepInterval: 2 * time.Millisecond})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	mix.SetLimits(0, 2)
	if _, err := e.NewSample(decode.NewNull(audio.CD), 4, nil); err == nil {
		t.Error("expected allocation failure with capped buffers")
	}
}
