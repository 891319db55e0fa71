// ABOUTME: Volume fade interpolation state
// ABOUTME: Linear ramp between an anchored start volume and a target
package stream

import (
	"sync"
	"time"
)

// fadeState holds one in-progress volume fade. A zero duration means no fade
// is active. It carries its own lock, lowest in the engine's lock order, so
// fade math never contends with source or sample locks.
type fadeState struct {
	mu          sync.Mutex
	start       time.Time
	startVolume float32
	delta       float32
	duration    time.Duration
}

// begin starts a fade from current toward target. Any in-progress fade is
// overwritten; current is the instantaneous volume at the moment of the call,
// so repeated fades compose smoothly instead of jumping.
func (f *fadeState) begin(now time.Time, current, target float32, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start = now
	f.startVolume = current
	f.delta = target - current
	f.duration = d
}

// value returns the interpolated volume at now. active reports whether a fade
// is in progress; done reports that the fade has reached its target and
// should be cleared after the final value is applied.
func (f *fadeState) value(now time.Time) (gain float32, active, done bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duration == 0 {
		return 0, false, false
	}
	elapsed := now.Sub(f.start)
	if elapsed <= 0 {
		return f.startVolume, true, false
	}
	if elapsed >= f.duration {
		return f.startVolume + f.delta, true, true
	}
	frac := float32(elapsed) / float32(f.duration)
	return f.startVolume + f.delta*frac, true, false
}

// reset clears any active fade.
func (f *fadeState) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = 0
	f.delta = 0
	f.startVolume = 0
	f.start = time.Time{}
}
