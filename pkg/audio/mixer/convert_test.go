// ABOUTME: Tests for mixer conversion helpers
// ABOUTME: Tests channel adaptation and distance attenuation
package mixer

import "testing"

func TestAdaptChannelsMonoToStereo(t *testing.T) {
	in := []int16{10, -20, 30}
	out := adaptChannels(in, 1, 2)

	want := []int16{10, 10, -20, -20, 30, 30}
	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], out[i])
		}
	}
}

func TestAdaptChannelsStereoToMono(t *testing.T) {
	in := []int16{10, 20, -10, -30}
	out := adaptChannels(in, 2, 1)

	want := []int16{15, -20}
	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], out[i])
		}
	}
}

func TestAdaptChannelsNoop(t *testing.T) {
	in := []int16{1, 2, 3, 4}
	out := adaptChannels(in, 2, 2)
	if &out[0] != &in[0] {
		t.Error("matching channel counts should return input unchanged")
	}
}

func TestAttenuation(t *testing.T) {
	if g := attenuation(0, 0, 0); g != 1.0 {
		t.Errorf("origin should be full gain, got %v", g)
	}
	if g := attenuation(2, 0, 0); g <= 0.4 || g >= 0.6 {
		t.Errorf("distance 2 should roughly halve gain, got %v", g)
	}
	if g := attenuation(0.5, 0, 0); g != 1.0 {
		t.Errorf("inside unit distance should stay full gain, got %v", g)
	}
}
