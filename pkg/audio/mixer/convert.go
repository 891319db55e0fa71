// ABOUTME: Shared PCM conversion helpers for mixer backends
// ABOUTME: Channel adaptation and positional distance attenuation
package mixer

import "math"

// adaptChannels converts interleaved samples between channel counts.
// Mono to stereo duplicates each sample; stereo to mono averages pairs.
// Matching counts return the input unchanged.
func adaptChannels(samples []int16, from, to int) []int16 {
	if from == to || from == 0 || to == 0 {
		return samples
	}
	frames := len(samples) / from
	out := make([]int16, frames*to)
	for f := 0; f < frames; f++ {
		switch {
		case from == 1:
			for ch := 0; ch < to; ch++ {
				out[f*to+ch] = samples[f]
			}
		case to == 1:
			sum := 0
			for ch := 0; ch < from; ch++ {
				sum += int(samples[f*from+ch])
			}
			out[f] = int16(sum / from)
		default:
			for ch := 0; ch < to; ch++ {
				src := ch
				if src >= from {
					src = from - 1
				}
				out[f*to+ch] = samples[f*from+src]
			}
		}
	}
	return out
}

// attenuation derives a gain multiplier from a source's positional scalars
// using inverse distance falloff. A source at the origin plays at full gain.
func attenuation(x, y, z float32) float32 {
	d := math.Sqrt(float64(x*x + y*y + z*z))
	if d <= 1.0 {
		return 1.0
	}
	return float32(1.0 / d)
}
