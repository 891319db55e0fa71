// ABOUTME: Package resample converts PCM between sample rates
// ABOUTME: Simple linear interpolation, sufficient for playback-rate matching
package resample
