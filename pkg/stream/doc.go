// ABOUTME: Package stream is the real-time audio streaming engine
// ABOUTME: Source slots, refcounted samples, a decoder goroutine, fades, and scope rendering
package stream
