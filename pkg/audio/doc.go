// ABOUTME: Package audio provides shared audio types and PCM helpers
// ABOUTME: Formats, sample conversion, and byte/duration math
package audio
