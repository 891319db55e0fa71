// ABOUTME: Package decode provides pull-based audio decoders
// ABOUTME: WAV, Ogg Vorbis, MP3, FLAC, Opus, plus generated and bounding decoders
package decode
