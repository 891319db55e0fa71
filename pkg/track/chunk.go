// ABOUTME: Chunk list node for track assembly
// ABOUTME: Singly-linked owning list with an O(1) append tail pointer
package track

import (
	"math"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
)

// chunk is one node of the track list: a span of audio with optional
// subtitle text. The list owns its nodes through next; tail is a non-owning
// back-pointer kept only for appends.
type chunk struct {
	dec decode.Decoder

	// startOffset is the page's start within its splice, in seconds. A
	// negative sign (including -0.0) marks the final page of a splice;
	// magnitude is unaffected.
	startOffset float64

	// globalStart and pageDur place the chunk on the whole-track timeline
	// for position-based subtitle lookup.
	globalStart time.Duration
	pageDur     time.Duration

	tagMe    bool
	track    int
	text     string
	callback func()
	next     *chunk
}

// finalPage reports whether this chunk ends its splice.
func (c *chunk) finalPage() bool {
	return math.Signbit(c.startOffset)
}

// markFinal negates the start offset, flagging the splice boundary. Uses
// Copysign so a zero offset becomes -0.0 and stays detectable.
func (c *chunk) markFinal() {
	c.startOffset = math.Copysign(c.startOffset, -1)
}
