// ABOUTME: Subtitle pagination and timing model
// ABOUTME: Splits long text into display pages with speed-proportional durations
package track

import (
	"strings"
	"time"
)

// Ellipsis marks page continuation: leading on a page that continues the
// previous one, trailing on a page that continues onto the next.
const Ellipsis = "..."

// page is one display page of subtitle text with its computed duration.
type page struct {
	text string
	dur  time.Duration
}

// paginate splits text into pages of at most maxChars characters, breaking
// on word boundaries. Each page's duration is the character count times
// perChar with a minDur floor. Continuation pages get a leading ellipsis;
// pages that continue onto another get a trailing one.
func paginate(text string, maxChars int, perChar, minDur time.Duration) []page {
	segments := splitSegments(text, maxChars)
	pages := make([]page, len(segments))
	for i, seg := range segments {
		dur := time.Duration(len([]rune(seg))) * perChar
		if dur < minDur {
			dur = minDur
		}
		t := seg
		if i > 0 {
			t = Ellipsis + t
		}
		if i < len(segments)-1 {
			t = t + Ellipsis
		}
		pages[i] = page{text: t, dur: dur}
	}
	return pages
}

// splitSegments word-wraps text into runs of at most maxChars runes. A
// single word longer than maxChars is split mid-word rather than dropped.
func splitSegments(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{""}
	}
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return []string{text}
	}

	var segments []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			segments = append(segments, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wlen := len([]rune(word))
		for wlen > maxChars {
			flush()
			r := []rune(word)
			segments = append(segments, string(r[:maxChars]))
			word = string(r[maxChars:])
			wlen = len([]rune(word))
		}
		need := wlen
		if curLen > 0 {
			need++
		}
		if curLen+need > maxChars {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += wlen
	}
	flush()
	if len(segments) == 0 {
		return []string{""}
	}
	return segments
}
