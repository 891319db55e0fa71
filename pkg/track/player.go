// ABOUTME: Track player over one stream engine source
// ABOUTME: Splices chunked audio with subtitles and drives playback via engine callbacks
package track

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Soundline-Audio/soundline-go/pkg/audio"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/decode"
	"github.com/Soundline-Audio/soundline-go/pkg/audio/mixer"
	"github.com/Soundline-Audio/soundline-go/pkg/stream"
)

// ErrNoTrack is returned by playback operations when nothing was spliced.
var ErrNoTrack = errors.New("no track spliced")

// Config controls a Player. Zero values take defaults.
type Config struct {
	// Source is the engine slot the player drives.
	Source int

	// MaxPageChars caps subtitle characters per display page.
	MaxPageChars int

	// PerCharTime scales page duration with text length.
	PerCharTime time.Duration

	// MinPageTime floors every page's duration.
	MinPageTime time.Duration
}

func (c *Config) applyDefaults() {
	if c.Source == 0 {
		c.Source = stream.SpeechSource
	}
	if c.MaxPageChars <= 0 {
		c.MaxPageChars = 200
	}
	if c.PerCharTime <= 0 {
		c.PerCharTime = 80 * time.Millisecond
	}
	if c.MinPageTime <= 0 {
		c.MinPageTime = time.Second
	}
}

// Player assembles an ordered chunk list and plays it through one engine
// source, advancing decoders and subtitles as the engine reports progress.
type Player struct {
	mu     sync.Mutex
	engine *stream.Engine
	cfg    Config

	sample    *stream.Sample
	head      *chunk
	tail      *chunk
	decodeCur *chunk
	subCur    *chunk
	count     int
	curTrack  int
	totalDur  time.Duration
}

// New creates a track player on the given engine.
func New(engine *stream.Engine, cfg Config) *Player {
	cfg.applyDefaults()
	return &Player{engine: engine, cfg: cfg}
}

// SpliceTrack appends one audio unit with optional subtitle text. Text that
// does not fit on one display page is split into sub-pages backed by slices
// of the decoder; timestamps, when given, place each page's audio start
// explicitly. The first splice creates the backing sample.
func (p *Player) SpliceTrack(dec decode.Decoder, text string, timestamps ...time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pages := paginate(text, p.cfg.MaxPageChars, p.cfg.PerCharTime, p.cfg.MinPageTime)

	if err := p.ensureSampleLocked(dec); err != nil {
		return err
	}

	if len(pages) <= 1 && len(timestamps) == 0 {
		c := &chunk{
			dec:         dec,
			globalStart: p.totalDur,
			pageDur:     spliceLength(dec, pages[0].dur),
			tagMe:       true,
			track:       p.curTrack,
			text:        pages[0].text,
		}
		c.markFinal()
		p.appendLocked(c)
		p.totalDur += c.pageDur
		p.curTrack++
		return nil
	}

	starts := pageStarts(pages, timestamps)
	total := dec.Length()

	for i, pg := range pages {
		length := pg.dur
		if i < len(pages)-1 {
			length = starts[i+1] - starts[i]
		} else if total > 0 {
			length = total - starts[i]
		} else {
			// Unknown stream length: let the decoder's own EOF bound it.
			length = time.Hour
		}
		if length < 0 {
			length = 0
		}

		c := &chunk{
			dec:         decode.Slice(dec, starts[i], length, i == len(pages)-1),
			startOffset: starts[i].Seconds(),
			globalStart: p.totalDur + starts[i],
			pageDur:     length,
			tagMe:       true,
			track:       p.curTrack,
			text:        pg.text,
		}
		if i == len(pages)-1 {
			c.markFinal()
		}
		p.appendLocked(c)
	}

	if total > 0 {
		p.totalDur += total
	} else {
		p.totalDur += starts[len(starts)-1] + pages[len(pages)-1].dur
	}
	p.curTrack++
	return nil
}

// SpliceMultiTrack appends several decoders as one subtitle unit, each chunk
// keeping its own interleaved track index so multi-channel dialogue stays in
// lock-step. The text attaches to the first chunk.
func (p *Player) SpliceMultiTrack(decs []decode.Decoder, text string) error {
	if len(decs) == 0 {
		return fmt.Errorf("splice multi: no decoders")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSampleLocked(decs[0]); err != nil {
		return err
	}

	for i, dec := range decs {
		c := &chunk{
			dec:         dec,
			globalStart: p.totalDur,
			pageDur:     spliceLength(dec, p.cfg.MinPageTime),
			tagMe:       i == 0,
			track:       p.curTrack + i,
		}
		if i == 0 {
			c.text = text
		}
		if i == len(decs)-1 {
			c.markFinal()
		}
		p.appendLocked(c)
		p.totalDur += c.pageDur
	}
	p.curTrack += len(decs)
	return nil
}

// ensureSampleLocked creates the backing sample on first splice. Called with
// p.mu held.
func (p *Player) ensureSampleLocked(dec decode.Decoder) error {
	if p.sample != nil {
		return nil
	}
	s, err := p.engine.NewSample(dec, 0, &trackCallbacks{p: p})
	if err != nil {
		return fmt.Errorf("create track sample: %w", err)
	}
	p.sample = s
	return nil
}

// appendLocked links c at the tail. Called with p.mu held.
func (p *Player) appendLocked(c *chunk) {
	if p.head == nil {
		p.head = c
		p.tail = c
	} else {
		p.tail.next = c
		p.tail = c
	}
	p.count++
}

// PlayTrack starts or restarts playback from the current decode position.
func (p *Player) PlayTrack() error {
	p.mu.Lock()
	if p.head == nil {
		p.mu.Unlock()
		return ErrNoTrack
	}
	start := p.decodeCur
	if start == nil {
		start = p.head
	}
	p.decodeCur = start
	p.subCur = start
	smp := p.sample
	smp.SwapDecoder(start.dec)
	p.mu.Unlock()

	return p.engine.Play(p.cfg.Source, smp, false)
}

// StopTrack halts playback and drops the whole chunk list. Both cursors are
// zeroed before the list goes away, and the unlink loop is iterative: chains
// are unbounded and must not recurse.
func (p *Player) StopTrack() {
	p.mu.Lock()
	smp := p.sample
	p.sample = nil
	p.decodeCur = nil
	p.subCur = nil

	head := p.head
	p.head = nil
	p.tail = nil
	p.count = 0
	p.curTrack = 0
	p.totalDur = 0
	p.mu.Unlock()

	if smp != nil {
		// The sample still points at a chunk decoder; detach it so release
		// does not close a decoder the unlink loop below also closes.
		smp.SwapDecoder(decode.NewNull(audio.CD))
	}
	p.engine.Stop(p.cfg.Source)
	if smp != nil {
		smp.Release()
	}

	for c := head; c != nil; {
		next := c.next
		c.next = nil
		if c.dec != nil {
			if err := c.dec.Close(); err != nil {
				log.Printf("track: chunk decoder close: %v", err)
			}
		}
		c = next
	}
}

// PauseTrack suspends playback.
func (p *Player) PauseTrack() { p.engine.Pause(p.cfg.Source) }

// ResumeTrack continues paused playback.
func (p *Player) ResumeTrack() { p.engine.Resume(p.cfg.Source) }

// PlayingTrack reports whether track audio is active.
func (p *Player) PlayingTrack() bool { return p.engine.Playing(p.cfg.Source) }

// Tracks reports how many splice units the list holds.
func (p *Player) Tracks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unitsLocked()
}

// unitsLocked counts splice units by their final-page markers. Called with
// p.mu held.
func (p *Player) unitsLocked() int {
	n := 0
	for c := p.head; c != nil; c = c.next {
		if c.finalPage() {
			n++
		}
	}
	return n
}

// SeekTrack repositions playback to the start of the given splice unit,
// clamped into [0, units+1]; units+1 is the distinguishable end-of-track
// terminal position. Returns the position actually applied.
func (p *Player) SeekTrack(pos int) int {
	p.mu.Lock()
	units := p.unitsLocked()
	if pos < 0 {
		pos = 0
	}
	if pos > units+1 {
		pos = units + 1
	}

	if pos >= units {
		// At or past the final unit: park at end.
		p.decodeCur = nil
		p.subCur = p.tail
		p.mu.Unlock()
		p.engine.Stop(p.cfg.Source)
		return pos
	}

	target := p.unitStartLocked(pos)
	p.decodeCur = target
	p.subCur = target
	smp := p.sample
	if smp != nil {
		smp.SwapDecoder(target.dec)
	}
	playing := p.engine.Playing(p.cfg.Source)
	p.mu.Unlock()

	if smp != nil && playing {
		if err := p.engine.Seek(p.cfg.Source, 0); err != nil {
			log.Printf("track: seek unit %d: %v", pos, err)
		}
	}
	return pos
}

// unitStartLocked returns the first chunk of splice unit n. Called with
// p.mu held; n must be within range.
func (p *Player) unitStartLocked(n int) *chunk {
	unit := 0
	for c := p.head; c != nil; c = c.next {
		if unit == n {
			return c
		}
		if c.finalPage() {
			unit++
		}
	}
	return p.head
}

// currentUnitLocked returns the splice unit index of the decode cursor.
// Called with p.mu held.
func (p *Player) currentUnitLocked() int {
	unit := 0
	for c := p.head; c != nil; c = c.next {
		if c == p.decodeCur {
			return unit
		}
		if c.finalPage() {
			unit++
		}
	}
	return unit
}

// JumpTrack moves playback delta splice units forward or back and returns
// the resulting position.
func (p *Player) JumpTrack(delta int) int {
	p.mu.Lock()
	cur := p.currentUnitLocked()
	p.mu.Unlock()
	return p.SeekTrack(cur + delta)
}

// Subtitle is a read-only reference to one subtitle page.
type Subtitle struct {
	ch *chunk
}

// FirstSubtitle returns the first page carrying text, or nil. Queries never
// move the playback cursors.
func (p *Player) FirstSubtitle() *Subtitle {
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := p.head; c != nil; c = c.next {
		if c.text != "" {
			return &Subtitle{ch: c}
		}
	}
	return nil
}

// NextSubtitle returns the page with text following s, or nil at the end.
func (p *Player) NextSubtitle(s *Subtitle) *Subtitle {
	if s == nil || s.ch == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := s.ch.next; c != nil; c = c.next {
		if c.text != "" {
			return &Subtitle{ch: c}
		}
	}
	return nil
}

// SubtitleText returns the text of s, or the currently displayed page's text
// when s is nil.
func (p *Player) SubtitleText(s *Subtitle) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s != nil && s.ch != nil {
		return s.ch.text
	}
	if p.subCur != nil {
		return p.subCur.text
	}
	return ""
}

// SubtitleAtPosition returns the page covering the given position on the
// whole-track timeline, or nil before the first page.
func (p *Player) SubtitleAtPosition(pos time.Duration) *Subtitle {
	p.mu.Lock()
	defer p.mu.Unlock()
	var last *chunk
	for c := p.head; c != nil; c = c.next {
		if c.globalStart > pos {
			break
		}
		last = c
	}
	if last == nil {
		return nil
	}
	return &Subtitle{ch: last}
}

// OnPageCallback installs fn on the most recently spliced chunk; it fires
// when that page's audio becomes audible.
func (p *Player) OnPageCallback(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tail != nil {
		p.tail.callback = fn
	}
}

// trackCallbacks wires engine notifications back into the player. All
// methods run without engine locks held, so taking p.mu here respects the
// track-before-source lock order.
type trackCallbacks struct {
	p *Player
}

func (t *trackCallbacks) OnStart(*stream.Sample) bool { return true }

// OnChunkEnd advances the decode cursor and swaps the next chunk's decoder
// into the sample, so the engine never sees a gap. The finished chunk's last
// buffer is tagged with the upcoming chunk: when that buffer is consumed the
// new page is audible and the subtitle cursor may advance.
func (t *trackCallbacks) OnChunkEnd(s *stream.Sample, last mixer.Buffer) bool {
	p := t.p
	p.mu.Lock()

	cur := p.decodeCur
	if cur == nil || cur.next == nil {
		p.mu.Unlock()
		return false
	}
	next := cur.next
	p.decodeCur = next
	s.SwapDecoder(next.dec)

	var fire func()
	if next.tagMe && last != mixer.NoBuffer {
		if err := s.TagBuffer(last, next); err != nil {
			log.Printf("track: tag buffer: %v", err)
		}
	} else {
		// Nothing queued to anchor the tag on; show the page now.
		p.subCur = next
		fire = next.callback
	}
	p.mu.Unlock()

	if fire != nil {
		fire()
	}
	return true
}

// OnStreamEnd fires when the final chunk has fully played out.
func (t *trackCallbacks) OnStreamEnd(*stream.Sample) {
	p := t.p
	p.mu.Lock()
	p.decodeCur = nil
	p.mu.Unlock()
}

// OnTaggedBuffer moves the subtitle cursor to the chunk whose audio just
// became audible and runs its page callback.
func (t *trackCallbacks) OnTaggedBuffer(_ *stream.Sample, tag any) {
	ch, ok := tag.(*chunk)
	if !ok {
		return
	}
	p := t.p
	p.mu.Lock()
	if p.head == nil {
		// Stopped between tagging and surfacing.
		p.mu.Unlock()
		return
	}
	p.subCur = ch
	fire := ch.callback
	p.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// spliceLength prefers the decoder's reported duration, falling back to the
// subtitle timing estimate for streams of unknown length.
func spliceLength(dec decode.Decoder, fallback time.Duration) time.Duration {
	if l := dec.Length(); l > 0 {
		return l
	}
	return fallback
}

// pageStarts derives each page's audio start time, preferring explicit
// timestamps and extending with the timing model where they run out.
func pageStarts(pages []page, timestamps []time.Duration) []time.Duration {
	starts := make([]time.Duration, len(pages))
	for i := range pages {
		if i < len(timestamps) {
			starts[i] = timestamps[i]
		} else if i > 0 {
			starts[i] = starts[i-1] + pages[i-1].dur
		}
	}
	return starts
}
