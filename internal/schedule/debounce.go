package schedule

import (
	"sync"
	"time"

	"github.com/dshills/mdstream/pkg/types"
)

// DefaultDebounceWait is the quiet period a Debouncer waits for
const DefaultDebounceWait = 150 * time.Millisecond

// Debouncer delays parsing until input has been quiet for the wait period.
// Each new text restarts the wait; only the latest text is parsed.
type Debouncer struct {
	mu     sync.Mutex
	engine Engine
	clock  Clock
	wait   time.Duration

	timer   Timer
	gen     uint64
	pending Callback

	lastText   string
	lastTokens []*types.Token
}

// NewDebouncer wraps engine. wait <= 0 uses DefaultDebounceWait and a nil
// clock uses the system clock.
func NewDebouncer(engine Engine, wait time.Duration, clock Clock) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounceWait
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Debouncer{
		engine:     engine,
		clock:      clock,
		wait:       wait,
		lastTokens: []*types.Token{},
	}
}

// Parse schedules a parse of text and reports the result to cb. Text equal
// to the last parsed text is answered at once from the last result without
// touching the pending parse.
func (d *Debouncer) Parse(text string, cb Callback) {
	d.mu.Lock()
	if text == d.lastText {
		tokens := d.lastTokens
		d.mu.Unlock()
		cb.call(tokens, nil)
		return
	}

	d.pending = cb
	d.stopLocked()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.wait, func() {
		d.fire(gen, text)
	})
	d.mu.Unlock()
}

// ParseNow parses text immediately, dropping any pending parse
func (d *Debouncer) ParseNow(text string, cb Callback) {
	d.mu.Lock()
	if text == d.lastText {
		tokens := d.lastTokens
		d.mu.Unlock()
		cb.call(tokens, nil)
		return
	}

	d.stopLocked()
	d.pending = cb
	pending, tokens, err := d.executeLocked(text)
	d.mu.Unlock()

	pending.call(tokens, err)
}

// Flush cancels any pending parse and parses text now
func (d *Debouncer) Flush(text string) ([]*types.Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	_, tokens, err := d.executeLocked(text)
	return tokens, err
}

// Cancel drops the pending parse, if any. Its callback is never called.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Reset cancels pending work, forgets the last result and resets the engine
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.engine.Reset()
	d.lastText = ""
	d.lastTokens = []*types.Token{}
}

// Stats returns the engine counters
func (d *Debouncer) Stats() types.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Stats()
}

func (d *Debouncer) fire(gen uint64, text string) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	cb, tokens, err := d.executeLocked(text)
	d.mu.Unlock()

	cb.call(tokens, err)
}

// executeLocked parses text and hands back the pending callback
func (d *Debouncer) executeLocked(text string) (Callback, []*types.Token, error) {
	cb := d.pending
	d.pending = nil

	tokens, err := d.engine.Parse(text, nil)
	if err != nil {
		return cb, nil, err
	}
	d.lastText = text
	d.lastTokens = tokens
	return cb, tokens, nil
}

// stopLocked stops the timer and invalidates any call already in flight
func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Debouncer) cancelLocked() {
	d.stopLocked()
	d.pending = nil
}
