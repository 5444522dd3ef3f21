package schedule

import (
	"sync"
	"time"

	"github.com/dshills/mdstream/pkg/types"
)

// DefaultThrottleInterval is the minimum spacing between Throttler parses
const DefaultThrottleInterval = 200 * time.Millisecond

// Throttler parses at most once per interval. A call inside the interval is
// parked; at most one trailing parse is scheduled and it runs with the most
// recent text.
type Throttler struct {
	mu       sync.Mutex
	engine   Engine
	clock    Clock
	interval time.Duration

	lastParse time.Time
	timer     Timer
	gen       uint64

	hasPending  bool
	pendingText string
	pendingCb   Callback

	lastTokens []*types.Token
}

// NewThrottler wraps engine. interval <= 0 uses DefaultThrottleInterval and
// a nil clock uses the system clock.
func NewThrottler(engine Engine, interval time.Duration, clock Clock) *Throttler {
	if interval <= 0 {
		interval = DefaultThrottleInterval
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Throttler{
		engine:     engine,
		clock:      clock,
		interval:   interval,
		lastTokens: []*types.Token{},
	}
}

// Parse parses text now if the interval has passed since the last parse.
// Otherwise text replaces any parked request and runs when the interval ends.
func (t *Throttler) Parse(text string, cb Callback) {
	t.mu.Lock()
	now := t.clock.Now()
	elapsed := now.Sub(t.lastParse)

	if t.lastParse.IsZero() || elapsed >= t.interval {
		// a parked request is older than text
		t.cancelLocked()
		tokens, err := t.executeLocked(text, now)
		t.mu.Unlock()
		cb.call(tokens, err)
		return
	}

	t.hasPending = true
	t.pendingText = text
	t.pendingCb = cb

	if t.timer == nil {
		gen := t.gen
		t.timer = t.clock.AfterFunc(t.interval-elapsed, func() {
			t.fire(gen)
		})
	}
	t.mu.Unlock()
}

// Cancel drops the trailing parse, if any
func (t *Throttler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Reset cancels pending work, resets the engine and forgets the last parse time
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.engine.Reset()
	t.lastParse = time.Time{}
	t.lastTokens = []*types.Token{}
}

// Last returns the tokens of the most recent successful parse
func (t *Throttler) Last() []*types.Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTokens
}

// Stats returns the engine counters
func (t *Throttler) Stats() types.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Stats()
}

func (t *Throttler) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if !t.hasPending {
		t.mu.Unlock()
		return
	}

	text, cb := t.pendingText, t.pendingCb
	t.clearPendingLocked()
	tokens, err := t.executeLocked(text, t.clock.Now())
	t.mu.Unlock()

	cb.call(tokens, err)
}

func (t *Throttler) executeLocked(text string, now time.Time) ([]*types.Token, error) {
	t.lastParse = now
	tokens, err := t.engine.Parse(text, nil)
	if err != nil {
		return nil, err
	}
	t.lastTokens = tokens
	return tokens, nil
}

func (t *Throttler) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.clearPendingLocked()
}

func (t *Throttler) clearPendingLocked() {
	t.hasPending = false
	t.pendingText = ""
	t.pendingCb = nil
}
