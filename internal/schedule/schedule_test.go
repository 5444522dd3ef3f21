package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/stream"
	"github.com/dshills/mdstream/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	parsed []string
	resets int
	err    error
}

func (f *fakeEngine) Parse(text string, env *types.Env) ([]*types.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.parsed = append(f.parsed, text)
	return []*types.Token{{Type: "text", Content: text}}, nil
}

func (f *fakeEngine) Reset() {
	f.resets++
}

func (f *fakeEngine) Stats() types.Stats {
	return types.Stats{Total: len(f.parsed), Resets: f.resets}
}

// recorder collects callback results
type recorder struct {
	calls []string
	errs  []error
}

func (r *recorder) callback(name string) Callback {
	return func(tokens []*types.Token, err error) {
		if err != nil {
			r.errs = append(r.errs, err)
			return
		}
		content := ""
		if len(tokens) > 0 {
			content = tokens[0].Content
		}
		r.calls = append(r.calls, name+":"+content)
	}
}

func TestNewDebouncer_Defaults(t *testing.T) {
	d := NewDebouncer(&fakeEngine{}, 0, nil)
	assert.Equal(t, DefaultDebounceWait, d.wait)
	assert.IsType(t, SystemClock{}, d.clock)
}

func TestDebouncer_OnlyLatestTextIsParsed(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 100*time.Millisecond, clock)
	rec := &recorder{}

	d.Parse("a", rec.callback("1"))
	clock.Advance(50 * time.Millisecond)
	d.Parse("ab", rec.callback("2"))
	clock.Advance(50 * time.Millisecond)
	d.Parse("abc", rec.callback("3"))
	assert.Empty(t, engine.parsed)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(99 * time.Millisecond)
	assert.Empty(t, engine.parsed)

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"abc"}, engine.parsed)
	assert.Equal(t, []string{"3:abc"}, rec.calls)
	assert.Equal(t, 0, clock.Pending())
}

func TestDebouncer_IdenticalTextShortCircuits(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 100*time.Millisecond, clock)
	rec := &recorder{}

	d.Parse("same", rec.callback("1"))
	clock.Advance(100 * time.Millisecond)

	d.Parse("other", rec.callback("2"))
	d.Parse("same", rec.callback("3"))

	// answered from the last result, pending parse untouched
	assert.Equal(t, []string{"1:same", "3:same"}, rec.calls)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"same", "other"}, engine.parsed)
	assert.Equal(t, []string{"1:same", "3:same", "2:other"}, rec.calls)
}

func TestDebouncer_EmptyTextBeforeAnyParse(t *testing.T) {
	engine := &fakeEngine{}
	d := NewDebouncer(engine, time.Millisecond, NewManualClock(epoch))

	var got []*types.Token
	called := false
	d.Parse("", func(tokens []*types.Token, err error) {
		called = true
		got = tokens
	})

	assert.True(t, called)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, engine.parsed)
}

func TestDebouncer_ParseNow(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 100*time.Millisecond, clock)
	rec := &recorder{}

	d.Parse("pending", rec.callback("1"))
	d.ParseNow("now", rec.callback("2"))

	assert.Equal(t, []string{"now"}, engine.parsed)
	assert.Equal(t, []string{"2:now"}, rec.calls)

	clock.Advance(time.Second)
	assert.Equal(t, []string{"now"}, engine.parsed)
}

func TestDebouncer_Flush(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 100*time.Millisecond, clock)
	rec := &recorder{}

	d.Parse("draft", rec.callback("1"))
	tokens, err := d.Flush("final")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "final", tokens[0].Content)

	clock.Advance(time.Second)
	assert.Equal(t, []string{"final"}, engine.parsed)
	assert.Empty(t, rec.calls)
}

func TestDebouncer_Cancel(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 100*time.Millisecond, clock)
	rec := &recorder{}

	d.Parse("text", rec.callback("1"))
	d.Cancel()
	clock.Advance(time.Second)

	assert.Empty(t, engine.parsed)
	assert.Empty(t, rec.calls)

	// cancelling with nothing pending is harmless
	d.Cancel()
}

func TestDebouncer_Reset(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 100*time.Millisecond, clock)
	rec := &recorder{}

	_, err := d.Flush("text")
	require.NoError(t, err)
	d.Parse("pending", rec.callback("1"))

	d.Reset()
	assert.Equal(t, 1, engine.resets)
	clock.Advance(time.Second)
	assert.Empty(t, rec.calls)

	// the last result was forgotten, so the same text parses again
	d.Parse("text", rec.callback("2"))
	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"text", "text"}, engine.parsed)
	assert.Equal(t, []string{"2:text"}, rec.calls)
	assert.Equal(t, 1, d.Stats().Resets)
}

func TestDebouncer_ErrorReachesCallback(t *testing.T) {
	boom := errors.New("boom")
	engine := &fakeEngine{err: boom}
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 10*time.Millisecond, clock)
	rec := &recorder{}

	d.Parse("text", rec.callback("1"))
	clock.Advance(10 * time.Millisecond)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], boom)

	_, err := d.Flush("text")
	assert.ErrorIs(t, err, boom)
}

func TestDebouncer_WithStreamEngine(t *testing.T) {
	engine := stream.New(parser.New(), stream.DefaultOptions())
	clock := NewManualClock(epoch)
	d := NewDebouncer(engine, 50*time.Millisecond, clock)

	text := "A\n\n"
	_, err := d.Flush(text)
	require.NoError(t, err)

	for _, add := range []string{"B", " more", "\n", "line\n\n"} {
		text += add
		d.Parse(text, nil)
		clock.Advance(10 * time.Millisecond)
	}
	clock.Advance(50 * time.Millisecond)

	stats := d.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, types.ModeAppend, stats.LastMode)

	want, err := parser.New().Tokenize(text, nil)
	require.NoError(t, err)
	assert.Equal(t, want, engine.Peek())
}

func TestNewThrottler_Defaults(t *testing.T) {
	th := NewThrottler(&fakeEngine{}, -1, nil)
	assert.Equal(t, DefaultThrottleInterval, th.interval)
	assert.IsType(t, SystemClock{}, th.clock)
}

func TestThrottler_LeadingAndTrailing(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	th := NewThrottler(engine, 200*time.Millisecond, clock)
	rec := &recorder{}

	th.Parse("a", rec.callback("1"))
	assert.Equal(t, []string{"a"}, engine.parsed)

	clock.Advance(50 * time.Millisecond)
	th.Parse("ab", rec.callback("2"))
	clock.Advance(50 * time.Millisecond)
	th.Parse("abc", rec.callback("3"))

	// one trailing timer, latest payload
	assert.Equal(t, 1, clock.Pending())
	assert.Equal(t, []string{"a"}, engine.parsed)

	clock.Advance(99 * time.Millisecond)
	assert.Equal(t, []string{"a"}, engine.parsed)

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"a", "abc"}, engine.parsed)
	assert.Equal(t, []string{"1:a", "3:abc"}, rec.calls)
	assert.Equal(t, "abc", th.Last()[0].Content)
}

func TestThrottler_ImmediateAfterInterval(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	th := NewThrottler(engine, 200*time.Millisecond, clock)

	th.Parse("a", nil)
	clock.Advance(200 * time.Millisecond)
	th.Parse("b", nil)

	assert.Equal(t, []string{"a", "b"}, engine.parsed)
	assert.Equal(t, 0, clock.Pending())
}

func TestThrottler_AtLeastOncePerInterval(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	th := NewThrottler(engine, 100*time.Millisecond, clock)

	text := ""
	for i := 0; i < 50; i++ {
		text += "x"
		th.Parse(text, nil)
		clock.Advance(10 * time.Millisecond)
	}
	clock.Advance(100 * time.Millisecond)

	// 500ms of continuous input at 100ms spacing
	assert.GreaterOrEqual(t, len(engine.parsed), 5)
	assert.LessOrEqual(t, len(engine.parsed), 6)
	assert.Equal(t, text, engine.parsed[len(engine.parsed)-1])
}

func TestThrottler_Cancel(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	th := NewThrottler(engine, 200*time.Millisecond, clock)
	rec := &recorder{}

	th.Parse("a", rec.callback("1"))
	th.Parse("b", rec.callback("2"))
	th.Cancel()
	clock.Advance(time.Second)

	assert.Equal(t, []string{"a"}, engine.parsed)
	assert.Equal(t, []string{"1:a"}, rec.calls)
}

func TestThrottler_Reset(t *testing.T) {
	engine := &fakeEngine{}
	clock := NewManualClock(epoch)
	th := NewThrottler(engine, 200*time.Millisecond, clock)

	th.Parse("a", nil)
	th.Parse("b", nil)
	th.Reset()

	assert.Equal(t, 1, engine.resets)
	assert.Empty(t, th.Last())

	// last parse time was cleared, so the next call runs at once
	th.Parse("c", nil)
	assert.Equal(t, []string{"a", "c"}, engine.parsed)

	clock.Advance(time.Second)
	assert.Equal(t, []string{"a", "c"}, engine.parsed)
	assert.Equal(t, 2, th.Stats().Total)
}

func TestThrottler_ErrorReachesCallback(t *testing.T) {
	boom := errors.New("boom")
	th := NewThrottler(&fakeEngine{err: boom}, time.Second, NewManualClock(epoch))
	rec := &recorder{}

	th.Parse("a", rec.callback("1"))
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], boom)
}
