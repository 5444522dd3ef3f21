package fence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndsInsideOpenFence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"plain paragraph", "hello\n\nworld\n", false},
		{"unterminated backtick fence", "```js\nconsole.log(1)\n", true},
		{"terminated backtick fence", "```js\nconsole.log(1)\n```\n", false},
		{"tilde fence", "~~~\ncode\n", true},
		{"tilde does not close backtick", "```\ncode\n~~~\n", true},
		{"shorter run does not close", "````\ncode\n```\n", true},
		{"longer run closes", "```\ncode\n`````\n", false},
		{"indented opener", "  ```\ncode\n", true},
		{"tab indented closer", "```\ncode\n\t```\n", false},
		{"two backticks are not a fence", "``\ncode\n", false},
		{"reopened fence", "```\na\n```\n\n~~~~\nb\n", true},
		{"closer without trailing newline", "```\na\n```", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EndsInsideOpenFence(tt.text))
		})
	}
}

func TestEndsInsideOpenFenceWindow(t *testing.T) {
	// Opener sits outside the window, so only the body is visible.
	text := "```\n" + strings.Repeat("x\n", 50)
	assert.True(t, EndsInsideOpenFenceWindow(text, 0))
	assert.False(t, EndsInsideOpenFenceWindow(text, 20))

	// Default window covers small documents completely.
	assert.True(t, EndsInsideOpenFence(text))
}

func TestTracker(t *testing.T) {
	var tr Tracker
	assert.False(t, tr.Open())

	tr.Feed("~~~~ python")
	st, open := tr.State()
	assert.True(t, open)
	assert.Equal(t, State{Marker: '~', Length: 4}, st)

	tr.Feed("```")
	assert.True(t, tr.Open(), "different marker must not close")
	tr.Feed("~~~")
	assert.True(t, tr.Open(), "shorter run must not close")
	tr.Feed("~~~~~")
	assert.False(t, tr.Open())

	tr.Feed("```")
	tr.Reset()
	assert.False(t, tr.Open())
}

func TestIsFenceLine(t *testing.T) {
	assert.True(t, IsFenceLine("```"))
	assert.True(t, IsFenceLine("   ~~~ info"))
	assert.False(t, IsFenceLine("``"))
	assert.False(t, IsFenceLine("text ```"))
	assert.False(t, IsFenceLine(""))
}
