// Package fence tracks fenced code blocks while scanning markdown line by line.
//
// A run of three or more identical backticks or tildes, after optional
// leading spaces or tabs, opens a fence when none is open. It closes the open
// fence when it uses the same character and is at least as long as the
// opening run. Scanning is done on raw bytes without regular expressions.
package fence

// DefaultWindow is how many trailing bytes EndsInsideOpenFence inspects
const DefaultWindow = 4000

const minRun = 3

// State describes the currently open fence
type State struct {
	Marker byte // '`' or '~'
	Length int
}

// Tracker follows fence state across consecutive lines
type Tracker struct {
	open  bool
	state State
}

// Open reports whether a fence is open after the lines fed so far
func (t *Tracker) Open() bool {
	return t.open
}

// State returns the open fence, if any
func (t *Tracker) State() (State, bool) {
	return t.state, t.open
}

// Reset forgets any open fence
func (t *Tracker) Reset() {
	t.open = false
	t.state = State{}
}

// Feed advances the tracker by one line. The line must not contain '\n'.
func (t *Tracker) Feed(line string) {
	marker, run := fenceRun(line)
	if run < minRun {
		return
	}
	if !t.open {
		t.open = true
		t.state = State{Marker: marker, Length: run}
		return
	}
	if marker == t.state.Marker && run >= t.state.Length {
		t.Reset()
	}
}

// fenceRun returns the fence character and run length at the start of the
// line after skipping spaces and tabs. run is 0 when the line does not start
// with a backtick or tilde.
func fenceRun(line string) (byte, int) {
	p := 0
	for p < len(line) && (line[p] == ' ' || line[p] == '\t') {
		p++
	}
	if p >= len(line) {
		return 0, 0
	}
	ch := line[p]
	if ch != '`' && ch != '~' {
		return 0, 0
	}
	q := p
	for q < len(line) && line[q] == ch {
		q++
	}
	return ch, q - p
}

// IsFenceLine reports whether the line carries a run long enough to open or close a fence
func IsFenceLine(line string) bool {
	_, run := fenceRun(line)
	return run >= minRun
}

// EndsInsideOpenFence reports whether text ends inside an unterminated fenced
// code block, looking only at the last DefaultWindow bytes.
func EndsInsideOpenFence(text string) bool {
	return EndsInsideOpenFenceWindow(text, DefaultWindow)
}

// EndsInsideOpenFenceWindow is EndsInsideOpenFence with an explicit window.
// A window <= 0 scans the whole text.
func EndsInsideOpenFenceWindow(text string, window int) bool {
	if window > 0 && len(text) > window {
		text = text[len(text)-window:]
	}

	var t Tracker
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			t.Feed(text[start:i])
			start = i + 1
		}
	}
	t.Feed(text[start:])
	return t.Open()
}
