package types

import "fmt"

// LineMap attributes a token to source lines.
// Lines are zero-based; End is exclusive.
type LineMap struct {
	Start int
	End   int
}

// Shift moves both ends of the map by offset lines
func (m *LineMap) Shift(offset int) {
	m.Start += offset
	m.End += offset
}

// Token is a unit of parsed markdown structure
type Token struct {
	// Identification
	Type string // e.g. "paragraph_open", "inline", "fence"
	Tag  string // HTML tag hint for renderers

	// Structure
	Nesting int // 1 opens, -1 closes, 0 self-contained
	Level   int
	Block   bool

	// Content
	Content string
	Info    string // fence info string
	Markup  string

	// Location
	Map *LineMap // nil when the token has no source attribution

	// Nested inline content
	Children []*Token
}

// Clone returns a deep copy of the token and its descendants
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	if t.Map != nil {
		m := *t.Map
		c.Map = &m
	}
	if t.Children != nil {
		c.Children = CloneTokens(t.Children)
	}
	return &c
}

// CloneTokens deep-copies a token sequence
func CloneTokens(tokens []*Token) []*Token {
	out := make([]*Token, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Clone()
	}
	return out
}

// String renders a compact debug form: type[start,end)
func (t *Token) String() string {
	if t.Map == nil {
		return t.Type
	}
	return fmt.Sprintf("%s[%d,%d)", t.Type, t.Map.Start, t.Map.End)
}
