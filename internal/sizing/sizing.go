// Package sizing picks chunk ceilings for a document from its size.
//
// Stream parses use Config.Stream; one-shot parses use FullPlan, which also
// decides whether chunking is worth it at all. Every adaptive answer lands
// inside [MinChars, MaxChars] x [MinLines, MaxLines], which keeps the
// fragment count of any document bounded.
package sizing

import (
	"github.com/dshills/mdstream/pkg/types"
)

// Safety bounds for computed ceilings
const (
	MinChars = 8000
	MaxChars = 32000
	MinLines = 150
	MaxLines = 350
)

const (
	// DefaultTargetChunks is the fragment count the proportional strategy aims for
	DefaultTargetChunks = 8

	// MinFullMaxChunks and MaxFullMaxChunks bound the adaptive one-shot fragment cap
	MinFullMaxChunks = 6
	MaxFullMaxChunks = 12
)

// Recommender suggests ceilings for a document of the given size
type Recommender interface {
	Recommend(chars, lines int) types.Ceilings
}

// RecommenderFunc adapts a function to the Recommender interface
type RecommenderFunc func(chars, lines int) types.Ceilings

// Recommend calls f(chars, lines)
func (f RecommenderFunc) Recommend(chars, lines int) types.Ceilings {
	return f(chars, lines)
}

// Config selects the sizing strategy for stream parses
type Config struct {
	Adaptive       bool
	TargetChunks   int
	AutoTune       bool
	ChunkSizeChars int // 0 means not pinned
	ChunkSizeLines int // 0 means not pinned
	Recommender    Recommender
}

type bracket struct {
	upTo     int
	ceilings types.Ceilings
}

// Stream bracket table, tuned for append-heavy workloads
var streamBrackets = []bracket{
	{5_000, types.Ceilings{Chars: 16_000, Lines: 250}},
	{20_000, types.Ceilings{Chars: 16_000, Lines: 200}},
	{50_000, types.Ceilings{Chars: 16_000, Lines: 250}},
	{100_000, types.Ceilings{Chars: 10_000, Lines: 200}},
}

var streamAbove = types.Ceilings{Chars: 20_000, Lines: 200}

// Stream resolves the ceilings for a stream parse of a document.
//
// Resolution order: both sizes pinned, external recommender, bracket table
// (AutoTune with nothing pinned), proportional (Adaptive), fixed.
func (c Config) Stream(chars, lines int) types.Ceilings {
	switch {
	case c.ChunkSizeChars > 0 && c.ChunkSizeLines > 0:
		return types.Ceilings{Chars: c.ChunkSizeChars, Lines: c.ChunkSizeLines}
	case c.Recommender != nil:
		return Clamp(c.Recommender.Recommend(chars, lines))
	case c.AutoTune && c.ChunkSizeChars <= 0 && c.ChunkSizeLines <= 0:
		return Bracket(chars)
	case c.Adaptive:
		return Proportional(chars, lines, c.TargetChunks)
	}
	return c.fixed()
}

func (c Config) fixed() types.Ceilings {
	out := types.Ceilings{Chars: types.DefaultMaxChunkChars, Lines: types.DefaultMaxChunkLines}
	if c.ChunkSizeChars > 0 {
		out.Chars = c.ChunkSizeChars
	}
	if c.ChunkSizeLines > 0 {
		out.Lines = c.ChunkSizeLines
	}
	return out
}

// Bracket returns the stream bracket-table ceilings for a document of chars characters
func Bracket(chars int) types.Ceilings {
	for _, b := range streamBrackets {
		if chars <= b.upTo {
			return b.ceilings
		}
	}
	return streamAbove
}

// Proportional splits the document into roughly target fragments.
// target <= 0 uses DefaultTargetChunks.
func Proportional(chars, lines, target int) types.Ceilings {
	if target <= 0 {
		target = DefaultTargetChunks
	}
	return Clamp(types.Ceilings{
		Chars: ceilDiv(chars, target),
		Lines: ceilDiv(lines, target),
	})
}

// Clamp forces c into the safety bounds
func Clamp(c types.Ceilings) types.Ceilings {
	return types.Ceilings{
		Chars: clamp(c.Chars, MinChars, MaxChars),
		Lines: clamp(c.Lines, MinLines, MaxLines),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
