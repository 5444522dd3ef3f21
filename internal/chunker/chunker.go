package chunker

import (
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dshills/mdstream/internal/fence"
	"github.com/dshills/mdstream/pkg/types"
)

const (
	// MinSinceBlankLines is the floor of the forced-flush line distance from the last blank line
	MinSinceBlankLines = 10

	// MinSinceBlankChars is the floor of the forced-flush char distance from the last blank line
	MinSinceBlankChars = 8000
)

var log = commonlog.GetLogger("mdstream.chunker")

// Chunker tokenizes large documents as independent fragments
type Chunker struct {
	tokenizer types.Tokenizer
}

// Fragment describes one piece of a split document
type Fragment struct {
	Index     int
	StartLine int
	Lines     int
	Chars     int
	Text      string
}

// New creates a new Chunker backed by tokenizer
func New(tokenizer types.Tokenizer) *Chunker {
	return &Chunker{tokenizer: tokenizer}
}

// ChunkedParse tokenizes text fragment by fragment with a one-off Chunker
func ChunkedParse(tok types.Tokenizer, text string, env *types.Env, policy types.ChunkPolicy) ([]*types.Token, error) {
	return New(tok).Parse(text, env, policy)
}

// Parse splits text according to policy, tokenizes every fragment in order and
// merges the results with line maps shifted into document coordinates.
// Tokenizer errors are returned as is.
func (c *Chunker) Parse(text string, env *types.Env, policy types.ChunkPolicy) ([]*types.Token, error) {
	policy = policy.WithDefaults()
	chunks := Cap(Split(text, policy), policy.MaxChunks)

	env.SetChunkInfo(types.ChunkInfo{
		Count:         len(chunks),
		MaxChunkChars: policy.MaxChunkChars,
		MaxChunkLines: policy.MaxChunkLines,
	})

	if len(chunks) == 0 {
		return c.tokenizer.Tokenize(text, env)
	}

	log.Debugf("chunked parse: %d fragments, %d chars, ceilings %d/%d",
		len(chunks), len(text), policy.MaxChunkChars, policy.MaxChunkLines)

	out := make([]*types.Token, 0, len(chunks)*8)
	offset := 0
	for _, ch := range chunks {
		tokens, err := c.tokenizer.Tokenize(ch, env)
		if err != nil {
			return nil, err
		}
		if offset != 0 {
			ShiftLines(tokens, offset)
		}
		out = append(out, tokens...)
		offset += CountLines(ch)
	}

	return out, nil
}

// Split cuts text into fragments on blank lines, never inside an open fence
// when policy.FenceAware is set. Fragments keep their line breaks, so their
// concatenation is exactly text.
//
// Once a fragment reaches either ceiling it is flushed at the next blank line.
// If no blank line shows up for max(10, lines/2) lines or max(chars, 8000)
// characters the fragment is flushed mid-block.
func Split(text string, policy types.ChunkPolicy) []string {
	policy = policy.WithDefaults()

	maxSinceBlankLines := max(MinSinceBlankLines, policy.MaxChunkLines/2)
	maxSinceBlankChars := max(policy.MaxChunkChars, MinSinceBlankChars)

	var (
		chunks          []string
		fences          fence.Tracker
		chunkStart      int
		charCount       int
		lineCount       int
		sinceBlankLines int
		sinceBlankChars int
	)

	for pos := 0; pos < len(text); {
		next := len(text)
		line := text[pos:]
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = pos + i + 1
		}

		if policy.FenceAware {
			fences.Feed(line)
		}

		lineLen := len(line) + 1
		charCount += lineLen
		lineCount++

		blank := isBlank(line)
		if blank {
			sinceBlankLines = 0
			sinceBlankChars = 0
		} else {
			sinceBlankLines++
			sinceBlankChars += lineLen
		}

		exceeded := charCount >= policy.MaxChunkChars || lineCount >= policy.MaxChunkLines
		if exceeded && !fences.Open() {
			if blank || sinceBlankLines >= maxSinceBlankLines || sinceBlankChars >= maxSinceBlankChars {
				chunks = append(chunks, text[chunkStart:next])
				chunkStart = next
				charCount = 0
				lineCount = 0
			}
		}

		pos = next
	}

	if chunkStart < len(text) {
		chunks = append(chunks, text[chunkStart:])
	}

	return chunks
}

// Cap merges every fragment from index maxChunks-1 onward into one final
// fragment. maxChunks <= 0 leaves chunks unchanged.
func Cap(chunks []string, maxChunks int) []string {
	if maxChunks <= 0 || len(chunks) <= maxChunks {
		return chunks
	}
	keep := maxChunks - 1
	out := make([]string, 0, maxChunks)
	out = append(out, chunks[:keep]...)
	return append(out, strings.Join(chunks[keep:], ""))
}

// Describe annotates fragments with their position in the document
func Describe(chunks []string) []Fragment {
	frags := make([]Fragment, len(chunks))
	line := 0
	for i, ch := range chunks {
		n := CountLines(ch)
		frags[i] = Fragment{
			Index:     i,
			StartLine: line,
			Lines:     n,
			Chars:     len(ch),
			Text:      ch,
		}
		line += n
	}
	return frags
}

// ShiftLines adds offset to every line map in the token forest. The walk uses
// an explicit stack so deeply nested children cannot exhaust the call stack.
func ShiftLines(tokens []*types.Token, offset int) {
	if offset == 0 || len(tokens) == 0 {
		return
	}

	stack := make([]*types.Token, 0, len(tokens))
	for i := len(tokens) - 1; i >= 0; i-- {
		stack = append(stack, tokens[i])
	}

	for len(stack) > 0 {
		tok := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if tok == nil {
			continue
		}

		if tok.Map != nil {
			tok.Map.Shift(offset)
		}
		for i := len(tok.Children) - 1; i >= 0; i-- {
			stack = append(stack, tok.Children[i])
		}
	}
}

// CountLines returns the number of line breaks in s
func CountLines(s string) int {
	return strings.Count(s, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
