package parser

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dshills/mdstream/internal/fence"
	"github.com/dshills/mdstream/pkg/types"
)

// DefaultMaxNesting bounds how deeply inline emphasis may nest
const DefaultMaxNesting = 20

// Parser tokenizes markdown into a flat block token stream. It keeps no
// state between calls, so fragments of one document can be tokenized
// independently.
type Parser struct {
	maxNesting int
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{
		maxNesting: DefaultMaxNesting,
	}
}

// ParseFile reads and tokenizes a markdown file
func (p *Parser) ParseFile(filePath string) ([]*types.Token, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Tokenize(string(content), types.NewEnv())
}

// Tokenize implements types.Tokenizer. Every block except a fenced code
// block ends at the first blank line.
func (p *Parser) Tokenize(text string, env *types.Env) ([]*types.Token, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", types.ErrInvalidInput)
	}

	s := &blockState{
		parser: p,
		lines:  splitLines(text),
		tokens: make([]*types.Token, 0),
	}
	s.run()
	return s.tokens, nil
}

// blockState walks the lines of one Tokenize call
type blockState struct {
	parser *Parser
	lines  []string
	tokens []*types.Token
}

func (s *blockState) run() {
	for i := 0; i < len(s.lines); {
		line := s.lines[i]
		switch {
		case isBlank(line):
			i++
		case fence.IsFenceLine(line):
			i = s.extractFence(i)
		case atxLevel(line) > 0:
			i = s.extractATXHeading(i)
		case isThematicBreak(line):
			i = s.extractThematicBreak(i)
		case bulletMarker(line) != 0:
			i = s.extractBulletList(i)
		default:
			i = s.extractParagraph(i)
		}
	}
}

func (s *blockState) push(tok *types.Token) {
	s.tokens = append(s.tokens, tok)
}

func (s *blockState) pushInline(content string, start, end, level int) {
	s.push(&types.Token{
		Type:     "inline",
		Level:    level,
		Block:    true,
		Content:  content,
		Map:      &types.LineMap{Start: start, End: end},
		Children: s.parser.parseInline(content, 0),
	})
}

// extractFence consumes a fenced code block. An unclosed fence runs to the
// end of the text.
func (s *blockState) extractFence(start int) int {
	var tracker fence.Tracker
	opener := s.lines[start]
	tracker.Feed(opener)
	state, _ := tracker.State()

	trimmed := strings.TrimLeft(opener, " \t")
	markup := trimmed[:state.Length]
	info := strings.TrimSpace(trimmed[state.Length:])

	var body strings.Builder
	end := len(s.lines)
	for i := start + 1; i < len(s.lines); i++ {
		tracker.Feed(s.lines[i])
		if !tracker.Open() {
			end = i + 1
			break
		}
		body.WriteString(s.lines[i])
		body.WriteByte('\n')
	}

	s.push(&types.Token{
		Type:    "fence",
		Tag:     "code",
		Block:   true,
		Content: body.String(),
		Info:    info,
		Markup:  markup,
		Map:     &types.LineMap{Start: start, End: end},
	})
	return end
}

func (s *blockState) extractATXHeading(start int) int {
	line := strings.TrimLeft(s.lines[start], " ")
	level := atxLevel(line)
	tag := fmt.Sprintf("h%d", level)

	content := strings.TrimSpace(line[level:])
	if stripped := strings.TrimRight(content, "#"); stripped != content {
		if stripped == "" || strings.HasSuffix(stripped, " ") || strings.HasSuffix(stripped, "\t") {
			content = strings.TrimSpace(stripped)
		}
	}

	lm := &types.LineMap{Start: start, End: start + 1}
	s.push(&types.Token{Type: "heading_open", Tag: tag, Nesting: 1, Block: true, Markup: line[:level], Map: lm})
	s.pushInline(content, start, start+1, 1)
	s.push(&types.Token{Type: "heading_close", Tag: tag, Nesting: -1, Block: true, Markup: line[:level]})
	return start + 1
}

func (s *blockState) extractThematicBreak(start int) int {
	s.push(&types.Token{
		Type:   "hr",
		Tag:    "hr",
		Block:  true,
		Markup: strings.ReplaceAll(strings.TrimSpace(s.lines[start]), " ", ""),
		Map:    &types.LineMap{Start: start, End: start + 1},
	})
	return start + 1
}

// extractParagraph consumes paragraph lines up to a blank line or a line
// that starts another block. A setext underline turns the paragraph into a
// heading.
func (s *blockState) extractParagraph(start int) int {
	parts := []string{strings.TrimSpace(s.lines[start])}

	i := start + 1
	for ; i < len(s.lines); i++ {
		line := s.lines[i]
		if isBlank(line) {
			break
		}
		if level, marker := setextLevel(line); level > 0 {
			tag := fmt.Sprintf("h%d", level)
			lm := &types.LineMap{Start: start, End: i + 1}
			s.push(&types.Token{Type: "heading_open", Tag: tag, Nesting: 1, Block: true, Markup: marker, Map: lm})
			s.pushInline(strings.Join(parts, "\n"), start, i+1, 1)
			s.push(&types.Token{Type: "heading_close", Tag: tag, Nesting: -1, Block: true, Markup: marker})
			return i + 1
		}
		if interruptsParagraph(line) {
			break
		}
		parts = append(parts, strings.TrimSpace(line))
	}

	s.push(&types.Token{Type: "paragraph_open", Tag: "p", Nesting: 1, Block: true, Map: &types.LineMap{Start: start, End: i}})
	s.pushInline(strings.Join(parts, "\n"), start, i, 1)
	s.push(&types.Token{Type: "paragraph_close", Tag: "p", Nesting: -1, Block: true})
	return i
}

// extractBulletList consumes a tight list whose items share one marker
func (s *blockState) extractBulletList(start int) int {
	marker := bulletMarker(s.lines[start])
	open := &types.Token{
		Type:    "bullet_list_open",
		Tag:     "ul",
		Nesting: 1,
		Block:   true,
		Markup:  string(marker),
		Map:     &types.LineMap{Start: start},
	}
	s.push(open)

	i := start
	for i < len(s.lines) && bulletMarker(s.lines[i]) == marker {
		itemStart := i
		parts := []string{itemContent(s.lines[i])}
		i++
		for i < len(s.lines) {
			line := s.lines[i]
			if isBlank(line) || bulletMarker(line) != 0 || interruptsParagraph(line) {
				break
			}
			parts = append(parts, strings.TrimSpace(line))
			i++
		}

		s.push(&types.Token{
			Type:    "list_item_open",
			Tag:     "li",
			Nesting: 1,
			Level:   1,
			Block:   true,
			Markup:  string(marker),
			Map:     &types.LineMap{Start: itemStart, End: i},
		})
		s.pushInline(strings.Join(parts, "\n"), itemStart, i, 2)
		s.push(&types.Token{Type: "list_item_close", Tag: "li", Nesting: -1, Level: 1, Block: true, Markup: string(marker)})
	}

	open.Map.End = i
	s.push(&types.Token{Type: "bullet_list_close", Tag: "ul", Nesting: -1, Block: true, Markup: string(marker)})
	return i
}

// splitLines splits text on '\n'. A trailing line break does not start a
// further empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func interruptsParagraph(line string) bool {
	return fence.IsFenceLine(line) || atxLevel(line) > 0 || isThematicBreak(line) || bulletMarker(line) != 0
}

// leadingSpaces returns the number of leading spaces when it is at most three,
// or -1 when the line is indented further.
func leadingSpaces(line string) int {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	if n > 3 {
		return -1
	}
	return n
}

// atxLevel returns the heading level of an ATX heading line, or 0
func atxLevel(line string) int {
	p := leadingSpaces(line)
	if p < 0 {
		return 0
	}
	line = line[p:]

	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0
	}
	if level < len(line) && line[level] != ' ' && line[level] != '\t' {
		return 0
	}
	return level
}

func isThematicBreak(line string) bool {
	p := leadingSpaces(line)
	if p < 0 {
		return false
	}

	var marker byte
	count := 0
	for i := p; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			continue
		case marker == 0 && (c == '-' || c == '*' || c == '_'):
			marker = c
			count++
		case c == marker:
			count++
		default:
			return false
		}
	}
	return count >= 3
}

// setextLevel reports whether line underlines the paragraph above it
func setextLevel(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || leadingSpaces(line) < 0 {
		return 0, ""
	}
	if strings.Trim(trimmed, "=") == "" {
		return 1, "="
	}
	if strings.Trim(trimmed, "-") == "" {
		return 2, "-"
	}
	return 0, ""
}

// bulletMarker returns the list marker starting line, or 0
func bulletMarker(line string) byte {
	p := leadingSpaces(line)
	if p < 0 || p >= len(line) {
		return 0
	}
	c := line[p]
	if c != '-' && c != '*' && c != '+' {
		return 0
	}
	if p+1 < len(line) && line[p+1] != ' ' && line[p+1] != '\t' {
		return 0
	}
	return c
}

func itemContent(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, " ")[1:])
}
