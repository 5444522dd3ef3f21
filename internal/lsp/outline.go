package lsp

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dshills/mdstream/internal/fence"
	"github.com/dshills/mdstream/pkg/types"
)

// Outline turns heading tokens into a nested symbol tree. A heading's range
// runs from its line to the line before the next heading of the same or a
// higher rank.
func Outline(tokens []*types.Token) []protocol.DocumentSymbol {
	type entry struct {
		sym   protocol.DocumentSymbol
		level int
	}

	var (
		roots []protocol.DocumentSymbol
		stack []*entry
	)

	lastLine := 0
	for _, tok := range tokens {
		if tok.Map != nil && tok.Map.End > lastLine {
			lastLine = tok.Map.End
		}
	}

	// pop closes the innermost open heading at line end
	pop := func(end int) {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		top.sym.Range.End = protocol.Position{Line: protocol.UInteger(end)}
		if len(stack) == 0 {
			roots = append(roots, top.sym)
			return
		}
		parent := stack[len(stack)-1]
		parent.sym.Children = append(parent.sym.Children, top.sym)
	}

	for i, tok := range tokens {
		if tok.Type != "heading_open" || tok.Map == nil {
			continue
		}
		level := headingLevel(tok.Tag)
		name := ""
		if i+1 < len(tokens) && tokens[i+1].Type == "inline" {
			name = strings.TrimSpace(tokens[i+1].Content)
		}
		if name == "" {
			name = strings.Repeat("#", level)
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			pop(tok.Map.Start)
		}

		detail := tok.Tag
		start := protocol.Position{Line: protocol.UInteger(tok.Map.Start)}
		stack = append(stack, &entry{
			level: level,
			sym: protocol.DocumentSymbol{
				Name:   name,
				Detail: &detail,
				Kind:   protocol.SymbolKindString,
				Range:  protocol.Range{Start: start},
				SelectionRange: protocol.Range{
					Start: start,
					End:   protocol.Position{Line: protocol.UInteger(tok.Map.End)},
				},
			},
		})
	}
	for len(stack) > 0 {
		pop(lastLine)
	}

	if roots == nil {
		return []protocol.DocumentSymbol{}
	}
	return roots
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 1
}

// Diagnostics reports an unterminated fenced code block, which swallows
// the rest of the document
func Diagnostics(text string) []protocol.Diagnostic {
	var (
		tracker  fence.Tracker
		openLine int
	)
	line := 0
	for start := 0; start <= len(text); line++ {
		end := strings.IndexByte(text[start:], '\n')
		var l string
		if end < 0 {
			l = text[start:]
		} else {
			l = text[start : start+end]
		}
		wasOpen := tracker.Open()
		tracker.Feed(l)
		if !wasOpen && tracker.Open() {
			openLine = line
		}
		if end < 0 {
			break
		}
		start += end + 1
	}

	if !tracker.Open() {
		return []protocol.Diagnostic{}
	}
	severity := protocol.DiagnosticSeverityWarning
	source := lsName
	pos := protocol.Position{Line: protocol.UInteger(openLine)}
	return []protocol.Diagnostic{{
		Range:    protocol.Range{Start: pos, End: pos},
		Severity: &severity,
		Source:   &source,
		Message:  "unterminated code fence; the rest of the document is treated as code",
	}}
}
