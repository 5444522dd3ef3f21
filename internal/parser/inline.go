package parser

import (
	"strings"

	"github.com/dshills/mdstream/pkg/types"
)

// parseInline turns inline content into a flat child token list. Supported
// constructs: code spans, emphasis, strong emphasis, links, backslash
// escapes and soft line breaks.
func (p *Parser) parseInline(src string, depth int) []*types.Token {
	out := make([]*types.Token, 0, 1)
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			out = append(out, &types.Token{Type: "text", Content: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			flush()
			out = append(out, &types.Token{Type: "softbreak", Tag: "br"})
			i++

		case c == '\\' && i+1 < len(src) && isEscapable(src[i+1]):
			text.WriteByte(src[i+1])
			i += 2

		case c == '`':
			run := countRun(src, i, '`')
			end := findRun(src, i+run, '`', run)
			if end < 0 {
				text.WriteString(src[i : i+run])
				i += run
				continue
			}
			flush()
			out = append(out, &types.Token{
				Type:    "code_inline",
				Tag:     "code",
				Markup:  src[i : i+run],
				Content: normalizeCodeSpan(src[i+run : end]),
			})
			i = end + run

		case (c == '*' || c == '_') && depth < p.maxNesting:
			run := countRun(src, i, c)
			n := min(run, 2)
			delim := src[i : i+n]
			closeAt := strings.Index(src[i+n:], delim)
			if closeAt <= 0 {
				text.WriteString(src[i : i+run])
				i += run
				continue
			}

			typ, tag := "em", "em"
			if n == 2 {
				typ, tag = "strong", "strong"
			}
			inner := src[i+n : i+n+closeAt]

			flush()
			out = append(out, &types.Token{Type: typ + "_open", Tag: tag, Nesting: 1, Markup: delim})
			out = append(out, p.parseInline(inner, depth+1)...)
			out = append(out, &types.Token{Type: typ + "_close", Tag: tag, Nesting: -1, Markup: delim})
			i += n + closeAt + n

		case c == '[' && depth < p.maxNesting:
			label, href, next, ok := scanLink(src, i)
			if !ok {
				text.WriteByte(c)
				i++
				continue
			}
			flush()
			out = append(out, &types.Token{Type: "link_open", Tag: "a", Nesting: 1, Info: href})
			out = append(out, p.parseInline(label, depth+1)...)
			out = append(out, &types.Token{Type: "link_close", Tag: "a", Nesting: -1})
			i = next

		default:
			text.WriteByte(c)
			i++
		}
	}

	flush()
	return out
}

// scanLink matches [label](href) at src[i]. next is the index after ')'.
func scanLink(src string, i int) (label, href string, next int, ok bool) {
	closeLabel := strings.IndexByte(src[i+1:], ']')
	if closeLabel <= 0 {
		return "", "", 0, false
	}
	labelEnd := i + 1 + closeLabel
	if labelEnd+1 >= len(src) || src[labelEnd+1] != '(' {
		return "", "", 0, false
	}
	closeHref := strings.IndexByte(src[labelEnd+2:], ')')
	if closeHref < 0 {
		return "", "", 0, false
	}
	hrefEnd := labelEnd + 2 + closeHref
	return src[i+1 : labelEnd], strings.TrimSpace(src[labelEnd+2 : hrefEnd]), hrefEnd + 1, true
}

func countRun(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// findRun returns the index of the next run of exactly n c bytes at or after from
func findRun(s string, from int, c byte, n int) int {
	for i := from; i < len(s); {
		if s[i] != c {
			i++
			continue
		}
		run := countRun(s, i, c)
		if run == n {
			return i
		}
		i += run
	}
	return -1
}

func normalizeCodeSpan(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.TrimSpace(s) != "" {
		s = s[1 : len(s)-1]
	}
	return s
}

func isEscapable(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}
