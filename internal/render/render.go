// Package render turns token streams into HTML.
package render

import (
	"html"
	"strings"

	"github.com/dshills/mdstream/pkg/types"
)

// Renderer writes HTML for the token types produced by package parser.
// Unknown token types are skipped.
type Renderer struct {
	// LangPrefix is prepended to a fence's language in the class attribute
	LangPrefix string
	// Breaks renders soft line breaks as <br>
	Breaks bool
}

// New creates a Renderer with markdown-it compatible defaults
func New() *Renderer {
	return &Renderer{LangPrefix: "language-"}
}

// Render returns the HTML for tokens
func (r *Renderer) Render(tokens []*types.Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		r.renderBlock(&sb, tok)
	}
	return sb.String()
}

func (r *Renderer) renderBlock(sb *strings.Builder, tok *types.Token) {
	if tok == nil {
		return
	}

	switch tok.Type {
	case "inline":
		r.renderInline(sb, tok.Children)
	case "fence":
		r.renderFence(sb, tok)
	case "hr":
		sb.WriteString("<hr>\n")
	case "bullet_list_open":
		sb.WriteString("<ul>\n")
	case "list_item_open":
		sb.WriteString("<li>")
	case "list_item_close":
		sb.WriteString("</li>\n")
	case "bullet_list_close":
		sb.WriteString("</ul>\n")
	default:
		switch tok.Nesting {
		case 1:
			sb.WriteString("<" + tok.Tag + ">")
		case -1:
			sb.WriteString("</" + tok.Tag + ">\n")
		}
	}
}

func (r *Renderer) renderFence(sb *strings.Builder, tok *types.Token) {
	lang := tok.Info
	if i := strings.IndexAny(lang, " \t"); i >= 0 {
		lang = lang[:i]
	}

	sb.WriteString("<pre><code")
	if lang != "" {
		sb.WriteString(` class="` + html.EscapeString(r.LangPrefix+lang) + `"`)
	}
	sb.WriteString(">")
	sb.WriteString(html.EscapeString(tok.Content))
	sb.WriteString("</code></pre>\n")
}

func (r *Renderer) renderInline(sb *strings.Builder, children []*types.Token) {
	for _, tok := range children {
		if tok == nil {
			continue
		}
		switch tok.Type {
		case "text":
			sb.WriteString(html.EscapeString(tok.Content))
		case "softbreak":
			if r.Breaks {
				sb.WriteString("<br>\n")
			} else {
				sb.WriteString("\n")
			}
		case "code_inline":
			sb.WriteString("<code>" + html.EscapeString(tok.Content) + "</code>")
		case "link_open":
			sb.WriteString(`<a href="` + html.EscapeString(tok.Info) + `">`)
		default:
			switch tok.Nesting {
			case 1:
				sb.WriteString("<" + tok.Tag + ">")
			case -1:
				sb.WriteString("</" + tok.Tag + ">")
			}
		}
	}
}
