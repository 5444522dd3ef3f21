// Package parser is the reference markdown tokenizer used by the CLI, the
// servers and the tests.
//
// It produces a flat, markdown-it style token stream: paired *_open and
// *_close tokens around block content, one "inline" token per block of
// text carrying its parsed children, and self-contained "fence" and "hr"
// tokens.
//
// # Basic Usage
//
//	p := parser.New()
//	tokens, err := p.Tokenize("# Title\n\nSome *text*.\n", types.NewEnv())
//	if err != nil {
//	    return err
//	}
//
//	for _, tok := range tokens {
//	    fmt.Println(tok) // heading_open[0,1) inline[0,1) heading_close ...
//	}
//
// # Supported Syntax
//
// Blocks:
//   - ATX headings (# to ######) and setext headings (=== and --- underlines)
//   - Fenced code blocks with backticks or tildes
//   - Thematic breaks
//   - Tight bullet lists (-, * and +)
//   - Paragraphs
//
// Inline: code spans, *em*, **strong**, [links](href), backslash escapes
// and soft line breaks. A link's href is carried in the link_open token's
// Info field.
//
// # Block Boundaries
//
// Every block except a fenced code block ends at the first blank line. Fence
// open and close decisions use the same rules as package fence, so the
// stream engine's fence guard and this tokenizer never disagree about where
// a code block ends. Together these make a tokenization of "A" followed by
// a tokenization of "B" equal to a tokenization of "A"+"B" (after shifting
// line maps) whenever A ends with a blank line outside a fence.
//
// # Line Maps
//
// Maps are zero-based and end-exclusive. An unclosed fence extends to the
// end of the text.
package parser
