// Package stream implements the incremental parse engine for documents that
// grow while they are displayed, such as chat messages streamed token by
// token.
//
// A Parser keeps the last text it parsed together with its tokens and picks
// the cheapest way to parse each new text that still yields exactly what a
// full parse would:
//
//	cache    text is identical to the cached text
//	append   text is the cached text plus whole new lines after a block
//	         boundary; only the new lines are tokenized
//	chunked  large document, tokenized as independent fragments
//	full     everything else
//
// # Basic Usage
//
//	p := stream.New(parser.New(), stream.DefaultOptions())
//	for text := range updates {
//	    tokens, err := p.Parse(text, nil)
//	    if err != nil {
//	        return err
//	    }
//	    render(tokens)
//	}
//	fmt.Printf("%+v\n", p.Stats())
//
// # Append Safety
//
// The append path requires the previous text to end on a blank line
// outside any fenced code block, and the new suffix to be at least one
// complete line that cannot reinterpret earlier content (a setext
// underline, for example). See package boundary for the full rule set.
//
// # Very Large One-Shot Parses
//
// A cold-start text at or above OneShotMultiplier times the full-chunk
// thresholds is parsed in full and not cached, keeping large one-off renders
// such as history replay from pinning their tokens in memory.
package stream
