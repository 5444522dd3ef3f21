// Package chunker splits large markdown documents into fragments that can be
// tokenized independently and merged back into one token sequence.
//
// # Basic Usage
//
//	c := chunker.New(tokenizer)
//	tokens, err := c.Parse(src, env, types.ChunkPolicy{
//	    MaxChunkChars: 16_000,
//	    MaxChunkLines: 250,
//	    FenceAware:    true,
//	})
//	if err != nil {
//	    return err
//	}
//
// # Splitting Strategy
//
// Fragments end on blank lines, which separate blocks in every construct
// the tokenizer supports except fenced code. With FenceAware set, the
// splitter never cuts while a fence is open:
//
//	some text            <- fragment 1
//	                     <- blank line: preferred cut once a ceiling is hit
//	```go
//	func main() {}       <- never cut here
//	```
//
// When a ceiling is reached and no blank line follows for a long stretch,
// the fragment is cut mid-block so a single pathological block cannot grow
// without bound.
//
// # Fragment Cap
//
// ChunkPolicy.MaxChunks caps the fragment count. Fragments past the cap are
// concatenated verbatim into the last fragment, so early fragmentation is
// preserved while the total stays bounded.
//
// # Line Maps
//
// Each fragment is tokenized with line numbers starting at zero. Parse
// shifts every token map, including nested children, by the number of line
// breaks in all preceding fragments:
//
//	fragment 0: lines 0..119   offset 0
//	fragment 1: lines 0..87    offset 120
//	fragment 2: lines 0..140   offset 208
//
// After merging, every map matches what a full parse of the document
// reports.
package chunker
