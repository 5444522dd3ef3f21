// Package types provides shared type definitions for mdstream.
//
// This package defines the domain types used across the stream parser, the
// chunker, the sizing policy and the outer surfaces (CLI, MCP and LSP).
//
// # Tokens
//
// Token is the unit produced by a Tokenizer. Block tokens carry a LineMap
// that attributes them to zero-based, end-exclusive source lines:
//
//	tok := &types.Token{
//	    Type:    "heading_open",
//	    Tag:     "h2",
//	    Nesting: 1,
//	    Map:     &types.LineMap{Start: 4, End: 5},
//	}
//
// Inline content hangs off an "inline" token as Children. When fragments of
// a document are tokenized separately, every map in the tree is shifted by
// the fragment's line offset so the merged sequence matches a full parse.
//
// # Parse Context
//
// Env is the context passed to a Tokenizer. The stream parser compares
// contexts by identity, so handing a different *Env invalidates any cached
// result:
//
//	env := types.NewEnv()
//	env.Set("docID", "readme")
//	tokens, err := parser.Parse(src, env)
//
// A chunked parse records ChunkInfo on the env for diagnostics.
//
// # Statistics
//
// Stats counts every stream parse call by resolved Mode:
//
//	stats := parser.Stats()
//	fmt.Printf("%d calls, %d append hits, last mode %s\n",
//	    stats.Total, stats.AppendHits, stats.LastMode)
//
// # Chunk Policy
//
// ChunkPolicy bounds fragment size by characters and lines, optionally keeps
// fenced code blocks whole, and optionally caps the number of fragments.
package types
