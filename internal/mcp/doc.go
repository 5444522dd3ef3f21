// Package mcp exposes the stream parser as Model Context Protocol tools
// over stdio.
//
// # Tools
//
//	stream_parse     document_id, text, include_tokens?, render?
//	stream_stats     document_id
//	stream_reset     document_id, close?
//	chunk_document   text, max_chunk_chars?, max_chunk_lines?, fence_aware?, max_chunks?, include_text?
//	render_document  text
//	perf_status      threshold?          (only with a perf history store)
//
// Each document_id owns one stream engine. Clients send the whole
// document on every stream_parse call; the engine decides whether the new
// text is a cache hit, an append or needs a full parse. Once
// Config.MaxSessions documents are open the least recently used one is
// dropped.
//
// # Errors
//
// Tool failures are returned as *MCPError with JSON-RPC codes:
//
//	-32602  invalid params (missing document_id or text, invalid UTF-8)
//	-32603  internal error
//	-32001  unknown document
//	-32002  no perf history
//
// Stdout carries protocol traffic only; logging goes through commonlog.
package mcp
