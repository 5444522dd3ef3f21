package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var documentIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Caller-chosen id of the document; each id owns one stream engine",
}

// streamParseTool returns the tool definition for stream_parse
func streamParseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "stream_parse",
		Description: "Parse the full current text of a document, reusing cached tokens when the text only grew by whole blocks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty,
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Entire document text, not a delta",
				},
				"include_tokens": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return the token stream",
					"default":     false,
				},
				"render": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return the rendered HTML",
					"default":     false,
				},
			},
			Required: []string{"document_id", "text"},
		},
	}
}

// streamStatsTool returns the tool definition for stream_stats
func streamStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "stream_stats",
		Description: "Report how a document's parses were resolved (cache, append, full, chunked)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty,
			},
			Required: []string{"document_id"},
		},
	}
}

// streamResetTool returns the tool definition for stream_reset
func streamResetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "stream_reset",
		Description: "Drop a document's cached parse, or close the document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty,
				"close": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, remove the document session entirely",
					"default":     false,
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// chunkDocumentTool returns the tool definition for chunk_document
func chunkDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_document",
		Description: "Split markdown into fragments at blank lines, never inside a fenced code block",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Markdown text to split",
				},
				"max_chunk_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Soft character ceiling per fragment",
					"default":     10000,
					"minimum":     1,
				},
				"max_chunk_lines": map[string]interface{}{
					"type":        "integer",
					"description": "Soft line ceiling per fragment",
					"default":     200,
					"minimum":     1,
				},
				"fence_aware": map[string]interface{}{
					"type":        "boolean",
					"description": "Never cut inside an open fenced code block",
					"default":     true,
				},
				"max_chunks": map[string]interface{}{
					"type":        "integer",
					"description": "Merge the tail into the last fragment beyond this count (0 = no cap)",
					"default":     0,
					"minimum":     0,
				},
				"include_text": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include each fragment's text",
					"default":     false,
				},
			},
			Required: []string{"text"},
		},
	}
}

// renderDocumentTool returns the tool definition for render_document
func renderDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "render_document",
		Description: "Render markdown to HTML in one shot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Markdown text to render",
				},
			},
			Required: []string{"text"},
		},
	}
}

// perfStatusTool returns the tool definition for perf_status
func perfStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "perf_status",
		Description: "Summarize the latest stored perf run and its regressions against the accepted baseline",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Relative slowdown that counts as a regression",
					"default":     0.10,
					"minimum":     0.0,
				},
			},
		},
	}
}
