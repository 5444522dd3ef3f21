package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/mdstream/internal/bench"
	"github.com/dshills/mdstream/internal/chunker"
	"github.com/dshills/mdstream/internal/storage"
	"github.com/dshills/mdstream/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeUnknownDocument = -32001 // No session for document_id
	ErrorCodeNoPerfHistory   = -32002 // No stored perf run
)

// handleStreamParse feeds the full current text of a document to its session
func (s *Server) handleStreamParse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, err := requireDocumentID(args)
	if err != nil {
		return nil, err
	}
	text, err := requireText(args)
	if err != nil {
		return nil, err
	}
	includeTokens := getBoolDefault(args, "include_tokens", false)
	renderHTML := getBoolDefault(args, "render", false)

	sess := s.sessions.open(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	tokens, err := sess.md.Stream().Parse(text, sess.env)
	if err != nil {
		return nil, parseError(err)
	}
	stats := sess.md.Stream().Stats()

	response := map[string]interface{}{
		"document_id": id,
		"mode":        stats.LastMode,
		"stats":       stats,
		"token_count": len(tokens),
	}
	if info, ok := sess.env.ChunkInfo(); ok {
		response["chunk_info"] = map[string]interface{}{
			"count":           info.Count,
			"max_chunk_chars": info.MaxChunkChars,
			"max_chunk_lines": info.MaxChunkLines,
		}
	}
	if includeTokens {
		response["tokens"] = viewTokens(tokens)
	}
	if renderHTML {
		response["html"] = sess.md.RenderTokens(tokens)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStreamStats reports the counters of an open document
func (s *Server) handleStreamStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, err := requireDocumentID(args)
	if err != nil {
		return nil, err
	}

	sess, ok := s.sessions.get(id)
	if !ok {
		return nil, unknownDocument(id)
	}
	sess.mu.Lock()
	stats := sess.md.Stream().Stats()
	sess.mu.Unlock()

	response := map[string]interface{}{
		"document_id": id,
		"stats":       stats,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStreamReset drops a document's cache, or the whole session with close=true
func (s *Server) handleStreamReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, err := requireDocumentID(args)
	if err != nil {
		return nil, err
	}

	if getBoolDefault(args, "close", false) {
		if !s.sessions.close(id) {
			return nil, unknownDocument(id)
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"document_id": id,
			"closed":      true,
		})), nil
	}

	sess, ok := s.sessions.get(id)
	if !ok {
		return nil, unknownDocument(id)
	}
	sess.mu.Lock()
	sess.md.Stream().Reset()
	stats := sess.md.Stream().Stats()
	sess.mu.Unlock()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id": id,
		"reset":       true,
		"stats":       stats,
	})), nil
}

// handleChunkDocument splits a document the way the chunked parse path does
func (s *Server) handleChunkDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, err := requireText(args)
	if err != nil {
		return nil, err
	}

	policy := types.ChunkPolicy{
		MaxChunkChars: getIntDefault(args, "max_chunk_chars", types.DefaultMaxChunkChars),
		MaxChunkLines: getIntDefault(args, "max_chunk_lines", types.DefaultMaxChunkLines),
		FenceAware:    getBoolDefault(args, "fence_aware", true),
		MaxChunks:     getIntDefault(args, "max_chunks", 0),
	}
	if policy.MaxChunkChars < 1 || policy.MaxChunkLines < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "chunk ceilings must be positive", map[string]interface{}{
			"max_chunk_chars": policy.MaxChunkChars,
			"max_chunk_lines": policy.MaxChunkLines,
		})
	}
	includeText := getBoolDefault(args, "include_text", false)

	frags := chunker.Describe(chunker.Cap(chunker.Split(text, policy), policy.MaxChunks))
	chunks := make([]map[string]interface{}, len(frags))
	for i, f := range frags {
		c := map[string]interface{}{
			"index":      f.Index,
			"start_line": f.StartLine,
			"lines":      f.Lines,
			"chars":      f.Chars,
		}
		if includeText {
			c["text"] = f.Text
		}
		chunks[i] = c
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":  len(frags),
		"chunks": chunks,
	})), nil
}

// handleRenderDocument renders a document in one shot, without a session
func (s *Server) handleRenderDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, err := requireText(args)
	if err != nil {
		return nil, err
	}

	// The one-shot instance is shared, so renders are serialized
	s.oneShotMu.Lock()
	html, err := s.oneShot.Render(text, types.NewEnv())
	s.oneShotMu.Unlock()
	if err != nil {
		return nil, parseError(err)
	}
	return mcp.NewToolResultText(html), nil
}

// handlePerfStatus summarizes the latest perf run against the baseline
func (s *Server) handlePerfStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	threshold := getFloatDefault(args, "threshold", bench.DefaultThreshold)

	latest, err := s.store.LatestRun(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNoPerfHistory, "no perf runs stored; run `mdstream bench run` first", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load latest run", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run": map[string]interface{}{
			"id":         latest.ID,
			"label":      latest.Label,
			"build_mode": latest.BuildMode,
			"created_at": latest.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"cells":      len(latest.Results),
		},
	}

	best := bench.BestBySize(latest)
	bestRows := make([]map[string]interface{}, len(best))
	for i, b := range best {
		bestRows[i] = map[string]interface{}{"size": b.Size, "one_shot": b.OneShot, "append": b.Append}
	}
	response["best"] = bestRows

	base, err := s.store.BaselineExcluding(ctx, latest.Label)
	switch {
	case errors.Is(err, storage.ErrNoBaseline):
		response["baseline"] = nil
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to load baseline", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		deltas := bench.Diff(latest, base, threshold)
		response["baseline"] = map[string]interface{}{
			"id":          base.ID,
			"label":       base.Label,
			"threshold":   threshold,
			"regressions": bench.Regressions(deltas),
			"compared":    len(deltas),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// tokenView is the JSON shape of a token
type tokenView struct {
	Type     string      `json:"type"`
	Tag      string      `json:"tag,omitempty"`
	Nesting  int         `json:"nesting"`
	Level    int         `json:"level"`
	Content  string      `json:"content,omitempty"`
	Info     string      `json:"info,omitempty"`
	Map      *[2]int     `json:"map,omitempty"`
	Children []tokenView `json:"children,omitempty"`
}

func viewTokens(tokens []*types.Token) []tokenView {
	out := make([]tokenView, len(tokens))
	for i, t := range tokens {
		v := tokenView{
			Type:    t.Type,
			Tag:     t.Tag,
			Nesting: t.Nesting,
			Level:   t.Level,
			Content: t.Content,
			Info:    t.Info,
		}
		if t.Map != nil {
			v.Map = &[2]int{t.Map.Start, t.Map.End}
		}
		if len(t.Children) > 0 {
			v.Children = viewTokens(t.Children)
		}
		out[i] = v
	}
	return out
}

func requireDocumentID(args map[string]interface{}) (string, error) {
	id, ok := args["document_id"].(string)
	if !ok || id == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", map[string]interface{}{
			"param":  "document_id",
			"reason": "missing or empty",
		})
	}
	return id, nil
}

func requireText(args map[string]interface{}) (string, error) {
	text, ok := args["text"].(string)
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": types.ErrEmptyText.Error(),
		})
	}
	return text, nil
}

func unknownDocument(id string) error {
	return newMCPError(ErrorCodeUnknownDocument, types.ErrUnknownDocument.Error(), map[string]interface{}{
		"document_id": id,
	})
}

func parseError(err error) error {
	if errors.Is(err, types.ErrInvalidInput) {
		return newMCPError(ErrorCodeInvalidParams, "invalid text", map[string]interface{}{
			"param":  "text",
			"reason": err.Error(),
		})
	}
	log.Errorf("parse failed: %s", err)
	return newMCPError(ErrorCodeInternalError, "parse failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}
