package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/storage"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T, store storage.Storage) *Server {
	opts := markdown.DefaultOptions()
	opts.StreamOptimizationMinSize = 0
	s, err := NewServer(Config{Tokenizer: parser.New(), Options: opts, Store: store, MaxSessions: 2})
	require.NoError(t, err)
	return s
}

func call(h handler, args map[string]interface{}) (*mcp.CallToolResult, error) {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return h(context.Background(), req)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func mcpCode(t *testing.T, err error) int {
	var me *MCPError
	require.True(t, errors.As(err, &me), "expected MCPError, got %v", err)
	return me.Code
}

func TestNewServer_RequiresTokenizer(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestStreamParse_AppendPath(t *testing.T) {
	s := newTestServer(t, nil)

	res, err := call(s.handleStreamParse, map[string]interface{}{
		"document_id": "doc",
		"text":        "# Title\n\nfirst paragraph\n\n",
	})
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, "full", out["mode"])

	res, err = call(s.handleStreamParse, map[string]interface{}{
		"document_id":    "doc",
		"text":           "# Title\n\nfirst paragraph\n\nsecond paragraph\n",
		"include_tokens": true,
		"render":         true,
	})
	require.NoError(t, err)
	out = resultJSON(t, res)
	assert.Equal(t, "append", out["mode"])

	stats := out["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, float64(1), stats["appendHits"])

	tokens := out["tokens"].([]interface{})
	assert.Len(t, tokens, int(out["token_count"].(float64)))
	open := tokens[len(tokens)-3].(map[string]interface{})
	assert.Equal(t, "paragraph_open", open["type"])
	assert.Equal(t, []interface{}{float64(4), float64(5)}, open["map"])

	assert.Contains(t, out["html"], "<p>second paragraph</p>")
}

func TestStreamParse_InvalidParams(t *testing.T) {
	s := newTestServer(t, nil)

	_, err := call(s.handleStreamParse, map[string]interface{}{"text": "x"})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	_, err = call(s.handleStreamParse, map[string]interface{}{"document_id": "d"})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	_, err = call(s.handleStreamParse, map[string]interface{}{"document_id": "d", "text": "bad \xff"})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	var req mcp.CallToolRequest
	req.Params.Arguments = "not a map"
	_, err = s.handleStreamParse(context.Background(), req)
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestStreamStatsAndReset(t *testing.T) {
	s := newTestServer(t, nil)

	_, err := call(s.handleStreamStats, map[string]interface{}{"document_id": "nope"})
	assert.Equal(t, ErrorCodeUnknownDocument, mcpCode(t, err))

	_, err = call(s.handleStreamParse, map[string]interface{}{"document_id": "d", "text": "hello\n"})
	require.NoError(t, err)
	_, err = call(s.handleStreamParse, map[string]interface{}{"document_id": "d", "text": "hello\n"})
	require.NoError(t, err)

	res, err := call(s.handleStreamStats, map[string]interface{}{"document_id": "d"})
	require.NoError(t, err)
	stats := resultJSON(t, res)["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["cacheHits"])
	assert.Equal(t, "cache", stats["lastMode"])

	res, err = call(s.handleStreamReset, map[string]interface{}{"document_id": "d"})
	require.NoError(t, err)
	stats = resultJSON(t, res)["stats"].(map[string]interface{})
	assert.Equal(t, "reset", stats["lastMode"])
	assert.Equal(t, float64(1), stats["resets"])

	res, err = call(s.handleStreamReset, map[string]interface{}{"document_id": "d", "close": true})
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, res)["closed"])
	assert.Equal(t, 0, s.sessions.Len())

	_, err = call(s.handleStreamReset, map[string]interface{}{"document_id": "d", "close": true})
	assert.Equal(t, ErrorCodeUnknownDocument, mcpCode(t, err))
}

func TestSessions_EvictLeastRecentlyUsed(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := NewSessions(parser.New(), markdown.DefaultOptions(), 2)
	reg.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	reg.open("a")
	reg.open("b")
	_, ok := reg.get("a") // a is now newer than b
	require.True(t, ok)

	reg.open("c")
	assert.Equal(t, 2, reg.Len())
	_, ok = reg.get("b")
	assert.False(t, ok)
	_, ok = reg.get("a")
	assert.True(t, ok)
}

func TestChunkDocument(t *testing.T) {
	s := newTestServer(t, nil)

	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteString("line one\nline two\n\n")
	}
	res, err := call(s.handleChunkDocument, map[string]interface{}{
		"text":            b.String(),
		"max_chunk_chars": float64(20),
		"max_chunk_lines": float64(2),
		"include_text":    true,
	})
	require.NoError(t, err)
	out := resultJSON(t, res)
	chunks := out["chunks"].([]interface{})
	assert.Equal(t, float64(len(chunks)), out["count"])
	assert.Greater(t, len(chunks), 1)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.(map[string]interface{})["text"].(string))
	}
	assert.Equal(t, b.String(), joined.String())

	res, err = call(s.handleChunkDocument, map[string]interface{}{
		"text":            b.String(),
		"max_chunk_chars": float64(20),
		"max_chunk_lines": float64(2),
		"max_chunks":      float64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(2), resultJSON(t, res)["count"])

	_, err = call(s.handleChunkDocument, map[string]interface{}{"text": "x", "max_chunk_chars": float64(0)})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestRenderDocument(t *testing.T) {
	s := newTestServer(t, nil)

	res, err := call(s.handleRenderDocument, map[string]interface{}{"text": "# Hi\n\n*there*\n"})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hi</h1>\n<p><em>there</em></p>\n", resultText(t, res))

	_, err = call(s.handleRenderDocument, map[string]interface{}{})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))
}

func TestPerfStatus(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	s := newTestServer(t, store)
	ctx := context.Background()

	_, err = call(s.handlePerfStatus, nil)
	assert.Equal(t, ErrorCodeNoPerfHistory, mcpCode(t, err))

	base := &storage.Run{Label: "base", Results: []*storage.Result{
		{Size: 5000, Scenario: "S1", OneShotMs: 1, AppendWorkloadMs: 1},
	}}
	require.NoError(t, store.CreateRun(ctx, base))
	require.NoError(t, store.AcceptRun(ctx, base.ID))

	cur := &storage.Run{Label: "cur", Results: []*storage.Result{
		{Size: 5000, Scenario: "S1", OneShotMs: 2, AppendWorkloadMs: 1},
	}}
	require.NoError(t, store.CreateRun(ctx, cur))

	res, err := call(s.handlePerfStatus, map[string]interface{}{})
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, "cur", out["run"].(map[string]interface{})["label"])
	baseline := out["baseline"].(map[string]interface{})
	assert.Equal(t, "base", baseline["label"])
	assert.Equal(t, float64(1), baseline["regressions"])
}
