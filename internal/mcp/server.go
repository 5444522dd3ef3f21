package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/tliron/commonlog"

	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/internal/storage"
	"github.com/dshills/mdstream/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "mdstream"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultMaxSessions bounds the number of open documents
	DefaultMaxSessions = 64
)

var log = commonlog.GetLogger("mdstream.mcp")

// Config contains the server dependencies
type Config struct {
	Tokenizer   types.Tokenizer
	Options     markdown.Options // applied to every session; Stream is forced on
	Store       storage.Storage  // optional perf history for perf_status
	MaxSessions int
}

// Server wraps the MCP server with per-document stream sessions
type Server struct {
	mcp      *server.MCPServer
	sessions *Sessions
	store    storage.Storage

	oneShotMu sync.Mutex
	oneShot   *markdown.Markdown
}

// NewServer creates a new MCP server instance
func NewServer(cfg Config) (*Server, error) {
	if cfg.Tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	streamOpts := cfg.Options
	streamOpts.Stream = true
	oneShotOpts := cfg.Options
	oneShotOpts.Stream = false

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		sessions: NewSessions(cfg.Tokenizer, streamOpts, cfg.MaxSessions),
		oneShot:  markdown.New(cfg.Tokenizer, oneShotOpts),
		store:    cfg.Store,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	log.Infof("serving %s %s on stdio", ServerName, ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(streamParseTool(), s.handleStreamParse)
	s.mcp.AddTool(streamStatsTool(), s.handleStreamStats)
	s.mcp.AddTool(streamResetTool(), s.handleStreamReset)
	s.mcp.AddTool(chunkDocumentTool(), s.handleChunkDocument)
	s.mcp.AddTool(renderDocumentTool(), s.handleRenderDocument)

	if s.store != nil {
		s.mcp.AddTool(perfStatusTool(), s.handlePerfStatus)
	}
	return nil
}
