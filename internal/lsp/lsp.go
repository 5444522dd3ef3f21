// Package lsp serves markdown documents over the Language Server Protocol.
//
// Every open document owns a stream engine behind a Debouncer, so rapid
// edits coalesce into one parse and appended text takes the engine's fast
// path. The server publishes a diagnostic for an unterminated fenced code
// block and answers textDocument/documentSymbol with the heading outline.
package lsp

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/internal/schedule"
	"github.com/dshills/mdstream/pkg/types"
)

const lsName = "mdstream"

var log = commonlog.GetLogger("mdstream.lsp")

// Config contains the server dependencies
type Config struct {
	Tokenizer types.Tokenizer
	Options   markdown.Options // Stream is forced on
	Wait      time.Duration    // debounce wait, 0 for the default
	Clock     schedule.Clock   // nil for the system clock
	Version   string
}

// document is one open text document
type document struct {
	uri       protocol.DocumentUri
	md        *markdown.Markdown
	debouncer *schedule.Debouncer

	mu      sync.Mutex
	text    string
	version protocol.Integer
	notify  glsp.NotifyFunc
}

// Server is the markdown language server
type Server struct {
	cfg     Config
	handler protocol.Handler
	server  *server.Server

	mu   sync.Mutex
	docs map[protocol.DocumentUri]*document
}

// NewServer creates the language server
func NewServer(cfg Config) *Server {
	cfg.Options.Stream = true
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	ls := &Server{
		cfg:  cfg,
		docs: make(map[protocol.DocumentUri]*document),
	}

	ls.handler = protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		SetTrace:                   ls.setTrace,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)
	return ls
}

// RunStdio serves on stdin/stdout until the client exits
func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.cfg.Version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Infof("%s %s initialized", lsName, ls.cfg.Version)
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for uri, doc := range ls.docs {
		doc.debouncer.Cancel()
		delete(ls.docs, uri)
	}
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	md := markdown.New(ls.cfg.Tokenizer, ls.cfg.Options)
	doc := &document{
		uri:       params.TextDocument.URI,
		md:        md,
		debouncer: schedule.NewDebouncer(md.Stream(), ls.cfg.Wait, ls.cfg.Clock),
		text:      params.TextDocument.Text,
		version:   params.TextDocument.Version,
		notify:    ctx.Notify,
	}

	ls.mu.Lock()
	if old, ok := ls.docs[doc.uri]; ok {
		old.debouncer.Cancel()
	}
	ls.docs[doc.uri] = doc
	ls.mu.Unlock()

	log.Debugf("opened %s", doc.uri)
	doc.debouncer.ParseNow(doc.text, doc.published(doc.text))
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, ok := ls.document(params.TextDocument.URI)
	if !ok || len(params.ContentChanges) == 0 {
		return nil
	}

	// Full sync: the last change carries the whole text
	change := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := change.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}

	doc.mu.Lock()
	doc.text = whole.Text
	doc.version = params.TextDocument.Version
	doc.notify = ctx.Notify
	doc.mu.Unlock()

	doc.debouncer.Parse(whole.Text, doc.published(whole.Text))
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.mu.Lock()
	doc, ok := ls.docs[params.TextDocument.URI]
	delete(ls.docs, params.TextDocument.URI)
	ls.mu.Unlock()

	if !ok {
		return nil
	}
	doc.debouncer.Cancel()
	if ctx.Notify != nil {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         doc.uri,
			Diagnostics: []protocol.Diagnostic{},
		})
	}
	log.Debugf("closed %s", doc.uri)
	return nil
}

func (ls *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := ls.document(params.TextDocument.URI)
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}

	doc.mu.Lock()
	text := doc.text
	doc.mu.Unlock()

	// Any pending debounced parse is superseded by this one
	tokens, err := doc.debouncer.Flush(text)
	if err != nil {
		return nil, err
	}
	return Outline(tokens), nil
}

func (ls *Server) document(uri protocol.DocumentUri) (*document, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	doc, ok := ls.docs[uri]
	return doc, ok
}

// published returns the callback that publishes diagnostics for text once
// its parse completes
func (d *document) published(text string) schedule.Callback {
	return func(tokens []*types.Token, err error) {
		if err != nil {
			log.Errorf("parse %s: %s", d.uri, err)
			return
		}
		stats := d.debouncer.Stats()
		log.Debugf("parsed %s: mode %s, %d tokens", d.uri, stats.LastMode, len(tokens))

		d.mu.Lock()
		notify := d.notify
		version := d.version
		d.mu.Unlock()
		if notify == nil {
			return
		}

		v := protocol.UInteger(version)
		notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         d.uri,
			Version:     &v,
			Diagnostics: Diagnostics(text),
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
