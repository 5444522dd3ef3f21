// Package markdown is the front door of the library: one configured
// tokenizer with an optional stream engine and an HTML renderer.
package markdown

import (
	"fmt"
	"unicode/utf8"

	"github.com/dshills/mdstream/internal/chunker"
	"github.com/dshills/mdstream/internal/render"
	"github.com/dshills/mdstream/internal/sizing"
	"github.com/dshills/mdstream/internal/stream"
	"github.com/dshills/mdstream/pkg/types"
)

// Options is the recognized option table
type Options struct {
	// Stream turns on the incremental engine for Stream().Parse
	Stream bool

	StreamOptimizationMinSize int
	StreamChunkedFallback     bool
	StreamChunkSizeChars      int
	StreamChunkSizeLines      int
	StreamChunkFenceAware     bool
	StreamChunkAdaptive       bool
	StreamChunkTargetChunks   int
	StreamMaxChunks           int

	// Full* apply to Parse while streaming is off
	FullChunkedFallback     bool
	FullChunkThresholdChars int
	FullChunkThresholdLines int
	FullChunkSizeChars      int
	FullChunkSizeLines      int
	FullChunkFenceAware     bool
	FullChunkMaxChunks      int
	FullChunkAdaptive       bool
	FullChunkTargetChunks   int

	AutoTuneChunks    bool
	OneShotMultiplier float64
	Recommender       sizing.Recommender

	// Renderer
	Breaks     bool
	LangPrefix string
}

// DefaultOptions returns the option table with every default applied
func DefaultOptions() Options {
	return Options{
		StreamOptimizationMinSize: stream.DefaultOptimizationMinSize,
		StreamChunkFenceAware:     true,
		StreamChunkAdaptive:       true,
		StreamChunkTargetChunks:   sizing.DefaultTargetChunks,

		FullChunkThresholdChars: sizing.DefaultFullThresholdChars,
		FullChunkThresholdLines: sizing.DefaultFullThresholdLines,
		FullChunkFenceAware:     true,
		FullChunkAdaptive:       true,
		FullChunkTargetChunks:   sizing.DefaultTargetChunks,

		AutoTuneChunks:    true,
		OneShotMultiplier: stream.DefaultOneShotMultiplier,
		LangPrefix:        "language-",
	}
}

// StreamOptions derives the stream engine options
func (o Options) StreamOptions() stream.Options {
	return stream.Options{
		OptimizationMinSize: o.StreamOptimizationMinSize,
		ChunkedFallback:     o.StreamChunkedFallback,
		ChunkFenceAware:     o.StreamChunkFenceAware,
		MaxChunks:           o.StreamMaxChunks,
		Sizing: sizing.Config{
			Adaptive:       o.StreamChunkAdaptive,
			TargetChunks:   o.StreamChunkTargetChunks,
			AutoTune:       o.AutoTuneChunks,
			ChunkSizeChars: o.StreamChunkSizeChars,
			ChunkSizeLines: o.StreamChunkSizeLines,
			Recommender:    o.Recommender,
		},
		FullChunkThresholdChars: o.FullChunkThresholdChars,
		FullChunkThresholdLines: o.FullChunkThresholdLines,
		OneShotMultiplier:       o.OneShotMultiplier,
	}
}

// FullConfig derives the one-shot chunking configuration
func (o Options) FullConfig() sizing.FullConfig {
	return sizing.FullConfig{
		AutoTune:       o.AutoTuneChunks,
		ThresholdChars: o.FullChunkThresholdChars,
		ThresholdLines: o.FullChunkThresholdLines,
		ChunkSizeChars: o.FullChunkSizeChars,
		ChunkSizeLines: o.FullChunkSizeLines,
		FenceAware:     o.FullChunkFenceAware,
		Adaptive:       o.FullChunkAdaptive,
		TargetChunks:   o.FullChunkTargetChunks,
		MaxChunks:      o.FullChunkMaxChunks,
	}
}

// Markdown ties a tokenizer, a stream engine and a renderer together.
// Like the engine it owns, it is not safe for concurrent use.
type Markdown struct {
	tokenizer types.Tokenizer
	chunker   *chunker.Chunker
	engine    *stream.Parser
	renderer  *render.Renderer
	opts      Options
	stream    *Stream
}

// New creates a Markdown instance
func New(tokenizer types.Tokenizer, opts Options) *Markdown {
	m := &Markdown{
		tokenizer: tokenizer,
		chunker:   chunker.New(tokenizer),
		engine:    stream.New(tokenizer, opts.StreamOptions()),
		renderer:  &render.Renderer{LangPrefix: opts.LangPrefix, Breaks: opts.Breaks},
		opts:      opts,
	}
	m.stream = &Stream{m: m}
	return m
}

// Options returns the current option table
func (m *Markdown) Options() Options {
	return m.opts
}

// Set replaces the option table. Turning streaming on or off resets the
// engine and its counters.
func (m *Markdown) Set(opts Options) *Markdown {
	toggled := opts.Stream != m.opts.Stream
	m.opts = opts
	m.engine.SetOptions(opts.StreamOptions())
	m.renderer.LangPrefix = opts.LangPrefix
	m.renderer.Breaks = opts.Breaks

	if toggled {
		m.engine.Reset()
		m.engine.ResetStats()
	}
	return m
}

// Parse tokenizes text in one shot. While streaming is off and
// FullChunkedFallback is set, large documents are tokenized in chunks.
func (m *Markdown) Parse(text string, env *types.Env) ([]*types.Token, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("parse: %w", types.ErrInvalidInput)
	}
	if env == nil {
		env = types.NewEnv()
	}

	if !m.opts.Stream && m.opts.FullChunkedFallback {
		plan := sizing.FullPlan(len(text), chunker.CountLines(text), m.opts.FullConfig())
		if plan.Chunked {
			return m.chunker.Parse(text, env, plan.Policy)
		}
	}
	return m.tokenizer.Tokenize(text, env)
}

// Render parses text with Parse and renders the result
func (m *Markdown) Render(text string, env *types.Env) (string, error) {
	tokens, err := m.Parse(text, env)
	if err != nil {
		return "", err
	}
	return m.renderer.Render(tokens), nil
}

// RenderTokens renders an existing token stream
func (m *Markdown) RenderTokens(tokens []*types.Token) string {
	return m.renderer.Render(tokens)
}

// Stream returns the stream handle
func (m *Markdown) Stream() *Stream {
	return m.stream
}

// Stream is the incremental parse surface of a Markdown instance
type Stream struct {
	m *Markdown
}

// Enabled reports whether the stream engine is on
func (s *Stream) Enabled() bool {
	return s.m.opts.Stream
}

// Parse runs the stream engine, or a plain tokenization when streaming is off
func (s *Stream) Parse(text string, env *types.Env) ([]*types.Token, error) {
	if !s.Enabled() {
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("stream parse: %w", types.ErrInvalidInput)
		}
		if env == nil {
			env = types.NewEnv()
		}
		return s.m.tokenizer.Tokenize(text, env)
	}
	return s.m.engine.Parse(text, env)
}

// Reset drops the engine cache
func (s *Stream) Reset() {
	s.m.engine.Reset()
}

// Peek returns the cached tokens
func (s *Stream) Peek() []*types.Token {
	return s.m.engine.Peek()
}

// Stats returns the engine counters
func (s *Stream) Stats() types.Stats {
	return s.m.engine.Stats()
}

// ResetStats clears the engine counters except resets
func (s *Stream) ResetStats() {
	s.m.engine.ResetStats()
}
