package stream

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tliron/commonlog"

	"github.com/dshills/mdstream/internal/boundary"
	"github.com/dshills/mdstream/internal/chunker"
	"github.com/dshills/mdstream/internal/sizing"
	"github.com/dshills/mdstream/pkg/types"
)

const (
	// DefaultOptimizationMinSize is the size below which non-append edits skip the fast paths
	DefaultOptimizationMinSize = 1000

	// DefaultOneShotMultiplier scales the full-chunk thresholds into the uncached one-shot limit
	DefaultOneShotMultiplier = 2.5
)

var log = commonlog.GetLogger("mdstream.stream")

// Options configures a Parser
type Options struct {
	// OptimizationMinSize: when both the cached and the new text are shorter
	// and the new text does not extend the cached one, reparse in full.
	OptimizationMinSize int

	// ChunkedFallback permits chunked parses of large documents
	ChunkedFallback bool
	ChunkFenceAware bool
	MaxChunks       int
	Sizing          sizing.Config

	// Cold-start parses at or above OneShotMultiplier times either threshold
	// are returned without being cached. A multiplier <= 0 disables this.
	FullChunkThresholdChars int
	FullChunkThresholdLines int
	OneShotMultiplier       float64

	// FenceWindow bounds the open-fence scan of the append guard.
	// 0 uses the default window, a negative value scans the whole text.
	FenceWindow int
}

// DefaultOptions returns the options of a stream parser with nothing configured
func DefaultOptions() Options {
	return Options{
		OptimizationMinSize: DefaultOptimizationMinSize,
		ChunkFenceAware:     true,
		Sizing: sizing.Config{
			Adaptive:     true,
			TargetChunks: sizing.DefaultTargetChunks,
			AutoTune:     true,
		},
		FullChunkThresholdChars: sizing.DefaultFullThresholdChars,
		FullChunkThresholdLines: sizing.DefaultFullThresholdLines,
		OneShotMultiplier:       DefaultOneShotMultiplier,
	}
}

// cacheRecord is the single cached parse owned by a Parser
type cacheRecord struct {
	src       string
	tokens    []*types.Token
	env       *types.Env
	lineCount int
}

// Parser is the incremental parse engine. It is not safe for concurrent
// use; wrap it (see package schedule) when calls come from several
// goroutines.
//
// Returned token slices are borrowed: the next Parse may extend them in
// place, and callers must not modify them.
type Parser struct {
	tokenizer types.Tokenizer
	chunker   *chunker.Chunker
	detector  boundary.Detector
	opts      Options

	cache *cacheRecord
	stats types.Stats
}

// New creates a Parser that delegates tokenization to tokenizer
func New(tokenizer types.Tokenizer, opts Options) *Parser {
	return &Parser{
		tokenizer: tokenizer,
		chunker:   chunker.New(tokenizer),
		detector:  boundary.Detector{FenceWindow: opts.FenceWindow},
		opts:      opts,
		stats:     types.Stats{LastMode: types.ModeIdle},
	}
}

// Parse returns the tokens of text, reusing the previous result where that
// is provably equivalent to a full parse.
//
// A nil env reuses the cached parse context. A non-nil env that differs
// from the cached one by identity invalidates the cache.
func (p *Parser) Parse(text string, env *types.Env) ([]*types.Token, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("stream parse: %w", types.ErrInvalidInput)
	}

	cached := p.cache
	if cached == nil || (env != nil && env != cached.env) {
		return p.coldStart(text, env)
	}

	if text == cached.src {
		p.record(types.ModeCache, text)
		return cached.tokens, nil
	}

	minSize := p.opts.OptimizationMinSize
	if len(cached.src) < minSize && len(text) < minSize && !strings.HasPrefix(text, cached.src) {
		return p.full(text, cached.env)
	}

	segment, reason := p.detector.Segment(cached.src, text)
	if reason == boundary.Accepted {
		return p.appendSegment(cached, text, segment)
	}
	log.Debugf("append rejected: %s", reason)

	return p.reparse(text, cached.env)
}

func (p *Parser) coldStart(text string, env *types.Env) ([]*types.Token, error) {
	if env == nil {
		env = types.NewEnv()
	}

	if p.isVeryLargeOneShot(text) {
		tokens, err := p.tokenizer.Tokenize(text, env)
		if err != nil {
			return nil, err
		}
		p.record(types.ModeFull, text)
		return tokens, nil
	}

	return p.reparse(text, env)
}

// isVeryLargeOneShot reports whether a cold-start text is large enough that
// holding its tokens in the cache is not worth it
func (p *Parser) isVeryLargeOneShot(text string) bool {
	m := p.opts.OneShotMultiplier
	if m <= 0 {
		return false
	}
	if p.opts.FullChunkThresholdChars > 0 && float64(len(text)) >= m*float64(p.opts.FullChunkThresholdChars) {
		return true
	}
	if p.opts.FullChunkThresholdLines > 0 && float64(chunker.CountLines(text)) >= m*float64(p.opts.FullChunkThresholdLines) {
		return true
	}
	return false
}

// reparse runs the large-document test and parses text in chunks or in full
func (p *Parser) reparse(text string, env *types.Env) ([]*types.Token, error) {
	if !p.opts.ChunkedFallback {
		return p.full(text, env)
	}

	lines := chunker.CountLines(text)
	c := p.opts.Sizing.Stream(len(text), lines)
	large := len(text) >= 2*c.Chars || lines >= 2*c.Lines
	if !large || !strings.HasSuffix(text, "\n") {
		return p.full(text, env)
	}

	tokens, err := p.chunker.Parse(text, env, types.ChunkPolicy{
		MaxChunkChars: c.Chars,
		MaxChunkLines: c.Lines,
		FenceAware:    p.opts.ChunkFenceAware,
		MaxChunks:     p.opts.MaxChunks,
	})
	if err != nil {
		return nil, err
	}

	p.store(text, tokens, env, lines)
	p.record(types.ModeChunked, text)
	return tokens, nil
}

func (p *Parser) full(text string, env *types.Env) ([]*types.Token, error) {
	tokens, err := p.tokenizer.Tokenize(text, env)
	if err != nil {
		return nil, err
	}

	p.store(text, tokens, env, chunker.CountLines(text))
	p.record(types.ModeFull, text)
	return tokens, nil
}

// appendSegment tokenizes only the appended suffix and splices it onto the cache
func (p *Parser) appendSegment(cached *cacheRecord, text, segment string) ([]*types.Token, error) {
	tokens, err := p.tokenizer.Tokenize(segment, cached.env)
	if err != nil {
		return nil, err
	}

	chunker.ShiftLines(tokens, cached.lineCount)
	cached.tokens = append(cached.tokens, tokens...)
	cached.src = text
	cached.lineCount += chunker.CountLines(segment)

	p.record(types.ModeAppend, text)
	return cached.tokens, nil
}

func (p *Parser) store(text string, tokens []*types.Token, env *types.Env, lines int) {
	p.cache = &cacheRecord{
		src:       text,
		tokens:    tokens,
		env:       env,
		lineCount: lines,
	}
}

func (p *Parser) record(mode types.Mode, text string) {
	p.stats.Record(mode)
	log.Debugf("parse #%d: mode=%s chars=%d", p.stats.Total, mode, len(text))
}

// SetOptions replaces the options. The cache and counters are kept.
func (p *Parser) SetOptions(opts Options) {
	p.opts = opts
	p.detector = boundary.Detector{FenceWindow: opts.FenceWindow}
}

// Options returns the current options
func (p *Parser) Options() Options {
	return p.opts
}

// Reset drops the cache. Statistics are kept; the reset itself is counted.
func (p *Parser) Reset() {
	p.cache = nil
	p.stats.Resets++
	p.stats.LastMode = types.ModeReset
}

// Peek returns the cached tokens without parsing. It returns an empty slice
// when nothing is cached.
func (p *Parser) Peek() []*types.Token {
	if p.cache == nil {
		return []*types.Token{}
	}
	return p.cache.tokens
}

// Source returns the cached text
func (p *Parser) Source() (string, bool) {
	if p.cache == nil {
		return "", false
	}
	return p.cache.src, true
}

// Stats returns a snapshot of the counters
func (p *Parser) Stats() types.Stats {
	return p.stats
}

// ResetStats clears every counter except Resets. The cache is untouched.
func (p *Parser) ResetStats() {
	p.stats = types.Stats{
		Resets:   p.stats.Resets,
		LastMode: types.ModeIdle,
	}
}
