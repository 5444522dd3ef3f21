package sizing

import (
	"github.com/dshills/mdstream/pkg/types"
)

const (
	// DefaultFullThresholdChars is the size at which a one-shot parse switches to chunking
	DefaultFullThresholdChars = 20_000

	// DefaultFullThresholdLines is the line count at which a one-shot parse switches to chunking
	DefaultFullThresholdLines = 400
)

// FullConfig configures chunking for one-shot (non-stream) parses
type FullConfig struct {
	AutoTune       bool
	ThresholdChars int
	ThresholdLines int
	ChunkSizeChars int // 0 means not pinned
	ChunkSizeLines int // 0 means not pinned
	FenceAware     bool
	Adaptive       bool
	TargetChunks   int
	MaxChunks      int
}

// Plan is the outcome of FullPlan. Policy is only meaningful when Chunked is set.
type Plan struct {
	Chunked bool
	Policy  types.ChunkPolicy
}

// One-shot bracket table. Documents in (20k, 100k] parse faster without chunking.
var fullBrackets = []struct {
	upTo      int
	chunked   bool
	ceilings  types.Ceilings
	maxChunks int
}{
	{5_000, true, types.Ceilings{Chars: 32_000, Lines: 150}, 8},
	{20_000, true, types.Ceilings{Chars: 24_000, Lines: 200}, 12},
	{100_000, false, types.Ceilings{}, 0},
	{200_000, true, types.Ceilings{Chars: 20_000, Lines: 150}, 12},
}

// FullPlan decides how a one-shot parse of a document should run.
//
// With AutoTune and no pinned sizes the bracket table decides for documents
// up to 200k characters. Larger documents, and every document when the table
// does not apply, are chunked once they cross either threshold.
func FullPlan(chars, lines int, cfg FullConfig) Plan {
	if cfg.AutoTune && cfg.ChunkSizeChars <= 0 && cfg.ChunkSizeLines <= 0 {
		for _, b := range fullBrackets {
			if chars > b.upTo {
				continue
			}
			if !b.chunked {
				return Plan{}
			}
			return Plan{
				Chunked: true,
				Policy: types.ChunkPolicy{
					MaxChunkChars: b.ceilings.Chars,
					MaxChunkLines: b.ceilings.Lines,
					FenceAware:    cfg.FenceAware,
					MaxChunks:     b.maxChunks,
				},
			}
		}
	}

	thresholdChars := cfg.ThresholdChars
	if thresholdChars <= 0 {
		thresholdChars = DefaultFullThresholdChars
	}
	thresholdLines := cfg.ThresholdLines
	if thresholdLines <= 0 {
		thresholdLines = DefaultFullThresholdLines
	}
	if chars < thresholdChars && lines < thresholdLines {
		return Plan{}
	}

	policy := types.ChunkPolicy{FenceAware: cfg.FenceAware}
	if cfg.Adaptive {
		target := cfg.TargetChunks
		if target <= 0 {
			target = DefaultTargetChunks
		}
		c := Proportional(chars, lines, target)
		policy.MaxChunkChars = c.Chars
		policy.MaxChunkLines = c.Lines
		policy.MaxChunks = clamp(target, MinFullMaxChunks, MaxFullMaxChunks)
	} else {
		fixed := Config{ChunkSizeChars: cfg.ChunkSizeChars, ChunkSizeLines: cfg.ChunkSizeLines}.fixed()
		policy.MaxChunkChars = fixed.Chars
		policy.MaxChunkLines = fixed.Lines
		policy.MaxChunks = cfg.MaxChunks
	}

	return Plan{Chunked: true, Policy: policy}
}
