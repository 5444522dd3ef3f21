package types

const (
	// DefaultMaxChunkChars is the per-fragment character ceiling when none is configured
	DefaultMaxChunkChars = 10_000

	// DefaultMaxChunkLines is the per-fragment line ceiling when none is configured
	DefaultMaxChunkLines = 200
)

// ChunkPolicy configures how a document is split into fragments
type ChunkPolicy struct {
	MaxChunkChars int
	MaxChunkLines int
	FenceAware    bool
	MaxChunks     int // <= 0 means no cap
}

// DefaultChunkPolicy returns the policy used when a caller passes none
func DefaultChunkPolicy() ChunkPolicy {
	return ChunkPolicy{
		MaxChunkChars: DefaultMaxChunkChars,
		MaxChunkLines: DefaultMaxChunkLines,
		FenceAware:    true,
	}
}

// WithDefaults fills zero ceilings with the defaults
func (p ChunkPolicy) WithDefaults() ChunkPolicy {
	if p.MaxChunkChars <= 0 {
		p.MaxChunkChars = DefaultMaxChunkChars
	}
	if p.MaxChunkLines <= 0 {
		p.MaxChunkLines = DefaultMaxChunkLines
	}
	return p
}

// Ceilings is a pair of chunk size limits chosen by a sizing strategy
type Ceilings struct {
	Chars int
	Lines int
}
