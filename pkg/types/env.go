package types

// ChunkInfo is diagnostic metadata left on an Env by a chunked parse
type ChunkInfo struct {
	Count         int
	MaxChunkChars int
	MaxChunkLines int
}

// Env is the parse context handed to a Tokenizer.
//
// Env values are compared by identity: two distinct *Env with equal contents
// are different contexts. An Env is owned by a single caller at a time.
type Env struct {
	values    map[string]any
	chunkInfo *ChunkInfo
}

// NewEnv creates an empty parse context
func NewEnv() *Env {
	return &Env{}
}

// Get returns the value stored under key
func (e *Env) Get(key string) (any, bool) {
	if e == nil || e.values == nil {
		return nil, false
	}
	v, ok := e.values[key]
	return v, ok
}

// Set stores a value under key
func (e *Env) Set(key string, value any) {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	e.values[key] = value
}

// ChunkInfo returns the diagnostics of the last chunked parse that used this env
func (e *Env) ChunkInfo() (ChunkInfo, bool) {
	if e == nil || e.chunkInfo == nil {
		return ChunkInfo{}, false
	}
	return *e.chunkInfo, true
}

// SetChunkInfo records chunked parse diagnostics. It is a no-op on a nil env.
func (e *Env) SetChunkInfo(info ChunkInfo) {
	if e == nil {
		return
	}
	e.chunkInfo = &info
}
