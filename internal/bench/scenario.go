package bench

import "github.com/dshills/mdstream/internal/markdown"

// Kind selects which entry point a scenario drives
type Kind string

const (
	KindStreamNoCache Kind = "stream-no-cache-chunk"
	KindStreamCache   Kind = "stream-cache"
	KindStreamHybrid  Kind = "stream-hybrid"
	KindFullChunk     Kind = "full-chunk"
	KindFullPlain     Kind = "full-plain"
)

// Scenario is one column of the perf matrix
type Scenario struct {
	ID      string
	Label   string
	Kind    Kind
	Options markdown.Options
}

// Streaming reports whether the scenario goes through Stream().Parse
func (s Scenario) Streaming() bool {
	return s.Kind == KindStreamNoCache || s.Kind == KindStreamCache || s.Kind == KindStreamHybrid
}

// Scenarios returns the standard S1..S5 columns
func Scenarios() []Scenario {
	chunked := func(o markdown.Options) markdown.Options {
		o.Stream = true
		o.StreamChunkedFallback = true
		o.StreamChunkSizeChars = 10_000
		o.StreamChunkSizeLines = 200
		o.StreamChunkFenceAware = true
		return o
	}

	s2 := markdown.DefaultOptions()
	s2.Stream = true

	s4 := markdown.DefaultOptions()
	s4.FullChunkedFallback = true
	s4.FullChunkThresholdChars = 20_000
	s4.FullChunkThresholdLines = 400
	s4.FullChunkSizeChars = 10_000
	s4.FullChunkSizeLines = 200
	s4.FullChunkFenceAware = true

	return []Scenario{
		{ID: "S1", Label: "stream on, cache off, chunk on", Kind: KindStreamNoCache, Options: chunked(markdown.DefaultOptions())},
		{ID: "S2", Label: "stream on, cache on, chunk off", Kind: KindStreamCache, Options: s2},
		{ID: "S3", Label: "stream on, cache on, chunk on", Kind: KindStreamHybrid, Options: chunked(markdown.DefaultOptions())},
		{ID: "S4", Label: "stream off, chunk on", Kind: KindFullChunk, Options: s4},
		{ID: "S5", Label: "stream off, chunk off", Kind: KindFullPlain, Options: markdown.DefaultOptions()},
	}
}

// FindScenario looks a scenario up by ID
func FindScenario(id string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}
