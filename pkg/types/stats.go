package types

// Mode identifies how the stream parser resolved a call
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeCache   Mode = "cache"
	ModeAppend  Mode = "append"
	ModeFull    Mode = "full"
	ModeChunked Mode = "chunked"
	ModeReset   Mode = "reset"
)

// Stats holds the stream parser counters
type Stats struct {
	Total         int  `json:"total"`
	CacheHits     int  `json:"cacheHits"`
	AppendHits    int  `json:"appendHits"`
	FullParses    int  `json:"fullParses"`
	ChunkedParses int  `json:"chunkedParses"`
	Resets        int  `json:"resets"`
	LastMode      Mode `json:"lastMode"`
}

// Record counts one resolved parse call
func (s *Stats) Record(mode Mode) {
	s.Total++
	switch mode {
	case ModeCache:
		s.CacheHits++
	case ModeAppend:
		s.AppendHits++
	case ModeFull:
		s.FullParses++
	case ModeChunked:
		s.ChunkedParses++
	}
	s.LastMode = mode
}
