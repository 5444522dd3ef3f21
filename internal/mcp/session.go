package mcp

import (
	"sync"
	"time"

	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/pkg/types"
)

// session is one open document with its own stream engine. The engine is
// not safe for concurrent use, so every call holds mu.
type session struct {
	mu       sync.Mutex
	md       *markdown.Markdown
	env      *types.Env
	lastUsed time.Time
}

// Sessions maps document ids to sessions. When full, opening a new
// document evicts the least recently used one.
type Sessions struct {
	mu        sync.Mutex
	tokenizer types.Tokenizer
	opts      markdown.Options
	max       int
	byID      map[string]*session
	now       func() time.Time
}

// NewSessions creates an empty registry
func NewSessions(tokenizer types.Tokenizer, opts markdown.Options, max int) *Sessions {
	return &Sessions{
		tokenizer: tokenizer,
		opts:      opts,
		max:       max,
		byID:      make(map[string]*session),
		now:       time.Now,
	}
}

// open returns the session for id, creating it when absent
func (r *Sessions) open(id string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byID[id]; ok {
		s.lastUsed = r.now()
		return s
	}
	if len(r.byID) >= r.max {
		r.evictOldest()
	}
	s := &session{
		md:       markdown.New(r.tokenizer, r.opts),
		env:      types.NewEnv(),
		lastUsed: r.now(),
	}
	r.byID[id] = s
	log.Debugf("opened document session %q (%d open)", id, len(r.byID))
	return s
}

// get returns an existing session
func (r *Sessions) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if ok {
		s.lastUsed = r.now()
	}
	return s, ok
}

// close drops a session and reports whether it existed
func (r *Sessions) close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	delete(r.byID, id)
	return ok
}

// Len returns the number of open sessions
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// evictOldest must be called with r.mu held
func (r *Sessions) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, s := range r.byID {
		if oldestID == "" || s.lastUsed.Before(oldest) {
			oldestID, oldest = id, s.lastUsed
		}
	}
	if oldestID != "" {
		delete(r.byID, oldestID)
		log.Infof("evicted idle document session %q", oldestID)
	}
}
