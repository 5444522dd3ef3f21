// Package schedule paces calls into a stream engine.
//
// Debouncer waits for input to go quiet before parsing; Throttler parses at
// a steady maximum rate and always runs the latest request last. Both run
// against an injected Clock, so tests drive them with a ManualClock instead
// of sleeping.
//
// Engine calls are serialized behind a mutex in each wrapper. Callbacks run
// after the lock is released, on the goroutine that triggered the parse:
// the caller's for immediate parses, the timer's for deferred ones.
package schedule

import (
	"github.com/dshills/mdstream/pkg/types"
)

// Engine is the part of a stream parser the wrappers drive
type Engine interface {
	Parse(text string, env *types.Env) ([]*types.Token, error)
	Reset()
	Stats() types.Stats
}

// Callback receives the result of a scheduled parse
type Callback func(tokens []*types.Token, err error)

func (cb Callback) call(tokens []*types.Token, err error) {
	if cb != nil {
		cb(tokens, err)
	}
}
