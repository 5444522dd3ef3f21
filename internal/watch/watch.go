// Package watch tails a markdown file and re-parses it through a debounced
// (or throttled) stream engine whenever it changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"

	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/internal/schedule"
	"github.com/dshills/mdstream/pkg/types"
)

var log = commonlog.GetLogger("mdstream.watch")

// Update is delivered after each completed parse
type Update struct {
	Path   string
	Time   time.Time
	Tokens []*types.Token
	Stats  types.Stats
	Err    error
}

// Handler receives updates. It runs on the goroutine that completed the
// parse and must not block for long.
type Handler func(Update)

// Config holds watcher settings
type Config struct {
	Tokenizer types.Tokenizer
	Options   markdown.Options // Stream is forced on
	Wait      time.Duration    // debounce wait, 0 for the default
	Throttle  time.Duration    // when > 0, throttle at this interval instead of debouncing
	Clock     schedule.Clock   // nil for the system clock
	OnUpdate  Handler
}

// pacer is the scheduling wrapper between file events and the engine
type pacer interface {
	Parse(text string, cb schedule.Callback)
	Cancel()
	Stats() types.Stats
}

// Watcher follows one file
type Watcher struct {
	path      string
	md        *markdown.Markdown
	debouncer *schedule.Debouncer // nil when throttling
	pacer     pacer
	clock     schedule.Clock
	onUpdate  Handler
	watcher   *fsnotify.Watcher
}

// New creates a watcher for path. The file's directory is watched rather
// than the file, so editors that save by rename are followed.
func New(path string, cfg Config) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", path, err)
	}
	// Events carry the resolved directory name
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	cfg.Options.Stream = true
	md := markdown.New(cfg.Tokenizer, cfg.Options)

	w := &Watcher{
		path:     abs,
		md:       md,
		clock:    clock,
		onUpdate: cfg.OnUpdate,
		watcher:  fsw,
	}
	if cfg.Throttle > 0 {
		w.pacer = schedule.NewThrottler(md.Stream(), cfg.Throttle, clock)
	} else {
		w.debouncer = schedule.NewDebouncer(md.Stream(), cfg.Wait, clock)
		w.pacer = w.debouncer
	}
	return w, nil
}

// Path returns the absolute path being watched
func (w *Watcher) Path() string {
	return w.path
}

// Stats returns the engine counters
func (w *Watcher) Stats() types.Stats {
	return w.pacer.Stats()
}

// Start parses the file once, then follows changes until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = w.watcher.Close()
		return fmt.Errorf("could not watch %s: %w", filepath.Dir(w.path), err)
	}

	if err := w.load(true); err != nil {
		_ = w.watcher.Close()
		return err
	}
	log.Infof("watching %s", w.path)

	for {
		select {
		case <-ctx.Done():
			w.pacer.Cancel()
			log.Info("stopping watcher")
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watch error: %s", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if err := w.load(false); err != nil {
		// The file may be mid-rename; the next event retries
		log.Warningf("could not read %s: %s", w.path, err)
	}
}

// load reads the file and hands it to the pacer. now bypasses the debounce
// wait; a throttler already parses the first call at once.
func (w *Watcher) load(now bool) error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", w.path, err)
	}
	text := string(data)
	if now && w.debouncer != nil {
		w.debouncer.ParseNow(text, w.deliver)
		return nil
	}
	w.pacer.Parse(text, w.deliver)
	return nil
}

func (w *Watcher) deliver(tokens []*types.Token, err error) {
	u := Update{
		Path:   w.path,
		Time:   w.clock.Now(),
		Tokens: tokens,
		Stats:  w.pacer.Stats(),
		Err:    err,
	}
	if err != nil {
		log.Errorf("parse %s: %s", w.path, err)
	} else {
		log.Debugf("parsed %s: mode %s", w.path, u.Stats.LastMode)
	}
	if w.onUpdate != nil {
		w.onUpdate(u)
	}
}
