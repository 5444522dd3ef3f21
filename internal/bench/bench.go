package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/internal/storage"
	"github.com/dshills/mdstream/pkg/types"
)

// ErrRunInProgress is returned when Run is called while another run holds the lock
var ErrRunInProgress = errors.New("perf run already in progress")

// DefaultSizes are the document sizes of the standard matrix, in chars
var DefaultSizes = []int{5_000, 20_000, 50_000, 100_000, 200_000}

// DefaultAppendSteps is the number of appends in the append workload
const DefaultAppendSteps = 6

var log = commonlog.GetLogger("mdstream.bench")

// Config contains configuration for a matrix run
type Config struct {
	Label       string     // stored with the run
	Sizes       []int      // default DefaultSizes
	Scenarios   []Scenario // default Scenarios()
	AppendSteps int        // default DefaultAppendSteps
	Workers     int        // concurrent cells (default: runtime.NumCPU())

	// Iterations overrides the size-based repeat counts when set
	Iterations func(size int) (oneShot, appendRepeats int)
}

// Progress tracks a run
type Progress struct {
	TotalCells int32
	DoneCells  int32
	StartTime  time.Time
}

// Runner executes the perf matrix
type Runner struct {
	tokenizer types.Tokenizer
	lock      RunLock
	progress  atomic.Pointer[Progress]
}

// New creates a Runner driving tokenizer
func New(tokenizer types.Tokenizer) *Runner {
	return &Runner{tokenizer: tokenizer}
}

// Progress returns a snapshot of the current or last run
func (r *Runner) Progress() Progress {
	p := r.progress.Load()
	if p == nil {
		return Progress{}
	}
	return Progress{
		TotalCells: atomic.LoadInt32(&p.TotalCells),
		DoneCells:  atomic.LoadInt32(&p.DoneCells),
		StartTime:  p.StartTime,
	}
}

// Run measures every size × scenario cell and returns an unsaved run.
// Cells run concurrently on cfg.Workers goroutines; use one worker for the
// least noisy numbers.
func (r *Runner) Run(ctx context.Context, cfg *Config) (*storage.Run, error) {
	if !r.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer r.lock.Release()

	cfg = withDefaults(cfg)

	type cell struct {
		size     int
		scenario Scenario
	}
	var cells []cell
	for _, size := range cfg.Sizes {
		for _, sc := range cfg.Scenarios {
			cells = append(cells, cell{size, sc})
		}
	}

	progress := &Progress{TotalCells: int32(len(cells)), StartTime: time.Now()}
	r.progress.Store(progress)
	log.Infof("perf run: %d sizes x %d scenarios on %d workers", len(cfg.Sizes), len(cfg.Scenarios), cfg.Workers)

	// Documents are shared read-only across workers
	docs := make(map[int][]string, len(cfg.Sizes))
	for _, size := range cfg.Sizes {
		docs[size] = Sections(size)
	}

	results := make([]*storage.Result, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, c := range cells {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.measure(gctx, c.size, c.scenario, docs[c.size], cfg)
			if err != nil {
				return fmt.Errorf("cell %d/%s: %w", c.size, c.scenario.ID, err)
			}
			results[i] = res
			done := atomic.AddInt32(&progress.DoneCells, 1)
			log.Debugf("cell %d/%s done (%d/%d): one %.3fms append %.3fms",
				c.size, c.scenario.ID, done, progress.TotalCells, res.OneShotMs, res.AppendWorkloadMs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Infof("perf run finished in %s", time.Since(progress.StartTime).Round(time.Millisecond))
	return &storage.Run{
		Label:     cfg.Label,
		BuildMode: storage.BuildMode,
		GoVersion: runtime.Version(),
		Results:   results,
	}, nil
}

func withDefaults(cfg *Config) *Config {
	out := Config{}
	if cfg != nil {
		out = *cfg
	}
	if len(out.Sizes) == 0 {
		out.Sizes = DefaultSizes
	}
	if len(out.Scenarios) == 0 {
		out.Scenarios = Scenarios()
	}
	if out.AppendSteps <= 0 {
		out.AppendSteps = DefaultAppendSteps
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.Iterations == nil {
		out.Iterations = Iterations
	}
	return &out
}

// measure times one cell on a fresh Markdown instance
func (r *Runner) measure(ctx context.Context, size int, sc Scenario, parts []string, cfg *Config) (*storage.Result, error) {
	md := markdown.New(r.tokenizer, sc.Options)
	doc := strings.Join(parts, "")
	steps := SplitSteps(parts, cfg.AppendSteps)
	oneIters, appRepeats := cfg.Iterations(size)

	parse := func(text string, env *types.Env) error {
		var err error
		if sc.Streaming() {
			_, err = md.Stream().Parse(text, env)
		} else {
			_, err = md.Parse(text, env)
		}
		return err
	}

	// One-shot: the stream cache is dropped before each iteration so a
	// repeat of the same text is not a cache hit
	envOne := types.NewEnv()
	if err := parse(doc, envOne); err != nil {
		return nil, err
	}
	var oneTotal time.Duration
	for i := 0; i < oneIters; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		md.Stream().Reset()
		start := time.Now()
		if err := parse(doc, envOne); err != nil {
			return nil, err
		}
		oneTotal += time.Since(start)
	}

	appendOnce := func(timed bool) (time.Duration, error) {
		md.Stream().Reset()
		env := types.NewEnv()
		var acc strings.Builder
		var total time.Duration
		for _, piece := range steps {
			acc.WriteString(piece)
			if sc.Kind == KindStreamNoCache {
				md.Stream().Reset()
			}
			start := time.Now()
			if err := parse(acc.String(), env); err != nil {
				return 0, err
			}
			if timed {
				total += time.Since(start)
			}
		}
		return total, nil
	}

	// Warm-up pass is not timed
	if _, err := appendOnce(false); err != nil {
		return nil, err
	}
	var appendTotal time.Duration
	for rep := 0; rep < appRepeats; rep++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := appendOnce(true)
		if err != nil {
			return nil, err
		}
		appendTotal += d
	}

	lastMode := "n/a"
	if sc.Streaming() {
		lastMode = string(md.Stream().Stats().LastMode)
	}

	return &storage.Result{
		Size:             size,
		Scenario:         sc.ID,
		Iterations:       oneIters,
		OneShotMs:        ms(oneTotal) / float64(max(oneIters, 1)),
		AppendWorkloadMs: ms(appendTotal) / float64(max(appRepeats, 1)),
		LastMode:         lastMode,
	}, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
