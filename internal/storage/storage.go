package storage

import (
	"context"
	"time"
)

// Storage persists perf matrix runs and the accepted baseline
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID int64) (*Run, error)
	LatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	DeleteRun(ctx context.Context, runID int64) error

	// Result operations
	InsertResult(ctx context.Context, result *Result) error
	ListResults(ctx context.Context, runID int64) ([]*Result, error)

	// Baseline operations
	AcceptRun(ctx context.Context, runID int64) error
	Baseline(ctx context.Context) (*Run, error)
	BaselineExcluding(ctx context.Context, label string) (*Run, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// Run is one execution of the perf matrix
type Run struct {
	ID        int64
	Label     string // commit id or user label
	BuildMode string
	GoVersion string
	CreatedAt time.Time
	Results   []*Result
}

// Result is one matrix cell: a document size under a scenario
type Result struct {
	ID               int64
	RunID            int64
	Size             int
	Scenario         string
	Iterations       int
	OneShotMs        float64
	AppendWorkloadMs float64
	LastMode         string
	CreatedAt        time.Time
}

// Key identifies a cell across runs
func (r *Result) Key() CellKey {
	return CellKey{Size: r.Size, Scenario: r.Scenario}
}

// CellKey identifies a perf matrix cell
type CellKey struct {
	Size     int
	Scenario string
}

// ResultMap indexes results by cell
func (r *Run) ResultMap() map[CellKey]*Result {
	m := make(map[CellKey]*Result, len(r.Results))
	for _, res := range r.Results {
		m[res.Key()] = res
	}
	return m
}
