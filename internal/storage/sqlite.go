package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tliron/commonlog"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNoBaseline is returned when no run has been accepted yet
	ErrNoBaseline = errors.New("no accepted baseline")
)

var log = commonlog.GetLogger("mdstream.storage")

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; also keeps a :memory: database on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens the perf history database at dbPath and
// migrates it to the current schema
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Debugf("opened perf history %s (%s driver)", dbPath, BuildMode)
	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) Close() error {
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

// Run operations

func createRun(ctx context.Context, q querier, run *Run) error {
	now := time.Now()
	result, err := q.ExecContext(ctx,
		`INSERT INTO runs (label, build_mode, go_version, created_at) VALUES (?, ?, ?, ?)`,
		run.Label, run.BuildMode, run.GoVersion, now)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	run.CreatedAt = now

	for _, res := range run.Results {
		res.RunID = id
		if err := insertResult(ctx, q, res); err != nil {
			return err
		}
	}
	return nil
}

// CreateRun inserts run and its results atomically
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := createRun(ctx, tx, run); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	log.Infof("stored perf run %d (%s) with %d results", run.ID, run.Label, len(run.Results))
	return nil
}

func (t *sqliteTx) CreateRun(ctx context.Context, run *Run) error {
	return createRun(ctx, t.tx, run)
}

const runColumns = `id, label, build_mode, go_version, created_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var run Run
	var buildMode, goVersion sql.NullString
	if err := row.Scan(&run.ID, &run.Label, &buildMode, &goVersion, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.BuildMode = buildMode.String
	run.GoVersion = goVersion.String
	return &run, nil
}

// getRun loads a run with its results
func getRun(ctx context.Context, q querier, where string, args ...any) (*Run, error) {
	row := q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs `+where, args...)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.Results, err = listResults(ctx, q, run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStorage) GetRun(ctx context.Context, runID int64) (*Run, error) {
	return getRun(ctx, s.db, `WHERE id = ?`, runID)
}

func (t *sqliteTx) GetRun(ctx context.Context, runID int64) (*Run, error) {
	return getRun(ctx, t.tx, `WHERE id = ?`, runID)
}

// LatestRun returns the most recently stored run
func (s *SQLiteStorage) LatestRun(ctx context.Context) (*Run, error) {
	return getRun(ctx, s.db, `ORDER BY id DESC LIMIT 1`)
}

func (t *sqliteTx) LatestRun(ctx context.Context) (*Run, error) {
	return getRun(ctx, t.tx, `ORDER BY id DESC LIMIT 1`)
}

func listRuns(ctx context.Context, q querier, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRuns returns runs newest first without their results. A limit of
// zero or less lists every run.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return listRuns(ctx, s.db, limit)
}

func (t *sqliteTx) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return listRuns(ctx, t.tx, limit)
}

func deleteRun(ctx context.Context, q querier, runID int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRun removes a run; its results and baseline entries cascade
func (s *SQLiteStorage) DeleteRun(ctx context.Context, runID int64) error {
	return deleteRun(ctx, s.db, runID)
}

func (t *sqliteTx) DeleteRun(ctx context.Context, runID int64) error {
	return deleteRun(ctx, t.tx, runID)
}

// Result operations

func insertResult(ctx context.Context, q querier, res *Result) error {
	now := time.Now()
	err := q.QueryRowContext(ctx, `
		INSERT INTO results (run_id, size, scenario, iterations, one_shot_ms, append_workload_ms, last_mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, size, scenario) DO UPDATE SET
			iterations = excluded.iterations,
			one_shot_ms = excluded.one_shot_ms,
			append_workload_ms = excluded.append_workload_ms,
			last_mode = excluded.last_mode
		RETURNING id
	`, res.RunID, res.Size, res.Scenario, res.Iterations, res.OneShotMs, res.AppendWorkloadMs, res.LastMode, now).Scan(&res.ID)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	res.CreatedAt = now
	return nil
}

// InsertResult adds or replaces one cell of an existing run
func (s *SQLiteStorage) InsertResult(ctx context.Context, res *Result) error {
	return insertResult(ctx, s.db, res)
}

func (t *sqliteTx) InsertResult(ctx context.Context, res *Result) error {
	return insertResult(ctx, t.tx, res)
}

func listResults(ctx context.Context, q querier, runID int64) ([]*Result, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, run_id, size, scenario, iterations, one_shot_ms, append_workload_ms, last_mode, created_at
		FROM results
		WHERE run_id = ?
		ORDER BY size, scenario
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.RunID, &r.Size, &r.Scenario, &r.Iterations,
			&r.OneShotMs, &r.AppendWorkloadMs, &r.LastMode, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}

// ListResults returns the cells of a run ordered by size then scenario
func (s *SQLiteStorage) ListResults(ctx context.Context, runID int64) ([]*Result, error) {
	return listResults(ctx, s.db, runID)
}

func (t *sqliteTx) ListResults(ctx context.Context, runID int64) ([]*Result, error) {
	return listResults(ctx, t.tx, runID)
}

// Baseline operations

func acceptRun(ctx context.Context, q querier, runID int64) error {
	var exists int64
	err := q.QueryRowContext(ctx, `SELECT id FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO baselines (run_id, accepted_at) VALUES (?, ?)`, runID, time.Now()); err != nil {
		return fmt.Errorf("failed to accept run: %w", err)
	}
	return nil
}

// AcceptRun records runID as the newest baseline
func (s *SQLiteStorage) AcceptRun(ctx context.Context, runID int64) error {
	if err := acceptRun(ctx, s.db, runID); err != nil {
		return err
	}
	log.Infof("accepted perf run %d as baseline", runID)
	return nil
}

func (t *sqliteTx) AcceptRun(ctx context.Context, runID int64) error {
	return acceptRun(ctx, t.tx, runID)
}

func baseline(ctx context.Context, q querier, excludeLabel string) (*Run, error) {
	var runID int64
	err := q.QueryRowContext(ctx, `
		SELECT b.run_id
		FROM baselines b JOIN runs r ON r.id = b.run_id
		WHERE ? = '' OR r.label <> ?
		ORDER BY b.id DESC
		LIMIT 1
	`, excludeLabel, excludeLabel).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, ErrNoBaseline
	}
	if err != nil {
		return nil, err
	}
	return getRun(ctx, q, `WHERE id = ?`, runID)
}

// Baseline returns the most recently accepted run
func (s *SQLiteStorage) Baseline(ctx context.Context) (*Run, error) {
	return baseline(ctx, s.db, "")
}

func (t *sqliteTx) Baseline(ctx context.Context) (*Run, error) {
	return baseline(ctx, t.tx, "")
}

// BaselineExcluding returns the most recently accepted run whose label
// differs from label, so a run is not compared against itself
func (s *SQLiteStorage) BaselineExcluding(ctx context.Context, label string) (*Run, error) {
	return baseline(ctx, s.db, label)
}

func (t *sqliteTx) BaselineExcluding(ctx context.Context, label string) (*Run, error) {
	return baseline(ctx, t.tx, label)
}
