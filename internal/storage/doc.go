// Package storage keeps the perf matrix history in SQLite.
//
// A Run is one execution of the benchmark matrix (document sizes crossed
// with engine scenarios). Each cell is a Result holding the one-shot parse
// time and the append-workload time. Accepting a run appends it to the
// baselines table; later runs are compared against the newest accepted
// baseline.
//
// # Drivers
//
// The default build uses modernc.org/sqlite. Building with the sqlite_cgo
// tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// # Schema
//
//	runs       id, label, build_mode, go_version, created_at
//	results    run_id -> runs, size, scenario, iterations,
//	           one_shot_ms, append_workload_ms, last_mode
//	baselines  run_id -> runs, accepted_at
//
// Schema versions are semantic versions applied in order by
// ApplyMigrations.
//
// # Usage
//
//	store, err := storage.NewSQLiteStorage(path)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	if err := store.CreateRun(ctx, run); err != nil {
//		return err
//	}
//	base, err := store.Baseline(ctx)
//	if errors.Is(err, storage.ErrNoBaseline) {
//		// nothing accepted yet
//	}
package storage
