package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(label string, oneShot float64) *Run {
	return &Run{
		Label:     label,
		BuildMode: BuildMode,
		GoVersion: "go1.25",
		Results: []*Result{
			{Size: 5000, Scenario: "S1", Iterations: 20, OneShotMs: oneShot, AppendWorkloadMs: 2 * oneShot, LastMode: "append"},
			{Size: 5000, Scenario: "S2", Iterations: 20, OneShotMs: oneShot + 1, AppendWorkloadMs: oneShot, LastMode: "append"},
			{Size: 20000, Scenario: "S1", Iterations: 10, OneShotMs: 4 * oneShot, AppendWorkloadMs: 8 * oneShot, LastMode: "chunked"},
		},
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	store := setupTestDB(t)
	assert.NotNil(t, store.db)

	current, err := currentVersion(context.Background(), store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, store.db))

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, store.db))
	current, err := currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", current.String())

	var name string
	err = store.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='baselines'").Scan(&name)
	assert.Error(t, err)

	// Re-applying brings the schema back
	require.NoError(t, ApplyMigrations(ctx, store.db))
	current, err = currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())
}

func TestCreateAndGetRun(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	run := sampleRun("abc123", 1.5)
	require.NoError(t, store.CreateRun(ctx, run))
	assert.Greater(t, run.ID, int64(0))
	for _, res := range run.Results {
		assert.Equal(t, run.ID, res.RunID)
		assert.Greater(t, res.ID, int64(0))
	}

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.Label)
	assert.Equal(t, BuildMode, got.BuildMode)
	require.Len(t, got.Results, 3)

	// Ordered by size then scenario
	assert.Equal(t, CellKey{5000, "S1"}, got.Results[0].Key())
	assert.Equal(t, CellKey{5000, "S2"}, got.Results[1].Key())
	assert.Equal(t, CellKey{20000, "S1"}, got.Results[2].Key())
	assert.Equal(t, "chunked", got.Results[2].LastMode)
	assert.InDelta(t, 6.0, got.Results[2].OneShotMs, 1e-9)
}

func TestCreateRun_DuplicateCellUpserts(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	run := sampleRun("dup", 1)
	// Same cell twice upserts instead of failing
	run.Results = append(run.Results, &Result{Size: 5000, Scenario: "S1", Iterations: 1, OneShotMs: 9})
	require.NoError(t, store.CreateRun(ctx, run))

	results, err := store.ListResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.InDelta(t, 9.0, run.ResultMap()[CellKey{5000, "S1"}].OneShotMs, 1e-9)
	assert.InDelta(t, 9.0, results[0].OneShotMs, 1e-9)
}

func TestGetRun_NotFound(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.GetRun(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestAndListRuns(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, label := range []string{"one", "two", "three"} {
		require.NoError(t, store.CreateRun(ctx, sampleRun(label, 1)))
	}

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "three", latest.Label)
	assert.Len(t, latest.Results, 3)

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "three", runs[0].Label)
	assert.Equal(t, "two", runs[1].Label)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteRun_Cascades(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	run := sampleRun("gone", 1)
	require.NoError(t, store.CreateRun(ctx, run))
	require.NoError(t, store.AcceptRun(ctx, run.ID))

	require.NoError(t, store.DeleteRun(ctx, run.ID))

	results, err := store.ListResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = store.Baseline(ctx)
	assert.ErrorIs(t, err, ErrNoBaseline)

	assert.ErrorIs(t, store.DeleteRun(ctx, run.ID), ErrNotFound)
}

func TestBaseline(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.Baseline(ctx)
	assert.ErrorIs(t, err, ErrNoBaseline)

	first := sampleRun("aaa", 1)
	second := sampleRun("bbb", 2)
	require.NoError(t, store.CreateRun(ctx, first))
	require.NoError(t, store.CreateRun(ctx, second))

	require.NoError(t, store.AcceptRun(ctx, first.ID))
	require.NoError(t, store.AcceptRun(ctx, second.ID))

	base, err := store.Baseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, base.ID)
	assert.Len(t, base.Results, 3)

	// A run is not compared against its own acceptance
	other, err := store.BaselineExcluding(ctx, "bbb")
	require.NoError(t, err)
	assert.Equal(t, first.ID, other.ID)

	_, err = store.BaselineExcluding(ctx, "aaa")
	require.NoError(t, err)

	assert.ErrorIs(t, store.AcceptRun(ctx, 999), ErrNotFound)
}

func TestTransaction(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	run := sampleRun("tx", 1)
	require.NoError(t, tx.CreateRun(ctx, run))
	require.NoError(t, tx.Rollback())

	_, err = store.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	run = sampleRun("tx", 1)
	require.NoError(t, tx.CreateRun(ctx, run))
	require.NoError(t, tx.AcceptRun(ctx, run.ID))
	require.NoError(t, tx.Commit())

	base, err := store.Baseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, base.ID)
}
