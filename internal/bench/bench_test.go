package bench

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/storage"
)

func quickConfig() *Config {
	return &Config{
		Label:       "test",
		Sizes:       []int{2_000, 6_000},
		AppendSteps: 3,
		Workers:     2,
		Iterations:  func(int) (int, int) { return 2, 1 },
	}
}

func TestSections(t *testing.T) {
	parts := Sections(1000)
	require.NotEmpty(t, parts)

	doc := strings.Join(parts, "")
	assert.GreaterOrEqual(t, len(doc), 1000)
	// Dropping the last section falls below the target
	assert.Less(t, len(doc)-len(parts[len(parts)-1]), 1000)
	assert.True(t, strings.HasPrefix(doc, "## Section 0\n"))
	assert.Equal(t, doc, Document(1000))
}

func TestSplitSteps(t *testing.T) {
	parts := []string{"a", "b", "c", "d", "e", "f", "g"}

	steps := SplitSteps(parts, 3)
	assert.Equal(t, []string{"ab", "cd", "efg"}, steps)
	assert.Equal(t, "abcdefg", strings.Join(steps, ""))

	assert.Equal(t, []string{"abcdefg"}, SplitSteps(parts, 1))

	// More steps than parts still covers everything
	few := SplitSteps([]string{"x", "y"}, 4)
	assert.Len(t, few, 4)
	assert.Equal(t, "xy", strings.Join(few, ""))
}

func TestIterations(t *testing.T) {
	one, app := Iterations(5_000)
	assert.Equal(t, 30, one)
	assert.Equal(t, 6, app)

	one, app = Iterations(200_000)
	assert.Equal(t, 4, one)
	assert.Equal(t, 2, app)
}

func TestScenarios(t *testing.T) {
	scs := Scenarios()
	require.Len(t, scs, 5)

	ids := make([]string, len(scs))
	for i, s := range scs {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"S1", "S2", "S3", "S4", "S5"}, ids)

	assert.True(t, scs[0].Streaming())
	assert.True(t, scs[0].Options.StreamChunkedFallback)
	assert.False(t, scs[1].Options.StreamChunkedFallback)
	assert.False(t, scs[3].Streaming())
	assert.True(t, scs[3].Options.FullChunkedFallback)
	assert.False(t, scs[4].Options.FullChunkedFallback)

	s4, ok := FindScenario("S4")
	require.True(t, ok)
	assert.Equal(t, KindFullChunk, s4.Kind)
	_, ok = FindScenario("M1")
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	runner := New(parser.New())

	run, err := runner.Run(context.Background(), quickConfig())
	require.NoError(t, err)

	assert.Equal(t, "test", run.Label)
	assert.Equal(t, storage.BuildMode, run.BuildMode)
	require.Len(t, run.Results, 10)

	for _, r := range run.Results {
		require.NotNil(t, r)
		assert.Equal(t, 2, r.Iterations)
		assert.GreaterOrEqual(t, r.OneShotMs, 0.0)
		assert.GreaterOrEqual(t, r.AppendWorkloadMs, 0.0)
	}

	cells := run.ResultMap()
	// Cache-keeping stream scenarios end the append workload on the fast path
	assert.Equal(t, "append", cells[storage.CellKey{Size: 6_000, Scenario: "S2"}].LastMode)
	assert.Equal(t, "n/a", cells[storage.CellKey{Size: 6_000, Scenario: "S5"}].LastMode)

	p := runner.Progress()
	assert.Equal(t, int32(10), p.TotalCells)
	assert.Equal(t, int32(10), p.DoneCells)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(parser.New()).Run(ctx, quickConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Locked(t *testing.T) {
	runner := New(parser.New())
	require.True(t, runner.lock.TryAcquire())
	defer runner.lock.Release()

	_, err := runner.Run(context.Background(), quickConfig())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunLock(t *testing.T) {
	var l RunLock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}
