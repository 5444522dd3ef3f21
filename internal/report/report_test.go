package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dshills/mdstream/internal/storage"
)

func testRun(one float64) *storage.Run {
	return &storage.Run{
		Label: "r",
		Results: []*storage.Result{
			{Size: 5000, Scenario: "S1", Iterations: 30, OneShotMs: one, AppendWorkloadMs: 2, LastMode: "append"},
			{Size: 5000, Scenario: "S5", Iterations: 30, OneShotMs: 0.5, AppendWorkloadMs: 3, LastMode: "n/a"},
		},
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.xlsx")
	require.NoError(t, WriteFile(Input{Run: testRun(1.25), Baseline: testRun(1.0), Threshold: 0.1}, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetResults, SheetBest, SheetDiff}, f.GetSheetList())

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Scenario", rows[0][1])
	assert.Equal(t, []string{"5000", "S1", "30", "1.25", "2", "append"}, rows[1])

	best, err := f.GetRows(SheetBest)
	require.NoError(t, err)
	assert.Equal(t, []string{"5000", "S5", "S1"}, best[1])

	diff, err := f.GetRows(SheetDiff)
	require.NoError(t, err)
	require.Len(t, diff, 3)
	// The S1 one-shot regression sorts first and is flagged
	assert.Equal(t, "S1", diff[1][1])
	assert.Equal(t, "+25.0%", diff[1][4])
	assert.Equal(t, "!", diff[1][8])
}

func TestBuild_NoBaseline(t *testing.T) {
	f, err := Build(Input{Run: testRun(1)})
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetResults, SheetBest}, f.GetSheetList())
}

func TestBuild_NoRun(t *testing.T) {
	_, err := Build(Input{})
	assert.Error(t, err)
}

func TestPercentAndRound(t *testing.T) {
	assert.Equal(t, "-12.5%", percent(-0.125))
	assert.Equal(t, 1.235, round3(1.2346))
}
