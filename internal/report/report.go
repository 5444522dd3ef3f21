// Package report exports perf runs as .xlsx workbooks.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dshills/mdstream/internal/bench"
	"github.com/dshills/mdstream/internal/storage"
)

// Sheet names
const (
	SheetResults = "Results"
	SheetBest    = "Best"
	SheetDiff    = "Diff"
)

// Input is what a workbook is built from. Baseline is optional; without
// it the Diff sheet is omitted.
type Input struct {
	Run       *storage.Run
	Baseline  *storage.Run
	Threshold float64
}

// Build lays the workbook out in memory. The caller closes the file.
func Build(in Input) (*excelize.File, error) {
	if in.Run == nil {
		return nil, fmt.Errorf("report: no run")
	}
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetResults); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not rename sheet: %w", err)
	}
	if err := writeRows(f, SheetResults, resultRows(in.Run)); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := addSheet(f, SheetBest, bestRows(in.Run)); err != nil {
		_ = f.Close()
		return nil, err
	}

	if in.Baseline != nil {
		if err := addSheet(f, SheetDiff, diffRows(in.Run, in.Baseline, in.Threshold)); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteFile builds the workbook and saves it at path
func WriteFile(in Input, path string) error {
	f, err := Build(in)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("could not create sheet %q: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("invalid cell coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet, cellName, value); err != nil {
				return fmt.Errorf("could not set cell %s: %w", cellName, err)
			}
		}
	}
	return nil
}

func resultRows(run *storage.Run) [][]any {
	rows := [][]any{{"Size (chars)", "Scenario", "Iterations", "One-shot ms", "Append ms", "Last mode"}}
	for _, r := range run.Results {
		rows = append(rows, []any{r.Size, r.Scenario, r.Iterations, round3(r.OneShotMs), round3(r.AppendWorkloadMs), r.LastMode})
	}
	return rows
}

func bestRows(run *storage.Run) [][]any {
	rows := [][]any{{"Size (chars)", "Best one-shot", "Best append"}}
	for _, b := range bench.BestBySize(run) {
		rows = append(rows, []any{b.Size, b.OneShot, b.Append})
	}
	return rows
}

func diffRows(run, base *storage.Run, threshold float64) [][]any {
	rows := [][]any{{"Size (chars)", "Scenario", "One-shot ms", "Baseline one-shot ms", "One-shot change",
		"Append ms", "Baseline append ms", "Append change", "Flag"}}
	for _, d := range bench.Diff(run, base, threshold) {
		flag := ""
		if d.Flagged {
			flag = "!"
		}
		rows = append(rows, []any{
			d.Key.Size, d.Key.Scenario,
			round3(d.OneShot.Current), round3(d.OneShot.Baseline), percent(d.OneShot.Change),
			round3(d.Append.Current), round3(d.Append.Baseline), percent(d.Append.Change),
			flag,
		})
	}
	return rows
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}

// percent formats a relative change the way bench diff prints it
func percent(change float64) string {
	return fmt.Sprintf("%+.1f%%", change*100)
}
