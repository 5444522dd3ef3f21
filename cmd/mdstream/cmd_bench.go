package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/mdstream/internal/bench"
	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/report"
	"github.com/dshills/mdstream/internal/storage"
)

// ErrRegression is returned by bench check when a cell slowed past the threshold
var ErrRegression = errors.New("perf regression")

func newBenchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the perf matrix and compare against the accepted baseline",
	}

	cmd.AddCommand(newBenchRunCmd(a))
	cmd.AddCommand(newBenchListCmd(a))
	cmd.AddCommand(newBenchAcceptCmd(a))
	cmd.AddCommand(newBenchDiffCmd(a, false))
	cmd.AddCommand(newBenchDiffCmd(a, true))
	cmd.AddCommand(newBenchExportCmd(a))
	return cmd
}

func newBenchRunCmd(a *app) *cobra.Command {
	var (
		label     string
		sizes     []int
		scenarios []string
		steps     int
		workers   int
		noSave    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Measure every size and scenario and store the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &bench.Config{
				Label:       label,
				Sizes:       a.cfg.Bench.Sizes,
				AppendSteps: a.cfg.Bench.AppendSteps,
				Workers:     a.cfg.Bench.Workers,
			}
			if cfg.Label == "" {
				cfg.Label = "run-" + time.Now().Format("20060102-150405")
			}
			if cmd.Flags().Changed("sizes") {
				cfg.Sizes = sizes
			}
			if cmd.Flags().Changed("steps") {
				cfg.AppendSteps = steps
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			for _, id := range scenarios {
				sc, ok := bench.FindScenario(strings.ToUpper(id))
				if !ok {
					return fmt.Errorf("unknown scenario %q", id)
				}
				cfg.Scenarios = append(cfg.Scenarios, sc)
			}

			run, err := bench.New(parser.New()).Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := writeResults(out, run); err != nil {
				return err
			}
			if noSave {
				return nil
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.CreateRun(cmd.Context(), run); err != nil {
				return fmt.Errorf("failed to save run: %w", err)
			}
			fmt.Fprintf(out, "\nsaved run %s (%s)\n", bold(strconv.FormatInt(run.ID, 10)), run.Label)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&label, "label", "", "label stored with the run (default: timestamp)")
	flags.IntSliceVar(&sizes, "sizes", nil, "document sizes in chars (default from config)")
	flags.StringSliceVar(&scenarios, "scenarios", nil, "scenario ids to run, e.g. S2,S3 (default all)")
	flags.IntVar(&steps, "steps", bench.DefaultAppendSteps, "appends in the append workload")
	flags.IntVar(&workers, "workers", 0, "cells measured concurrently (default from config)")
	flags.BoolVar(&noSave, "no-save", false, "print results without storing the run")
	return cmd
}

func newBenchListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			var baselineID int64
			if base, err := store.Baseline(cmd.Context()); err == nil {
				baselineID = base.ID
			} else if !errors.Is(err, storage.ErrNoBaseline) {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tBUILD\tGO\tCREATED\t")
			for _, r := range runs {
				mark := ""
				if r.ID == baselineID {
					mark = green("baseline")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Label, r.BuildMode, r.GoVersion, r.CreatedAt.Local().Format(time.DateTime), mark)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "runs to show (0 for all)")
	return cmd
}

func newBenchAcceptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accept [run-id]",
		Short: "Mark a run (default: the latest) as the baseline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := loadRun(cmd.Context(), store, firstArg(args))
			if err != nil {
				return err
			}
			if err := store.AcceptRun(cmd.Context(), run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %d (%s) is now the baseline\n", run.ID, run.Label)
			return nil
		},
	}
}

// newBenchDiffCmd builds "diff", or "check" when strict: the same report,
// but flagged cells turn into a failing exit status
func newBenchDiffCmd(a *app, strict bool) *cobra.Command {
	var threshold float64

	use, short := "diff [run-id]", "Compare a run (default: the latest) with the baseline"
	if strict {
		use, short = "check [run-id]", "Fail when a run (default: the latest) regressed against the baseline"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Bench.RegressionThreshold
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := loadRun(cmd.Context(), store, firstArg(args))
			if err != nil {
				return err
			}
			base, err := store.BaselineExcluding(cmd.Context(), run.Label)
			if err != nil {
				if errors.Is(err, storage.ErrNoBaseline) {
					return fmt.Errorf("no baseline to compare against, run 'mdstream bench accept' first")
				}
				return err
			}

			deltas := bench.Diff(run, base, threshold)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %d (%s) vs baseline %d (%s), threshold %s\n\n",
				run.ID, run.Label, base.ID, base.Label, percentOf(threshold))
			if err := writeDeltas(out, deltas); err != nil {
				return err
			}

			n := bench.Regressions(deltas)
			if n == 0 {
				fmt.Fprintf(out, "\n%s no regressions\n", green("ok"))
				return nil
			}
			fmt.Fprintf(out, "\n%s %d of %d cells regressed\n", red("fail"), n, len(deltas))
			if strict {
				return fmt.Errorf("%w: %d cells over %s", ErrRegression, n, percentOf(threshold))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", bench.DefaultThreshold, "relative slowdown that flags a cell (0.1 = 10%)")
	return cmd
}

func newBenchExportCmd(a *app) *cobra.Command {
	var (
		output    string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write a run (default: the latest) to an XLSX workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Bench.RegressionThreshold
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := loadRun(cmd.Context(), store, firstArg(args))
			if err != nil {
				return err
			}
			in := report.Input{Run: run, Threshold: threshold}
			if base, err := store.BaselineExcluding(cmd.Context(), run.Label); err == nil {
				in.Baseline = base
			} else if !errors.Is(err, storage.ErrNoBaseline) {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("mdstream-perf-%d.xlsx", run.ID)
			}
			if err := report.WriteFile(in, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "workbook path (default mdstream-perf-<id>.xlsx)")
	cmd.Flags().Float64Var(&threshold, "threshold", bench.DefaultThreshold, "relative slowdown flagged in the Diff sheet")
	return cmd
}

// loadRun resolves a run id argument, or the latest run when arg is empty
func loadRun(ctx context.Context, store storage.Storage, arg string) (*storage.Run, error) {
	if arg == "" {
		run, err := store.LatestRun(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no runs stored, run 'mdstream bench run' first")
		}
		return run, err
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q", arg)
	}
	run, err := store.GetRun(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("run %d: %w", id, err)
	}
	return run, err
}

func writeResults(w io.Writer, run *storage.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SIZE\tSCENARIO\tITER\tONE-SHOT MS\tAPPEND MS\tLAST MODE\t")
	for _, r := range run.Results {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.3f\t%.3f\t%s\t\n",
			r.Size, r.Scenario, r.Iterations, r.OneShotMs, r.AppendWorkloadMs, r.LastMode)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	for _, b := range bench.BestBySize(run) {
		fmt.Fprintf(w, "%7d chars: fastest one-shot %s, fastest append %s\n", b.Size, green(b.OneShot), green(b.Append))
	}
	return nil
}

func writeDeltas(w io.Writer, deltas []bench.Delta) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SIZE\tSCENARIO\tONE-SHOT MS\tCHANGE\tAPPEND MS\tCHANGE\t\t")
	for _, d := range deltas {
		mark := ""
		if d.Flagged {
			mark = "!"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\t%.3f\t%s\t%s\t\n",
			d.Key.Size, d.Key.Scenario,
			d.OneShot.Current, changeOf(d.OneShot.Change),
			d.Append.Current, changeOf(d.Append.Change),
			mark)
	}
	return tw.Flush()
}

// changeOf formats a relative change. Color codes would break tabwriter
// alignment, so only the sign distinguishes it.
func changeOf(c float64) string {
	if math.IsInf(c, 1) {
		return "new"
	}
	return fmt.Sprintf("%+.1f%%", c*100)
}

func percentOf(f float64) string {
	return strconv.FormatFloat(f*100, 'f', -1, 64) + "%"
}
