package bench

import (
	"math"
	"sort"

	"github.com/dshills/mdstream/internal/storage"
)

// DefaultThreshold is the relative slowdown that flags a cell
const DefaultThreshold = 0.10

// Delta compares one cell of a run against the baseline
type Delta struct {
	Key     storage.CellKey
	OneShot Pair
	Append  Pair
	Flagged bool
}

// Pair holds current and baseline timings of one metric
type Pair struct {
	Current  float64
	Baseline float64
	Change   float64 // (current-baseline)/baseline
}

// Worst returns the larger of the two relative changes
func (d Delta) Worst() float64 {
	return math.Max(d.OneShot.Change, d.Append.Change)
}

func pair(cur, base float64) Pair {
	p := Pair{Current: cur, Baseline: base}
	switch {
	case base > 0:
		p.Change = (cur - base) / base
	case cur > 0:
		p.Change = math.Inf(1)
	}
	return p
}

// Diff pairs the cells present in both runs, worst regressions first.
// A cell is flagged when either metric grew by more than threshold.
func Diff(current, baseline *storage.Run, threshold float64) []Delta {
	base := baseline.ResultMap()
	var deltas []Delta
	for _, c := range current.Results {
		b, ok := base[c.Key()]
		if !ok {
			continue
		}
		d := Delta{
			Key:     c.Key(),
			OneShot: pair(c.OneShotMs, b.OneShotMs),
			Append:  pair(c.AppendWorkloadMs, b.AppendWorkloadMs),
		}
		d.Flagged = d.OneShot.Change > threshold || d.Append.Change > threshold
		deltas = append(deltas, d)
	}
	sort.SliceStable(deltas, func(i, j int) bool {
		return deltas[i].Worst() > deltas[j].Worst()
	})
	return deltas
}

// Regressions counts flagged deltas
func Regressions(deltas []Delta) int {
	n := 0
	for _, d := range deltas {
		if d.Flagged {
			n++
		}
	}
	return n
}

// Best is the fastest scenario of one size for one metric
type Best struct {
	Size    int
	OneShot string
	Append  string
}

// BestBySize picks the fastest scenario per size, ordered by size
func BestBySize(run *storage.Run) []Best {
	bySize := make(map[int][]*storage.Result)
	for _, r := range run.Results {
		bySize[r.Size] = append(bySize[r.Size], r)
	}
	sizes := make([]int, 0, len(bySize))
	for s := range bySize {
		sizes = append(sizes, s)
	}
	sort.Ints(sizes)

	out := make([]Best, 0, len(sizes))
	for _, s := range sizes {
		rs := bySize[s]
		one, app := rs[0], rs[0]
		for _, r := range rs[1:] {
			if r.OneShotMs < one.OneShotMs {
				one = r
			}
			if r.AppendWorkloadMs < app.AppendWorkloadMs {
				app = r
			}
		}
		out = append(out, Best{Size: s, OneShot: one.Scenario, Append: app.Scenario})
	}
	return out
}
