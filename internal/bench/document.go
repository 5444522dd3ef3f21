package bench

import (
	"fmt"
	"strings"
)

// section renders one repeating unit of the benchmark document: a heading,
// a paragraph, a list and a fenced block
func section(n int) string {
	return fmt.Sprintf("## Section %d\n\nLorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod.\n\n- a\n- b\n- c\n\n```js\nconsole.log(%d)\n```\n\n", n, n)
}

// Sections returns whole sections until their total length reaches
// targetChars
func Sections(targetChars int) []string {
	var parts []string
	total := 0
	for i := 0; total < targetChars; i++ {
		s := section(i)
		parts = append(parts, s)
		total += len(s)
	}
	return parts
}

// Document joins Sections(targetChars)
func Document(targetChars int) string {
	return strings.Join(Sections(targetChars), "")
}

// SplitSteps groups sections into steps pieces for the append workload.
// The last piece takes the remainder.
func SplitSteps(parts []string, steps int) []string {
	if steps <= 1 || len(parts) == 0 {
		return []string{strings.Join(parts, "")}
	}
	per := max(1, len(parts)/steps)
	out := make([]string, 0, steps)
	for i := 0; i < steps-1; i++ {
		lo, hi := min(i*per, len(parts)), min((i+1)*per, len(parts))
		out = append(out, strings.Join(parts[lo:hi], ""))
	}
	out = append(out, strings.Join(parts[min((steps-1)*per, len(parts)):], ""))
	return out
}

// Iterations picks repeat counts by size so small documents are not
// dominated by timer noise
func Iterations(size int) (oneShot, appendRepeats int) {
	switch {
	case size <= 5_000:
		return 30, 6
	case size <= 20_000:
		return 20, 5
	case size <= 50_000:
		return 10, 4
	case size <= 100_000:
		return 6, 3
	default:
		return 4, 2
	}
}
