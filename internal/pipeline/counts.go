package pipeline

import "github.com/patternforge/diamondgrid/internal/palette"

// CountVector holds per-symbol cell counts indexed by symbol-1, in fixed
// palette order. The sum always equals W*H of the counted grid.
type CountVector [palette.Size]int

// CountSymbols tallies a symbol grid.
func CountSymbols(grid *SymbolGrid) CountVector {
	var counts CountVector
	for _, s := range grid.Cells {
		counts[s-1]++
	}
	return counts
}

// Total returns the number of counted cells.
func (c CountVector) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Percentages returns per-symbol shares in percent. The values need not sum
// to exactly 100 after the caller rounds them for display.
func (c CountVector) Percentages() [palette.Size]float64 {
	var out [palette.Size]float64
	total := c.Total()
	if total == 0 {
		return out
	}
	for i, n := range c {
		out[i] = float64(n) / float64(total) * 100.0
	}
	return out
}
