package pipeline

import "github.com/patternforge/diamondgrid/internal/palette"

// SpeckleCleanup removes isolated single-cell speckles with one pass of a
// 3×3 majority filter. An interior cell that disagrees with the majority
// symbol of its 8 neighbors is replaced by the mode of its full 3×3
// neighborhood. Border cells have no full neighborhood and are left alone.
// All reads come from a snapshot of the input, so the pass is independent of
// traversal order, and it runs exactly once: a second pass could change more
// cells, but one pass is the documented behavior.
func SpeckleCleanup(grid *SymbolGrid) *SymbolGrid {
	out := grid.Clone()

	for y := 1; y < grid.H-1; y++ {
		for x := 1; x < grid.W-1; x++ {
			center := grid.At(x, y)

			var neighborCounts [palette.Size + 1]int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					neighborCounts[grid.At(x+dx, y+dy)]++
				}
			}

			if int(center) == modeSymbol(neighborCounts) {
				continue
			}

			full := neighborCounts
			full[center]++
			out.Set(x, y, uint8(modeSymbol(full)))
		}
	}

	return out
}

// modeSymbol returns the most frequent symbol; ties resolve to the lowest
// symbol because the scan runs in ascending order with a strict greater-than.
func modeSymbol(counts [palette.Size + 1]int) int {
	best, bestCount := 1, counts[1]
	for s := 2; s <= palette.Size; s++ {
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	return best
}
