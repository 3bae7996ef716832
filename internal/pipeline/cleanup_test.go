package pipeline

import "testing"

func TestSpeckleCleanupUniformGridUnchanged(t *testing.T) {
	grid := NewSymbolGrid(10, 10)
	for i := range grid.Cells {
		grid.Cells[i] = 3
	}

	cleaned := SpeckleCleanup(grid)
	for i, s := range cleaned.Cells {
		if s != 3 {
			t.Fatalf("uniform grid changed at cell %d: %d", i, s)
		}
	}
}

func TestSpeckleCleanupRemovesIsolatedCell(t *testing.T) {
	grid := NewSymbolGrid(5, 5)
	for i := range grid.Cells {
		grid.Cells[i] = 2
	}
	grid.Set(2, 2, 7)

	cleaned := SpeckleCleanup(grid)
	if got := cleaned.At(2, 2); got != 2 {
		t.Errorf("isolated speckle kept symbol %d, want 2", got)
	}
}

func TestSpeckleCleanupLeavesBordersAlone(t *testing.T) {
	grid := NewSymbolGrid(5, 5)
	for i := range grid.Cells {
		grid.Cells[i] = 1
	}
	grid.Set(0, 0, 6)
	grid.Set(4, 2, 6)
	grid.Set(2, 4, 6)

	cleaned := SpeckleCleanup(grid)
	if cleaned.At(0, 0) != 6 || cleaned.At(4, 2) != 6 || cleaned.At(2, 4) != 6 {
		t.Error("border cells must not be modified")
	}
}

func TestSpeckleCleanupPreservesCoherentRegions(t *testing.T) {
	// A 2-cell-wide vertical stripe is not a speckle.
	grid := NewSymbolGrid(6, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if x == 2 || x == 3 {
				grid.Set(x, y, 5)
			} else {
				grid.Set(x, y, 1)
			}
		}
	}

	cleaned := SpeckleCleanup(grid)
	for y := 1; y < 5; y++ {
		if cleaned.At(2, y) != 5 || cleaned.At(3, y) != 5 {
			t.Fatalf("stripe eroded at row %d", y)
		}
	}
}

func TestSpeckleCleanupSinglePassSnapshot(t *testing.T) {
	// Two adjacent speckles: with snapshot reads, each decision sees the
	// original neighborhood, not the partially cleaned one.
	grid := NewSymbolGrid(7, 7)
	for i := range grid.Cells {
		grid.Cells[i] = 4
	}
	grid.Set(2, 3, 1)
	grid.Set(3, 3, 1)

	a := SpeckleCleanup(grid)
	b := SpeckleCleanup(grid)
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			t.Fatal("cleanup is not deterministic")
		}
	}
}
