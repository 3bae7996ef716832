package tiling

import (
	"testing"

	"github.com/patternforge/diamondgrid/internal/pipeline"
)

func TestNewLayout(t *testing.T) {
	tests := []struct {
		name      string
		gridW     int
		gridH     int
		tilesX    int
		tilesY    int
		total     int
		numGroups int
	}{
		{"medium preset", 96, 128, 11, 10, 110, 10},
		{"small preset", 80, 106, 9, 9, 81, 7},
		{"large preset", 108, 144, 12, 12, 144, 12},
		{"exact fit", 18, 26, 2, 2, 4, 1},
		{"single tile", 9, 13, 1, 1, 1, 1},
		{"smaller than tile", 5, 7, 1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.gridW, tt.gridH)
			if err != nil {
				t.Fatal(err)
			}
			if l.TilesX != tt.tilesX || l.TilesY != tt.tilesY {
				t.Errorf("got %dx%d tiles, want %dx%d", l.TilesX, l.TilesY, tt.tilesX, tt.tilesY)
			}
			if l.Total != tt.total {
				t.Errorf("got %d total tiles, want %d", l.Total, tt.total)
			}
			if len(l.Groups) != tt.numGroups {
				t.Errorf("got %d groups, want %d", len(l.Groups), tt.numGroups)
			}
		})
	}
}

func TestNewLayoutRejectsBadDimensions(t *testing.T) {
	if _, err := New(0, 100); err == nil {
		t.Error("zero width accepted")
	}
	if _, err := New(100, -1); err == nil {
		t.Error("negative height accepted")
	}
	if _, err := NewWithSize(10, 10, 0, 13, 12); err == nil {
		t.Error("zero tile width accepted")
	}
}

func TestGroupsCoverAllTiles(t *testing.T) {
	l, err := New(96, 128)
	if err != nil {
		t.Fatal(err)
	}

	next := 1
	for _, g := range l.Groups {
		if g.Start != next {
			t.Fatalf("group starts at %d, want %d", g.Start, next)
		}
		if g.End < g.Start {
			t.Fatalf("group %+v is inverted", g)
		}
		if g.End-g.Start+1 > l.GroupSize {
			t.Fatalf("group %+v larger than group size %d", g, l.GroupSize)
		}
		next = g.End + 1
	}
	if next != l.Total+1 {
		t.Errorf("groups cover tiles up to %d, want %d", next-1, l.Total)
	}
}

func TestBounds(t *testing.T) {
	l, err := New(96, 128)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tile       int
		x, y, w, h int
	}{
		{1, 0, 0, 9, 13},
		{2, 9, 0, 9, 13},
		{11, 90, 0, 6, 13},       // rightmost column clipped: 96 = 10*9 + 6
		{12, 0, 13, 9, 13},       // wraps to second row
		{110, 90, 117, 6, 11},    // bottom-right corner clipped both ways
	}

	for _, tt := range tests {
		x, y, w, h, err := l.Bounds(tt.tile)
		if err != nil {
			t.Fatalf("tile %d: %v", tt.tile, err)
		}
		if x != tt.x || y != tt.y || w != tt.w || h != tt.h {
			t.Errorf("tile %d: got (%d,%d,%d,%d), want (%d,%d,%d,%d)",
				tt.tile, x, y, w, h, tt.x, tt.y, tt.w, tt.h)
		}
	}

	for _, bad := range []int{0, -3, 111} {
		if _, _, _, _, err := l.Bounds(bad); err == nil {
			t.Errorf("tile %d accepted", bad)
		}
	}
}

func TestGroupOf(t *testing.T) {
	l, err := New(96, 128)
	if err != nil {
		t.Fatal(err)
	}

	g, err := l.GroupOf(1)
	if err != nil || g.Start != 1 || g.End != 12 {
		t.Errorf("tile 1 in group %+v, want 1-12", g)
	}
	g, err = l.GroupOf(12)
	if err != nil || g.Start != 1 {
		t.Errorf("tile 12 in group %+v, want 1-12", g)
	}
	g, err = l.GroupOf(13)
	if err != nil || g.Start != 13 || g.End != 24 {
		t.Errorf("tile 13 in group %+v, want 13-24", g)
	}
	g, err = l.GroupOf(110)
	if err != nil || g.Start != 109 || g.End != 110 {
		t.Errorf("tile 110 in group %+v, want 109-110", g)
	}
	if _, err := l.GroupOf(0); err == nil {
		t.Error("tile 0 accepted")
	}
}

func TestExtract(t *testing.T) {
	l, err := New(20, 26)
	if err != nil {
		t.Fatal(err)
	}
	// 20x26 grid: 3 tiles across (9, 9, 2 wide), 2 down (13, 13 tall).
	grid := pipeline.NewSymbolGrid(20, 26)
	for y := 0; y < 26; y++ {
		for x := 0; x < 20; x++ {
			grid.Set(x, y, uint8((x+y)%7)+1)
		}
	}

	full, err := l.Extract(grid, 1)
	if err != nil {
		t.Fatal(err)
	}
	if full.W != 9 || full.H != 13 {
		t.Fatalf("tile is %dx%d, want 9x13", full.W, full.H)
	}
	for y := 0; y < 13; y++ {
		for x := 0; x < 9; x++ {
			if full.At(x, y) != grid.At(x, y) {
				t.Fatalf("tile 1 cell (%d,%d) mismatch", x, y)
			}
		}
	}

	// Tile 3 covers x 18..19 only; columns 2..8 must be zero padding.
	edge, err := l.Extract(grid, 3)
	if err != nil {
		t.Fatal(err)
	}
	if edge.At(0, 0) != grid.At(18, 0) || edge.At(1, 5) != grid.At(19, 5) {
		t.Error("edge tile content mismatch")
	}
	for y := 0; y < 13; y++ {
		for x := 2; x < 9; x++ {
			if edge.At(x, y) != 0 {
				t.Fatalf("padding cell (%d,%d) = %d, want 0", x, y, edge.At(x, y))
			}
		}
	}
}
