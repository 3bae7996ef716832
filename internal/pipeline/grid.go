package pipeline

import (
	"image"

	"github.com/patternforge/diamondgrid/internal/colorspace"
)

// ContinuousGrid is a row-major W×H grid of CIELAB colors, origin top-left.
// It is produced once per run after resize and color conversion, owned by
// that run, and discarded once the symbol grid exists.
type ContinuousGrid struct {
	W, H  int
	Cells []colorspace.Lab
}

// NewContinuousGrid allocates a zeroed grid.
func NewContinuousGrid(w, h int) *ContinuousGrid {
	return &ContinuousGrid{W: w, H: h, Cells: make([]colorspace.Lab, w*h)}
}

// GridFromImage converts an RGBA raster to a perceptual-space grid.
func GridFromImage(img *image.RGBA) *ContinuousGrid {
	b := img.Bounds()
	g := NewContinuousGrid(b.Dx(), b.Dy())

	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			rgb := colorspace.RGB8(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			g.Cells[y*g.W+x] = colorspace.RGBToLab(rgb)
		}
	}

	return g
}

// At returns the cell at (x, y).
func (g *ContinuousGrid) At(x, y int) colorspace.Lab {
	return g.Cells[y*g.W+x]
}

// Set stores a cell value at (x, y).
func (g *ContinuousGrid) Set(x, y int, c colorspace.Lab) {
	g.Cells[y*g.W+x] = c
}

// SymbolGrid is a row-major W×H grid of palette symbols in 1..7. It is the
// canonical output artifact of a pipeline run.
type SymbolGrid struct {
	W, H  int
	Cells []uint8
}

// NewSymbolGrid allocates a zeroed symbol grid.
func NewSymbolGrid(w, h int) *SymbolGrid {
	return &SymbolGrid{W: w, H: h, Cells: make([]uint8, w*h)}
}

// At returns the symbol at (x, y).
func (g *SymbolGrid) At(x, y int) uint8 {
	return g.Cells[y*g.W+x]
}

// Set stores a symbol at (x, y).
func (g *SymbolGrid) Set(x, y int, s uint8) {
	g.Cells[y*g.W+x] = s
}

// Clone returns a deep copy of the grid.
func (g *SymbolGrid) Clone() *SymbolGrid {
	out := NewSymbolGrid(g.W, g.H)
	copy(out.Cells, g.Cells)
	return out
}
