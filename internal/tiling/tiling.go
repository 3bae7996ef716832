// Package tiling divides a symbol grid into fixed-size tiles for print
// layout. Tiles are numbered 1..N row-major and grouped into blocks so a
// multi-page chart can reference ranges like "tiles 1-12".
package tiling

import (
	"fmt"

	"github.com/patternforge/diamondgrid/internal/pipeline"
)

const (
	DefaultTileW     = 9
	DefaultTileH     = 13
	DefaultGroupSize = 12
)

// Group is an inclusive range of tile numbers printed on one page block.
type Group struct {
	Range string `json:"range"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Layout describes how a grid decomposes into tiles. All tile numbers are
// 1-indexed.
type Layout struct {
	GridW     int `json:"-"`
	GridH     int `json:"-"`
	TileW     int `json:"cell_w"`
	TileH     int `json:"cell_h"`
	TilesX    int `json:"tiles_x"`
	TilesY    int `json:"tiles_y"`
	Total     int `json:"total_tiles"`
	GroupSize int `json:"group_size"`

	Groups []Group `json:"groups"`
}

// New builds the default 9x13 tile layout for a grid, with tiles grouped in
// blocks of 12.
func New(gridW, gridH int) (*Layout, error) {
	return NewWithSize(gridW, gridH, DefaultTileW, DefaultTileH, DefaultGroupSize)
}

// NewWithSize builds a layout with explicit tile and group dimensions.
func NewWithSize(gridW, gridH, tileW, tileH, groupSize int) (*Layout, error) {
	if gridW <= 0 || gridH <= 0 {
		return nil, fmt.Errorf("tiling: grid dimensions must be positive, got %dx%d", gridW, gridH)
	}
	if tileW <= 0 || tileH <= 0 || groupSize <= 0 {
		return nil, fmt.Errorf("tiling: tile dimensions and group size must be positive")
	}

	l := &Layout{
		GridW:     gridW,
		GridH:     gridH,
		TileW:     tileW,
		TileH:     tileH,
		TilesX:    ceilDiv(gridW, tileW),
		TilesY:    ceilDiv(gridH, tileH),
		GroupSize: groupSize,
	}
	l.Total = l.TilesX * l.TilesY

	for start := 1; start <= l.Total; start += groupSize {
		end := start + groupSize - 1
		if end > l.Total {
			end = l.Total
		}
		l.Groups = append(l.Groups, Group{
			Range: fmt.Sprintf("%d-%d", start, end),
			Start: start,
			End:   end,
		})
	}

	return l, nil
}

// Bounds returns the grid-coordinate rectangle covered by a tile. Edge tiles
// are clipped to the grid, so w and h may be smaller than the tile size.
func (l *Layout) Bounds(tile int) (x, y, w, h int, err error) {
	if tile < 1 || tile > l.Total {
		return 0, 0, 0, 0, fmt.Errorf("tiling: tile %d out of range 1..%d", tile, l.Total)
	}

	idx := tile - 1
	x = (idx % l.TilesX) * l.TileW
	y = (idx / l.TilesX) * l.TileH
	w = min(l.TileW, l.GridW-x)
	h = min(l.TileH, l.GridH-y)
	return x, y, w, h, nil
}

// GroupOf returns the page block containing a tile.
func (l *Layout) GroupOf(tile int) (Group, error) {
	if tile < 1 || tile > l.Total {
		return Group{}, fmt.Errorf("tiling: tile %d out of range 1..%d", tile, l.Total)
	}
	return l.Groups[(tile-1)/l.GroupSize], nil
}

// Extract copies a tile's symbols out of the grid. The result is always
// TileW x TileH; cells past the grid edge are zero, which is never a valid
// symbol and renders as empty in the chart.
func (l *Layout) Extract(grid *pipeline.SymbolGrid, tile int) (*pipeline.SymbolGrid, error) {
	x, y, w, h, err := l.Bounds(tile)
	if err != nil {
		return nil, err
	}

	out := pipeline.NewSymbolGrid(l.TileW, l.TileH)
	for ty := 0; ty < h; ty++ {
		for tx := 0; tx < w; tx++ {
			out.Set(tx, ty, grid.At(x+tx, y+ty))
		}
	}
	return out, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
