package pipeline

import (
	"fmt"

	"github.com/patternforge/diamondgrid/internal/colorspace"
	"github.com/patternforge/diamondgrid/internal/palette"
)

// Algorithm identifies a quantization/dithering strategy. The set is closed:
// adding an algorithm means adding a variant and its weight table below, not
// touching the dispatch.
type Algorithm int

const (
	None Algorithm = iota
	FloydSteinberg
	JarvisJudiceNinke
	Stucki
	Atkinson
	Bayer
)

// ParseAlgorithm resolves an algorithm identifier. The short aliases match
// the public API ("fs", "jjn").
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "none":
		return None, nil
	case "floyd-steinberg", "fs":
		return FloydSteinberg, nil
	case "jarvis-judice-ninke", "jjn":
		return JarvisJudiceNinke, nil
	case "stucki":
		return Stucki, nil
	case "atkinson":
		return Atkinson, nil
	case "bayer":
		return Bayer, nil
	default:
		return None, fmt.Errorf("%w: unknown dither algorithm %q", ErrConfig, name)
	}
}

// MarshalJSON encodes the algorithm by name so exported documents stay
// readable and stable across reorderings of the enum.
func (a Algorithm) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case FloydSteinberg:
		return "floyd-steinberg"
	case JarvisJudiceNinke:
		return "jarvis-judice-ninke"
	case Stucki:
		return "stucki"
	case Atkinson:
		return "atkinson"
	case Bayer:
		return "bayer"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// diffusionTap is one neighbor offset of an error-diffusion kernel. Offsets
// only ever point at not-yet-visited cells under row-major traversal.
type diffusionTap struct {
	dx, dy int
	weight float64
}

// Fixed per-algorithm weight tables. Floyd-Steinberg sums to 16/16, JJN to
// 48/48, Stucki to 42/42. Atkinson intentionally diffuses only 6/8 of the
// residual, which lifts contrast in highlights and shadows.
var diffusionKernels = map[Algorithm][]diffusionTap{
	FloydSteinberg: {
		{1, 0, 7.0 / 16.0},
		{-1, 1, 3.0 / 16.0},
		{0, 1, 5.0 / 16.0},
		{1, 1, 1.0 / 16.0},
	},
	JarvisJudiceNinke: {
		{1, 0, 7.0 / 48.0}, {2, 0, 5.0 / 48.0},
		{-2, 1, 3.0 / 48.0}, {-1, 1, 5.0 / 48.0}, {0, 1, 7.0 / 48.0}, {1, 1, 5.0 / 48.0}, {2, 1, 3.0 / 48.0},
		{-2, 2, 1.0 / 48.0}, {-1, 2, 3.0 / 48.0}, {0, 2, 5.0 / 48.0}, {1, 2, 3.0 / 48.0}, {2, 2, 1.0 / 48.0},
	},
	Stucki: {
		{1, 0, 8.0 / 42.0}, {2, 0, 4.0 / 42.0},
		{-2, 1, 2.0 / 42.0}, {-1, 1, 4.0 / 42.0}, {0, 1, 8.0 / 42.0}, {1, 1, 4.0 / 42.0}, {2, 1, 2.0 / 42.0},
		{-2, 2, 1.0 / 42.0}, {-1, 2, 2.0 / 42.0}, {0, 2, 4.0 / 42.0}, {1, 2, 2.0 / 42.0}, {2, 2, 1.0 / 42.0},
	},
	Atkinson: {
		{1, 0, 1.0 / 8.0}, {2, 0, 1.0 / 8.0},
		{-1, 1, 1.0 / 8.0}, {0, 1, 1.0 / 8.0}, {1, 1, 1.0 / 8.0},
		{0, 2, 1.0 / 8.0},
	},
}

// bayerMatrix is the 8×8 ordered-dither threshold map, normalized from the
// classic 0..63 index matrix to [-0.5, 0.5).
var bayerMatrix = func() [8][8]float64 {
	raw := [8][8]float64{
		{0, 32, 8, 40, 2, 34, 10, 42},
		{48, 16, 56, 24, 50, 18, 58, 26},
		{12, 44, 4, 36, 14, 46, 6, 38},
		{60, 28, 52, 20, 62, 30, 54, 22},
		{3, 35, 11, 43, 1, 33, 9, 41},
		{51, 19, 59, 27, 49, 17, 57, 25},
		{15, 47, 7, 39, 13, 45, 5, 37},
		{63, 31, 55, 23, 61, 29, 53, 21},
	}
	for y := range raw {
		for x := range raw[y] {
			raw[y][x] = raw[y][x]/64.0 - 0.5
		}
	}
	return raw
}()

// bayerAmplitude is the quantization step the normalized Bayer threshold is
// scaled by, in L* units. 25 L* corresponds to the 64/255 full-range step
// of the 8-bit formulation.
const bayerAmplitude = 25.0

// Dither quantizes a continuous grid to palette symbols. All variants visit
// cells in row-major order; for the error-diffusion family that order is
// observable, because each cell's correction depends on earlier residuals.
// The continuous grid is never modified: accumulated error lives in a
// transient buffer owned by this call.
func Dither(grid *ContinuousGrid, pal *palette.Palette, algo Algorithm, strength float64) (*SymbolGrid, error) {
	switch algo {
	case None:
		return nearestColor(grid, pal), nil
	case Bayer:
		return bayerDither(grid, pal, strength), nil
	case FloydSteinberg, JarvisJudiceNinke, Stucki, Atkinson:
		return diffusionDither(grid, pal, diffusionKernels[algo], strength), nil
	default:
		return nil, fmt.Errorf("%w: unknown dither algorithm %d", ErrConfig, int(algo))
	}
}

// nearestColor is the trivial baseline: independent nearest-palette match
// per cell.
func nearestColor(grid *ContinuousGrid, pal *palette.Palette) *SymbolGrid {
	out := NewSymbolGrid(grid.W, grid.H)

	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			out.Set(x, y, uint8(pal.NearestSymbol(grid.At(x, y))))
		}
	}

	return out
}

// bayerDither perturbs the lightness of each cell by the tiled threshold map
// before matching. No cross-cell state.
func bayerDither(grid *ContinuousGrid, pal *palette.Palette, strength float64) *SymbolGrid {
	out := NewSymbolGrid(grid.W, grid.H)

	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			c := grid.At(x, y)
			c.L += bayerMatrix[y%8][x%8] * strength * bayerAmplitude
			out.Set(x, y, uint8(pal.NearestSymbol(c)))
		}
	}

	return out
}

// diffusionDither runs the error-diffusion family. Per cell: add the
// accumulated residual, match, then distribute the scaled quantization error
// over the kernel taps. Out-of-bounds taps are dropped, no wraparound.
func diffusionDither(grid *ContinuousGrid, pal *palette.Palette, kernel []diffusionTap, strength float64) *SymbolGrid {
	out := NewSymbolGrid(grid.W, grid.H)
	errBuf := make([]colorspace.Lab, grid.W*grid.H)

	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			idx := y*grid.W + x

			c := grid.At(x, y)
			acc := errBuf[idx]
			c.L += acc.L
			c.A += acc.A
			c.B += acc.B

			symbol := pal.NearestSymbol(c)
			out.Set(x, y, uint8(symbol))

			target := pal.Entry(symbol).Lab
			residual := colorspace.Lab{
				L: (c.L - target.L) * strength,
				A: (c.A - target.A) * strength,
				B: (c.B - target.B) * strength,
			}

			for _, tap := range kernel {
				nx, ny := x+tap.dx, y+tap.dy
				if nx < 0 || nx >= grid.W || ny >= grid.H {
					continue
				}
				n := ny*grid.W + nx
				errBuf[n].L += residual.L * tap.weight
				errBuf[n].A += residual.A * tap.weight
				errBuf[n].B += residual.B * tap.weight
			}
		}
	}

	return out
}
