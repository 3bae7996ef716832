// Package pipeline converts a decoded photograph into a 7-color diamond
// painting pattern: preprocessing, bicubic downsampling to the target grid,
// perceptual-space palette quantization with selectable dithering, optional
// speckle cleanup, and the counts and quality metrics the export layer needs.
//
// A run is a pure function of its request. No I/O, no shared state, no
// randomness: identical input always yields a byte-identical symbol grid,
// count vector and metrics. Independent runs may execute concurrently since
// each owns its own working buffers.
package pipeline

import (
	"fmt"
	"image"

	"github.com/patternforge/diamondgrid/internal/palette"
)

// maxGridDim bounds grid dimensions well above any canvas preset; it only
// guards against nonsense requests.
const maxGridDim = 1024

// Request carries everything a pipeline run depends on. The image is
// expected to be already EXIF-oriented, rotated and cropped to the grid's
// aspect ratio by the caller.
type Request struct {
	Image   image.Image
	GridW   int
	GridH   int
	Palette *palette.Palette
	Options Options
}

// Result is handed to the export boundary once a run completes. The symbol
// grid is immutable from this point on; ownership transfers to the caller.
type Result struct {
	Symbols  *SymbolGrid
	Counts   CountVector
	Percents [palette.Size]float64
	Metrics  Metrics
}

// Run executes the full pattern pipeline. Configuration problems are
// rejected before any pixel work; once processing starts it always completes
// and returns a result.
func Run(req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	preprocessed := Preprocess(toRGBA(req.Image), req.Options)
	resized := ResizeToGrid(preprocessed, req.GridW, req.GridH)
	continuous := GridFromImage(resized)

	symbols, err := Dither(continuous, req.Palette, req.Options.Dither, req.Options.DitherStrength)
	if err != nil {
		return nil, err
	}

	if req.Options.SpeckleCleanup {
		symbols = SpeckleCleanup(symbols)
	}

	counts := CountSymbols(symbols)

	return &Result{
		Symbols:  symbols,
		Counts:   counts,
		Percents: counts.Percentages(),
		Metrics:  ComputeMetrics(continuous, symbols, resized, req.Palette, counts),
	}, nil
}

func validate(req Request) error {
	if req.Image == nil {
		return fmt.Errorf("%w: image is nil", ErrConfig)
	}
	if req.GridW <= 0 || req.GridH <= 0 {
		return fmt.Errorf("%w: grid dimensions must be positive, got %dx%d", ErrConfig, req.GridW, req.GridH)
	}
	if req.GridW > maxGridDim || req.GridH > maxGridDim {
		return fmt.Errorf("%w: grid dimensions exceed %d cells per side", ErrConfig, maxGridDim)
	}
	if req.Palette == nil {
		return fmt.Errorf("%w: palette is nil", ErrConfig)
	}
	return req.Options.Validate()
}

// toRGBA normalizes any decoded image to RGBA for uniform pixel access.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
