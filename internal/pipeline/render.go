package pipeline

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/patternforge/diamondgrid/internal/palette"
)

// RenderSymbols paints a symbol grid back to palette colors, one pixel per
// cell. Used for previews and for the edge-preservation metric.
func RenderSymbols(grid *SymbolGrid, pal *palette.Palette) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, grid.W, grid.H))

	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			e := pal.Entry(int(grid.At(x, y)))
			i := out.PixOffset(x, y)
			out.Pix[i] = e.R
			out.Pix[i+1] = e.G
			out.Pix[i+2] = e.B
			out.Pix[i+3] = 255
		}
	}

	return out
}

// RenderPreview upscales the rendered grid with nearest-neighbor sampling to
// the given height, keeping cells as crisp squares.
func RenderPreview(grid *SymbolGrid, pal *palette.Palette, targetHeight int) *image.RGBA {
	cells := RenderSymbols(grid, pal)
	if targetHeight <= 0 || grid.H == 0 {
		return cells
	}

	scale := float64(targetHeight) / float64(grid.H)
	w := int(float64(grid.W) * scale)
	if w < 1 {
		w = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, w, targetHeight))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), cells, cells.Bounds(), xdraw.Src, nil)
	return out
}

// PreviewPNG encodes an upscaled preview as PNG bytes.
func PreviewPNG(grid *SymbolGrid, pal *palette.Palette, targetHeight int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, RenderPreview(grid, pal, targetHeight)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PreviewDataURL encodes an upscaled preview as a base64 PNG data URL for
// inline transport in JSON responses.
func PreviewDataURL(grid *SymbolGrid, pal *palette.Palette, targetHeight int) (string, error) {
	data, err := PreviewPNG(grid, pal, targetHeight)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
