package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/patternforge/diamondgrid/internal/palette"
)

func TestRunValidation(t *testing.T) {
	pal, _ := palette.Get("original")
	img := testImage(60, 80)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"nil image", func(r *Request) { r.Image = nil }},
		{"zero width", func(r *Request) { r.GridW = 0 }},
		{"negative height", func(r *Request) { r.GridH = -5 }},
		{"oversized grid", func(r *Request) { r.GridW = maxGridDim + 1 }},
		{"nil palette", func(r *Request) { r.Palette = nil }},
		{"bad gamma", func(r *Request) { r.Options.Gamma = 0 }},
		{"bad denoise", func(r *Request) { r.Options.Denoise = "median" }},
		{"negative dither strength", func(r *Request) { r.Options.DitherStrength = -1 }},
		{"desat above one", func(r *Request) { r.Options.BackgroundDesat = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Image: img, GridW: 12, GridH: 16, Palette: pal, Options: DefaultOptions()}
			tt.mutate(&req)

			_, err := Run(req)
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error %v does not wrap ErrConfig", err)
			}
		})
	}
}

func TestRunDeterminism(t *testing.T) {
	pal, _ := palette.Get("warm")
	img := testImage(96, 128)

	req := Request{Image: img, GridW: 24, GridH: 32, Palette: pal, Options: DefaultOptions()}

	a, err := Run(req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(req)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(a.Symbols.Cells, b.Symbols.Cells) {
		t.Error("symbol grids differ between identical runs")
	}
	if a.Counts != b.Counts {
		t.Error("count vectors differ between identical runs")
	}
	if a.Metrics != b.Metrics {
		t.Error("metrics differ between identical runs")
	}
}

func TestRunCountInvariant(t *testing.T) {
	pal, _ := palette.Get("pop")
	img := testImage(100, 100)

	for _, algo := range []Algorithm{None, FloydSteinberg, Atkinson, Bayer} {
		opts := DefaultOptions()
		opts.Dither = algo
		opts.SpeckleCleanup = true

		res, err := Run(Request{Image: img, GridW: 20, GridH: 20, Palette: pal, Options: opts})
		if err != nil {
			t.Fatal(err)
		}

		if got := res.Counts.Total(); got != 400 {
			t.Errorf("%v: counts sum to %d, want 400", algo, got)
		}
		for _, s := range res.Symbols.Cells {
			if s < 1 || s > palette.Size {
				t.Fatalf("%v: symbol %d outside 1..%d", algo, s, palette.Size)
			}
		}
	}
}

func TestRunResultShape(t *testing.T) {
	pal, _ := palette.Get("original")
	img := testImage(48, 64)

	res, err := Run(Request{Image: img, GridW: 12, GridH: 16, Palette: pal, Options: DefaultOptions()})
	if err != nil {
		t.Fatal(err)
	}

	if res.Symbols.W != 12 || res.Symbols.H != 16 {
		t.Errorf("symbol grid is %dx%d, want 12x16", res.Symbols.W, res.Symbols.H)
	}

	var pctSum float64
	for _, p := range res.Percents {
		pctSum += p
	}
	if pctSum < 99.9 || pctSum > 100.1 {
		t.Errorf("percentages sum to %v", pctSum)
	}
}

func TestPreviewDataURL(t *testing.T) {
	pal, _ := palette.Get("original")
	grid := NewSymbolGrid(4, 4)
	for i := range grid.Cells {
		grid.Cells[i] = uint8(i%palette.Size) + 1
	}

	url, err := PreviewDataURL(grid, pal, 40)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("unexpected data URL prefix: %.40s", url)
	}
}

func TestRenderSymbolsUsesPaletteColors(t *testing.T) {
	pal, _ := palette.Get("pop")
	grid := NewSymbolGrid(palette.Size, 1)
	for x := 0; x < palette.Size; x++ {
		grid.Set(x, 0, uint8(x+1))
	}

	img := RenderSymbols(grid, pal)
	for x := 0; x < palette.Size; x++ {
		e := pal.Entry(x + 1)
		i := img.PixOffset(x, 0)
		if img.Pix[i] != e.R || img.Pix[i+1] != e.G || img.Pix[i+2] != e.B {
			t.Errorf("cell %d rendered (%d,%d,%d), want (%d,%d,%d)",
				x, img.Pix[i], img.Pix[i+1], img.Pix[i+2], e.R, e.G, e.B)
		}
	}
}

func TestResizeToGridExactDimensions(t *testing.T) {
	img := testImage(300, 400)
	out := ResizeToGrid(img, 96, 128)
	if out.Bounds().Dx() != 96 || out.Bounds().Dy() != 128 {
		t.Errorf("resized to %dx%d, want 96x128", out.Bounds().Dx(), out.Bounds().Dy())
	}
}
