package pipeline

import (
	"math"
	"testing"

	"github.com/patternforge/diamondgrid/internal/palette"
)

func TestEntropyBounds(t *testing.T) {
	tests := []struct {
		name   string
		counts CountVector
		want   float64
		exact  bool
	}{
		{"single color", CountVector{100, 0, 0, 0, 0, 0, 0}, 0, true},
		{"uniform", CountVector{10, 10, 10, 10, 10, 10, 10}, math.Log2(7), true},
		{"empty", CountVector{}, 0, true},
		{"mixed", CountVector{50, 20, 10, 10, 5, 3, 2}, 0, false},
	}

	maxEntropy := math.Log2(7)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entropy(tt.counts)
			if got < 0 || got > maxEntropy+1e-12 {
				t.Fatalf("entropy %v outside [0, log2(7)]", got)
			}
			if tt.exact && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("entropy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 5.5},
		{100, 10},
		{95, 9.55},
	}

	for _, tt := range tests {
		if got := percentile(values, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := percentile(nil, 95); got != 0 {
		t.Errorf("percentile of empty slice = %v, want 0", got)
	}
}

func TestMetricsPerfectQuantization(t *testing.T) {
	// A grid already made of exact palette colors quantizes losslessly.
	pal, _ := palette.Get("original")

	grid := NewContinuousGrid(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			grid.Set(x, y, pal.Entry((x%palette.Size)+1).Lab)
		}
	}

	symbols, err := Dither(grid, pal, None, 0)
	if err != nil {
		t.Fatal(err)
	}
	counts := CountSymbols(symbols)
	resized := RenderSymbols(symbols, pal)

	m := ComputeMetrics(grid, symbols, resized, pal, counts)
	if m.DeltaEMean > 1e-9 || m.DeltaEMax > 1e-9 {
		t.Errorf("lossless quantization reported ΔE mean=%v max=%v", m.DeltaEMean, m.DeltaEMax)
	}
	if m.EdgeScore != 1.0 {
		t.Errorf("identical images scored edge IoU %v, want 1", m.EdgeScore)
	}
}

func TestMetricsOrdering(t *testing.T) {
	pal, _ := palette.Get("original")
	grid := gradientGrid(32, 32)

	symbols, err := Dither(grid, pal, None, 0)
	if err != nil {
		t.Fatal(err)
	}
	counts := CountSymbols(symbols)

	m := ComputeMetrics(grid, symbols, RenderSymbols(symbols, pal), pal, counts)
	if m.DeltaEMean > m.DeltaEP95 || m.DeltaEP95 > m.DeltaEMax {
		t.Errorf("expected mean <= p95 <= max, got %v <= %v <= %v", m.DeltaEMean, m.DeltaEP95, m.DeltaEMax)
	}
	if m.EdgeScore < 0 || m.EdgeScore > 1 {
		t.Errorf("edge score %v outside [0,1]", m.EdgeScore)
	}
}
