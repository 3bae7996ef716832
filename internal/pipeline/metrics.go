package pipeline

import (
	"image"
	"math"
	"sort"

	"github.com/disintegration/gift"

	"github.com/patternforge/diamondgrid/internal/colorspace"
	"github.com/patternforge/diamondgrid/internal/palette"
)

// Metrics summarizes how faithful the quantized pattern is to the
// continuous-tone grid it was produced from.
type Metrics struct {
	DeltaEMean float64 `json:"deltaE_mean"`
	DeltaEP95  float64 `json:"deltaE_p95"`
	DeltaEMax  float64 `json:"deltaE_max"`
	EdgeScore  float64 `json:"edge_score"`
	Entropy    float64 `json:"entropy"`
}

// edgeThreshold is the Sobel gradient magnitude above which a pixel counts
// as an edge, on the 8-bit scale.
const edgeThreshold = 96

// ComputeMetrics compares the symbol grid against the pre-dither continuous
// grid. ΔE statistics use the continuous cells as ground truth, not the
// error-diffusion perturbed values; the edge score compares Sobel edge maps
// of the resized source against the pattern rendered back to colors.
func ComputeMetrics(continuous *ContinuousGrid, symbols *SymbolGrid, resized *image.RGBA, pal *palette.Palette, counts CountVector) Metrics {
	deltaEs := make([]float64, 0, len(symbols.Cells))
	for y := 0; y < symbols.H; y++ {
		for x := 0; x < symbols.W; x++ {
			chosen := pal.Entry(int(symbols.At(x, y))).Lab
			deltaEs = append(deltaEs, colorspace.DeltaE(continuous.At(x, y), chosen))
		}
	}

	var mean, max float64
	for _, d := range deltaEs {
		mean += d
		if d > max {
			max = d
		}
	}
	if len(deltaEs) > 0 {
		mean /= float64(len(deltaEs))
	}

	return Metrics{
		DeltaEMean: mean,
		DeltaEP95:  percentile(deltaEs, 95),
		DeltaEMax:  max,
		EdgeScore:  edgeScore(resized, RenderSymbols(symbols, pal)),
		Entropy:    entropy(counts),
	}
}

// percentile computes the p-th percentile with linear interpolation between
// the two closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// edgeScore is the intersection-over-union of the edge maps of the two
// images. Degenerate cases (no edges anywhere) score a perfect 1.
func edgeScore(original, quantized *image.RGBA) float64 {
	origEdges := edgeMap(original)
	quantEdges := edgeMap(quantized)
	if len(origEdges) != len(quantEdges) {
		return 0
	}

	origCount := 0
	intersection := 0
	union := 0
	for i := range origEdges {
		if origEdges[i] {
			origCount++
		}
		if origEdges[i] && quantEdges[i] {
			intersection++
		}
		if origEdges[i] || quantEdges[i] {
			union++
		}
	}

	if origCount == 0 || union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// edgeMap runs grayscale conversion and a Sobel operator, then thresholds
// the gradient magnitude into a boolean map.
func edgeMap(img *image.RGBA) []bool {
	g := gift.New(gift.Grayscale(), gift.Sobel())
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)

	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = dst.Pix[dst.PixOffset(b.Min.X+x, b.Min.Y+y)] >= edgeThreshold
		}
	}

	return out
}

// entropy is the Shannon entropy of the symbol distribution in bits: 0 when
// one color covers everything, log2(7) when perfectly uniform.
func entropy(counts CountVector) float64 {
	total := counts.Total()
	if total == 0 {
		return 0
	}

	var e float64
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		e -= p * math.Log2(p)
	}
	return e
}
