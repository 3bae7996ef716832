package pipeline

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/gift"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/patternforge/diamondgrid/internal/colorspace"
)

// Preprocess applies the adjustment stages to an encoded-RGB raster in a
// fixed order that configuration cannot change:
//
//  1. auto contrast: gray-world white balance, then CLAHE on L*
//  2. gamma correction
//  3. denoise (bilateral or simplified non-local means)
//  4. background desaturation outside the detected skin region
//  5. edge boost (unsharp mask)
//
// Each stage is skipped entirely when its option sits at the identity
// default. The order is load-bearing for reproducibility; in particular the
// background desaturation runs before the edge boost so sharpening does not
// bleed chroma back into flattened regions.
func Preprocess(img *image.RGBA, opts Options) *image.RGBA {
	result := img

	if opts.AutoContrast {
		result = grayWorldWhiteBalance(result)
		if opts.CLAHEClip > 0 {
			result = claheLightness(result, opts.CLAHEClip, 8)
		}
	}

	if opts.Gamma != 1.0 {
		result = gammaCorrect(result, opts.Gamma)
	}

	switch opts.Denoise {
	case DenoiseBilateral:
		if opts.DenoiseStrength > 0 {
			result = bilateralDenoise(result, opts.DenoiseStrength)
		}
	case DenoiseNLM:
		if opts.DenoiseStrength > 0 {
			result = nlmDenoise(result, opts.DenoiseStrength)
		}
	}

	if opts.BackgroundDesat > 0 {
		result = backgroundDesaturate(result, opts.BackgroundDesat)
	}

	if opts.EdgeBoost > 0 {
		result = unsharpMask(result, opts.EdgeBoost)
	}

	return result
}

// grayWorldWhiteBalance scales each channel so its mean matches the overall
// gray mean. A zero-variance channel mean is floored at one count to keep
// the scale finite; on a degenerate image the stage degrades to identity.
func grayWorldWhiteBalance(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	var sumR, sumG, sumB float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			sumR += float64(img.Pix[i])
			sumG += float64(img.Pix[i+1])
			sumB += float64(img.Pix[i+2])
		}
	}

	n := float64(w * h)
	meanR := math.Max(sumR/n, 1)
	meanG := math.Max(sumG/n, 1)
	meanB := math.Max(sumB/n, 1)
	gray := (meanR + meanG + meanB) / 3.0

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := out.PixOffset(x, y)
			out.Pix[di] = clampByte(float64(img.Pix[si]) * gray / meanR)
			out.Pix[di+1] = clampByte(float64(img.Pix[si+1]) * gray / meanG)
			out.Pix[di+2] = clampByte(float64(img.Pix[si+2]) * gray / meanB)
			out.Pix[di+3] = 255
		}
	}

	return out
}

// claheLightness applies contrast-limited adaptive histogram equalization to
// the L* channel over a tiles×tiles grid, leaving a* and b* untouched.
// Per-tile histograms are clipped at clipLimit times the uniform bin height
// and the excess is redistributed evenly; pixel mappings are bilinearly
// interpolated between the four surrounding tile transfer functions.
func claheLightness(img *image.RGBA, clipLimit float64, tiles int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < tiles || h < tiles {
		return img
	}

	labs := make([]colorspace.Lab, w*h)
	l8 := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			lab := colorspace.RGBToLab(colorspace.RGB8(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
			labs[y*w+x] = lab
			l8[y*w+x] = clampByte(lab.L * 255.0 / 100.0)
		}
	}

	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles

	// Transfer function per tile.
	mappings := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[l8[y*w+x]]++
				}
			}

			total := (x1 - x0) * (y1 - y0)
			limit := int(clipLimit * float64(total) / 256.0)
			if limit < 1 {
				limit = 1
			}

			excess := 0
			for i := range hist {
				if hist[i] > limit {
					excess += hist[i] - limit
					hist[i] = limit
				}
			}
			share := excess / 256
			for i := range hist {
				hist[i] += share
			}

			cdf := 0
			m := &mappings[ty*tiles+tx]
			for i := range hist {
				cdf += hist[i]
				m[i] = uint8(cdf * 255 / total)
			}
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Position relative to tile centers.
			fx := (float64(x) - float64(tileW)/2.0) / float64(tileW)
			fy := (float64(y) - float64(tileH)/2.0) / float64(tileH)

			tx0 := int(math.Floor(fx))
			ty0 := int(math.Floor(fy))
			wx := fx - float64(tx0)
			wy := fy - float64(ty0)

			v := l8[y*w+x]
			v00 := float64(mappings[tileIndex(tx0, ty0, tiles)][v])
			v10 := float64(mappings[tileIndex(tx0+1, ty0, tiles)][v])
			v01 := float64(mappings[tileIndex(tx0, ty0+1, tiles)][v])
			v11 := float64(mappings[tileIndex(tx0+1, ty0+1, tiles)][v])

			newL8 := (v00*(1-wx)+v10*wx)*(1-wy) + (v01*(1-wx)+v11*wx)*wy

			lab := labs[y*w+x]
			lab.L = newL8 * 100.0 / 255.0
			r, g, bl := colorspace.LabToRGB(lab).Bytes()

			di := out.PixOffset(x, y)
			out.Pix[di] = r
			out.Pix[di+1] = g
			out.Pix[di+2] = bl
			out.Pix[di+3] = 255
		}
	}

	return out
}

func tileIndex(tx, ty, tiles int) int {
	if tx < 0 {
		tx = 0
	} else if tx >= tiles {
		tx = tiles - 1
	}
	if ty < 0 {
		ty = 0
	} else if ty >= tiles {
		ty = tiles - 1
	}
	return ty*tiles + tx
}

// gammaCorrect applies out = in^(1/gamma) through a 256-entry lookup table.
func gammaCorrect(img *image.RGBA, gamma float64) *image.RGBA {
	inv := 1.0 / gamma
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampByte(math.Pow(float64(i)/255.0, inv) * 255.0)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := out.PixOffset(x, y)
			out.Pix[di] = lut[img.Pix[si]]
			out.Pix[di+1] = lut[img.Pix[si+1]]
			out.Pix[di+2] = lut[img.Pix[si+2]]
			out.Pix[di+3] = 255
		}
	}

	return out
}

// bilateralDenoise is an edge-preserving smoothing filter: each output pixel
// is a weighted mean over a window, with weights falling off by both spatial
// distance and color distance. strength scales the window and both sigmas.
func bilateralDenoise(img *image.RGBA, strength float64) *image.RGBA {
	radius := int(math.Max(1, math.Round(4*strength)))
	sigmaSpace := 75.0 * strength / 25.0
	sigmaColor := 75.0 * strength

	spatial := make([]float64, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*(2*radius+1)+(dx+radius)] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ci := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			cr := float64(img.Pix[ci])
			cg := float64(img.Pix[ci+1])
			cb := float64(img.Pix[ci+2])

			var sumR, sumG, sumB, sumW float64
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					ni := img.PixOffset(b.Min.X+nx, b.Min.Y+ny)
					nr := float64(img.Pix[ni])
					ng := float64(img.Pix[ni+1])
					nb := float64(img.Pix[ni+2])

					colorD2 := (nr-cr)*(nr-cr) + (ng-cg)*(ng-cg) + (nb-cb)*(nb-cb)
					wgt := spatial[(dy+radius)*(2*radius+1)+(dx+radius)] *
						math.Exp(-colorD2/(2*sigmaColor*sigmaColor))

					sumR += nr * wgt
					sumG += ng * wgt
					sumB += nb * wgt
					sumW += wgt
				}
			}

			di := out.PixOffset(x, y)
			out.Pix[di] = clampByte(sumR / sumW)
			out.Pix[di+1] = clampByte(sumG / sumW)
			out.Pix[di+2] = clampByte(sumB / sumW)
			out.Pix[di+3] = 255
		}
	}

	return out
}

// nlmDenoise is a simplified non-local-means filter: 3×3 patches compared
// over an 11×11 search window, weight exp(-patchDist²/h²) with h scaled by
// strength. Smaller windows than the classic formulation, but the behavior
// is the same and the cost stays bounded on full-size uploads.
func nlmDenoise(img *image.RGBA, strength float64) *image.RGBA {
	const patchRadius = 1
	const searchRadius = 5
	hParam := 10.0 * strength

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	patchDist2 := func(x0, y0, x1, y1 int) float64 {
		var sum float64
		n := 0
		for dy := -patchRadius; dy <= patchRadius; dy++ {
			for dx := -patchRadius; dx <= patchRadius; dx++ {
				ax, ay := clampCoord(x0+dx, w), clampCoord(y0+dy, h)
				bx, by := clampCoord(x1+dx, w), clampCoord(y1+dy, h)
				ai := img.PixOffset(b.Min.X+ax, b.Min.Y+ay)
				bi := img.PixOffset(b.Min.X+bx, b.Min.Y+by)
				for c := 0; c < 3; c++ {
					d := float64(img.Pix[ai+c]) - float64(img.Pix[bi+c])
					sum += d * d
				}
				n += 3
			}
		}
		return sum / float64(n)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sumR, sumG, sumB, sumW float64
			for dy := -searchRadius; dy <= searchRadius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -searchRadius; dx <= searchRadius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					d2 := patchDist2(x, y, nx, ny)
					wgt := math.Exp(-d2 / (hParam * hParam))

					ni := img.PixOffset(b.Min.X+nx, b.Min.Y+ny)
					sumR += float64(img.Pix[ni]) * wgt
					sumG += float64(img.Pix[ni+1]) * wgt
					sumB += float64(img.Pix[ni+2]) * wgt
					sumW += wgt
				}
			}

			di := out.PixOffset(x, y)
			out.Pix[di] = clampByte(sumR / sumW)
			out.Pix[di+1] = clampByte(sumG / sumW)
			out.Pix[di+2] = clampByte(sumB / sumW)
			out.Pix[di+3] = 255
		}
	}

	return out
}

// Skin chroma window in YCbCr, the usual Chai-Ngan thresholds.
const (
	skinCbMin = 77
	skinCbMax = 127
	skinCrMin = 133
	skinCrMax = 173
)

// backgroundDesaturate reduces saturation outside the detected skin region
// so the 7-color budget favors faces. The binary skin mask is softened with
// a small box blur before scaling saturation, which avoids hard chroma seams
// at the mask boundary.
func backgroundDesaturate(img *image.RGBA, amount float64) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	mask := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			_, cb, cr := color.RGBToYCbCr(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			if cb >= skinCbMin && cb <= skinCbMax && cr >= skinCrMin && cr <= skinCrMax {
				mask[y*w+x] = 1
			}
		}
	}
	mask = boxBlurMask(mask, w, h, 2)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)

			c := colorful.Color{
				R: float64(img.Pix[si]) / 255.0,
				G: float64(img.Pix[si+1]) / 255.0,
				B: float64(img.Pix[si+2]) / 255.0,
			}
			hue, sat, val := c.Hsv()

			factor := 1.0 - amount*(1.0-mask[y*w+x])
			r8, g8, b8 := colorful.Hsv(hue, sat*factor, val).Clamped().RGB255()

			di := out.PixOffset(x, y)
			out.Pix[di] = r8
			out.Pix[di+1] = g8
			out.Pix[di+2] = b8
			out.Pix[di+3] = 255
		}
	}

	return out
}

// boxBlurMask is a separable box blur over a float mask.
func boxBlurMask(mask []float64, w, h, radius int) []float64 {
	tmp := make([]float64, w*h)
	out := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			n := 0
			for dx := -radius; dx <= radius; dx++ {
				nx := x + dx
				if nx < 0 || nx >= w {
					continue
				}
				sum += mask[y*w+nx]
				n++
			}
			tmp[y*w+x] = sum / float64(n)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			n := 0
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				sum += tmp[ny*w+x]
				n++
			}
			out[y*w+x] = sum / float64(n)
		}
	}

	return out
}

// unsharpMask boosts edges at grid scale: out = in + strength*(in - blur(in)),
// blur sigma 1.5. Strength beyond the safe range overshoots into clipping,
// so it is capped at maxEdgeBoost.
func unsharpMask(img *image.RGBA, strength float64) *image.RGBA {
	if strength > maxEdgeBoost {
		strength = maxEdgeBoost
	}

	g := gift.New(gift.UnsharpMask(1.5, float32(strength), 0))
	out := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(out, img)
	return out
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func clampCoord(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}
