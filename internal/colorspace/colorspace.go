// Package colorspace implements the color conversions the pattern pipeline
// depends on: sRGB companding, CIE XYZ under D65, CIELAB and OKLab, plus the
// perceptual distance functions used for palette matching and quality
// metrics. All functions are pure and total: out-of-range inputs are clamped,
// never rejected.
package colorspace

import "math"

// RGB is an encoded (gamma-companded) sRGB color with channels in [0,1].
type RGB struct {
	R, G, B float64
}

// XYZ is a CIE 1931 XYZ color under the D65 illuminant, Y normalized to 1.
type XYZ struct {
	X, Y, Z float64
}

// Lab is a CIELAB color: L* in [0,100], a*/b* roughly [-128,128].
type Lab struct {
	L, A, B float64
}

/// OKLab is an OKLab color: L in [0,1], a/b roughly [-0.4,0.4].
type OKLab struct {
	L, A, B float64
}

// D65 reference white point.
const (
	whiteX = 0.95047
	whiteY = 1.00000
	whiteZ = 1.08883
)

// SRGBToLinear removes the sRGB companding curve from a single channel.
func SRGBToLinear(c float64) float64 {
	c = clamp01(c)
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// LinearToSRGB applies the sRGB companding curve to a single channel.
func LinearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		c = c * 12.92
	} else {
		c = 1.055*math.Pow(c, 1.0/2.4) - 0.055
	}
	return clamp01(c)
}

// RGBToXYZ converts encoded sRGB to XYZ using the standard D65 matrix.
func RGBToXYZ(c RGB) XYZ {
	r := SRGBToLinear(c.R)
	g := SRGBToLinear(c.G)
	b := SRGBToLinear(c.B)

	return XYZ{
		X: r*0.4124564 + g*0.3575761 + b*0.1804375,
		Y: r*0.2126729 + g*0.7151522 + b*0.0721750,
		Z: r*0.0193339 + g*0.1191920 + b*0.9503041,
	}
}

// XYZToRGB converts XYZ back to encoded sRGB. Channels outside the sRGB
// gamut are clamped to [0,1].
func XYZToRGB(c XYZ) RGB {
	r := c.X*3.2404542 + c.Y*-1.5371385 + c.Z*-0.4985314
	g := c.X*-0.9692660 + c.Y*1.8760108 + c.Z*0.0415560
	b := c.X*0.0556434 + c.Y*-0.2040259 + c.Z*1.0572252

	return RGB{
		R: LinearToSRGB(r),
		G: LinearToSRGB(g),
		B: LinearToSRGB(b),
	}
}

// XYZToLab converts XYZ to CIELAB using the CIE formula with delta = 6/29.
func XYZToLab(c XYZ) Lab {
	fx := labF(c.X / whiteX)
	fy := labF(c.Y / whiteY)
	fz := labF(c.Z / whiteZ)

	return Lab{
		L: 116.0*fy - 16.0,
		A: 500.0 * (fx - fy),
		B: 200.0 * (fy - fz),
	}
}

// LabToXYZ inverts XYZToLab.
func LabToXYZ(c Lab) XYZ {
	fy := (c.L + 16.0) / 116.0
	fx := c.A/500.0 + fy
	fz := fy - c.B/200.0

	return XYZ{
		X: labFInv(fx) * whiteX,
		Y: labFInv(fy) * whiteY,
		Z: labFInv(fz) * whiteZ,
	}
}

// RGBToLab converts encoded sRGB to CIELAB.
func RGBToLab(c RGB) Lab {
	return XYZToLab(RGBToXYZ(c))
}

// LabToRGB converts CIELAB to encoded sRGB, clamping to gamut.
func LabToRGB(c Lab) RGB {
	return XYZToRGB(LabToXYZ(c))
}

// RGBToOKLab converts encoded sRGB to OKLab using the published matrices.
// Reference: https://bottosson.github.io/posts/oklab/
func RGBToOKLab(c RGB) OKLab {
	r := SRGBToLinear(c.R)
	g := SRGBToLinear(c.G)
	b := SRGBToLinear(c.B)

	l := 0.4122214708*r + 0.5363325363*g + 0.0514459929*b
	m := 0.2119034982*r + 0.6806995451*g + 0.1073969566*b
	s := 0.0883024619*r + 0.2817188376*g + 0.6299787005*b

	l = cbrt(l)
	m = cbrt(m)
	s = cbrt(s)

	return OKLab{
		L: 0.2104542553*l + 0.7936177850*m - 0.0040720468*s,
		A: 1.9779984951*l - 2.4285922050*m + 0.4505937099*s,
		B: 0.0259040371*l + 0.7827717662*m - 0.8086757660*s,
	}
}

// OKLabToRGB converts OKLab to encoded sRGB, clamping to gamut.
func OKLabToRGB(c OKLab) RGB {
	l := c.L + 0.3963377774*c.A + 0.2158037573*c.B
	m := c.L - 0.1055613458*c.A - 0.0638541728*c.B
	s := c.L - 0.0894841775*c.A - 1.2914855480*c.B

	l = l * l * l
	m = m * m * m
	s = s * s * s

	r := 4.0767416621*l - 3.3077115913*m + 0.2309699292*s
	g := -1.2684380046*l + 2.6097574011*m - 0.3413193965*s
	b := -0.0041960863*l - 0.7034186147*m + 1.7076147010*s

	return RGB{
		R: LinearToSRGB(r),
		G: LinearToSRGB(g),
		B: LinearToSRGB(b),
	}
}

// DeltaE is the CIE76 color difference: Euclidean distance in CIELAB.
// It is a strict metric, which the ditherer relies on for monotonic
// nearest-color behavior.
func DeltaE(a, b Lab) float64 {
	dl := a.L - b.L
	da := a.A - b.A
	db := a.B - b.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// DeltaEOK is the Euclidean distance in OKLab. OKLab is close enough to
// perceptually uniform that plain distance is used there.
func DeltaEOK(a, b OKLab) float64 {
	dl := a.L - b.L
	da := a.A - b.A
	db := a.B - b.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// RGB8 builds an RGB from 8-bit channel values.
func RGB8(r, g, b uint8) RGB {
	return RGB{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
}

// Bytes returns the 8-bit channel values of c, rounded and clamped.
func (c RGB) Bytes() (uint8, uint8, uint8) {
	return quantize8(c.R), quantize8(c.G), quantize8(c.B)
}

func quantize8(c float64) uint8 {
	v := int(math.Round(clamp01(c) * 255.0))
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return uint8(v)
}

const labDelta = 6.0 / 29.0

func labF(t float64) float64 {
	if t > labDelta*labDelta*labDelta {
		return math.Cbrt(t)
	}
	return t/(3.0*labDelta*labDelta) + 4.0/29.0
}

func labFInv(t float64) float64 {
	if t > labDelta {
		return t * t * t
	}
	return 3.0 * labDelta * labDelta * (t - 4.0/29.0)
}

// cbrt is a sign-preserving cube root for LMS values that can go slightly
// negative for out-of-gamut inputs.
func cbrt(v float64) float64 {
	return math.Copysign(math.Cbrt(math.Abs(v)), v)
}

func clamp01(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
