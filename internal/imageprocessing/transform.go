package imageprocessing

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// CropRect selects a region in source pixel coordinates, after EXIF
// orientation and rotation have been applied.
type CropRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rotate rotates an image clockwise by the given degrees, expanding the
// canvas so no content is clipped. Exposed pixels outside the original are
// transparent black. Multiples of 360 and zero return the input unchanged.
func Rotate(img image.Image, degrees float64) image.Image {
	deg := math.Mod(degrees, 360)
	if deg == 0 {
		return img
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	outW := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin)))
	outH := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos)))
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))

	// Rotate around the source center, then recenter on the expanded canvas.
	cx, cy := w/2, h/2
	tx := float64(outW)/2 - (cos*cx - sin*cy)
	ty := float64(outH)/2 - (sin*cx + cos*cy)

	m := f64.Aff3{
		cos, -sin, tx - cos*float64(b.Min.X) + sin*float64(b.Min.Y),
		sin, cos, ty - sin*float64(b.Min.X) - cos*float64(b.Min.Y),
	}
	xdraw.CatmullRom.Transform(out, m, img, b, xdraw.Over, nil)
	return out
}

// Crop copies the selected region out of the image. The rectangle must lie
// fully inside the image bounds.
func Crop(img image.Image, rect CropRect) (*image.RGBA, error) {
	if rect.W <= 0 || rect.H <= 0 {
		return nil, fmt.Errorf("crop dimensions must be positive, got %dx%d", rect.W, rect.H)
	}

	b := img.Bounds()
	if rect.X < 0 || rect.Y < 0 || rect.X+rect.W > b.Dx() || rect.Y+rect.H > b.Dy() {
		return nil, fmt.Errorf("crop (%d,%d %dx%d) outside image %dx%d",
			rect.X, rect.Y, rect.W, rect.H, b.Dx(), b.Dy())
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.W, rect.H))
	src := image.Pt(b.Min.X+rect.X, b.Min.Y+rect.Y)
	draw.Draw(out, out.Bounds(), img, src, draw.Src)
	return out, nil
}
