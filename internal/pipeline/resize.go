package pipeline

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// ResizeToGrid resamples an image to exactly w×h cells using Catmull-Rom
// bicubic interpolation. The caller guarantees the source aspect ratio
// matches the grid; no correction happens here.
func ResizeToGrid(img image.Image, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return out
}
