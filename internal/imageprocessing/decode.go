// Package imageprocessing handles photo intake: decoding uploads with their
// EXIF orientation applied, rotating and cropping in source pixel
// coordinates before the pattern pipeline takes over.
package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/edwvee/exiffix"
)

// MaxUploadBytes caps accepted upload size. Phone photos land well under
// this; anything bigger is almost certainly not a photo.
const MaxUploadBytes = 20 << 20

// DecodeUpload decodes an uploaded photo and applies its EXIF orientation,
// so all downstream coordinates are in display orientation. Returns the
// image and the detected format name.
func DecodeUpload(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty upload")
	}
	if len(data) > MaxUploadBytes {
		return nil, "", fmt.Errorf("upload of %d bytes exceeds %d byte limit", len(data), MaxUploadBytes)
	}

	img, format, err := exiffix.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}
