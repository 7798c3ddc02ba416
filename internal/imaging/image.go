// Package imaging validates uploaded images and normalises them to PNG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned for uploads that cannot be decoded.
var ErrInvalidImage = errors.New("invalid image")

// Image is a decoded upload re-encoded as PNG.
type Image struct {
	Data   []byte // PNG bytes
	Width  int
	Height int
	Format string // format of the original upload
}

// Prepare decodes data and re-encodes it as PNG. When maxSide is positive,
// images whose longer side exceeds it are scaled down keeping aspect ratio.
func Prepare(data []byte, maxSide int) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrInvalidImage)
	}

	if w, h := fitWithin(bounds.Dx(), bounds.Dy(), maxSide); w != bounds.Dx() || h != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := img.Bounds()
	return &Image{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// fitWithin returns the dimensions after scaling so that neither side exceeds maxSide.
func fitWithin(width, height, maxSide int) (int, int) {
	if maxSide <= 0 || (width <= maxSide && height <= maxSide) {
		return width, height
	}
	if width > height {
		return maxSide, max(1, int(float64(height)*float64(maxSide)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxSide)/float64(height))), maxSide
}
