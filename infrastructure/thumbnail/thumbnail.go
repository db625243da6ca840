// Package thumbnail implements the ThumbnailMaker component (C2) from
// spec.md §4.2: a bounded-box, EXIF-orientation-aware resize, mirroring
// the PIL ImageOps.exif_transpose + Image.thumbnail approach used by
// the implementation this pipeline's behavior was distilled from.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"
)

// Maker resizes source images to a bounded thumbnail. Failure is
// always non-fatal to the caller: a photo with no thumbnail is still
// fully visible (spec.md §4.7 step 3).
type Maker struct {
	maxEdge int
}

func New(maxEdge int) *Maker {
	if maxEdge <= 0 {
		maxEdge = 512
	}
	return &Maker{maxEdge: maxEdge}
}

// Result is the generated thumbnail's encoded bytes and pixel size.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// Make decodes src (auto-orienting by its embedded EXIF tag), resizes
// it to fit within maxEdge x maxEdge preserving aspect ratio, and
// re-encodes as JPEG.
func (m *Maker) Make(src io.Reader) (Result, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("thumbnail: decode: %w", err)
	}

	resized := fitWithin(img, m.maxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return Result{}, fmt.Errorf("thumbnail: encode: %w", err)
	}

	bounds := resized.Bounds()
	return Result{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// fitWithin scales img down so neither edge exceeds maxEdge, leaving
// it untouched if it already fits.
func fitWithin(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxEdge, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxEdge, imaging.Lanczos)
}
