package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// PrepareOptions controls how a source image is reduced before analysis.
type PrepareOptions struct {
	// Region restricts analysis to a sub-rectangle. Nil analyzes the whole image.
	Region *Region

	// MaxDimension caps the longest side in pixels. The image is downscaled
	// with aspect ratio preserved when it is larger. Zero disables scaling.
	MaxDimension int
}

// Prepare crops and downscales img according to opts.
//
// Parameters:
//   - img: The decoded source image. Its bounds need not start at (0,0).
//   - opts: The optional region and size limit to apply.
//
// Returns:
//   - image.Image: The prepared image. When a crop or resize happened its
//     origin is (0,0); otherwise img is returned as is.
//   - error: Non-nil if img or the region cannot be analyzed.
//
// The crop is applied first, in source coordinates. The downscale then fits the
// cropped image within MaxDimension x MaxDimension using Lanczos resampling.
//
// # Errors
//
//   - Returns ErrEmptyImage if img is nil or has no pixels
//   - Returns ErrInvalidRegion (wrapped) if the region is empty or not fully
//     inside the image bounds
func Prepare(img image.Image, opts PrepareOptions) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	bounds := img.Bounds()
	out := img

	if r := opts.Region; r != nil {
		if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
			return nil, fmt.Errorf("%w: x1 must be < x2, y1 must be < y2", ErrInvalidRegion)
		}
		if !r.Rect().In(bounds) {
			return nil, fmt.Errorf("%w: (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
				ErrInvalidRegion, r.X1, r.Y1, r.X2, r.Y2,
				bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
		}
		out = imaging.Crop(out, r.Rect())
	}

	if limit := opts.MaxDimension; limit > 0 {
		b := out.Bounds()
		if b.Dx() > limit || b.Dy() > limit {
			out = imaging.Fit(out, limit, limit, imaging.Lanczos)
		}
	}

	return out, nil
}

// LoadBuffer loads path through cache, prepares it and wraps it as a Buffer.
func LoadBuffer(cache *ImageCache, path string, opts PrepareOptions) (*ImageBuffer, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	prepared, err := Prepare(img, opts)
	if err != nil {
		return nil, err
	}
	return FromImage(prepared), nil
}
