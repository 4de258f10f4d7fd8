package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
)

// Buffer is a read-only rectangular grid of color samples.
//
// Storage is row-major with the origin at the top-left corner: y=0 is the
// topmost row. Implementations must not change their contents after
// construction; analysis code reads them from a single call at a time and
// never writes to them.
type Buffer interface {
	// Width is the number of columns.
	Width() int
	// Height is the number of rows.
	Height() int
	// At returns the sample at column x and storage row y.
	// Callers guarantee 0 <= x < Width() and 0 <= y < Height().
	At(x, y int) colorspace.Color
}

// IsEmpty reports whether buf is nil or has no pixels.
func IsEmpty(buf Buffer) bool {
	if buf == nil {
		return true
	}
	return buf.Width() <= 0 || buf.Height() <= 0
}

// FloatBuffer holds normalized float samples.
type FloatBuffer struct {
	width  int
	height int
	pix    []colorspace.Color
}

// NewFloatBuffer wraps pix as a width x height buffer.
//
// The slice is copied, so later changes by the caller are not observed.
// Returns an error if len(pix) does not equal width*height or a dimension is negative.
func NewFloatBuffer(width, height int, pix []colorspace.Color) (*FloatBuffer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid buffer dimensions %dx%d", width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("buffer size mismatch: %d samples for %dx%d", len(pix), width, height)
	}
	cp := make([]colorspace.Color, len(pix))
	copy(cp, pix)
	return &FloatBuffer{width: width, height: height, pix: cp}, nil
}

// Width implements Buffer.
func (b *FloatBuffer) Width() int {
	if b == nil {
		return 0
	}
	return b.width
}

// Height implements Buffer.
func (b *FloatBuffer) Height() int {
	if b == nil {
		return 0
	}
	return b.height
}

// At implements Buffer.
func (b *FloatBuffer) At(x, y int) colorspace.Color {
	return b.pix[y*b.width+x]
}

// ImageBuffer exposes an 8-bit image as a Buffer.
//
// Samples are stored straight (non-premultiplied), and the alpha channel is
// ignored: every pixel reports its stored red, green and blue bytes whatever
// its opacity, including fully transparent pixels.
type ImageBuffer struct {
	img *image.NRGBA
}

// FromImage converts any image.Image into a Buffer.
//
// Images that are already *image.NRGBA are wrapped without copying; other
// color models are converted once with imaging.Clone. Sources that were
// premultiplied before decoding (such as *image.RGBA) carry no color for
// transparent pixels, so those read as whatever the conversion recovers.
// The returned buffer's (0,0) is the image's top-left pixel regardless of
// the source bounds origin.
func FromImage(img image.Image) *ImageBuffer {
	if img == nil {
		return &ImageBuffer{}
	}
	if n, ok := img.(*image.NRGBA); ok {
		return &ImageBuffer{img: n}
	}
	return &ImageBuffer{img: imaging.Clone(img)}
}

// Width implements Buffer.
func (b *ImageBuffer) Width() int {
	if b == nil || b.img == nil {
		return 0
	}
	return b.img.Rect.Dx()
}

// Height implements Buffer.
func (b *ImageBuffer) Height() int {
	if b == nil || b.img == nil {
		return 0
	}
	return b.img.Rect.Dy()
}

// At implements Buffer.
func (b *ImageBuffer) At(x, y int) colorspace.Color {
	off := b.img.PixOffset(x+b.img.Rect.Min.X, y+b.img.Rect.Min.Y)
	p := b.img.Pix[off : off+3 : off+3]
	return colorspace.FromRGB8(p[0], p[1], p[2])
}
