package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
)

func TestIsEmpty(t *testing.T) {
	var nilFloat *FloatBuffer
	var nilImage *ImageBuffer

	tests := []struct {
		name string
		buf  Buffer
		want bool
	}{
		{"nil interface", nil, true},
		{"typed nil float", nilFloat, true},
		{"typed nil image", nilImage, true},
		{"zero rgba", FromImage(nil), true},
		{"empty image", FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0))), true},
		{"one pixel", FromImage(uniformImage(1, 1, color.White)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmpty(tt.buf); got != tt.want {
				t.Errorf("IsEmpty: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFloatBuffer(t *testing.T) {
	pix := []colorspace.Color{colorspace.Black, colorspace.White, {R: 1}, {G: 1}}
	buf, err := NewFloatBuffer(2, 2, pix)
	if err != nil {
		t.Fatalf("NewFloatBuffer failed: %v", err)
	}

	// Mutating the caller's slice must not leak into the buffer.
	pix[0] = colorspace.White
	if buf.At(0, 0) != colorspace.Black {
		t.Error("buffer should copy its input")
	}
	if buf.At(1, 0) != colorspace.White || buf.At(0, 1) != (colorspace.Color{R: 1}) {
		t.Error("samples should be stored row-major")
	}

	if _, err := NewFloatBuffer(3, 2, pix); err == nil {
		t.Error("size mismatch should fail")
	}
	if _, err := NewFloatBuffer(-1, 0, nil); err == nil {
		t.Error("negative dimensions should fail")
	}
}

func TestFromImage_NonZeroOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 20, 14, 22))
	img.Set(10, 20, color.RGBA{255, 0, 0, 255})
	img.Set(13, 21, color.RGBA{0, 0, 255, 255})

	buf := FromImage(img)
	if buf.Width() != 4 || buf.Height() != 2 {
		t.Fatalf("dimensions: got %dx%d, want 4x2", buf.Width(), buf.Height())
	}
	if got := buf.At(0, 0); got != (colorspace.Color{R: 1}) {
		t.Errorf("At(0,0): got %v, want red", got)
	}
	if got := buf.At(3, 1); got != (colorspace.Color{B: 1}) {
		t.Errorf("At(3,1): got %v, want blue", got)
	}
}

func TestFromImage_ConvertsColorModels(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.SetGray(0, 0, color.Gray{Y: 255})
	gray.SetGray(1, 0, color.Gray{Y: 0})

	buf := FromImage(gray)
	if got := buf.At(0, 0); got != colorspace.White {
		t.Errorf("white gray pixel: got %v", got)
	}
	if got := buf.At(1, 0); got != colorspace.Black {
		t.Errorf("black gray pixel: got %v", got)
	}
}

func TestImageBuffer_IgnoresAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	img.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 255})
	img.SetNRGBA(1, 0, color.NRGBA{200, 100, 50, 128})
	img.SetNRGBA(2, 0, color.NRGBA{201, 99, 37, 3})
	img.SetNRGBA(3, 0, color.NRGBA{255, 0, 0, 0})

	buf := FromImage(img)
	tests := []struct {
		name string
		x    int
		want [3]uint8
	}{
		{"opaque", 0, [3]uint8{200, 100, 50}},
		{"half alpha", 1, [3]uint8{200, 100, 50}},
		{"low alpha", 2, [3]uint8{201, 99, 37}},
		{"transparent", 3, [3]uint8{255, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := buf.At(tt.x, 0).RGB8()
			if got := [3]uint8{r, g, b}; got != tt.want {
				t.Errorf("At(%d,0): got %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestFromImage_NRGBASubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(2, 3, color.NRGBA{10, 20, 30, 0})

	sub := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.NRGBA)
	buf := FromImage(sub)
	if buf.Width() != 2 || buf.Height() != 2 {
		t.Fatalf("dimensions: got %dx%d, want 2x2", buf.Width(), buf.Height())
	}
	if got := buf.At(0, 1); got != colorspace.FromRGB8(10, 20, 30) {
		t.Errorf("At(0,1): got %v, want rgb(10,20,30)", got)
	}
}
