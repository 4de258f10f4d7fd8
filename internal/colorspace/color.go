package colorspace

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an RGB color with normalized channel intensities.
//
// Each component nominally ranges from 0 to 1. Values produced by averaging
// (cluster centroids) always stay inside that range.
type Color struct {
	R float64 `json:"r"` // Red intensity (0-1)
	G float64 `json:"g"` // Green intensity (0-1)
	B float64 `json:"b"` // Blue intensity (0-1)
}

// Black and White are the extremes of the normalized RGB cube.
var (
	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
)

// Luminance weights (ITU-R BT.601).
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// MaxLabDistance is the empirical maximum Lab distance (L* on a 0-100 scale)
// used to normalize PerceptualDistance.
const MaxLabDistance = 100.0

// FromRGB8 builds a Color from 8-bit channel values.
func FromRGB8(r, g, b uint8) Color {
	return Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
}

// RGB8 returns the color as rounded 8-bit channel values.
// Out-of-range channels are clamped first.
func (c Color) RGB8() (r, g, b uint8) {
	return c.colorful().Clamped().RGB255()
}

// Hex returns the color in "#rrggbb" form.
func (c Color) Hex() string {
	return c.colorful().Clamped().Hex()
}

// Clamped returns the color with every channel forced into [0, 1].
func (c Color) Clamped() Color {
	return fromColorful(c.colorful().Clamped())
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%.4f, %.4f, %.4f)", c.R, c.G, c.B)
}

// ParseHex parses "#rgb" or "#rrggbb" notation.
func ParseHex(s string) (Color, error) {
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return fromColorful(c), nil
}

// DistanceSquared returns the sum of squared per-channel differences in RGB space.
//
// This is the metric used by clustering: it preserves nearest-neighbor ordering
// while avoiding a square root per comparison.
func DistanceSquared(a, b Color) float64 {
	dr := a.R - b.R
	dg := a.G - b.G
	db := a.B - b.B
	return dr*dr + dg*dg + db*db
}

// PerceptualDistance returns the normalized CIE L*a*b* distance between two colors.
//
// Both colors are gamma-decoded from sRGB, converted to XYZ with the D65 white
// point, and mapped to L*a*b* with the cube-root transform. The Euclidean
// distance in that space is divided by MaxLabDistance and clamped to [0, 1].
//
// Returns 0 for identical colors; black vs white is the maximum (1).
func PerceptualDistance(a, b Color) float64 {
	// go-colorful reports L*a*b* scaled by 1/100, which is the normalization we want.
	d := a.colorful().DistanceLab(b.colorful())
	return clampUnit(d)
}

// Luminance returns the perceived brightness of a color in [0, 1].
func Luminance(c Color) float64 {
	return clampUnit(lumaR*c.R + lumaG*c.G + lumaB*c.B)
}

// Lerp blends two colors linearly; t=0 yields a, t=1 yields b.
func Lerp(a, b Color, t float64) Color {
	return Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
	}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

func fromColorful(c colorful.Color) Color {
	return Color{R: c.R, G: c.G, B: c.B}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
