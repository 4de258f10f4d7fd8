package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
)

// newBuffer builds a width x height buffer whose pixel at storage (x, y) is fill(x, y).
func newBuffer(t *testing.T, width, height int, fill func(x, y int) colorspace.Color) *imaging.FloatBuffer {
	t.Helper()
	pix := make([]colorspace.Color, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pix = append(pix, fill(x, y))
		}
	}
	buf, err := imaging.NewFloatBuffer(width, height, pix)
	require.NoError(t, err)
	return buf
}

func uniform(c colorspace.Color) func(x, y int) colorspace.Color {
	return func(int, int) colorspace.Color { return c }
}

func gray(v float64) colorspace.Color {
	return colorspace.Color{R: v, G: v, B: v}
}

// splitVertical paints columns left of boundary with left, the rest with right.
func splitVertical(boundary int, left, right colorspace.Color) func(x, y int) colorspace.Color {
	return func(x, _ int) colorspace.Color {
		if x < boundary {
			return left
		}
		return right
	}
}

// landscape is a deterministic multi-region test image: water, grass, rock
// and snow bands with a diagonal ridge.
func landscape(x, y int) colorspace.Color {
	switch {
	case x+y < 6:
		return colorspace.Color{R: 0.95, G: 0.95, B: 0.97}
	case y > 12:
		return colorspace.Color{R: 0.1, G: 0.2, B: 0.6}
	case x > 10:
		return colorspace.Color{R: 0.45, G: 0.42, B: 0.4}
	default:
		return colorspace.Color{R: 0.2 + float64(x%3)*0.02, G: 0.55, B: 0.2}
	}
}

// gradientRamp spreads luminance evenly from 0 at x=0 to 1 at the last column.
func gradientRamp(width int) func(x, y int) colorspace.Color {
	return func(x, _ int) colorspace.Color {
		return gray(float64(x) / float64(width-1))
	}
}

// memberSet flattens member coordinates into a set, failing on duplicates.
func memberSet(t *testing.T, groups ...[]Point) map[Point]bool {
	t.Helper()
	seen := make(map[Point]bool)
	for _, g := range groups {
		for _, p := range g {
			require.False(t, seen[p], "point %v reported twice", p)
			seen[p] = true
		}
	}
	return seen
}
