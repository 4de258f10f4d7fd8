package analysis

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
	"github.com/ironsheep/image-terrain-mcp/internal/logger"
)

// DefaultEdgeThreshold is the magnitude at or below which edges are dropped.
const DefaultEdgeThreshold = 0.1

// Sobel kernels, indexed [ky+1][kx+1].
var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// EdgeDetector computes gradient-magnitude edge maps.
type EdgeDetector struct {
	log logrus.FieldLogger
}

// NewEdgeDetector returns a detector logging to l, or discarding diagnostics
// when l is nil.
func NewEdgeDetector(l logrus.FieldLogger) *EdgeDetector {
	if l == nil {
		l = logger.Discard()
	}
	return &EdgeDetector{log: l}
}

// DetectEdges computes the thresholded gradient magnitude of buf.
func DetectEdges(buf imaging.Buffer, threshold float64) EdgeMap {
	return NewEdgeDetector(nil).Detect(buf, threshold)
}

// GradientDirection returns the gradient angle of every pixel of buf.
func GradientDirection(buf imaging.Buffer) [][]float64 {
	return NewEdgeDetector(nil).Direction(buf)
}

// Detect convolves the luminance of buf with the Sobel kernels.
//
// Out-of-bounds samples replicate the nearest edge pixel. The magnitude
// sqrt(gx²+gy²) is clamped to [0,1]; magnitudes at or below threshold become
// 0, anything above keeps its intensity. The grid has the dimensions of buf
// and is indexed [storageY][x] (top-left origin).
//
// An empty buffer yields a zero-size map.
func (d *EdgeDetector) Detect(buf imaging.Buffer, threshold float64) EdgeMap {
	if imaging.IsEmpty(buf) {
		d.log.WithField("threshold", threshold).Warn("edge detection skipped: empty pixel buffer")
		return EdgeMap{Threshold: threshold, Magnitude: [][]float64{}}
	}

	width, height := buf.Width(), buf.Height()
	lum := luminanceGrid(buf)
	magnitude := make([][]float64, height)
	edges := 0

	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			gx, gy := sobelAt(lum, width, height, x, y)
			mag := math.Sqrt(gx*gx + gy*gy)
			if mag > 1 {
				mag = 1
			}
			if mag <= threshold {
				continue
			}
			magnitude[y][x] = mag
			edges++
		}
	}

	d.log.WithFields(logrus.Fields{
		"width":     width,
		"height":    height,
		"threshold": threshold,
		"edges":     edges,
	}).Debug("edge detection complete")

	return EdgeMap{
		Width:     width,
		Height:    height,
		Threshold: threshold,
		Magnitude: magnitude,
	}
}

// Direction returns atan2(gy, gx) per pixel in radians, in (-π, π], using
// the same kernels and padding as Detect. No threshold is applied; flat
// regions report 0.
func (d *EdgeDetector) Direction(buf imaging.Buffer) [][]float64 {
	if imaging.IsEmpty(buf) {
		d.log.Warn("gradient direction skipped: empty pixel buffer")
		return [][]float64{}
	}

	width, height := buf.Width(), buf.Height()
	lum := luminanceGrid(buf)
	angles := make([][]float64, height)
	for y := 0; y < height; y++ {
		angles[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			gx, gy := sobelAt(lum, width, height, x, y)
			a := math.Atan2(gy, gx)
			if a == -math.Pi {
				a = math.Pi
			}
			angles[y][x] = a
		}
	}
	return angles
}

// EdgePositions lists the cells of edges whose magnitude exceeds threshold,
// in row-major order. Coordinates are storage (top-left origin); unlike
// cluster and band members they are not flipped.
func EdgePositions(edges EdgeMap, threshold float64) []Point {
	points := []Point{}
	for y, row := range edges.Magnitude {
		for x, v := range row {
			if v > threshold {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	return points
}

// luminanceGrid converts buf to per-pixel luminance, indexed [y][x].
func luminanceGrid(buf imaging.Buffer) [][]float64 {
	width, height := buf.Width(), buf.Height()
	grid := make([][]float64, height)
	for y := 0; y < height; y++ {
		grid[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			grid[y][x] = colorspace.Luminance(buf.At(x, y))
		}
	}
	return grid
}

// sobelAt returns the horizontal and vertical gradient at (x, y).
//
// Positive and negative kernel taps are summed separately and subtracted at the
// end, so a window of identical samples yields exactly zero.
func sobelAt(lum [][]float64, width, height, x, y int) (gx, gy float64) {
	var xPos, xNeg, yPos, yNeg float64
	for ky := -1; ky <= 1; ky++ {
		py := clamp(y+ky, 0, height-1)
		for kx := -1; kx <= 1; kx++ {
			px := clamp(x+kx, 0, width-1)
			v := lum[py][px]
			switch k := sobelX[ky+1][kx+1]; {
			case k > 0:
				xPos += v * k
			case k < 0:
				xNeg -= v * k
			}
			switch k := sobelY[ky+1][kx+1]; {
			case k > 0:
				yPos += v * k
			case k < 0:
				yNeg -= v * k
			}
		}
	}
	return xPos - xNeg, yPos - yNeg
}

// clamp constrains val to [lo, hi]; used for replicate padding.
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
