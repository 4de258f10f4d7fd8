package analysis

import (
	"time"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
)

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToReported converts a storage coordinate (top-left origin) into the
// bottom-left origin used by cluster and height band members.
func ToReported(x, storageY, height int) Point {
	return Point{X: x, Y: height - 1 - storageY}
}

// ToStorage converts a reported (bottom-left origin) point back to storage
// coordinates for an image of the given height.
func ToStorage(p Point, height int) (x, storageY int) {
	return p.X, height - 1 - p.Y
}

// Cluster is one group of similar pixel colors.
type Cluster struct {
	// Label defaults to "Cluster_N", N being the 1-based index before sorting.
	Label    string           `json:"label"`
	Centroid colorspace.Color `json:"centroid"`
	Hex      string           `json:"hex"`
	// Coverage is the fraction of all pixels in this cluster.
	Coverage float64 `json:"coverage"`
	Size     int     `json:"size"`
	// Members uses bottom-left origin coordinates.
	Members []Point `json:"members,omitempty"`
}

// HeightBand is a contiguous luminance range, one terrain elevation tier.
//
// A pixel belongs to the band when Min <= luminance < Max. The topmost band's
// Max lies slightly above 1 so full-white pixels are included.
type HeightBand struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`

	Coverage         float64 `json:"coverage"`
	Size             int     `json:"size"`
	MeanBrightness   float64 `json:"mean_brightness"`
	StdDevBrightness float64 `json:"stddev_brightness"`

	// Members uses bottom-left origin coordinates.
	Members []Point `json:"members,omitempty"`
}

// Contains reports whether a luminance value falls within [Min, Max).
func (b HeightBand) Contains(luminance float64) bool {
	return luminance >= b.Min && luminance < b.Max
}

// EdgeMap is a dense gradient magnitude grid in storage orientation.
//
// Magnitude[y][x] is in [0,1]; cells at or below Threshold are 0.
type EdgeMap struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Threshold float64     `json:"threshold"`
	Magnitude [][]float64 `json:"magnitude,omitempty"`
}

// At returns the magnitude at column x, storage row y.
func (m EdgeMap) At(x, y int) float64 {
	return m.Magnitude[y][x]
}

// Count returns the number of cells whose magnitude exceeds threshold.
func (m EdgeMap) Count(threshold float64) int {
	count := 0
	for _, row := range m.Magnitude {
		for _, v := range row {
			if v > threshold {
				count++
			}
		}
	}
	return count
}

// Density returns the fraction of cells whose magnitude exceeds threshold.
func (m EdgeMap) Density(threshold float64) float64 {
	total := m.Width * m.Height
	if total == 0 {
		return 0
	}
	return float64(m.Count(threshold)) / float64(total)
}

// Result aggregates one analysis run.
//
// The caller owns the Result; nothing in this package retains a reference to it.
type Result struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Clusters []Cluster    `json:"clusters"`
	Bands    []HeightBand `json:"bands"`
	Edges    EdgeMap      `json:"edges"`

	Params     Params `json:"params"`
	Iterations int    `json:"iterations"`
	Converged  bool   `json:"converged"`

	CreatedAt time.Time     `json:"created_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Empty reports whether the result carries no analyzed pixels.
func (r *Result) Empty() bool {
	return r == nil || r.Width == 0 || r.Height == 0
}
