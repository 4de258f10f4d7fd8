package analysis

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
	"github.com/ironsheep/image-terrain-mcp/internal/logger"
)

// BandEpsilon widens the topmost band past 1.0 so full-brightness pixels are
// included. The exact magnitude is not part of the contract.
const BandEpsilon = 1e-4

// HistogramBins is the resolution of the adaptive brightness histogram.
const HistogramBins = 256

// MaxBands is the largest band count the extractor accepts.
const MaxBands = 256

// HeightExtractor partitions pixel brightness into ordered height bands.
type HeightExtractor struct {
	log logrus.FieldLogger
}

// NewHeightExtractor returns an extractor logging to l, or discarding
// diagnostics when l is nil.
func NewHeightExtractor(l logrus.FieldLogger) *HeightExtractor {
	if l == nil {
		l = logger.Discard()
	}
	return &HeightExtractor{log: l}
}

// ExtractFixed divides brightness into n equal-width bands.
func ExtractFixed(buf imaging.Buffer, n int) []HeightBand {
	return NewHeightExtractor(nil).Fixed(buf, n)
}

// ExtractAdaptive divides brightness into n bands of roughly equal population.
func ExtractAdaptive(buf imaging.Buffer, n int) []HeightBand {
	return NewHeightExtractor(nil).Adaptive(buf, n)
}

// ExtractHeightBands selects the adaptive or fixed-width strategy.
func ExtractHeightBands(buf imaging.Buffer, n int, adaptive bool) []HeightBand {
	return NewHeightExtractor(nil).Extract(buf, n, adaptive)
}

// Extract dispatches to Adaptive or Fixed.
func (e *HeightExtractor) Extract(buf imaging.Buffer, n int, adaptive bool) []HeightBand {
	if adaptive {
		return e.Adaptive(buf, n)
	}
	return e.Fixed(buf, n)
}

// Fixed divides [0,1] into n contiguous bands of width 1/n.
//
// Band i covers [i/n, (i+1)/n); the last band's upper bound is 1+BandEpsilon.
// Each pixel joins the first band, in ascending order, containing its
// luminance. Returns an empty slice for an empty buffer or n outside
// [1, MaxBands].
func (e *HeightExtractor) Fixed(buf imaging.Buffer, n int) []HeightBand {
	if !e.valid(buf, n, "fixed") {
		return []HeightBand{}
	}

	bounds := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		bounds[i] = float64(i) / float64(n)
	}
	bounds[n] = 1 + BandEpsilon

	bands := e.populate(buf, bounds)
	e.log.WithFields(logrus.Fields{"bands": n, "mode": "fixed"}).Debug("height bands extracted")
	return bands
}

// Adaptive chooses band limits so each band holds about totalPixels/n pixels.
//
// Luminance is binned into a HistogramBins-bin histogram (bin = floor(l*256),
// clamped to the last bin). Walking the bins in ascending order, a threshold is
// cut at the upper edge of the bin where the cumulative count first reaches
// each quota total*j/n, j = 1..n-1. Several quotas reached within one bin yield
// empty bands sharing that limit. Band populations differ from total/n by at
// most one bin's worth of pixels.
//
// Returns an empty slice for an empty buffer or n outside [1, MaxBands].
func (e *HeightExtractor) Adaptive(buf imaging.Buffer, n int) []HeightBand {
	if !e.valid(buf, n, "adaptive") {
		return []HeightBand{}
	}

	var hist [HistogramBins]int
	total := 0
	for y := 0; y < buf.Height(); y++ {
		for x := 0; x < buf.Width(); x++ {
			hist[histogramBin(colorspace.Luminance(buf.At(x, y)))]++
			total++
		}
	}

	bounds := make([]float64, 0, n+1)
	bounds = append(bounds, 0)
	cumulative := 0
	j := 1
	for bin := 0; bin < HistogramBins && j < n; bin++ {
		cumulative += hist[bin]
		for j < n && float64(cumulative) >= float64(total)*float64(j)/float64(n) {
			bounds = append(bounds, binUpperEdge(bin))
			j++
		}
	}
	bounds = append(bounds, 1+BandEpsilon)

	bands := e.populate(buf, bounds)
	e.log.WithFields(logrus.Fields{"bands": n, "mode": "adaptive", "limits": bounds}).Debug("height bands extracted")
	return bands
}

// binUpperEdge is the exclusive upper luminance of bin. The last bin also
// holds luminance 1.0, so its edge matches the top band's limit.
func binUpperEdge(bin int) float64 {
	if bin >= HistogramBins-1 {
		return 1 + BandEpsilon
	}
	return float64(bin+1) / HistogramBins
}

func (e *HeightExtractor) valid(buf imaging.Buffer, n int, mode string) bool {
	log := e.log.WithFields(logrus.Fields{"bands": n, "mode": mode})
	if imaging.IsEmpty(buf) {
		log.Warn("height extraction skipped: empty pixel buffer")
		return false
	}
	if n <= 0 {
		log.Warn("height extraction skipped: band count must be positive")
		return false
	}
	if n > MaxBands {
		log.Warnf("height extraction skipped: band count exceeds %d", MaxBands)
		return false
	}
	return true
}

// histogramBin maps a luminance in [0,1] to its histogram bin.
func histogramBin(l float64) int {
	bin := int(l * HistogramBins)
	if bin >= HistogramBins {
		return HistogramBins - 1
	}
	if bin < 0 {
		return 0
	}
	return bin
}

// populate builds one band per consecutive pair in bounds and assigns each
// pixel to the first band containing its luminance.
func (e *HeightExtractor) populate(buf imaging.Buffer, bounds []float64) []HeightBand {
	n := len(bounds) - 1
	labels := BandLabels(n)
	bands := make([]HeightBand, n)
	for i := range bands {
		bands[i] = HeightBand{
			Label:   labels[i],
			Min:     bounds[i],
			Max:     bounds[i+1],
			Members: []Point{},
		}
	}

	width, height := buf.Width(), buf.Height()
	samples := make([][]float64, n)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			l := colorspace.Luminance(buf.At(x, y))
			idx := n - 1
			for i := range bands {
				if bands[i].Contains(l) {
					idx = i
					break
				}
			}
			bands[idx].Members = append(bands[idx].Members, ToReported(x, y, height))
			samples[idx] = append(samples[idx], l)
		}
	}

	total := float64(width * height)
	for i := range bands {
		bands[i].Size = len(bands[i].Members)
		bands[i].Coverage = float64(bands[i].Size) / total
		bands[i].MeanBrightness, bands[i].StdDevBrightness = brightnessStats(samples[i])
	}
	return bands
}

// brightnessStats returns mean and sample standard deviation, using zeros
// where they are undefined.
func brightnessStats(samples []float64) (mean, stddev float64) {
	switch len(samples) {
	case 0:
		return 0, 0
	case 1:
		return samples[0], 0
	}
	return stat.MeanStdDev(samples, nil)
}
