package analysis

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
	"github.com/ironsheep/image-terrain-mcp/internal/logger"
)

// Clustering defaults.
const (
	DefaultMaxIterations        = 100
	DefaultConvergenceThreshold = 0.001
)

// MaxClusters is the largest cluster count Cluster accepts.
const MaxClusters = 256

type clusterConfig struct {
	maxIterations int
	threshold     float64
	seed          int64
	seeded        bool
	log           logrus.FieldLogger
}

// ClusterOption configures a Clusterer.
type ClusterOption func(*clusterConfig)

// WithMaxIterations caps the number of Lloyd iterations. Values below 1 are ignored.
func WithMaxIterations(n int) ClusterOption {
	return func(c *clusterConfig) {
		if n >= 1 {
			c.maxIterations = n
		}
	}
}

// WithConvergenceThreshold sets the centroid movement below which iteration stops.
// Non-positive values are ignored.
func WithConvergenceThreshold(t float64) ClusterOption {
	return func(c *clusterConfig) {
		if t > 0 {
			c.threshold = t
		}
	}
}

// WithSeed makes clustering deterministic. Without it every run draws a fresh
// time-based seed.
func WithSeed(seed int64) ClusterOption {
	return func(c *clusterConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// WithClusterLogger sets the diagnostics logger.
func WithClusterLogger(l logrus.FieldLogger) ClusterOption {
	return func(c *clusterConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// Clusterer partitions pixel colors with K-Means++ seeded Lloyd iteration.
type Clusterer struct {
	cfg clusterConfig
}

// NewClusterer returns a Clusterer with defaults of 100 iterations and a
// convergence threshold of 0.001.
func NewClusterer(opts ...ClusterOption) *Clusterer {
	cfg := clusterConfig{
		maxIterations: DefaultMaxIterations,
		threshold:     DefaultConvergenceThreshold,
		log:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Clusterer{cfg: cfg}
}

// ClusterRun is the outcome of one clustering call.
type ClusterRun struct {
	Clusters   []Cluster
	Iterations int
	Converged  bool
}

// ClusterColors partitions the pixels of buf into k clusters.
//
// It is shorthand for NewClusterer(opts...).Cluster(buf, k).Clusters.
func ClusterColors(buf imaging.Buffer, k int, opts ...ClusterOption) []Cluster {
	return NewClusterer(opts...).Cluster(buf, k).Clusters
}

// Cluster partitions the pixels of buf into exactly k clusters.
//
// Seeding follows K-Means++: the first centroid is drawn uniformly from the
// pixels, each further one with probability proportional to its squared
// distance from the nearest centroid already chosen. Each iteration assigns
// every pixel to its nearest centroid (squared RGB distance, ties to the lower
// index) and moves each centroid to the mean of its members; a centroid with no
// members stays put. Iteration stops after the configured maximum or once no
// centroid moved by the convergence threshold or more.
//
// Clusters are returned sorted by descending coverage. Member coordinates use
// bottom-left origin. An empty buffer or k outside [1, MaxClusters] yields an
// empty run.
func (c *Clusterer) Cluster(buf imaging.Buffer, k int) ClusterRun {
	log := c.cfg.log.WithField("k", k)
	if imaging.IsEmpty(buf) {
		log.Warn("color clustering skipped: empty pixel buffer")
		return ClusterRun{Clusters: []Cluster{}}
	}
	if k <= 0 {
		log.Warn("color clustering skipped: cluster count must be positive")
		return ClusterRun{Clusters: []Cluster{}}
	}
	if k > MaxClusters {
		log.Warnf("color clustering skipped: cluster count exceeds %d", MaxClusters)
		return ClusterRun{Clusters: []Cluster{}}
	}

	width, height := buf.Width(), buf.Height()
	pixels := readPixels(buf)
	rng := c.newRand()

	centroids := seedCentroids(pixels, k, rng)
	assignments := make([]int, len(pixels))
	limitSq := c.cfg.threshold * c.cfg.threshold

	iterations := 0
	converged := false
	for iterations < c.cfg.maxIterations {
		iterations++
		assignPixels(pixels, centroids, assignments)
		next := recomputeCentroids(pixels, assignments, centroids)

		moved := false
		for i := range centroids {
			if colorspace.DistanceSquared(centroids[i], next[i]) >= limitSq {
				moved = true
				break
			}
		}
		centroids = next
		if !moved {
			converged = true
			break
		}
	}

	// Membership is fixed against the final centroids.
	assignPixels(pixels, centroids, assignments)
	clusters := buildClusters(centroids, assignments, width, height)

	log.WithFields(logrus.Fields{
		"width":      width,
		"height":     height,
		"iterations": iterations,
		"converged":  converged,
	}).Debug("color clustering complete")

	return ClusterRun{Clusters: clusters, Iterations: iterations, Converged: converged}
}

func (c *Clusterer) newRand() *rand.Rand {
	seed := c.cfg.seed
	if !c.cfg.seeded {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// readPixels copies buf into a row-major slice.
func readPixels(buf imaging.Buffer) []colorspace.Color {
	width, height := buf.Width(), buf.Height()
	pixels := make([]colorspace.Color, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixels = append(pixels, buf.At(x, y))
		}
	}
	return pixels
}

// seedCentroids picks k initial centroids with K-Means++.
func seedCentroids(pixels []colorspace.Color, k int, rng *rand.Rand) []colorspace.Color {
	centroids := make([]colorspace.Color, 0, k)
	centroids = append(centroids, pixels[rng.Intn(len(pixels))])

	// nearest[i] is the squared distance from pixel i to its closest centroid so far.
	nearest := make([]float64, len(pixels))
	for i, p := range pixels {
		nearest[i] = colorspace.DistanceSquared(p, centroids[0])
	}

	for len(centroids) < k {
		next := pixels[pickWeighted(nearest, rng)]
		centroids = append(centroids, next)
		for i, p := range pixels {
			if d := colorspace.DistanceSquared(p, next); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centroids
}

// pickWeighted performs roulette-wheel selection over weights. When every
// weight is zero (all pixels coincide with a centroid) it picks uniformly.
func pickWeighted(weights []float64, rng *rand.Rand) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}

	target := rng.Float64() * total
	cumulative := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		last = i
		if cumulative > target {
			return i
		}
	}
	// Rounding left target at the very end of the wheel.
	return last
}

// assignPixels stores the index of the nearest centroid for every pixel.
func assignPixels(pixels, centroids []colorspace.Color, assignments []int) {
	for i, p := range pixels {
		best := 0
		bestDist := colorspace.DistanceSquared(p, centroids[0])
		for j := 1; j < len(centroids); j++ {
			if d := colorspace.DistanceSquared(p, centroids[j]); d < bestDist {
				best = j
				bestDist = d
			}
		}
		assignments[i] = best
	}
}

// recomputeCentroids returns the member mean of every cluster. Empty clusters
// keep their previous centroid. The input slice is not modified.
func recomputeCentroids(pixels []colorspace.Color, assignments []int, prev []colorspace.Color) []colorspace.Color {
	sums := make([]colorspace.Color, len(prev))
	counts := make([]int, len(prev))
	for i, p := range pixels {
		a := assignments[i]
		sums[a].R += p.R
		sums[a].G += p.G
		sums[a].B += p.B
		counts[a]++
	}

	next := make([]colorspace.Color, len(prev))
	for j := range prev {
		if counts[j] == 0 {
			next[j] = prev[j]
			continue
		}
		n := float64(counts[j])
		next[j] = colorspace.Color{R: sums[j].R / n, G: sums[j].G / n, B: sums[j].B / n}
	}
	return next
}

// buildClusters turns final centroids and assignments into sorted clusters.
func buildClusters(centroids []colorspace.Color, assignments []int, width, height int) []Cluster {
	counts := make([]int, len(centroids))
	for _, a := range assignments {
		counts[a]++
	}

	clusters := make([]Cluster, len(centroids))
	for j, c := range centroids {
		clusters[j] = Cluster{
			Label:    fmt.Sprintf("Cluster_%d", j+1),
			Centroid: c,
			Hex:      c.Hex(),
			Size:     counts[j],
			Members:  make([]Point, 0, counts[j]),
		}
	}

	for i, a := range assignments {
		clusters[a].Members = append(clusters[a].Members, ToReported(i%width, i/width, height))
	}

	total := float64(len(assignments))
	for j := range clusters {
		clusters[j].Coverage = float64(clusters[j].Size) / total
	}

	sort.SliceStable(clusters, func(a, b int) bool {
		return clusters[a].Coverage > clusters[b].Coverage
	})
	return clusters
}
