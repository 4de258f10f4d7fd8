package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
	"github.com/ironsheep/image-terrain-mcp/internal/logger"
)

// Params selects what one Analyze call extracts.
type Params struct {
	// Clusters is the number of color clusters (k).
	Clusters int `json:"clusters"`
	// Bands is the number of height bands (n).
	Bands int `json:"bands"`
	// EdgeThreshold gates edge magnitudes, in [0,1].
	EdgeThreshold float64 `json:"edge_threshold"`
	// Adaptive selects population-uniform bands instead of range-uniform ones.
	Adaptive bool `json:"adaptive"`
}

// DefaultParams returns four clusters, four fixed-width bands and the
// default edge threshold.
func DefaultParams() Params {
	return Params{
		Clusters:      4,
		Bands:         4,
		EdgeThreshold: DefaultEdgeThreshold,
	}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the diagnostics logger shared by every stage.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithClusterOptions forwards options to the color clustering stage.
func WithClusterOptions(opts ...ClusterOption) Option {
	return func(a *Analyzer) {
		a.clusterOpts = append(a.clusterOpts, opts...)
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// Analyzer runs clustering, height banding and edge detection over one buffer.
//
// An Analyzer is immutable once built; concurrent Analyze calls share nothing
// but configuration.
type Analyzer struct {
	log         logrus.FieldLogger
	now         func() time.Time
	clusterOpts []ClusterOption

	clusterer *Clusterer
	heights   *HeightExtractor
	edges     *EdgeDetector
}

// New builds an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		log: logger.Discard(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	clusterOpts := append([]ClusterOption{WithClusterLogger(a.log)}, a.clusterOpts...)
	a.clusterer = NewClusterer(clusterOpts...)
	a.heights = NewHeightExtractor(a.log)
	a.edges = NewEdgeDetector(a.log)
	return a
}

// Analyze extracts clusters, height bands and the edge map from buf.
//
// The three stages are independent and all complete before the result is
// returned. A nil or empty buffer produces a result with empty sub-results and
// zero dimensions; an invalid cluster or band count empties only that part.
// The result is stamped with the buffer dimensions and the completion time.
func (a *Analyzer) Analyze(buf imaging.Buffer, p Params) *Result {
	start := a.now()
	log := a.log.WithFields(logrus.Fields{
		"clusters":       p.Clusters,
		"bands":          p.Bands,
		"edge_threshold": p.EdgeThreshold,
		"adaptive":       p.Adaptive,
	})

	if imaging.IsEmpty(buf) {
		log.Warn("analysis skipped: empty pixel buffer")
		done := a.now()
		return &Result{
			Clusters:  []Cluster{},
			Bands:     []HeightBand{},
			Edges:     EdgeMap{Threshold: p.EdgeThreshold, Magnitude: [][]float64{}},
			Params:    p,
			CreatedAt: done,
			Elapsed:   done.Sub(start),
		}
	}

	run := a.clusterer.Cluster(buf, p.Clusters)
	bands := a.heights.Extract(buf, p.Bands, p.Adaptive)
	edges := a.edges.Detect(buf, p.EdgeThreshold)

	done := a.now()
	result := &Result{
		Width:      buf.Width(),
		Height:     buf.Height(),
		Clusters:   run.Clusters,
		Bands:      bands,
		Edges:      edges,
		Params:     p,
		Iterations: run.Iterations,
		Converged:  run.Converged,
		CreatedAt:  done,
		Elapsed:    done.Sub(start),
	}

	log.WithFields(logrus.Fields{
		"width":      result.Width,
		"height":     result.Height,
		"iterations": result.Iterations,
		"elapsed":    result.Elapsed,
	}).Info("terrain analysis complete")

	return result
}

// AnalyzeContext runs Analyze on a separate goroutine and stops waiting when
// ctx is done. The abandoned run finishes in the background and its result is
// discarded; the core itself has no cancellation points.
func (a *Analyzer) AnalyzeContext(ctx context.Context, buf imaging.Buffer, p Params) (*Result, error) {
	done := make(chan *Result, 1)
	go func() {
		done <- a.Analyze(buf, p)
	}()

	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		a.log.WithError(ctx.Err()).Warn("terrain analysis abandoned")
		return nil, fmt.Errorf("terrain analysis: %w", ctx.Err())
	}
}
