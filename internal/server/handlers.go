package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-terrain-mcp/internal/analysis"
	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
	"github.com/ironsheep/image-terrain-mcp/internal/preview"
)

// ErrInvalidArguments marks tool failures caused by the caller's arguments.
// They are reported as JSON-RPC invalid params (-32602).
var ErrInvalidArguments = errors.New("invalid arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "terrain_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return -32602; any other tool failure returns -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	log := s.log.WithField("tool", params.Name)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("tool execution failed")
		if errors.Is(err, ErrInvalidArguments) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailure, "Tool execution failed", err.Error())
	}
	log.Debug("tool executed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each terrain handler:
//  1. Unmarshals arguments and fills omitted ones from the server config
//  2. Loads, crops and downscales the image through the cache
//  3. Runs the analysis on a worker bounded by the analysis timeout
//  4. Shapes the result for transport
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Terrain Analysis
	case "terrain_analyze":
		return s.handleTerrainAnalyze(ctx, args)
	case "terrain_cluster_colors":
		return s.handleTerrainClusterColors(ctx, args)
	case "terrain_height_bands":
		return s.handleTerrainHeightBands(ctx, args)
	case "terrain_edge_detect":
		return s.handleTerrainEdgeDetect(ctx, args)

	// Color Helpers
	case "color_distance":
		return s.handleColorDistance(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, tagging failures as invalid arguments.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing arguments", ErrInvalidArguments)
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func invalidArgument(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, a...))
}

// runBounded runs work on its own goroutine and waits at most the configured
// analysis timeout for it.
func (s *Server) runBounded(ctx context.Context, tool string, work func()) error {
	if s.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AnalysisTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("tool", tool).Errorf("tool panicked: %v", r)
				done <- fmt.Errorf("%s failed: %v", tool, r)
			}
		}()
		work()
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s did not finish within %s: %w", tool, s.cfg.AnalysisTimeout, ctx.Err())
	}
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Terrain Analysis Handlers ===

// sourceArgs selects and reduces the image every terrain tool works on.
type sourceArgs struct {
	Path         string          `json:"path"`
	Region       *imaging.Region `json:"region"`
	MaxDimension *int            `json:"max_dimension"`
}

// SourceInfo describes the image a terrain tool analyzed.
type SourceInfo struct {
	Path         string `json:"path"`
	SourceWidth  int    `json:"source_width"`
	SourceHeight int    `json:"source_height"`
	Width        int    `json:"analyzed_width"`
	Height       int    `json:"analyzed_height"`
}

// loadSource loads, crops and downscales the requested image.
func (s *Server) loadSource(a sourceArgs) (*imaging.ImageBuffer, SourceInfo, error) {
	if a.Path == "" {
		return nil, SourceInfo{}, invalidArgument("path is required")
	}
	limit := s.cfg.MaxDimension
	if a.MaxDimension != nil {
		if *a.MaxDimension < 0 {
			return nil, SourceInfo{}, invalidArgument("max_dimension must not be negative")
		}
		limit = *a.MaxDimension
	}

	dims, err := imaging.GetDimensions(s.cache, a.Path)
	if err != nil {
		return nil, SourceInfo{}, err
	}
	buf, err := imaging.LoadBuffer(s.cache, a.Path, imaging.PrepareOptions{
		Region:       a.Region,
		MaxDimension: limit,
	})
	if err != nil {
		if errors.Is(err, imaging.ErrInvalidRegion) {
			return nil, SourceInfo{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return nil, SourceInfo{}, err
	}

	src := SourceInfo{
		Path:         a.Path,
		SourceWidth:  dims.Width,
		SourceHeight: dims.Height,
		Width:        buf.Width(),
		Height:       buf.Height(),
	}
	s.log.WithFields(logrus.Fields{
		"path":            a.Path,
		"source_width":    src.SourceWidth,
		"source_height":   src.SourceHeight,
		"analyzed_width":  src.Width,
		"analyzed_height": src.Height,
	}).Debug("image prepared")
	return buf, src, nil
}

// positiveOr returns *v, or fallback when v is nil. A limit of 0 leaves the
// value unbounded above.
func positiveOr(v *int, fallback, limit int, name string) (int, error) {
	if v == nil {
		return fallback, nil
	}
	if *v < 1 {
		return 0, invalidArgument("%s must be at least 1, got %d", name, *v)
	}
	if limit > 0 && *v > limit {
		return 0, invalidArgument("%s must be at most %d, got %d", name, limit, *v)
	}
	return *v, nil
}

func thresholdOr(v *float64, fallback float64, name string) (float64, error) {
	if v == nil {
		return fallback, nil
	}
	if *v < 0 || *v > 1 {
		return 0, invalidArgument("%s must be within [0,1], got %g", name, *v)
	}
	return *v, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// clusterOptions builds clustering options from the config and overrides.
func (s *Server) clusterOptions(maxIterations *int, convergence *float64, seed *int64) ([]analysis.ClusterOption, error) {
	iterations, err := positiveOr(maxIterations, s.cfg.MaxIterations, 0, "max_iterations")
	if err != nil {
		return nil, err
	}
	threshold := s.cfg.Convergence
	if convergence != nil {
		if *convergence <= 0 {
			return nil, invalidArgument("convergence must be positive, got %g", *convergence)
		}
		threshold = *convergence
	}

	opts := []analysis.ClusterOption{
		analysis.WithMaxIterations(iterations),
		analysis.WithConvergenceThreshold(threshold),
		analysis.WithClusterLogger(s.log),
	}
	if seed != nil {
		opts = append(opts, analysis.WithSeed(*seed))
	}
	return opts, nil
}

type terrainAnalyzeArgs struct {
	sourceArgs
	Clusters        *int     `json:"clusters"`
	Bands           *int     `json:"bands"`
	EdgeThreshold   *float64 `json:"edge_threshold"`
	Adaptive        *bool    `json:"adaptive"`
	Seed            *int64   `json:"seed"`
	IncludeMembers  bool     `json:"include_members"`
	IncludePreviews bool     `json:"include_previews"`
	PreviewScale    int      `json:"preview_scale"`
}

// TerrainAnalyzeResult is the terrain_analyze response.
type TerrainAnalyzeResult struct {
	Source SourceInfo `json:"source"`
	analysis.Summary
	Previews map[string]*preview.ImageResult `json:"previews,omitempty"`
}

func (s *Server) handleTerrainAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a terrainAnalyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var p analysis.Params
	var err error
	if p.Clusters, err = positiveOr(a.Clusters, s.cfg.Clusters, analysis.MaxClusters, "clusters"); err != nil {
		return nil, err
	}
	if p.Bands, err = positiveOr(a.Bands, s.cfg.Bands, analysis.MaxBands, "bands"); err != nil {
		return nil, err
	}
	if p.EdgeThreshold, err = thresholdOr(a.EdgeThreshold, s.cfg.EdgeThreshold, "edge_threshold"); err != nil {
		return nil, err
	}
	p.Adaptive = boolOr(a.Adaptive, s.cfg.Adaptive)

	clusterOpts, err := s.clusterOptions(nil, nil, a.Seed)
	if err != nil {
		return nil, err
	}

	buf, src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	analyzer := analysis.New(analysis.WithLogger(s.log), analysis.WithClusterOptions(clusterOpts...))
	var result *analysis.Result
	if err := s.runBounded(ctx, "terrain_analyze", func() {
		result = analyzer.Analyze(buf, p)
	}); err != nil {
		return nil, err
	}

	out := &TerrainAnalyzeResult{
		Source:  src,
		Summary: result.Summarize(a.IncludeMembers),
	}
	if a.IncludePreviews {
		previews, err := preview.Render(result, preview.Options{Scale: a.PreviewScale})
		if err != nil {
			return nil, err
		}
		out.Previews = previews
	}
	return out, nil
}

type terrainClusterArgs struct {
	sourceArgs
	Clusters       *int     `json:"clusters"`
	MaxIterations  *int     `json:"max_iterations"`
	Convergence    *float64 `json:"convergence"`
	Seed           *int64   `json:"seed"`
	IncludeMembers bool     `json:"include_members"`
}

// ClusterColorsResult is the terrain_cluster_colors response.
type ClusterColorsResult struct {
	Source     SourceInfo         `json:"source"`
	Clusters   []analysis.Cluster `json:"clusters"`
	Iterations int                `json:"iterations"`
	Converged  bool               `json:"converged"`
}

func (s *Server) handleTerrainClusterColors(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a terrainClusterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	k, err := positiveOr(a.Clusters, s.cfg.Clusters, analysis.MaxClusters, "clusters")
	if err != nil {
		return nil, err
	}
	opts, err := s.clusterOptions(a.MaxIterations, a.Convergence, a.Seed)
	if err != nil {
		return nil, err
	}

	buf, src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	clusterer := analysis.NewClusterer(opts...)
	var run analysis.ClusterRun
	if err := s.runBounded(ctx, "terrain_cluster_colors", func() {
		run = clusterer.Cluster(buf, k)
	}); err != nil {
		return nil, err
	}

	return &ClusterColorsResult{
		Source:     src,
		Clusters:   analysis.SummarizeClusters(run.Clusters, a.IncludeMembers),
		Iterations: run.Iterations,
		Converged:  run.Converged,
	}, nil
}

type terrainBandsArgs struct {
	sourceArgs
	Bands          *int  `json:"bands"`
	Adaptive       *bool `json:"adaptive"`
	IncludeMembers bool  `json:"include_members"`
	IncludePreview bool  `json:"include_preview"`
	PreviewScale   int   `json:"preview_scale"`
}

// HeightBandsResult is the terrain_height_bands response.
type HeightBandsResult struct {
	Source   SourceInfo            `json:"source"`
	Adaptive bool                  `json:"adaptive"`
	Bands    []analysis.HeightBand `json:"bands"`
	Preview  *preview.ImageResult  `json:"preview,omitempty"`
}

func (s *Server) handleTerrainHeightBands(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a terrainBandsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	n, err := positiveOr(a.Bands, s.cfg.Bands, analysis.MaxBands, "bands")
	if err != nil {
		return nil, err
	}
	adaptive := boolOr(a.Adaptive, s.cfg.Adaptive)

	buf, src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	extractor := analysis.NewHeightExtractor(s.log)
	var bands []analysis.HeightBand
	if err := s.runBounded(ctx, "terrain_height_bands", func() {
		bands = extractor.Extract(buf, n, adaptive)
	}); err != nil {
		return nil, err
	}

	out := &HeightBandsResult{
		Source:   src,
		Adaptive: adaptive,
		Bands:    analysis.SummarizeBands(bands, a.IncludeMembers),
	}
	if a.IncludePreview {
		img, err := preview.BandMapPNG(bands, src.Width, src.Height, preview.Options{Scale: a.PreviewScale})
		if err != nil {
			return nil, err
		}
		out.Preview = img
	}
	return out, nil
}

type terrainEdgeArgs struct {
	sourceArgs
	Threshold         *float64 `json:"threshold"`
	IncludePositions  bool     `json:"include_positions"`
	IncludeDirections bool     `json:"include_directions"`
	IncludePreview    bool     `json:"include_preview"`
	PreviewScale      int      `json:"preview_scale"`
}

// EdgeDetectResult is the terrain_edge_detect response.
type EdgeDetectResult struct {
	Source SourceInfo           `json:"source"`
	Edges  analysis.EdgeSummary `json:"edges"`

	// Positions use top-left origin, matching the edge map rows.
	Positions []analysis.Point `json:"positions,omitempty"`

	// Directions holds atan2(gy, gx) per pixel, indexed [row][column].
	Directions [][]float64          `json:"directions,omitempty"`
	Preview    *preview.ImageResult `json:"preview,omitempty"`
}

func (s *Server) handleTerrainEdgeDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a terrainEdgeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	threshold, err := thresholdOr(a.Threshold, s.cfg.EdgeThreshold, "threshold")
	if err != nil {
		return nil, err
	}

	buf, src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	detector := analysis.NewEdgeDetector(s.log)
	var edges analysis.EdgeMap
	var directions [][]float64
	if err := s.runBounded(ctx, "terrain_edge_detect", func() {
		edges = detector.Detect(buf, threshold)
		if a.IncludeDirections {
			directions = detector.Direction(buf)
		}
	}); err != nil {
		return nil, err
	}

	out := &EdgeDetectResult{
		Source: src,
		Edges:  edges.Summarize(),
	}
	if a.IncludePositions {
		out.Positions = analysis.EdgePositions(edges, threshold)
	}
	out.Directions = directions
	if a.IncludePreview {
		img, err := preview.EdgeMapPNG(edges, preview.Options{Scale: a.PreviewScale})
		if err != nil {
			return nil, err
		}
		out.Preview = img
	}
	return out, nil
}

// === Color Helper Handlers ===

type colorDistanceArgs struct {
	Color1 string `json:"color1"`
	Color2 string `json:"color2"`
}

// ColorDistanceResult is the color_distance response.
type ColorDistanceResult struct {
	Color1             string  `json:"color1"`
	Color2             string  `json:"color2"`
	DistanceSquared    float64 `json:"distance_squared"`
	PerceptualDistance float64 `json:"perceptual_distance"`
	Luminance1         float64 `json:"luminance1"`
	Luminance2         float64 `json:"luminance2"`
}

func (s *Server) handleColorDistance(args json.RawMessage) (interface{}, error) {
	var a colorDistanceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	c1, err := colorspace.ParseHex(a.Color1)
	if err != nil {
		return nil, fmt.Errorf("%w: color1: %v", ErrInvalidArguments, err)
	}
	c2, err := colorspace.ParseHex(a.Color2)
	if err != nil {
		return nil, fmt.Errorf("%w: color2: %v", ErrInvalidArguments, err)
	}

	return &ColorDistanceResult{
		Color1:             c1.Hex(),
		Color2:             c2.Hex(),
		DistanceSquared:    colorspace.DistanceSquared(c1, c2),
		PerceptualDistance: colorspace.PerceptualDistance(c1, c2),
		Luminance1:         colorspace.Luminance(c1),
		Luminance2:         colorspace.Luminance(c2),
	}, nil
}
