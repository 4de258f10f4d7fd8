package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/image-terrain-mcp/internal/analysis"
	"github.com/ironsheep/image-terrain-mcp/internal/config"
)

// createTestImageFile writes a width x height PNG painted by fill and returns its path.
func createTestImageFile(t *testing.T, width, height int, fill func(x, y int) color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill(x, y))
		}
	}

	path := filepath.Join(t.TempDir(), "terrain.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func solid(c color.Color) func(x, y int) color.Color {
	return func(int, int) color.Color { return c }
}

// blackWhite paints the left half black and the right half white.
func blackWhite(width int) func(x, y int) color.Color {
	return func(x, _ int) color.Color {
		if x < width/2 {
			return color.Black
		}
		return color.White
	}
}

// callTool issues a tools/call request and returns the raw response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unmarshals the text content of a successful tool response into v.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("tool result is not JSON: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, solid(color.RGBA{255, 0, 0, 255}))

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 200, 150, solid(color.RGBA{0, 255, 0, 255}))

	var dims struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decodeToolResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()
	resp := callTool(t, s, "terrain_analyze", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "missing.png"),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()
	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`not valid json`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidArguments(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 8, 8, blackWhite(8))

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"missing path", "terrain_analyze", map[string]interface{}{}},
		{"zero clusters", "terrain_analyze", map[string]interface{}{"path": imgPath, "clusters": 0}},
		{"negative bands", "terrain_height_bands", map[string]interface{}{"path": imgPath, "bands": -2}},
		{"huge bands", "terrain_height_bands", map[string]interface{}{"path": imgPath, "bands": math.MaxInt}},
		{"huge clusters", "terrain_cluster_colors", map[string]interface{}{"path": imgPath, "clusters": math.MaxInt}},
		{"clusters above max", "terrain_analyze", map[string]interface{}{"path": imgPath, "clusters": analysis.MaxClusters + 1}},
		{"bands above max", "terrain_analyze", map[string]interface{}{"path": imgPath, "bands": analysis.MaxBands + 1}},
		{"threshold above one", "terrain_edge_detect", map[string]interface{}{"path": imgPath, "threshold": 1.5}},
		{"negative max dimension", "terrain_edge_detect", map[string]interface{}{"path": imgPath, "max_dimension": -1}},
		{"zero convergence", "terrain_cluster_colors", map[string]interface{}{"path": imgPath, "convergence": 0}},
		{"region outside image", "terrain_analyze", map[string]interface{}{
			"path":   imgPath,
			"region": map[string]int{"x1": 0, "y1": 0, "x2": 50, "y2": 4},
		}},
		{"bad color", "color_distance", map[string]interface{}{"color1": "#zzzzzz", "color2": "#000000"}},
		{"wrong type", "terrain_analyze", map[string]interface{}{"path": imgPath, "clusters": "four"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("Expected error")
			}
			if resp.Error.Code != -32602 {
				t.Errorf("Error code: got %d, want -32602 (%v)", resp.Error.Code, resp.Error.Data)
			}
		})
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := New()
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"terrain_edge_detect"}`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected invalid params error, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_TerrainAnalyze(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 4, 4, blackWhite(4))

	var result TerrainAnalyzeResult
	decodeToolResult(t, callTool(t, s, "terrain_analyze", map[string]interface{}{
		"path":           imgPath,
		"clusters":       2,
		"bands":          2,
		"edge_threshold": 0.25,
		"adaptive":       true,
		"seed":           42,
	}), &result)

	if result.Source.Width != 4 || result.Source.SourceWidth != 4 {
		t.Errorf("source: got %+v", result.Source)
	}
	if len(result.Clusters) != 2 || len(result.Bands) != 2 {
		t.Fatalf("got %d clusters and %d bands, want 2 and 2", len(result.Clusters), len(result.Bands))
	}
	for i, c := range result.Clusters {
		if c.Coverage != 0.5 {
			t.Errorf("cluster %d coverage: got %v, want 0.5", i, c.Coverage)
		}
		if c.Members != nil {
			t.Errorf("cluster %d members should be omitted by default", i)
		}
	}
	for i, b := range result.Bands {
		if b.Coverage != 0.5 {
			t.Errorf("band %d coverage: got %v, want 0.5", i, b.Coverage)
		}
	}
	if result.Edges.Count != 8 {
		t.Errorf("edge count: got %d, want 8", result.Edges.Count)
	}
	if result.Previews != nil {
		t.Error("previews should be omitted by default")
	}
}

func TestHandleToolsCall_TerrainAnalyze_MembersAndPreviews(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 6, 4, blackWhite(6))

	var result TerrainAnalyzeResult
	decodeToolResult(t, callTool(t, s, "terrain_analyze", map[string]interface{}{
		"path":             imgPath,
		"clusters":         2,
		"seed":             1,
		"include_members":  true,
		"include_previews": true,
		"preview_scale":    2,
	}), &result)

	total := 0
	for _, c := range result.Clusters {
		total += len(c.Members)
	}
	if total != 24 {
		t.Errorf("cluster members: got %d, want 24", total)
	}
	for _, kind := range []string{"edges", "bands", "clusters"} {
		p, ok := result.Previews[kind]
		if !ok {
			t.Errorf("missing %s preview", kind)
			continue
		}
		if p.Width != 12 || p.Height != 8 || p.MimeType != "image/png" {
			t.Errorf("%s preview: got %dx%d %s", kind, p.Width, p.Height, p.MimeType)
		}
	}
}

func TestHandleToolsCall_TerrainAnalyze_ConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Clusters = 3
	cfg.Bands = 5
	s := New(WithConfig(cfg))
	imgPath := createTestImageFile(t, 10, 10, func(x, y int) color.Color {
		return color.Gray{Y: uint8(x * 25)}
	})

	var result TerrainAnalyzeResult
	decodeToolResult(t, callTool(t, s, "terrain_analyze", map[string]interface{}{"path": imgPath}), &result)

	if len(result.Clusters) != 3 {
		t.Errorf("clusters: got %d, want 3", len(result.Clusters))
	}
	if len(result.Bands) != 5 {
		t.Errorf("bands: got %d, want 5", len(result.Bands))
	}
	if result.Bands[4].Label != "Peak" {
		t.Errorf("top band label: got %s, want Peak", result.Bands[4].Label)
	}
	if result.Params.EdgeThreshold != cfg.EdgeThreshold {
		t.Errorf("edge threshold: got %v, want %v", result.Params.EdgeThreshold, cfg.EdgeThreshold)
	}
}

func TestHandleToolsCall_TerrainAnalyze_RegionAndDownscale(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 40, 20, blackWhite(40))

	var result TerrainAnalyzeResult
	decodeToolResult(t, callTool(t, s, "terrain_analyze", map[string]interface{}{
		"path":          imgPath,
		"region":        map[string]int{"x1": 0, "y1": 0, "x2": 20, "y2": 20},
		"max_dimension": 10,
	}), &result)

	if result.Source.SourceWidth != 40 || result.Source.SourceHeight != 20 {
		t.Errorf("source size: got %dx%d, want 40x20", result.Source.SourceWidth, result.Source.SourceHeight)
	}
	if result.Width != 10 || result.Height != 10 {
		t.Errorf("analyzed size: got %dx%d, want 10x10", result.Width, result.Height)
	}
	// The cropped region is entirely black.
	if len(result.Clusters) == 0 || result.Clusters[0].Hex != "#000000" || result.Clusters[0].Coverage != 1 {
		t.Errorf("expected a single black cluster covering the region, got %+v", result.Clusters)
	}
}

func TestHandleToolsCall_ClusterColors(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 8, 4, func(x, _ int) color.Color {
		if x < 6 {
			return color.RGBA{255, 0, 0, 255}
		}
		return color.RGBA{0, 0, 255, 255}
	})

	var result ClusterColorsResult
	decodeToolResult(t, callTool(t, s, "terrain_cluster_colors", map[string]interface{}{
		"path":            imgPath,
		"clusters":        2,
		"seed":            9,
		"max_iterations":  10,
		"include_members": true,
	}), &result)

	if len(result.Clusters) != 2 {
		t.Fatalf("clusters: got %d, want 2", len(result.Clusters))
	}
	if result.Clusters[0].Hex != "#ff0000" || result.Clusters[0].Size != 24 {
		t.Errorf("dominant cluster: got %s with %d pixels", result.Clusters[0].Hex, result.Clusters[0].Size)
	}
	if len(result.Clusters[1].Members) != 8 {
		t.Errorf("blue members: got %d, want 8", len(result.Clusters[1].Members))
	}
	if !result.Converged || result.Iterations > 10 {
		t.Errorf("iterations: got %d (converged=%v)", result.Iterations, result.Converged)
	}
}

func TestHandleToolsCall_HeightBands(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 4, 4, blackWhite(4))

	var result HeightBandsResult
	decodeToolResult(t, callTool(t, s, "terrain_height_bands", map[string]interface{}{
		"path":            imgPath,
		"bands":           3,
		"include_members": true,
		"include_preview": true,
	}), &result)

	if len(result.Bands) != 3 {
		t.Fatalf("bands: got %d, want 3", len(result.Bands))
	}
	if result.Adaptive {
		t.Error("adaptive should default to the config value (false)")
	}
	if result.Bands[0].Size != 8 || result.Bands[1].Size != 0 || result.Bands[2].Size != 8 {
		t.Errorf("band sizes: got %d/%d/%d, want 8/0/8", result.Bands[0].Size, result.Bands[1].Size, result.Bands[2].Size)
	}
	// Reported coordinates use a bottom-left origin; every black pixel is in x < 2.
	for _, p := range result.Bands[0].Members {
		if p.X >= 2 || p.Y < 0 || p.Y > 3 {
			t.Errorf("unexpected low band member %+v", p)
		}
	}
	if result.Preview == nil || result.Preview.Width != 4 {
		t.Error("expected a 4px wide band preview")
	}
}

func TestHandleToolsCall_EdgeDetect(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 4, 3, blackWhite(4))

	var result EdgeDetectResult
	decodeToolResult(t, callTool(t, s, "terrain_edge_detect", map[string]interface{}{
		"path":              imgPath,
		"threshold":         0.5,
		"include_positions":  true,
		"include_directions": true,
		"include_preview":    true,
	}), &result)

	if result.Edges.Count != 6 {
		t.Errorf("edge count: got %d, want 6", result.Edges.Count)
	}
	if result.Edges.Threshold != 0.5 {
		t.Errorf("threshold: got %v, want 0.5", result.Edges.Threshold)
	}
	if len(result.Positions) != 6 {
		t.Fatalf("positions: got %d, want 6", len(result.Positions))
	}
	if result.Positions[0].X != 1 || result.Positions[0].Y != 0 {
		t.Errorf("first position: got %+v, want {1 0}", result.Positions[0])
	}
	if result.Preview == nil || result.Preview.Height != 3 {
		t.Error("expected a 3px tall edge preview")
	}
	if len(result.Directions) != 3 || len(result.Directions[0]) != 4 {
		t.Fatalf("directions: got %d rows", len(result.Directions))
	}
	// Dark to bright rightward points along +x.
	if result.Directions[1][1] != 0 {
		t.Errorf("direction at (1,1): got %v, want 0", result.Directions[1][1])
	}
}

func TestHandleToolsCall_ColorDistance(t *testing.T) {
	s := New()

	var result ColorDistanceResult
	decodeToolResult(t, callTool(t, s, "color_distance", map[string]interface{}{
		"color1": "#000",
		"color2": "#ffffff",
	}), &result)

	if result.Color1 != "#000000" || result.Color2 != "#ffffff" {
		t.Errorf("normalized colors: got %s and %s", result.Color1, result.Color2)
	}
	if result.DistanceSquared < 2.999 || result.DistanceSquared > 3.001 {
		t.Errorf("distance squared: got %v, want 3", result.DistanceSquared)
	}
	if result.PerceptualDistance < 0.99 || result.PerceptualDistance > 1 {
		t.Errorf("perceptual distance: got %v, want ~1", result.PerceptualDistance)
	}
	if result.Luminance1 != 0 {
		t.Errorf("luminance1: got %v, want 0", result.Luminance1)
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 6, 6, blackWhite(6))

	args := map[string]map[string]interface{}{
		"image_load":             {"path": imgPath},
		"image_dimensions":       {"path": imgPath},
		"terrain_analyze":        {"path": imgPath},
		"terrain_cluster_colors": {"path": imgPath},
		"terrain_height_bands":   {"path": imgPath},
		"terrain_edge_detect":    {"path": imgPath},
		"color_distance":         {"color1": "#123456", "color2": "#654321"},
	}

	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			a, ok := args[tool.Name]
			if !ok {
				t.Fatalf("no arguments prepared for %s", tool.Name)
			}
			raw, _ := json.Marshal(a)
			result, err := s.executeTool(context.Background(), tool.Name, raw)
			if err != nil {
				t.Fatalf("executeTool failed: %v", err)
			}
			if result == nil {
				t.Error("executeTool returned nil result")
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()
	if _, err := s.executeTool(context.Background(), "unknown_tool", json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for unknown tool")
	}
}

func TestRunBounded_Timeout(t *testing.T) {
	cfg := config.Default()
	cfg.AnalysisTimeout = 10 * time.Millisecond
	s := New(WithConfig(cfg))

	release := make(chan struct{})
	defer close(release)

	err := s.runBounded(context.Background(), "slow_tool", func() { <-release })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRunBounded_Completes(t *testing.T) {
	s := New()
	ran := false
	if err := s.runBounded(context.Background(), "fast_tool", func() { ran = true }); err != nil {
		t.Fatalf("runBounded failed: %v", err)
	}
	if !ran {
		t.Error("work did not run")
	}
}

func TestRunBounded_RecoversPanic(t *testing.T) {
	s := New()
	err := s.runBounded(context.Background(), "broken_tool", func() { panic("boom") })
	if err == nil {
		t.Fatal("expected error from panicking work")
	}
}
