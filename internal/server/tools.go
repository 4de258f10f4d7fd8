package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional sub-rectangle to analyze, in source pixels. (x1,y1) inclusive, (x2,y2) exclusive.",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func maxDimensionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Downscale so the longest side is at most this many pixels before analysis. 0 disables downscaling. Defaults to the server setting.",
	}
}

func seedProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Optional random seed for reproducible clustering",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for subsequent terrain tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Terrain Analysis
		{
			Name:        "terrain_analyze",
			Description: "Run the full terrain analysis: K color clusters, N brightness height bands and a Sobel edge map. Cluster and band member coordinates use a bottom-left origin; the edge map keeps top-left rows.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"clusters": map[string]interface{}{
						"type":        "integer",
						"description": "Number of color clusters (K). Defaults to the server setting.",
					},
					"bands": map[string]interface{}{
						"type":        "integer",
						"description": "Number of height bands (N). Defaults to the server setting.",
					},
					"edge_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Edge magnitudes at or below this value are dropped (0-1).",
					},
					"adaptive": map[string]interface{}{
						"type":        "boolean",
						"description": "Choose band limits so each band holds roughly the same number of pixels",
					},
					"seed":          seedProperty(),
					"region":        regionProperty(),
					"max_dimension": maxDimensionProperty(),
					"include_members": map[string]interface{}{
						"type":        "boolean",
						"description": "Include per-pixel member coordinates for clusters and bands. Default false.",
						"default":     false,
					},
					"include_previews": map[string]interface{}{
						"type":        "boolean",
						"description": "Include base64 PNG previews of the edge, band and cluster maps. Default false.",
						"default":     false,
					},
					"preview_scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer enlargement factor for previews",
						"default":     1,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "terrain_cluster_colors",
			Description: "Group pixel colors into K clusters with K-Means++, sorted by descending coverage.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"clusters": map[string]interface{}{
						"type":        "integer",
						"description": "Number of clusters (K)",
					},
					"max_iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum Lloyd iterations. Defaults to the server setting.",
					},
					"convergence": map[string]interface{}{
						"type":        "number",
						"description": "Stop once no centroid moves by this RGB distance or more",
					},
					"seed":          seedProperty(),
					"region":        regionProperty(),
					"max_dimension": maxDimensionProperty(),
					"include_members": map[string]interface{}{
						"type":    "boolean",
						"default": false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "terrain_height_bands",
			Description: "Partition pixel brightness into N ordered height bands, by equal range or equal population.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"bands": map[string]interface{}{
						"type":        "integer",
						"description": "Number of bands (N)",
					},
					"adaptive": map[string]interface{}{
						"type":        "boolean",
						"description": "Equal-population bands instead of equal-width ones",
					},
					"region":        regionProperty(),
					"max_dimension": maxDimensionProperty(),
					"include_members": map[string]interface{}{
						"type":    "boolean",
						"default": false,
					},
					"include_preview": map[string]interface{}{
						"type":    "boolean",
						"default": false,
					},
					"preview_scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer enlargement factor for previews",
						"default":     1,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "terrain_edge_detect",
			Description: "Compute a Sobel gradient-magnitude edge map. Returns edge density, optionally edge positions (top-left origin) and a PNG preview.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Magnitudes at or below this value are dropped (0-1)",
					},
					"region":        regionProperty(),
					"max_dimension": maxDimensionProperty(),
					"include_positions": map[string]interface{}{
						"type":    "boolean",
						"default": false,
					},
					"include_directions": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the gradient angle of every pixel in radians, range (-pi, pi]",
						"default":     false,
					},
					"include_preview": map[string]interface{}{
						"type":    "boolean",
						"default": false,
					},
					"preview_scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer enlargement factor for previews",
						"default":     1,
					},
				},
				"required": []string{"path"},
			},
		},

		// Color Helpers
		{
			Name:        "color_distance",
			Description: "Compare two hex colors: squared RGB distance, perceptual distance (0-1) and the luminance of each.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color1": map[string]interface{}{
						"type":        "string",
						"description": "First color as #RRGGBB or #RGB",
					},
					"color2": map[string]interface{}{
						"type":        "string",
						"description": "Second color as #RRGGBB or #RGB",
					},
				},
				"required": []string{"color1", "color2"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
