// Package server implements the MCP (Model Context Protocol) server for terrain
// analysis of images.
//
// This package provides a JSON-RPC 2.0 server that exposes color clustering,
// height banding and edge detection through the MCP protocol, so an assistant
// can turn a heightmap or landscape image into terrain data.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Diagnostics go to the injected logrus logger, which must not write to stdout.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Terrain Analysis:
//   - terrain_analyze: Clusters, height bands and edge summary in one call
//   - terrain_cluster_colors: K-Means++ color clusters
//   - terrain_height_bands: Fixed or adaptive brightness bands
//   - terrain_edge_detect: Sobel edge map, positions and preview
//
// Color Helpers:
//   - color_distance: Squared RGB and perceptual distance between two colors
//
// Omitted numeric arguments fall back to the config.Config the server was built
// with. Images are cropped to the optional region and downscaled to
// max_dimension before analysis. Each analysis runs on its own goroutine and is
// abandoned once the configured analysis timeout passes.
//
// # Coordinates
//
// Cluster and band member coordinates use a bottom-left origin. Edge positions
// and the rows of edge previews keep the image's top-left origin.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for invalid arguments, -32000 for any other tool failure
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.WithConfig(cfg), server.WithLogger(log))
//	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
