// Package preview renders terrain analysis results as base64 PNG images so
// MCP clients and HTTP callers can inspect them visually.
package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-terrain-mcp/internal/analysis"
	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
)

// MimeType is the content type of every rendered preview.
const MimeType = "image/png"

// ErrEmpty is returned when there is nothing to render.
var ErrEmpty = errors.New("preview: nothing to render")

// ImageResult is an encoded preview image.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Options controls preview output.
type Options struct {
	// Scale enlarges the preview by an integer factor using nearest-neighbor
	// sampling so single pixels stay crisp. Values below 2 leave it unscaled.
	Scale int
}

// EdgeMapPNG renders an edge map as grayscale, white where the magnitude is 1.
func EdgeMapPNG(edges analysis.EdgeMap, opts Options) (*ImageResult, error) {
	if edges.Width == 0 || edges.Height == 0 {
		return nil, ErrEmpty
	}

	img := image.NewGray(image.Rect(0, 0, edges.Width, edges.Height))
	for y, row := range edges.Magnitude {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: unitToByte(v)})
		}
	}
	return encode(img, opts)
}

// BandMapPNG renders height bands as evenly spaced gray levels, black for
// the lowest band and white for the highest.
func BandMapPNG(bands []analysis.HeightBand, width, height int, opts Options) (*ImageResult, error) {
	if len(bands) == 0 || width <= 0 || height <= 0 {
		return nil, ErrEmpty
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	steps := len(bands) - 1
	for i, b := range bands {
		level := 1.0
		if steps > 0 {
			level = float64(i) / float64(steps)
		}
		shade, _, _ := colorspace.Lerp(colorspace.Black, colorspace.White, level).RGB8()
		c := color.Gray{Y: shade}
		for _, p := range b.Members {
			x, y := analysis.ToStorage(p, height)
			img.SetGray(x, y, c)
		}
	}
	return encode(img, opts)
}

// ClusterMapPNG paints every cluster member with its centroid color.
func ClusterMapPNG(clusters []analysis.Cluster, width, height int, opts Options) (*ImageResult, error) {
	if len(clusters) == 0 || width <= 0 || height <= 0 {
		return nil, ErrEmpty
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for _, c := range clusters {
		r, g, b := c.Centroid.RGB8()
		fill := color.NRGBA{R: r, G: g, B: b, A: 255}
		for _, p := range c.Members {
			x, y := analysis.ToStorage(p, height)
			img.SetNRGBA(x, y, fill)
		}
	}
	return encode(img, opts)
}

// Render produces every preview available for r, keyed by kind ("edges",
// "bands", "clusters"). Parts without data are skipped.
func Render(r *analysis.Result, opts Options) (map[string]*ImageResult, error) {
	out := make(map[string]*ImageResult, 3)
	if r.Empty() {
		return out, nil
	}

	if img, err := EdgeMapPNG(r.Edges, opts); err == nil {
		out["edges"] = img
	} else if !errors.Is(err, ErrEmpty) {
		return nil, err
	}
	if img, err := BandMapPNG(r.Bands, r.Width, r.Height, opts); err == nil {
		out["bands"] = img
	} else if !errors.Is(err, ErrEmpty) {
		return nil, err
	}
	if img, err := ClusterMapPNG(r.Clusters, r.Width, r.Height, opts); err == nil {
		out["clusters"] = img
	} else if !errors.Is(err, ErrEmpty) {
		return nil, err
	}
	return out, nil
}

func encode(img image.Image, opts Options) (*ImageResult, error) {
	if opts.Scale > 1 {
		b := img.Bounds()
		img = imaging.Resize(img, b.Dx()*opts.Scale, b.Dy()*opts.Scale, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &ImageResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    MimeType,
	}, nil
}

func unitToByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
