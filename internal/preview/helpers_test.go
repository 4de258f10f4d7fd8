package preview

import (
	"testing"

	"github.com/ironsheep/image-terrain-mcp/internal/colorspace"
	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
)

func mustBuffer(t *testing.T, width, height int, pix []colorspace.Color) *imaging.FloatBuffer {
	t.Helper()
	buf, err := imaging.NewFloatBuffer(width, height, pix)
	if err != nil {
		t.Fatalf("NewFloatBuffer failed: %v", err)
	}
	return buf
}
