// Package imaging loads images from disk and exposes them as read-only
// floating-point RGB pixel buffers for terrain analysis.
//
// # Pixel Buffers
//
// Buffer is the read-only view every analysis stage consumes. Samples are
// colorspace.Color values with channels in [0,1]. Two implementations exist:
//   - FloatBuffer: an in-memory copy, mostly used by tests and synthetic input
//   - ImageBuffer: a view over a decoded image.Image, straight RGB with alpha ignored
//
// Buffer coordinates use storage orientation: (0,0) is the top-left pixel,
// X increases rightward and Y increases downward.
//
// # Loading
//
// ImageCache decodes PNG, JPEG, GIF, BMP, TIFF and WebP files once per path
// and is safe for concurrent use. Use Evict or Clear to release memory in
// long-running processes.
//
// # Preparation
//
// Prepare optionally crops to a Region (x1,y1 inclusive, x2,y2 exclusive) and
// downsamples so neither side exceeds MaxDimension. Analysis cost grows with
// pixel count, so the servers bound input size through this step.
package imaging
