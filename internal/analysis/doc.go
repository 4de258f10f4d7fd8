// Package analysis extracts terrain descriptions from a pixel buffer.
//
// Three independent stages read the same immutable imaging.Buffer:
//
//   - Color clustering: K-Means++ seeded Lloyd iteration over RGB colors,
//     producing clusters sorted by descending coverage.
//   - Height banding: luminance partitioned into ordered bands, either
//     equal-width (ExtractFixed) or equal-population (ExtractAdaptive).
//   - Edge detection: Sobel gradient magnitude with replicate padding and a
//     threshold gate that preserves intensity above the threshold.
//
// Analyzer runs all three and assembles a Result.
//
// # Coordinate System
//
// Buffers are stored row-major with (0,0) at the top-left. Member coordinates
// reported on clusters and height bands use a bottom-left origin instead:
//
//	reportedY = height - 1 - storageY
//
// EdgeMap grids and EdgePositions keep storage (top-left) orientation because
// they are consumed positionally. Use ToReported and ToStorage to convert.
//
// # Failure Behavior
//
// Invalid input (nil or empty buffers, non-positive counts) never panics and
// never returns an error: the affected stage yields an empty result and logs a
// warning through the injected logrus.FieldLogger. Unexpected runtime faults are
// not recovered.
//
// # Concurrency
//
// All stages are synchronous. Clusterer, HeightExtractor, EdgeDetector and
// Analyzer hold only immutable configuration and are safe for concurrent use;
// every call allocates its own working buffers.
package analysis
