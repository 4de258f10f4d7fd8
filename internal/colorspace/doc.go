// Package colorspace provides the color math shared by every analysis stage.
//
// Colors are triples of normalized channel intensities in the range [0, 1].
// All functions in this package are pure and safe for concurrent use.
//
// # Distance Metrics
//
// Two metrics are offered with different cost/accuracy trade-offs:
//   - DistanceSquared: squared Euclidean distance in RGB space. No square root,
//     used in hot loops such as clustering.
//   - PerceptualDistance: Euclidean distance in CIE L*a*b* (D65 white point),
//     normalized to [0, 1]. Used for "is color A close enough to color B" checks.
//
// # Brightness
//
// Luminance uses the ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B), the
// same weighting used for edge detection and height banding.
package colorspace
