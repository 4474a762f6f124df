// Package imaging provides the pixel-level building blocks of the fill pipeline.
//
// This package implements the operations every later stage relies on: frame
// loading and decoding, Lab color conversion, Canny edge detection, binary masks,
// ellipse geometry, detection-resolution resizing and overlay rendering. All
// operations work with standard Go image.Image types and use a coordinate system
// where (0,0) is at the top-left corner, X increases rightward, and Y increases
// downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Masks and edge maps are indexed from (0,0) regardless of the source
//     image's Bounds().Min; Normalize returns a frame with a zero origin
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Masks, edge maps and frames
// are plain values and must be synchronized by the caller if shared.
//
// # Color Representation
//
// Colors used for segmentation are CIE L*a*b* (D65) in conventional units:
//   - L: lightness 0-100
//   - A, B: chroma axes, roughly -128..127
//
// Distances between Lab colors are plain Euclidean (CIE76 ΔE), where a value
// around 2.3 is a just-noticeable difference.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - File I/O or decode errors during frame loading
//   - Malformed base64 or data-URL payloads
//   - Encoding errors during image output
package imaging
