// Package detection locates the plate or bowl in a frame.
//
// The locator runs Canny edge detection (see the imaging package) and then an
// ordered list of named strategies. The first strategy whose best candidate
// clears its own acceptance threshold wins:
//
//   - hough: gradient-directed circle Hough transform with a radial edge
//     histogram for the radius
//   - contour: largest edge component, hole-filled, scored by circularity
//     against its minimum enclosing circle and fitted with a moments ellipse
//   - opencv-hough: OpenCV HoughCircles, only with the gocv build tag
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Boundaries are reported in frame coordinates even when detection ran on a
// downscaled copy.
//
// # Smoothing
//
// SmoothingState carries the previous boundary between frames of a live
// stream. It is explicit and caller owned; the locator itself is stateless.
// Smoothing is an exponential moving average on center and axes that resets
// on a large jump or after several consecutive misses.
package detection
