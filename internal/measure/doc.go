// Package measure turns a frame into a fill percentage and, for plates, a
// rough volume.
//
// Pipeline.Measure runs the whole chain for one frame:
//
//  1. detection.Locator finds the boundary (optionally smoothed against the
//     previous frame through a caller-owned detection.SmoothingState)
//  2. the interior mask is the boundary shrunk by the interior margin
//  3. segmentation.Segmenter samples the rim color and builds the food mask
//  4. Fill computes 100·|food ∩ interior| / |interior|
//  5. Volume applies the flat-extrusion model (plates only)
//
// # Volume Model
//
// The food footprint is the fill fraction of the full boundary ellipse,
// converted to mm² with a pixel scale derived from the configured diameter,
// and multiplied by an assumed food height. It ignores depth entirely and is
// only a ballpark figure.
//
// # Errors
//
// ErrNoUtensil and ErrDegenerateInterior mean "no measurement for this
// frame"; a live loop should skip the frame and continue. ErrInvalidScale is
// never returned by Measure: it only disables the volume and is reported in
// Result.Warnings.
package measure
