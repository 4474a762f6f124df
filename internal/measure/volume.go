package measure

import (
	"math"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// PixelsPerMM returns the scale along each semi-axis of boundary for a
// utensil whose interior diameter is diameterMM.
func PixelsPerMM(boundary imaging.Ellipse, diameterMM float64) (major, minor float64, err error) {
	if diameterMM <= 0 || boundary.SemiMajor <= 0 || boundary.SemiMinor <= 0 {
		return 0, 0, ErrInvalidScale
	}
	r := diameterMM / 2
	return boundary.SemiMajor / r, boundary.SemiMinor / r, nil
}

// Volume estimates the food volume on a plate in millilitres.
//
// The model is a flat extrusion: the food footprint is fillPercent of the
// whole ellipse area, converted to mm² with the per-axis pixel scale, and
// multiplied by the assumed height. It is a rough figure, not a volumetric
// measurement. The fill is extrapolated to the full boundary so the
// interior margin does not shrink the footprint.
func Volume(fillPercent float64, boundary imaging.Ellipse, diameterMM, heightMM float64) (float64, error) {
	if heightMM <= 0 {
		return 0, ErrInvalidScale
	}
	pxMajor, pxMinor, err := PixelsPerMM(boundary, diameterMM)
	if err != nil {
		return 0, err
	}
	foodPixels := clampPercent(fillPercent) / 100 * math.Pi * boundary.SemiMajor * boundary.SemiMinor
	areaMM2 := foodPixels / (pxMajor * pxMinor)
	return areaMM2 * heightMM / 1000, nil
}
