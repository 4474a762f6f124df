package detection

import (
	"errors"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// ErrNoUtensil is returned when no strategy finds a plausible boundary.
var ErrNoUtensil = errors.New("no utensil boundary found")

// Boundary is a detected plate or bowl outline.
//
// The embedded Ellipse is in frame pixel coordinates. When Valid is true the
// axes are positive, SemiMajor >= SemiMinor, and the ellipse's bounding box
// lies inside the frame it was detected in.
type Boundary struct {
	imaging.Ellipse

	// Score ranks candidates within one strategy. For hough it is the number
	// of supporting edge pixels; for contour it is the filled area.
	Score float64 `json:"score"`

	// Coverage is the fraction of the outline backed by evidence: edge votes
	// per unit circumference for hough, circularity for contour.
	Coverage float64 `json:"coverage"`

	// Strategy names the detector that produced the boundary.
	Strategy string `json:"strategy"`

	Valid bool `json:"valid"`
}

// Interior rasterizes the region strictly inside the boundary, shrunk by
// margin (a fraction of each semi-axis) to keep rim glare out of the mask.
func (b Boundary) Interior(width, height int, margin float64) *imaging.Mask {
	if !b.Valid {
		return imaging.NewMask(width, height)
	}
	if margin < 0 {
		margin = 0
	}
	return b.Scaled(1-margin).Mask(width, height)
}

// rescaled maps a boundary found on a resized frame back to the original.
func (b Boundary) rescaled(scale float64) Boundary {
	if scale == 1 || scale <= 0 {
		return b
	}
	b.Center.X /= scale
	b.Center.Y /= scale
	b.SemiMajor /= scale
	b.SemiMinor /= scale
	return b
}

// insideFrame is Ellipse.Within with a tolerance in pixels, used after
// rescaling where rounding can push a touching boundary a hair outside.
func insideFrame(e imaging.Ellipse, width, height int, slack float64) bool {
	minX, minY, maxX, maxY := e.BoundingBox()
	return minX >= -slack && minY >= -slack &&
		maxX <= float64(width-1)+slack && maxY <= float64(height-1)+slack
}

// selectBest returns the highest scoring candidate, preferring the larger
// radius on equal scores so a plate wins over a concentric inner ring.
func selectBest(candidates []Boundary) (Boundary, bool) {
	var best Boundary
	found := false
	for _, c := range candidates {
		switch {
		case !found:
			best, found = c, true
		case c.Score > best.Score:
			best = c
		case c.Score == best.Score && c.SemiMajor > best.SemiMajor:
			best = c
		}
	}
	return best, found
}
