package measure

import (
	"math"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// Fill returns 100 × |food ∩ interior| / |interior|, clamped to [0, 100].
func Fill(food, interior *imaging.Mask) (float64, error) {
	total := interior.Count()
	if total == 0 {
		return 0, ErrDegenerateInterior
	}
	covered := 0
	for i, in := range interior.Bits {
		if in && i < len(food.Bits) && food.Bits[i] {
			covered++
		}
	}
	return clampPercent(100 * float64(covered) / float64(total)), nil
}

func clampPercent(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}
