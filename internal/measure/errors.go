package measure

import (
	"errors"

	"github.com/ironsheep/plate-fill-mcp/internal/detection"
)

var (
	// ErrNoUtensil means no strategy found a boundary; skip the frame.
	ErrNoUtensil = detection.ErrNoUtensil

	// ErrDegenerateInterior means the interior mask has no pixels, so there
	// is no fill to report.
	ErrDegenerateInterior = errors.New("interior mask is empty")

	// ErrInvalidScale means the diameter or assumed height is not positive.
	// Volume is skipped; fill is still reported.
	ErrInvalidScale = errors.New("diameter and assumed height must be positive")
)
