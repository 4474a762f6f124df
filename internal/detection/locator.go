package detection

import (
	"fmt"
	"image"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// Config holds the utensil locator's tunables. Zero radius bounds mean
// "derive from the frame size".
type Config struct {
	MinRadius int `yaml:"min_radius"`
	MaxRadius int `yaml:"max_radius"`

	CannyLow  int     `yaml:"canny_low"`
	CannyHigh int     `yaml:"canny_high"`
	Sigma     float64 `yaml:"sigma"`

	// MinHoughCoverage is the minimum votes / (2πr) for a hough candidate.
	MinHoughCoverage float64 `yaml:"min_hough_coverage"`
	// MaxHoughCandidates bounds how many accumulator peaks are examined.
	MaxHoughCandidates int `yaml:"max_hough_candidates"`

	// MinCircularity is the minimum filled area / enclosing circle area for
	// the contour fallback.
	MinCircularity float64 `yaml:"min_circularity"`
	// DilateRadius closes small gaps in the edge ring before contour filling.
	// It is rounded to whole pixels.
	DilateRadius float64 `yaml:"dilate_radius"`

	// DetectMaxDim caps the longer side of the image detection runs on.
	// Larger frames are downscaled and the boundary is mapped back.
	DetectMaxDim int `yaml:"detect_max_dim"`

	// InteriorMargin shrinks the boundary to form the interior mask.
	InteriorMargin float64 `yaml:"interior_margin"`
}

// DefaultConfig returns the locator defaults.
func DefaultConfig() Config {
	return Config{
		CannyLow:           50,
		CannyHigh:          150,
		Sigma:              1.4,
		MinHoughCoverage:   0.35,
		MaxHoughCandidates: 5,
		MinCircularity:     0.7,
		DilateRadius:       2,
		DetectMaxDim:       640,
		InteriorMargin:     0.03,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.MinRadius < 0 || c.MaxRadius < 0 {
		return fmt.Errorf("radius bounds must be non-negative, got [%d, %d]", c.MinRadius, c.MaxRadius)
	}
	if c.MaxRadius > 0 && c.MinRadius > c.MaxRadius {
		return fmt.Errorf("min_radius %d exceeds max_radius %d", c.MinRadius, c.MaxRadius)
	}
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("canny thresholds must satisfy 0 <= low <= high, got %d/%d", c.CannyLow, c.CannyHigh)
	}
	if c.MinHoughCoverage <= 0 || c.MinHoughCoverage > 1 {
		return fmt.Errorf("min_hough_coverage must be in (0, 1], got %g", c.MinHoughCoverage)
	}
	if c.MinCircularity <= 0 || c.MinCircularity > 1 {
		return fmt.Errorf("min_circularity must be in (0, 1], got %g", c.MinCircularity)
	}
	if c.InteriorMargin < 0 || c.InteriorMargin >= 0.5 {
		return fmt.Errorf("interior_margin must be in [0, 0.5), got %g", c.InteriorMargin)
	}
	return nil
}

// Input is what a strategy sees: the (possibly downscaled) detection image,
// its edge map, and the radius bounds at that resolution.
type Input struct {
	Image     image.Image
	Edges     *imaging.EdgeMap
	MinRadius float64
	MaxRadius float64
}

// Strategy is one way of finding the utensil. Detect returns false when the
// strategy's best candidate does not clear its own acceptance threshold.
type Strategy interface {
	Name() string
	Detect(in Input) (Boundary, bool)
}

// Locator runs an ordered list of strategies; the first that succeeds wins.
type Locator struct {
	cfg        Config
	strategies []Strategy
}

// NewLocator creates a locator. With no strategies given it uses hough
// followed by the contour fallback.
func NewLocator(cfg Config, strategies ...Strategy) *Locator {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(cfg)
	}
	return &Locator{cfg: cfg, strategies: strategies}
}

// DefaultStrategies returns the standard detection order.
func DefaultStrategies(cfg Config) []Strategy {
	return []Strategy{
		Hough{MinCoverage: cfg.MinHoughCoverage, MaxCandidates: cfg.MaxHoughCandidates},
		Contour{MinCircularity: cfg.MinCircularity, DilateRadius: cfg.DilateRadius},
	}
}

// Strategies returns the names of the configured strategies in order.
func (l *Locator) Strategies() []string {
	names := make([]string, len(l.strategies))
	for i, s := range l.strategies {
		names[i] = s.Name()
	}
	return names
}

// Detection is the outcome of Locate.
type Detection struct {
	Boundary Boundary

	// Edges is the edge map at detection resolution.
	Edges *imaging.EdgeMap

	// Scale is detection resolution / frame resolution.
	Scale float64
}

// Locate finds the utensil boundary in frame.
//
// minRadius and maxRadius are in frame pixels; zero values fall back to the
// config and then to bounds derived from the frame size. The returned error
// is ErrNoUtensil when every strategy declines.
func (l *Locator) Locate(frame image.Image, minRadius, maxRadius int) (*Detection, error) {
	b := frame.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty frame: %w", ErrNoUtensil)
	}

	minR, maxR := l.radiusBounds(width, height, minRadius, maxRadius)

	small, scale := imaging.Downscale(frame, l.cfg.DetectMaxDim)
	edges := imaging.Canny(small, l.cfg.CannyLow, l.cfg.CannyHigh, l.cfg.Sigma)
	in := Input{
		Image:     small,
		Edges:     edges,
		MinRadius: float64(minR) * scale,
		MaxRadius: float64(maxR) * scale,
	}

	det := &Detection{Edges: edges, Scale: scale}
	for _, s := range l.strategies {
		found, ok := s.Detect(in)
		if !ok {
			continue
		}
		found = found.rescaled(scale)
		if !insideFrame(found.Ellipse, width, height, 1/scale) {
			continue
		}
		found.Strategy = s.Name()
		found.Valid = true
		det.Boundary = found
		return det, nil
	}
	return det, ErrNoUtensil
}

func (l *Locator) radiusBounds(width, height, minRadius, maxRadius int) (int, int) {
	derivedMin, derivedMax := imaging.RadiusBounds(width, height)
	if minRadius <= 0 {
		minRadius = l.cfg.MinRadius
	}
	if maxRadius <= 0 {
		maxRadius = l.cfg.MaxRadius
	}
	if minRadius <= 0 {
		minRadius = derivedMin
	}
	if maxRadius <= 0 {
		maxRadius = derivedMax
	}
	if maxRadius < minRadius {
		maxRadius = minRadius
	}
	return minRadius, maxRadius
}
