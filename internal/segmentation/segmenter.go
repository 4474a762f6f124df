package segmentation

import (
	"fmt"
	"image"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// Config tunes the food segmenter.
type Config struct {
	// DeltaE is the Lab distance from the base color above which a pixel is
	// coarse food.
	DeltaE float64 `yaml:"delta_e"`

	// BackgroundFactor and ForegroundFactor scale DeltaE to the trimap's
	// definite-background and definite-foreground limits.
	BackgroundFactor float64 `yaml:"background_factor"`
	ForegroundFactor float64 `yaml:"foreground_factor"`

	// NeighborMajority is how many of the 8 neighbours must be coarse food
	// for a pixel to be definite foreground.
	NeighborMajority int `yaml:"neighbor_majority"`

	// LowConfidenceScale widens DeltaE when the rim could not be sampled.
	LowConfidenceScale float64 `yaml:"low_confidence_scale"`

	// RimPasses > 1 resamples the rim with the coarse food masked out.
	RimPasses int `yaml:"rim_passes"`

	// MinBlobArea drops food regions smaller than this many pixels.
	MinBlobArea int `yaml:"min_blob_area"`

	Refine RefineConfig `yaml:"refine"`
}

// DefaultConfig returns the segmenter defaults.
func DefaultConfig() Config {
	return Config{
		DeltaE:             18,
		BackgroundFactor:   0.5,
		ForegroundFactor:   1.5,
		NeighborMajority:   5,
		LowConfidenceScale: 1.5,
		RimPasses:          1,
		MinBlobArea:        50,
		Refine:             DefaultRefineConfig(),
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.DeltaE <= 0 {
		return fmt.Errorf("delta_e must be positive, got %g", c.DeltaE)
	}
	if c.BackgroundFactor <= 0 || c.BackgroundFactor > 1 {
		return fmt.Errorf("background_factor must be in (0, 1], got %g", c.BackgroundFactor)
	}
	if c.ForegroundFactor < 1 {
		return fmt.Errorf("foreground_factor must be >= 1, got %g", c.ForegroundFactor)
	}
	if c.NeighborMajority < 0 || c.NeighborMajority > 8 {
		return fmt.Errorf("neighbor_majority must be in [0, 8], got %d", c.NeighborMajority)
	}
	if c.LowConfidenceScale < 1 {
		return fmt.Errorf("low_confidence_scale must be >= 1, got %g", c.LowConfidenceScale)
	}
	if c.RimPasses < 1 {
		return fmt.Errorf("rim_passes must be >= 1, got %d", c.RimPasses)
	}
	if c.Refine.Enabled && (c.Refine.Iterations < 1 || c.Refine.Components < 1) {
		return fmt.Errorf("refine iterations and components must be positive, got %d/%d",
			c.Refine.Iterations, c.Refine.Components)
	}
	return nil
}

// Result is the output of Segment.
type Result struct {
	// Food is the final food mask, always a subset of the interior.
	Food *imaging.Mask

	// Coarse is the thresholded mask before refinement.
	Coarse *imaging.Mask

	// Trimap is nil when segmentation stopped at the coarse stage.
	Trimap *Trimap

	Base      BaseColor
	Threshold float64

	// Refined reports whether the refiner ran.
	Refined bool

	// RimPasses is the number of rim samples taken.
	RimPasses int
}

// Segmenter separates food from the empty utensil surface.
type Segmenter struct {
	rim     RimConfig
	cfg     Config
	refiner Refiner
}

// NewSegmenter creates a segmenter. Refinement uses GrabCut when enabled in
// cfg; WithRefiner swaps it.
func NewSegmenter(rim RimConfig, cfg Config) *Segmenter {
	s := &Segmenter{rim: rim, cfg: cfg}
	if cfg.Refine.Enabled {
		s.refiner = GrabCut{Config: cfg.Refine}
	}
	return s
}

// WithRefiner returns a copy of s that refines with r; nil disables refinement.
func (s *Segmenter) WithRefiner(r Refiner) *Segmenter {
	c := *s
	c.refiner = r
	return &c
}

// Segment produces the food mask for the region inside boundary.
//
// A low-confidence rim sample switches the base color to the dominant
// interior surface color (InteriorSurface), widens the threshold by LowConfidenceScale and returns the coarse
// mask without refinement.
func (s *Segmenter) Segment(frame *image.NRGBA, boundary imaging.Ellipse, interior *imaging.Mask) *Result {
	lab := imaging.LabPlane(frame, interior)
	res := &Result{Threshold: s.cfg.DeltaE, RimPasses: 1}

	base := SampleRim(frame, boundary, interior, nil, s.rim)
	if base.LowConfidence {
		fallback := InteriorSurface(lab, interior)
		fallback.LowConfidence = true
		res.Base = fallback
		res.Threshold = s.cfg.DeltaE * s.cfg.LowConfidenceScale
		res.Coarse = CoarseMask(lab, interior, fallback.Color, res.Threshold)
		res.Food = res.Coarse.Clone()
		res.Food.RemoveSmallRegions(s.cfg.MinBlobArea)
		return res
	}

	coarse := CoarseMask(lab, interior, base.Color, res.Threshold)
	for pass := 1; pass < s.cfg.RimPasses; pass++ {
		resampled := SampleRim(frame, boundary, interior, coarse, s.rim)
		res.RimPasses++
		if resampled.LowConfidence {
			break
		}
		base = resampled
		coarse = CoarseMask(lab, interior, base.Color, res.Threshold)
	}
	res.Base = base
	res.Coarse = coarse

	res.Trimap = BuildTrimap(lab, interior, coarse, base.Color, res.Threshold, s.cfg)
	food := coarse.Clone()
	if s.refiner != nil {
		food = s.refiner.Refine(lab, res.Trimap, coarse)
		res.Refined = true
	}
	food = food.And(interior)
	food.RemoveSmallRegions(s.cfg.MinBlobArea)
	res.Food = food
	return res
}
