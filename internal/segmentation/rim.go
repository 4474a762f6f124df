package segmentation

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// RimConfig controls where the empty-surface color is sampled.
type RimConfig struct {
	// Inner and Outer bound the sampling annulus as fractions of the
	// boundary's semi-axes.
	Inner float64 `yaml:"inner"`
	Outer float64 `yaml:"outer"`

	// Rings is the number of concentric sampling rings between Inner and Outer.
	Rings int `yaml:"rings"`

	// Angles is the number of samples per ring.
	Angles int `yaml:"angles"`

	// MinSamples is the fewest usable samples for a confident base color.
	MinSamples int `yaml:"min_samples"`

	// OutlierDeltaE drops samples farther than this from the first median
	// (glare, shadow, food on the rim). Zero keeps every sample.
	OutlierDeltaE float64 `yaml:"outlier_delta_e"`
}

// DefaultRimConfig returns the sampling defaults.
func DefaultRimConfig() RimConfig {
	return RimConfig{
		Inner:         0.90,
		Outer:         0.95,
		Rings:         3,
		Angles:        120,
		MinSamples:    16,
		OutlierDeltaE: 12,
	}
}

// Validate checks that the config is usable.
func (c RimConfig) Validate() error {
	if c.Inner <= 0 || c.Outer > 1 || c.Inner > c.Outer {
		return fmt.Errorf("rim annulus must satisfy 0 < inner <= outer <= 1, got [%g, %g]", c.Inner, c.Outer)
	}
	if c.Rings < 1 || c.Angles < 1 {
		return fmt.Errorf("rim rings and angles must be positive, got %d/%d", c.Rings, c.Angles)
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("rim min_samples must be positive, got %d", c.MinSamples)
	}
	if c.OutlierDeltaE < 0 {
		return fmt.Errorf("rim outlier_delta_e must be non-negative, got %g", c.OutlierDeltaE)
	}
	return nil
}

// Base color sources.
const (
	SourceRim      = "rim"
	SourceInterior = "interior"
)

// BaseColor is the estimated color of the empty utensil surface.
type BaseColor struct {
	Color imaging.Lab `json:"lab"`

	// Samples is how many pixels contributed.
	Samples int `json:"samples"`

	// LowConfidence is set when fewer than MinSamples usable rim pixels were
	// found, typically because food covers the rim.
	LowConfidence bool `json:"low_confidence"`

	// Source is SourceRim, or SourceInterior for the whole-interior fallback.
	Source string `json:"source"`
}

// SampleRim estimates the base color from a thin annulus just inside the
// utensil boundary.
//
// Samples outside interior or inside exclude (may be nil) are dropped. The
// result is the per-channel median in Lab. Samples far from a first median
// are then dropped and the median recomputed, so a rim hidden under varied
// food yields few usable samples and a LowConfidence result.
func SampleRim(frame *image.NRGBA, boundary imaging.Ellipse, interior, exclude *imaging.Mask, cfg RimConfig) BaseColor {
	rings := cfg.Rings
	if rings < 1 {
		rings = 1
	}
	samples := make([]imaging.Lab, 0, rings*cfg.Angles)
	for ring := 0; ring < rings; ring++ {
		frac := cfg.Inner
		if rings > 1 {
			frac += (cfg.Outer - cfg.Inner) * float64(ring) / float64(rings-1)
		}
		for i := 0; i < cfg.Angles; i++ {
			theta := 2 * math.Pi * float64(i) / float64(cfg.Angles)
			p := boundary.PointAt(theta, frac)
			x, y := int(math.Round(p.X)), int(math.Round(p.Y))
			if !interior.At(x, y) {
				continue
			}
			if exclude != nil && exclude.At(x, y) {
				continue
			}
			samples = append(samples, imaging.LabAt(frame, x, y))
		}
	}

	if cfg.OutlierDeltaE > 0 && len(samples) > 0 {
		first := medianLab(samples)
		kept := samples[:0]
		for _, c := range samples {
			if c.DeltaE(first) <= cfg.OutlierDeltaE {
				kept = append(kept, c)
			}
		}
		samples = kept
	}

	return BaseColor{
		Color:         medianLab(samples),
		Samples:       len(samples),
		LowConfidence: len(samples) < cfg.MinSamples,
		Source:        SourceRim,
	}
}

// Dominant surface search parameters.
const (
	// surfaceBin is the Lab bin width used to find the dominant color.
	surfaceBin = 8.0

	// surfaceChroma is the largest chroma a bin may have to count as a bare
	// plate or bowl surface.
	surfaceChroma = 20.0

	// surfaceMinShare is the smallest fraction of the interior a neutral bin
	// must hold to be preferred over a more populous colorful one.
	surfaceMinShare = 0.02

	// surfaceDeltaE gathers the pixels around the chosen bin.
	surfaceDeltaE = 12.0
)

// InteriorSurface estimates the empty-surface color from the interior alone.
// It is the fallback base color when the rim is hidden.
//
// Interior pixels are binned in Lab. The most populous neutral (low chroma)
// bin holding at least surfaceMinShare of the interior is taken as the bare
// surface; without one the most populous bin overall is used. The result is
// the median of the pixels within surfaceDeltaE of that bin's mean.
func InteriorSurface(lab []imaging.Lab, interior *imaging.Mask) BaseColor {
	type bin struct {
		n       int
		l, a, b float64
	}
	bins := make(map[[3]int]*bin)
	total := 0
	for i, in := range interior.Bits {
		if !in {
			continue
		}
		c := lab[i]
		key := [3]int{
			int(math.Floor(c.L / surfaceBin)),
			int(math.Floor(c.A / surfaceBin)),
			int(math.Floor(c.B / surfaceBin)),
		}
		bn := bins[key]
		if bn == nil {
			bn = &bin{}
			bins[key] = bn
		}
		bn.n++
		bn.l += c.L
		bn.a += c.A
		bn.b += c.B
		total++
	}
	if total == 0 {
		return BaseColor{Source: SourceInterior}
	}

	better := func(x *bin, best *bin) bool {
		if best == nil || x.n > best.n {
			return true
		}
		return x.n == best.n && x.l > best.l
	}
	var neutral, top *bin
	for _, bn := range bins {
		mean := imaging.Lab{L: bn.l / float64(bn.n), A: bn.a / float64(bn.n), B: bn.b / float64(bn.n)}
		if better(bn, top) {
			top = bn
		}
		if math.Hypot(mean.A, mean.B) <= surfaceChroma && float64(bn.n) >= surfaceMinShare*float64(total) && better(bn, neutral) {
			neutral = bn
		}
	}
	chosen := top
	if neutral != nil {
		chosen = neutral
	}
	center := imaging.Lab{
		L: chosen.l / float64(chosen.n),
		A: chosen.a / float64(chosen.n),
		B: chosen.b / float64(chosen.n),
	}

	samples := make([]imaging.Lab, 0, chosen.n)
	for i, in := range interior.Bits {
		if in && lab[i].DeltaE(center) <= surfaceDeltaE {
			samples = append(samples, lab[i])
		}
	}
	return BaseColor{
		Color:   medianLab(samples),
		Samples: len(samples),
		Source:  SourceInterior,
	}
}

// medianLab returns the per-channel median, or the zero color for no samples.
func medianLab(samples []imaging.Lab) imaging.Lab {
	if len(samples) == 0 {
		return imaging.Lab{}
	}
	l := make([]float64, len(samples))
	a := make([]float64, len(samples))
	b := make([]float64, len(samples))
	for i, s := range samples {
		l[i], a[i], b[i] = s.L, s.A, s.B
	}
	return imaging.Lab{L: median(l), A: median(a), B: median(b)}
}

func median(x []float64) float64 {
	sort.Float64s(x)
	return stat.Quantile(0.5, stat.Empirical, x, nil)
}
