package detection

import (
	"math"

	"github.com/golang/geo/r2"
)

// SmoothingConfig controls frame-to-frame boundary smoothing.
type SmoothingConfig struct {
	// Enabled turns smoothing on. Single-image callers leave it off.
	Enabled bool `yaml:"enabled"`

	// Alpha is the weight given to the new detection, in (0, 1].
	Alpha float64 `yaml:"alpha"`

	// MaxJump resets the state when the center moves, or an axis changes,
	// by more than MaxJump × the previous semi-major axis.
	MaxJump float64 `yaml:"max_jump"`

	// MaxMisses resets the state after this many consecutive frames
	// without a detection.
	MaxMisses int `yaml:"max_misses"`
}

// DefaultSmoothingConfig returns the smoothing defaults.
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		Enabled:   true,
		Alpha:     0.4,
		MaxJump:   0.25,
		MaxMisses: 5,
	}
}

// SmoothingState is the only state carried between frames. The zero value is
// ready to use. It is owned by the caller and is not safe for concurrent use.
type SmoothingState struct {
	last              Boundary
	hasLast           bool
	consecutiveMisses int
	resets            int
}

// Update folds a new detection into the state and returns the boundary to
// use for this frame.
func (s *SmoothingState) Update(b Boundary, cfg SmoothingConfig) Boundary {
	s.consecutiveMisses = 0
	if !s.hasLast || !cfg.Enabled {
		s.last, s.hasLast = b, true
		return b
	}

	prev := s.last
	limit := cfg.MaxJump * prev.SemiMajor
	shift := b.Center.Sub(prev.Center).Norm()
	if shift > limit ||
		math.Abs(b.SemiMajor-prev.SemiMajor) > limit ||
		math.Abs(b.SemiMinor-prev.SemiMinor) > limit {
		s.resets++
		s.last = b
		return b
	}

	alpha := cfg.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	out := b
	out.Center = r2.Point{
		X: lerp(prev.Center.X, b.Center.X, alpha),
		Y: lerp(prev.Center.Y, b.Center.Y, alpha),
	}
	out.SemiMajor = lerp(prev.SemiMajor, b.SemiMajor, alpha)
	out.SemiMinor = lerp(prev.SemiMinor, b.SemiMinor, alpha)
	out.Angle = prev.Angle + alpha*angleDelta(prev.Angle, b.Angle)

	s.last = out
	return out
}

// Miss records a frame with no detection. After MaxMisses consecutive
// misses the state is cleared so the next detection is taken as is.
func (s *SmoothingState) Miss(cfg SmoothingConfig) {
	s.consecutiveMisses++
	if cfg.MaxMisses > 0 && s.consecutiveMisses >= cfg.MaxMisses && s.hasLast {
		s.Reset()
	}
}

// Reset clears the state.
func (s *SmoothingState) Reset() {
	s.last = Boundary{}
	s.hasLast = false
	s.consecutiveMisses = 0
	s.resets++
}

// Last returns the most recent smoothed boundary, if any.
func (s *SmoothingState) Last() (Boundary, bool) {
	return s.last, s.hasLast
}

// ConsecutiveMisses returns how many frames in a row had no detection.
func (s *SmoothingState) ConsecutiveMisses() int {
	return s.consecutiveMisses
}

// Resets returns how many times the state has been reset.
func (s *SmoothingState) Resets() int {
	return s.resets
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// angleDelta returns to - from wrapped into [-π/2, π/2); ellipse axes are
// symmetric under a half turn.
func angleDelta(from, to float64) float64 {
	d := math.Mod(to-from+math.Pi/2, math.Pi)
	if d < 0 {
		d += math.Pi
	}
	return d - math.Pi/2
}
