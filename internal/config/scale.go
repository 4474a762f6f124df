package config

import (
	"fmt"
	"strings"
)

// Kind is the type of utensil being measured.
type Kind string

// Utensil kinds. Only plates get a volume estimate.
const (
	KindPlate Kind = "plate"
	KindBowl  Kind = "bowl"
	KindAuto  Kind = "auto"
)

// ParseKind accepts plate, bowl or auto in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPlate, KindBowl, KindAuto:
		return k, nil
	case "":
		return KindAuto, nil
	default:
		return "", fmt.Errorf("unknown utensil %q (want plate, bowl or auto)", s)
	}
}

// ScaleContext is the per-session physical setup.
type ScaleContext struct {
	Kind Kind `yaml:"utensil" json:"utensil"`

	// DiameterMM is the utensil's interior diameter.
	DiameterMM float64 `yaml:"diameter_mm" json:"diameter_mm"`

	// HeightMM is the assumed average food height on a plate.
	HeightMM float64 `yaml:"assumed_height_mm" json:"assumed_height_mm"`

	// MinRadius and MaxRadius bound the detected radius in frame pixels;
	// zero derives them from the frame size.
	MinRadius int `yaml:"min_radius" json:"min_radius"`
	MaxRadius int `yaml:"max_radius" json:"max_radius"`
}

// DefaultScale is an auto-detected utensil with the web app's 15 mm height.
func DefaultScale() ScaleContext {
	return ScaleContext{
		Kind:       KindAuto,
		DiameterMM: 260,
		HeightMM:   15,
	}
}

// WantsVolume reports whether a volume estimate applies to this utensil.
func (s ScaleContext) WantsVolume() bool {
	return s.Kind == KindPlate
}

// Validate rejects unknown kinds and inconsistent radius bounds.
func (s ScaleContext) Validate() error {
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return err
	}
	if s.MinRadius < 0 || s.MaxRadius < 0 {
		return fmt.Errorf("radius bounds must be non-negative, got [%d, %d]", s.MinRadius, s.MaxRadius)
	}
	if s.MaxRadius > 0 && s.MinRadius > s.MaxRadius {
		return fmt.Errorf("min_radius %d exceeds max_radius %d", s.MinRadius, s.MaxRadius)
	}
	return nil
}
