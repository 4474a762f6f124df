// Package config loads plate-fill settings from YAML and the environment.
//
// Each pipeline stage owns its own config type with a DefaultConfig; this
// package only gathers them into one document:
//
//	scale:
//	  utensil: plate
//	  diameter_mm: 260
//	  assumed_height_mm: 15
//	detection:
//	  canny_low: 50
//	segmentation:
//	  delta_e: 18
//	  refine:
//	    enabled: true
//
// Missing keys keep their defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/plate-fill-mcp/internal/detection"
	"github.com/ironsheep/plate-fill-mcp/internal/segmentation"
)

// EnvConfig names the YAML file Resolve loads when no path is given.
const EnvConfig = "PLATE_FILL_CONFIG"

// Environment overrides applied by ApplyEnv.
const (
	EnvUtensil    = "PLATE_FILL_UTENSIL"
	EnvDiameterMM = "PLATE_FILL_DIAMETER_MM"
	EnvHeightMM   = "PLATE_FILL_HEIGHT_MM"
	EnvMinRadius  = "PLATE_FILL_MIN_RADIUS"
	EnvMaxRadius  = "PLATE_FILL_MAX_RADIUS"
)

// Config is the complete pipeline configuration.
type Config struct {
	Scale        ScaleContext              `yaml:"scale"`
	Detection    detection.Config          `yaml:"detection"`
	Rim          segmentation.RimConfig    `yaml:"rim"`
	Segmentation segmentation.Config       `yaml:"segmentation"`
	Smoothing    detection.SmoothingConfig `yaml:"smoothing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Scale:        DefaultScale(),
		Detection:    detection.DefaultConfig(),
		Rim:          segmentation.DefaultRimConfig(),
		Segmentation: segmentation.DefaultConfig(),
		Smoothing:    detection.DefaultSmoothingConfig(),
	}
}

// Load reads a YAML file over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "can't read config file %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "can't parse config file %s", path)
	}
	return cfg, nil
}

// Resolve is what the binaries use: load path (or $PLATE_FILL_CONFIG when
// path is empty), apply environment overrides and validate.
func Resolve(path string) (Config, error) {
	return resolve(path, os.Getenv)
}

func resolve(path string, getenv func(string) string) (Config, error) {
	if path == "" {
		path = getenv(EnvConfig)
	}
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// ApplyEnv overrides scale settings from PLATE_FILL_* variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvUtensil); v != "" {
		kind, err := ParseKind(v)
		if err != nil {
			return errors.Wrap(err, EnvUtensil)
		}
		c.Scale.Kind = kind
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{EnvDiameterMM, &c.Scale.DiameterMM},
		{EnvHeightMM, &c.Scale.HeightMM},
	}
	for _, f := range floats {
		if v := getenv(f.name); v != "" {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return errors.Wrap(err, f.name)
			}
			*f.dst = n
		}
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{EnvMinRadius, &c.Scale.MinRadius},
		{EnvMaxRadius, &c.Scale.MaxRadius},
	}
	for _, f := range ints {
		if v := getenv(f.name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrap(err, f.name)
			}
			*f.dst = n
		}
	}
	return nil
}

// Validate checks every section. Scale values that only disable volume
// estimation (non-positive diameter or height) are not errors here; the
// pipeline reports them as warnings per frame.
func (c Config) Validate() error {
	if err := c.Scale.Validate(); err != nil {
		return fmt.Errorf("scale: %w", err)
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.Rim.Validate(); err != nil {
		return fmt.Errorf("rim: %w", err)
	}
	if err := c.Segmentation.Validate(); err != nil {
		return fmt.Errorf("segmentation: %w", err)
	}
	if c.Smoothing.Alpha <= 0 || c.Smoothing.Alpha > 1 {
		return fmt.Errorf("smoothing: alpha must be in (0, 1], got %g", c.Smoothing.Alpha)
	}
	if c.Smoothing.MaxJump <= 0 {
		return fmt.Errorf("smoothing: max_jump must be positive, got %g", c.Smoothing.MaxJump)
	}
	return nil
}
