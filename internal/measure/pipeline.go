package measure

import (
	"fmt"
	"image"

	"github.com/ironsheep/plate-fill-mcp/internal/config"
	"github.com/ironsheep/plate-fill-mcp/internal/detection"
	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
	"github.com/ironsheep/plate-fill-mcp/internal/log"
	"github.com/ironsheep/plate-fill-mcp/internal/segmentation"
)

// Measurement is the per-frame output. VolumeML is nil for bowls, auto mode
// and frames with an invalid scale.
type Measurement struct {
	FillPercent float64  `json:"percent_fill"`
	VolumeML    *float64 `json:"volume_ml"`
}

// Debug holds intermediate stages for visualization.
type Debug struct {
	// Edges is the Canny map at detection resolution; Scale maps it back.
	Edges *imaging.Mask
	Scale float64

	Coarse *imaging.Mask
	Trimap *segmentation.Trimap
}

// Result is everything Measure knows about one frame.
type Result struct {
	// Measurement is nil when no fill could be computed.
	Measurement *Measurement `json:"measurement,omitempty"`

	// Boundary is the (possibly smoothed) boundary used for measuring;
	// Raw is the locator's output for this frame.
	Boundary detection.Boundary `json:"boundary"`
	Raw      detection.Boundary `json:"raw_boundary"`

	Interior *imaging.Mask           `json:"-"`
	Food     *imaging.Mask           `json:"-"`
	Base     *segmentation.BaseColor `json:"base_color,omitempty"`

	Kind     config.Kind `json:"utensil"`
	Warnings []string    `json:"warnings,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`

	Debug *Debug `json:"-"`
}

// Annotation returns the overlay for this result: boundary, food tint and the
// HUD lines "Utensil", "Fill", "Vol" or "Utensil not detected".
func (r *Result) Annotation() imaging.Annotation {
	ann := imaging.Annotation{Lines: []string{fmt.Sprintf("Utensil: %s", r.Kind)}}
	if r.Boundary.Valid {
		e := r.Boundary.Ellipse
		ann.Boundary = &e
		ann.Food = r.Food
	}
	if r.Measurement != nil {
		ann.Lines = append(ann.Lines, fmt.Sprintf("Fill: %.1f%%", r.Measurement.FillPercent))
		if r.Measurement.VolumeML != nil {
			ann.Lines = append(ann.Lines, fmt.Sprintf("Vol: %.0f ml", *r.Measurement.VolumeML))
		}
	}
	if !r.Boundary.Valid {
		ann.Lines = append(ann.Lines, "Utensil not detected")
	}
	return ann
}

// Pipeline runs locate → sample → segment → measure on single frames.
// It holds no per-frame state and is safe for concurrent use; the only
// cross-frame state is the SmoothingState passed to Measure.
type Pipeline struct {
	cfg       config.Config
	locator   *detection.Locator
	segmenter *segmentation.Segmenter
	debug     bool
}

// New creates a pipeline from a validated config.
func New(cfg config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Pipeline{
		cfg:       cfg,
		locator:   detection.NewLocator(cfg.Detection),
		segmenter: segmentation.NewSegmenter(cfg.Rim, cfg.Segmentation),
	}, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// WithScale returns a copy measuring with a different scale context.
func (p *Pipeline) WithScale(s config.ScaleContext) *Pipeline {
	c := *p
	c.cfg.Scale = s
	return &c
}

// WithLocator returns a copy using l for detection.
func (p *Pipeline) WithLocator(l *detection.Locator) *Pipeline {
	c := *p
	c.locator = l
	return &c
}

// WithRefiner returns a copy whose segmenter refines with r; nil disables
// refinement.
func (p *Pipeline) WithRefiner(r segmentation.Refiner) *Pipeline {
	c := *p
	c.segmenter = p.segmenter.WithRefiner(r)
	return &c
}

// WithDebug returns a copy that fills Result.Debug.
func (p *Pipeline) WithDebug(on bool) *Pipeline {
	c := *p
	c.debug = on
	return &c
}

// Measure processes one frame.
//
// state may be nil for single images. On ErrNoUtensil and
// ErrDegenerateInterior the returned Result is still non-nil (for overlays
// and debug output) but carries no Measurement. An invalid scale is not an
// error: the fill is reported and the problem is listed in Warnings.
func (p *Pipeline) Measure(frame image.Image, state *detection.SmoothingState) (*Result, error) {
	img := imaging.Normalize(frame)
	width, height := img.Rect.Dx(), img.Rect.Dy()
	scale := p.cfg.Scale
	res := &Result{Kind: scale.Kind, Width: width, Height: height}

	det, err := p.locator.Locate(img, scale.MinRadius, scale.MaxRadius)
	if det != nil && p.debug {
		res.Debug = &Debug{Edges: det.Edges.Mask(), Scale: det.Scale}
	}
	if err != nil {
		if state != nil {
			state.Miss(p.cfg.Smoothing)
		}
		log.Debug("no utensil in frame", "width", width, "height", height)
		return res, err
	}

	res.Raw = det.Boundary
	res.Boundary = det.Boundary
	if state != nil {
		smoothed := state.Update(det.Boundary, p.cfg.Smoothing)
		if smoothed.Within(width, height) {
			res.Boundary = smoothed
		}
	}

	interior := res.Boundary.Interior(width, height, p.cfg.Detection.InteriorMargin)
	res.Interior = interior
	if interior.Count() == 0 {
		return res, ErrDegenerateInterior
	}

	seg := p.segmenter.Segment(img, res.Boundary.Ellipse, interior)
	res.Food = seg.Food
	res.Base = &seg.Base
	if res.Debug != nil {
		res.Debug.Coarse = seg.Coarse
		res.Debug.Trimap = seg.Trimap
	}
	if seg.Base.LowConfidence {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"rim sample low confidence (%d samples): using dominant interior color, refinement skipped", seg.Base.Samples))
	}

	fill, err := Fill(seg.Food, interior)
	if err != nil {
		return res, err
	}
	m := &Measurement{FillPercent: fill}
	if scale.WantsVolume() {
		v, err := Volume(fill, res.Boundary.Ellipse, scale.DiameterMM, scale.HeightMM)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("volume skipped: %v", err))
		} else {
			m.VolumeML = &v
		}
	}
	res.Measurement = m

	for _, w := range res.Warnings {
		log.Warn(w)
	}
	log.Debug("measured frame",
		"strategy", res.Boundary.Strategy,
		"fill", fill,
		"base", seg.Base.Color.Hex(),
		"refined", seg.Refined)
	return res, nil
}
