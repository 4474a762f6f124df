package segmentation

import (
	"image"
	"image/color"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// Label is a trimap class.
type Label uint8

// Trimap labels. Outside marks pixels not in the interior mask; they never
// become food.
const (
	Outside Label = iota
	Background
	Unknown
	Foreground
)

func (l Label) String() string {
	switch l {
	case Background:
		return "background"
	case Unknown:
		return "unknown"
	case Foreground:
		return "foreground"
	default:
		return "outside"
	}
}

// Trimap is a per-pixel three-way labelling of the interior.
type Trimap struct {
	Width  int
	Height int
	Labels []Label
}

// At returns the label at (x, y); Outside for out-of-range coordinates.
func (t *Trimap) At(x, y int) Label {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return Outside
	}
	return t.Labels[y*t.Width+x]
}

// Count returns how many pixels carry label l.
func (t *Trimap) Count(l Label) int {
	n := 0
	for _, v := range t.Labels {
		if v == l {
			n++
		}
	}
	return n
}

// Mask returns the pixels labelled l.
func (t *Trimap) Mask(l Label) *imaging.Mask {
	m := imaging.NewMask(t.Width, t.Height)
	for i, v := range t.Labels {
		m.Bits[i] = v == l
	}
	return m
}

// Gray renders the trimap for debugging: outside black, background dark
// gray, unknown mid gray, foreground white.
func (t *Trimap) Gray() *image.Gray {
	levels := [...]uint8{Outside: 0, Background: 64, Unknown: 128, Foreground: 255}
	img := image.NewGray(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: levels[t.Labels[y*t.Width+x]]})
		}
	}
	return img
}

// CoarseMask marks interior pixels whose distance from the base color
// exceeds threshold.
func CoarseMask(lab []imaging.Lab, interior *imaging.Mask, base imaging.Lab, threshold float64) *imaging.Mask {
	m := imaging.NewMask(interior.Width, interior.Height)
	for i, in := range interior.Bits {
		if in && lab[i].DeltaE(base) > threshold {
			m.Bits[i] = true
		}
	}
	return m
}

// BuildTrimap labels each interior pixel:
//
//   - Background when its ΔE from base is below BackgroundFactor·threshold
//   - Foreground when ΔE exceeds ForegroundFactor·threshold and at least
//     NeighborMajority of its 8 neighbours are coarse food
//   - Unknown otherwise
func BuildTrimap(lab []imaging.Lab, interior, coarse *imaging.Mask, base imaging.Lab, threshold float64, cfg Config) *Trimap {
	w, h := interior.Width, interior.Height
	t := &Trimap{Width: w, Height: h, Labels: make([]Label, w*h)}
	bgLimit := cfg.BackgroundFactor * threshold
	fgLimit := cfg.ForegroundFactor * threshold

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !interior.Bits[i] {
				continue
			}
			d := lab[i].DeltaE(base)
			switch {
			case d < bgLimit:
				t.Labels[i] = Background
			case d > fgLimit && coarseNeighbors(coarse, x, y) >= cfg.NeighborMajority:
				t.Labels[i] = Foreground
			default:
				t.Labels[i] = Unknown
			}
		}
	}
	return t
}

func coarseNeighbors(coarse *imaging.Mask, x, y int) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if (dx != 0 || dy != 0) && coarse.At(x+dx, y+dy) {
				n++
			}
		}
	}
	return n
}
