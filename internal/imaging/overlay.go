package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Overlay colors and layout, matching the preview the web app has always drawn.
var (
	BoundaryColor = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
	FoodTint      = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	TextColor     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	// FoodTintOpacity is the blend weight of the food tint layer.
	FoodTintOpacity = 0.3

	hudLeft       = 10
	hudTop        = 30
	hudLineHeight = 24
)

// Annotation describes what to draw on top of a frame.
type Annotation struct {
	// Boundary is the utensil outline; nil when no utensil was found.
	Boundary *Ellipse

	// Food is tinted red; nil to skip.
	Food *Mask

	// Lines are HUD text lines drawn top-left.
	Lines []string
}

// Render draws an annotation over a copy of frame.
//
// The food mask is blended in at FoodTintOpacity, the boundary is stroked two
// pixels wide, and HUD lines are drawn last so they stay legible.
func Render(frame image.Image, ann Annotation) *image.NRGBA {
	out := imaging.Clone(frame)

	if ann.Food != nil {
		tint := imaging.Clone(out)
		for y := 0; y < ann.Food.Height && y < tint.Rect.Dy(); y++ {
			for x := 0; x < ann.Food.Width && x < tint.Rect.Dx(); x++ {
				if ann.Food.Bits[y*ann.Food.Width+x] {
					tint.SetNRGBA(x, y, FoodTint)
				}
			}
		}
		out = imaging.Overlay(out, tint, image.Pt(0, 0), FoodTintOpacity)
	}

	if ann.Boundary != nil {
		strokeEllipse(out, *ann.Boundary, 2, BoundaryColor)
	}

	for i, line := range ann.Lines {
		drawText(out, hudLeft, hudTop+i*hudLineHeight, line, TextColor)
	}
	return out
}

// strokeEllipse draws the outline of e with the given pen width.
func strokeEllipse(img *image.NRGBA, e Ellipse, width int, c color.NRGBA) {
	perimeter := 2 * math.Pi * math.Max(e.SemiMajor, e.SemiMinor)
	steps := int(perimeter*2) + 16
	half := float64(width) / 2
	bounds := img.Bounds()
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		p := e.PointAt(theta, 1)
		for dy := -half; dy < half; dy++ {
			for dx := -half; dx < half; dx++ {
				px := int(math.Round(p.X + dx))
				py := int(math.Round(p.Y + dy))
				if image.Pt(px, py).In(bounds) {
					img.SetNRGBA(px, py, c)
				}
			}
		}
	}
}

// drawText renders a single line using the 7x13 bitmap face with its baseline at y.
func drawText(img draw.Image, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// EncodeJPEGDataURL encodes img as a JPEG data URL ("data:image/jpeg;base64,...").
func EncodeJPEGDataURL(img image.Image, quality int) (string, error) {
	raw, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeJPEG encodes img as JPEG bytes.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNGBase64 encodes img as a base64 PNG without a data-URL prefix.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
