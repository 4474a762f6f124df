package imaging

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Lab represents a color in CIE L*a*b* space (D65 white point).
//
// Components use conventional units rather than go-colorful's normalized ones:
//   - L: lightness 0 (black) to 100 (white)
//   - A: green (negative) to red (positive)
//   - B: blue (negative) to yellow (positive)
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// LabFromRGB converts 8-bit sRGB components to Lab.
func LabFromRGB(r, g, b uint8) Lab {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	l, a, bb := c.Lab()
	return Lab{L: l * 100, A: a * 100, B: bb * 100}
}

// DeltaE returns the CIE76 color difference (Euclidean distance in Lab).
func (c Lab) DeltaE(o Lab) float64 {
	dl := c.L - o.L
	da := c.A - o.A
	db := c.B - o.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// Hex returns the nearest displayable sRGB color as "#rrggbb".
func (c Lab) Hex() string {
	return colorful.Lab(c.L/100, c.A/100, c.B/100).Clamped().Hex()
}

// LabAt returns the Lab color of pixel (x, y) of a normalized frame.
// No bounds checking is performed; caller must ensure coordinates are valid.
func LabAt(frame *image.NRGBA, x, y int) Lab {
	i := y*frame.Stride + x*4
	return LabFromRGB(frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2])
}

// LabPlane converts every pixel selected by roi to Lab.
//
// The returned slice is row-major with the frame's dimensions; pixels outside
// roi are left as the zero Lab value. Identical RGB triples are converted once,
// which keeps flat regions (the common case for plates) cheap.
func LabPlane(frame *image.NRGBA, roi *Mask) []Lab {
	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	plane := make([]Lab, w*h)
	memo := make(map[uint32]Lab)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if roi != nil && !roi.Bits[y*w+x] {
				continue
			}
			i := y*frame.Stride + x*4
			key := uint32(frame.Pix[i])<<16 | uint32(frame.Pix[i+1])<<8 | uint32(frame.Pix[i+2])
			lab, ok := memo[key]
			if !ok {
				lab = LabFromRGB(frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2])
				if len(memo) < 1<<16 {
					memo[key] = lab
				}
			}
			plane[y*w+x] = lab
		}
	}
	return plane
}
