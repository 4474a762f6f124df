package imaging

import (
	"image"
	"image/color"
)

// Mask is a binary per-pixel mask with the same dimensions as a frame.
//
// Bits are stored row-major; the pixel (x, y) lives at Bits[y*Width+x].
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask creates an empty mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// At reports whether (x, y) is set. Coordinates outside the mask are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set assigns (x, y). Coordinates outside the mask are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	copy(c.Bits, m.Bits)
	return c
}

// And returns the intersection of m and o. Sizes must match; pixels outside
// the smaller mask are unset.
func (m *Mask) And(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Bits[y*m.Width+x] && o.At(x, y) {
				out.Bits[y*m.Width+x] = true
			}
		}
	}
	return out
}

// SubsetOf reports whether every set pixel of m is also set in o.
func (m *Mask) SubsetOf(o *Mask) bool {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Bits[y*m.Width+x] && !o.At(x, y) {
				return false
			}
		}
	}
	return true
}

// Extent returns the bounding rectangle of the set pixels, or an empty
// rectangle when the mask is empty.
func (m *Mask) Extent() image.Rectangle {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Bits[y*m.Width+x] {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Gray renders the mask as a grayscale image (set = 255, unset = 0).
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			img.Pix[i] = 255
		}
	}
	return img
}

// MaskFromGray sets every pixel whose gray value is at least level.
func MaskFromGray(img image.Image, level uint8) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(x+b.Min.X, y+b.Min.Y)).(color.Gray)
			if g.Y >= level {
				m.Bits[y*m.Width+x] = true
			}
		}
	}
	return m
}
