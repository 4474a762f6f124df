package imaging

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// Ellipse is a rotated ellipse in pixel coordinates.
//
// A circle is the special case SemiMajor == SemiMinor. Angle is the rotation
// of the major axis from the +X axis, in radians.
type Ellipse struct {
	Center    r2.Point `json:"center"`
	SemiMajor float64  `json:"semi_major"`
	SemiMinor float64  `json:"semi_minor"`
	Angle     float64  `json:"angle"`
}

// Circle returns an ellipse with equal axes.
func Circle(cx, cy, r float64) Ellipse {
	return Ellipse{Center: r2.Point{X: cx, Y: cy}, SemiMajor: r, SemiMinor: r}
}

// Scaled returns the ellipse with both axes multiplied by f around the same center.
func (e Ellipse) Scaled(f float64) Ellipse {
	e.SemiMajor *= f
	e.SemiMinor *= f
	return e
}

// Area returns π·a·b in square pixels.
func (e Ellipse) Area() float64 {
	return math.Pi * e.SemiMajor * e.SemiMinor
}

// Contains reports whether the point (x, y) lies inside or on the ellipse.
func (e Ellipse) Contains(x, y float64) bool {
	if e.SemiMajor <= 0 || e.SemiMinor <= 0 {
		return false
	}
	dx := x - e.Center.X
	dy := y - e.Center.Y
	cos, sin := math.Cos(e.Angle), math.Sin(e.Angle)
	u := dx*cos + dy*sin
	v := -dx*sin + dy*cos
	return (u*u)/(e.SemiMajor*e.SemiMajor)+(v*v)/(e.SemiMinor*e.SemiMinor) <= 1
}

// PointAt returns the point at parametric angle theta on the ellipse scaled by frac.
func (e Ellipse) PointAt(theta, frac float64) r2.Point {
	u := e.SemiMajor * frac * math.Cos(theta)
	v := e.SemiMinor * frac * math.Sin(theta)
	cos, sin := math.Cos(e.Angle), math.Sin(e.Angle)
	return r2.Point{
		X: e.Center.X + u*cos - v*sin,
		Y: e.Center.Y + u*sin + v*cos,
	}
}

// BoundingBox returns the axis-aligned extent of the ellipse as floats
// (minX, minY, maxX, maxY).
func (e Ellipse) BoundingBox() (float64, float64, float64, float64) {
	cos, sin := math.Cos(e.Angle), math.Sin(e.Angle)
	hw := math.Sqrt(e.SemiMajor*e.SemiMajor*cos*cos + e.SemiMinor*e.SemiMinor*sin*sin)
	hh := math.Sqrt(e.SemiMajor*e.SemiMajor*sin*sin + e.SemiMinor*e.SemiMinor*cos*cos)
	return e.Center.X - hw, e.Center.Y - hh, e.Center.X + hw, e.Center.Y + hh
}

// Within reports whether the whole ellipse lies inside a width×height frame.
func (e Ellipse) Within(width, height int) bool {
	minX, minY, maxX, maxY := e.BoundingBox()
	return minX >= 0 && minY >= 0 && maxX <= float64(width-1) && maxY <= float64(height-1)
}

// Mask rasterizes the ellipse into a width×height mask, testing pixel centers.
func (e Ellipse) Mask(width, height int) *Mask {
	m := NewMask(width, height)
	minX, minY, maxX, maxY := e.BoundingBox()
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1).
		Intersect(image.Rect(0, 0, width, height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if e.Contains(float64(x), float64(y)) {
				m.Bits[y*width+x] = true
			}
		}
	}
	return m
}
