package imaging

import (
	"image"
	"math"
	"testing"
)

func TestMask_SetAt(t *testing.T) {
	m := NewMask(10, 5)
	m.Set(3, 4, true)
	m.Set(-1, 0, true) // ignored
	m.Set(10, 0, true) // ignored

	if !m.At(3, 4) {
		t.Error("At(3,4) should be set")
	}
	if m.At(4, 3) {
		t.Error("At(4,3) should be unset")
	}
	if m.At(-1, 0) || m.At(0, 5) {
		t.Error("out-of-range At should be false")
	}
	if m.Count() != 1 {
		t.Errorf("Count: got %d, want 1", m.Count())
	}
}

func TestMask_AndSubset(t *testing.T) {
	a := NewMask(4, 4)
	b := NewMask(4, 4)
	a.Set(1, 1, true)
	a.Set(2, 2, true)
	b.Set(2, 2, true)
	b.Set(3, 3, true)

	and := a.And(b)
	if and.Count() != 1 || !and.At(2, 2) {
		t.Errorf("And: got %d pixels, want only (2,2)", and.Count())
	}
	if !and.SubsetOf(a) || !and.SubsetOf(b) {
		t.Error("intersection should be a subset of both operands")
	}
	if a.SubsetOf(b) {
		t.Error("a is not a subset of b")
	}
}

func TestMask_CloneIndependent(t *testing.T) {
	a := NewMask(3, 3)
	a.Set(0, 0, true)
	c := a.Clone()
	c.Set(1, 1, true)
	if a.At(1, 1) {
		t.Error("Clone should not share storage")
	}
}

func TestMask_Extent(t *testing.T) {
	m := NewMask(20, 20)
	if !m.Extent().Empty() {
		t.Error("empty mask should have an empty extent")
	}
	m.Set(3, 4, true)
	m.Set(10, 12, true)
	if got, want := m.Extent(), image.Rect(3, 4, 11, 13); got != want {
		t.Errorf("Extent: got %v, want %v", got, want)
	}
}

func TestMask_GrayRoundTrip(t *testing.T) {
	m := NewMask(8, 8)
	m.Set(1, 2, true)
	m.Set(7, 7, true)
	back := MaskFromGray(m.Gray(), 128)
	if back.Count() != 2 || !back.At(1, 2) || !back.At(7, 7) {
		t.Error("MaskFromGray(Gray()) should reproduce the mask")
	}
}

func TestEllipse_ContainsCircle(t *testing.T) {
	c := Circle(50, 50, 10)
	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"center", 50, 50, true},
		{"on boundary", 60, 50, true},
		{"just outside", 60.5, 50, false},
		{"diagonal inside", 57, 57, true},
		{"diagonal outside", 58, 58, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Contains(tt.x, tt.y); got != tt.want {
				t.Errorf("Contains(%v,%v): got %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestEllipse_Rotated(t *testing.T) {
	e := Circle(0, 0, 0)
	e.SemiMajor = 20
	e.SemiMinor = 5
	e.Angle = math.Pi / 2 // major axis vertical

	if !e.Contains(0, 19) {
		t.Error("point on the vertical major axis should be inside")
	}
	if e.Contains(19, 0) {
		t.Error("point on the horizontal minor direction should be outside")
	}

	minX, minY, maxX, maxY := e.BoundingBox()
	if math.Abs(maxX-5) > 1e-9 || math.Abs(maxY-20) > 1e-9 || math.Abs(minX+5) > 1e-9 || math.Abs(minY+20) > 1e-9 {
		t.Errorf("BoundingBox: got (%f,%f,%f,%f)", minX, minY, maxX, maxY)
	}

	p := e.PointAt(0, 1)
	if math.Abs(p.X) > 1e-9 || math.Abs(p.Y-20) > 1e-9 {
		t.Errorf("PointAt(0): got %v, want (0,20)", p)
	}
}

func TestEllipse_Within(t *testing.T) {
	tests := []struct {
		name string
		e    Ellipse
		want bool
	}{
		{"centered", Circle(50, 50, 40), true},
		{"touching left edge", Circle(40, 50, 40), true},
		{"past left edge", Circle(39, 50, 40), false},
		{"past bottom edge", Circle(50, 70, 40), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Within(100, 100); got != tt.want {
				t.Errorf("Within: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEllipse_MaskArea(t *testing.T) {
	e := Circle(100, 100, 60)
	m := e.Mask(200, 200)
	want := e.Area()
	got := float64(m.Count())
	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("mask area: got %.0f, want ≈%.0f", got, want)
	}

	half := e.Scaled(0.5)
	if math.Abs(half.Area()-want/4) > 1e-6 {
		t.Errorf("Scaled(0.5) area: got %f, want %f", half.Area(), want/4)
	}
}

func TestMask_Regions(t *testing.T) {
	m := NewMask(10, 10)
	m.Set(1, 1, true)
	m.Set(2, 2, true) // diagonal neighbour of (1,1)
	m.Set(6, 6, true)
	m.Set(7, 6, true)

	if got := len(m.Regions(true)); got != 2 {
		t.Errorf("8-connected regions: got %d, want 2", got)
	}
	if got := len(m.Regions(false)); got != 3 {
		t.Errorf("4-connected regions: got %d, want 3", got)
	}
}

func TestMask_RemoveSmallRegions(t *testing.T) {
	m := NewMask(20, 20)
	m.Set(1, 1, true)
	for y := 10; y < 15; y++ {
		for x := 10; x < 15; x++ {
			m.Set(x, y, true)
		}
	}

	if removed := m.RemoveSmallRegions(4); removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if m.At(1, 1) || m.Count() != 25 {
		t.Errorf("only the speck should go, count %d", m.Count())
	}
}

func TestMask_NotOr(t *testing.T) {
	a := NewMask(3, 1)
	a.Set(0, 0, true)
	b := NewMask(3, 1)
	b.Set(2, 0, true)

	if got := a.Not().Count(); got != 2 {
		t.Errorf("Not count: got %d, want 2", got)
	}
	u := a.Or(b)
	if !u.At(0, 0) || u.At(1, 0) || !u.At(2, 0) {
		t.Errorf("Or: got %v", u.Bits)
	}
}
