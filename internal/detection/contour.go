package detection

import (
	"image"
	"math"
	"math/rand"

	"github.com/anthonynsimon/bild/effect"
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// Contour is the fallback strategy for rims the Hough vote misses, such as
// tilted plates whose outline is clearly elliptical.
//
// # Algorithm
//
//  1. Dilate the edge map (bild effect.Dilate, whole-pixel radius) to close
//     small gaps.
//  2. Take the largest 8-connected edge component.
//  3. Fill its holes: everything the border flood cannot reach.
//  4. Fit the minimum enclosing circle (Welzl) to the component and an
//     ellipse to the filled region from its second moments.
//  5. Accept when circularity = filled area / enclosing circle area reaches
//     MinCircularity and the ellipse fits the radius bounds and the image.
type Contour struct {
	MinCircularity float64
	DilateRadius   float64
}

// Name implements Strategy.
func (Contour) Name() string { return "contour" }

// Detect implements Strategy.
func (c Contour) Detect(in Input) (Boundary, bool) {
	edges := in.Edges.Mask()
	grow := c.dilation()
	if grow > 0 {
		edges = imaging.MaskFromGray(effect.Dilate(edges.Gray(), grow), 128)
	}

	component := largestComponent(edges)
	if len(component) < 3 {
		return Boundary{}, false
	}

	ring := imaging.NewMask(edges.Width, edges.Height)
	for _, p := range component {
		ring.Set(p.X, p.Y, true)
	}
	filled := fillHoles(ring)
	area := float64(filled.Count())

	pts := make([]r2.Point, len(component))
	for i, p := range component {
		pts[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	_, mecRadius := enclosingCircle(pts)
	if mecRadius <= 0 {
		return Boundary{}, false
	}
	circularity := area / (math.Pi * mecRadius * mecRadius)
	if circularity < c.MinCircularity {
		return Boundary{}, false
	}

	ellipse, ok := momentEllipse(filled)
	if !ok {
		return Boundary{}, false
	}
	// Dilation grew the region outwards by grow pixels on every side.
	if grow > 0 {
		ellipse.SemiMajor = math.Max(ellipse.SemiMajor-grow, 1)
		ellipse.SemiMinor = math.Max(ellipse.SemiMinor-grow, 1)
	}
	if ellipse.SemiMajor < in.MinRadius || ellipse.SemiMajor > in.MaxRadius {
		return Boundary{}, false
	}
	if !ellipse.Within(edges.Width, edges.Height) {
		return Boundary{}, false
	}

	return Boundary{
		Ellipse:  ellipse,
		Score:    area,
		Coverage: math.Min(circularity, 1),
	}, true
}

// dilation rounds DilateRadius to whole pixels. effect.Dilate uses a window
// of int(2r+1.5) pixels, which is only centered when that is odd.
func (c Contour) dilation() float64 {
	return math.Round(c.DilateRadius)
}

// largestComponent returns the pixels of the biggest 8-connected region.
func largestComponent(m *imaging.Mask) []image.Point {
	var best []image.Point
	for _, r := range m.Regions(true) {
		if len(r) > len(best) {
			best = r
		}
	}
	return best
}

// fillHoles returns ring plus every pixel enclosed by it: whatever a
// 4-connected flood of the background from the image border cannot reach.
func fillHoles(ring *imaging.Mask) *imaging.Mask {
	background := ring.Not()
	visited := make([]bool, len(ring.Bits))
	outside := imaging.NewMask(ring.Width, ring.Height)
	seed := func(x, y int) {
		for _, p := range background.Region(visited, x, y, false) {
			outside.Bits[p.Y*ring.Width+p.X] = true
		}
	}
	for x := 0; x < ring.Width; x++ {
		seed(x, 0)
		seed(x, ring.Height-1)
	}
	for y := 0; y < ring.Height; y++ {
		seed(0, y)
		seed(ring.Width-1, y)
	}
	return outside.Not()
}

// enclosingCircle computes the minimum enclosing circle with Welzl's
// randomized incremental algorithm. The shuffle is seeded so results are
// reproducible.
func enclosingCircle(points []r2.Point) (r2.Point, float64) {
	if len(points) == 0 {
		return r2.Point{}, 0
	}
	pts := make([]r2.Point, len(points))
	copy(pts, points)
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })

	const eps = 1e-7
	inside := func(p, c r2.Point, r float64) bool {
		return p.Sub(c).Norm() <= r+eps
	}

	c, r := pts[0], 0.0
	for i := 1; i < len(pts); i++ {
		if inside(pts[i], c, r) {
			continue
		}
		c, r = pts[i], 0
		for j := 0; j < i; j++ {
			if inside(pts[j], c, r) {
				continue
			}
			c = pts[i].Add(pts[j]).Mul(0.5)
			r = pts[i].Sub(pts[j]).Norm() / 2
			for k := 0; k < j; k++ {
				if inside(pts[k], c, r) {
					continue
				}
				c, r = circumcircle(pts[i], pts[j], pts[k])
			}
		}
	}
	return c, r
}

// circumcircle returns the circle through a, b and c. Collinear points fall
// back to the circle on their farthest pair.
func circumcircle(a, b, c r2.Point) (r2.Point, float64) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	d := 2 * ab.Cross(ac)
	if math.Abs(d) < 1e-12 {
		pairs := [][2]r2.Point{{a, b}, {a, c}, {b, c}}
		best := pairs[0]
		for _, p := range pairs[1:] {
			if p[0].Sub(p[1]).Norm() > best[0].Sub(best[1]).Norm() {
				best = p
			}
		}
		return best[0].Add(best[1]).Mul(0.5), best[0].Sub(best[1]).Norm() / 2
	}
	ab2 := ab.Dot(ab)
	ac2 := ac.Dot(ac)
	ux := (ac.Y*ab2 - ab.Y*ac2) / d
	uy := (ab.X*ac2 - ac.X*ab2) / d
	center := r2.Point{X: a.X + ux, Y: a.Y + uy}
	return center, center.Sub(a).Norm()
}

// momentEllipse fits the ellipse with the same second moments as the region.
// For a uniformly filled ellipse the semi-axes are twice the principal
// standard deviations.
func momentEllipse(region *imaging.Mask) (imaging.Ellipse, bool) {
	var n, sx, sy float64
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			if region.Bits[y*region.Width+x] {
				n++
				sx += float64(x)
				sy += float64(y)
			}
		}
	}
	if n < 3 {
		return imaging.Ellipse{}, false
	}
	mx, my := sx/n, sy/n

	var mu20, mu02, mu11 float64
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			if region.Bits[y*region.Width+x] {
				dx, dy := float64(x)-mx, float64(y)-my
				mu20 += dx * dx
				mu02 += dy * dy
				mu11 += dx * dy
			}
		}
	}
	cov := mat.NewSymDense(2, []float64{
		mu20 / n, mu11 / n,
		mu11 / n, mu02 / n,
	})

	var eigen mat.EigenSym
	if !eigen.Factorize(cov, true) {
		return imaging.Ellipse{}, false
	}
	vals := eigen.Values(nil)
	var vecs mat.Dense
	eigen.VectorsTo(&vecs)

	// Eigenvalues are ascending; the major axis is the last column.
	if vals[0] <= 0 {
		return imaging.Ellipse{}, false
	}
	return imaging.Ellipse{
		Center:    r2.Point{X: mx, Y: my},
		SemiMajor: 2 * math.Sqrt(vals[1]),
		SemiMinor: 2 * math.Sqrt(vals[0]),
		Angle:     math.Atan2(vecs.At(1, 1), vecs.At(0, 1)),
	}, true
}
