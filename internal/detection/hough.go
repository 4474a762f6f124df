package detection

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// Hough detects circles with a gradient-directed Hough transform.
//
// # Algorithm
//
//  1. Center voting: every edge pixel votes for the points r pixels away
//     along its gradient, in both directions, for each r in the radius
//     range. A rim yields a sharp peak at its center regardless of whether
//     the plate is lighter or darker than the table.
//  2. Peak picking: the accumulator is box-smoothed (3×3) and the strongest
//     local maxima, at least MinRadius/2 apart, become candidate centers.
//  3. Radius estimation: edge pixels whose gradient is roughly radial to the
//     candidate center are binned by distance; the densest three-bin window
//     gives a first radius.
//  4. Refit: the accumulator peak of a large circle is flat and can sit a
//     few pixels off. Center and radius are refitted by least squares
//     (Kåsa) to the radial edge pixels in a band around the current circle,
//     narrowing the band on each pass.
//  5. Acceptance: votes are the radial edge pixels within ringHalfWidth of
//     the fitted circle; coverage = votes / (2πr) must reach MinCoverage and
//     the circle must lie inside the image.
//
// Among accepted candidates the highest vote count wins; ties go to the
// larger radius.
type Hough struct {
	MinCoverage   float64
	MaxCandidates int
}

// Name implements Strategy.
func (Hough) Name() string { return "hough" }

// radialCos is the minimum |cos| between gradient and radius for an edge
// pixel to count towards a circle.
const radialCos = 0.8

// ringHalfWidth is how far, in pixels, a supporting edge pixel may lie from
// the fitted circle.
const ringHalfWidth = 1.5

// refitBands are the successive band half-widths, relative to the radius,
// used by refitCircle.
var refitBands = [...]float64{0.1, 0.04, 0.02}

// Detect implements Strategy.
func (h Hough) Detect(in Input) (Boundary, bool) {
	e := in.Edges
	width, height := e.Width, e.Height
	minR := int(math.Floor(in.MinRadius))
	maxR := int(math.Ceil(in.MaxRadius))
	if minR < 1 {
		minR = 1
	}
	if maxR < minR || width < 3 || height < 3 {
		return Boundary{}, false
	}

	acc := voteCenters(e, minR, maxR)
	peaks := findPeaks(smooth3x3(acc, width, height), width, height, float64(minR)/2, h.maxCandidates())

	candidates := make([]Boundary, 0, len(peaks))
	for _, p := range peaks {
		center := refineCenter(acc, width, height, p)
		radius, votes := radialSupport(e, center, minR, maxR)
		if votes == 0 {
			continue
		}
		center, radius = refitCircle(e, center, radius)
		if radius < float64(minR)-1 || radius > float64(maxR)+1 {
			continue
		}
		votes = len(ringPoints(e, center, radius, ringHalfWidth))
		coverage := float64(votes) / (2 * math.Pi * radius)
		if coverage < h.MinCoverage {
			continue
		}
		c := imaging.Circle(center.X, center.Y, radius)
		if !c.Within(width, height) {
			continue
		}
		candidates = append(candidates, Boundary{
			Ellipse:  c,
			Score:    float64(votes),
			Coverage: math.Min(coverage, 1),
		})
	}
	return selectBest(candidates)
}

func (h Hough) maxCandidates() int {
	if h.MaxCandidates <= 0 {
		return 5
	}
	return h.MaxCandidates
}

// voteCenters fills the center accumulator.
func voteCenters(e *imaging.EdgeMap, minR, maxR int) []int32 {
	width, height := e.Width, e.Height
	acc := make([]int32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !e.Edge[i] {
				continue
			}
			gx, gy := e.GX[i], e.GY[i]
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			ux, uy := gx/mag, gy/mag
			for r := minR; r <= maxR; r++ {
				fr := float64(r)
				for _, s := range [2]float64{1, -1} {
					cx := int(math.Round(float64(x) + s*fr*ux))
					cy := int(math.Round(float64(y) + s*fr*uy))
					if cx < 0 || cy < 0 || cx >= width || cy >= height {
						continue
					}
					acc[cy*width+cx]++
				}
			}
		}
	}
	return acc
}

func smooth3x3(acc []int32, width, height int) []int32 {
	out := make([]int32, len(acc))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum int32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					sum += acc[ny*width+nx]
				}
			}
			out[y*width+x] = sum
		}
	}
	return out
}

type peak struct {
	x, y  int
	votes int32
}

// findPeaks returns up to limit local maxima, strongest first, no two
// closer than minDist.
func findPeaks(acc []int32, width, height int, minDist float64, limit int) []peak {
	var local []peak
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			v := acc[y*width+x]
			if v == 0 {
				continue
			}
			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx != 0 || dy != 0) && acc[(y+dy)*width+x+dx] > v {
						isMax = false
						break
					}
				}
			}
			if isMax {
				local = append(local, peak{x, y, v})
			}
		}
	}

	sort.SliceStable(local, func(i, j int) bool { return local[i].votes > local[j].votes })

	kept := make([]peak, 0, limit)
	for _, p := range local {
		if len(kept) == limit {
			break
		}
		dup := false
		for _, k := range kept {
			if math.Hypot(float64(p.x-k.x), float64(p.y-k.y)) < minDist {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, p)
		}
	}
	return kept
}

// refineCenter returns the vote-weighted centroid of the 5×5 window around p.
func refineCenter(acc []int32, width, height int, p peak) r2.Point {
	var sx, sy, sw float64
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			x, y := p.x+dx, p.y+dy
			if x < 0 || y < 0 || x >= width || y >= height {
				continue
			}
			w := float64(acc[y*width+x])
			sx += w * float64(x)
			sy += w * float64(y)
			sw += w
		}
	}
	if sw == 0 {
		return r2.Point{X: float64(p.x), Y: float64(p.y)}
	}
	return r2.Point{X: sx / sw, Y: sy / sw}
}

// radialSupport bins radially oriented edge pixels by distance from center
// and returns the sub-pixel radius of the densest three-bin window together
// with the number of pixels in it.
func radialSupport(e *imaging.EdgeMap, center r2.Point, minR, maxR int) (float64, int) {
	count := make([]int, maxR+2)
	sum := make([]float64, maxR+2)

	x0 := int(math.Max(0, math.Floor(center.X-float64(maxR)-1)))
	x1 := int(math.Min(float64(e.Width-1), math.Ceil(center.X+float64(maxR)+1)))
	y0 := int(math.Max(0, math.Floor(center.Y-float64(maxR)-1)))
	y1 := int(math.Min(float64(e.Height-1), math.Ceil(center.Y+float64(maxR)+1)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			i := y*e.Width + x
			if !e.Edge[i] {
				continue
			}
			d := r2.Point{X: float64(x), Y: float64(y)}.Sub(center)
			dist := d.Norm()
			bin := int(math.Round(dist))
			if bin < minR || bin > maxR {
				continue
			}
			gx, gy := e.GX[i], e.GY[i]
			mag := math.Hypot(gx, gy)
			if mag == 0 || math.Abs(gx*d.X+gy*d.Y) < radialCos*mag*dist {
				continue
			}
			count[bin]++
			sum[bin] += dist
		}
	}

	bestBin, bestVotes := 0, 0
	for b := minR; b <= maxR; b++ {
		v := count[b] + count[b+1]
		if b > 0 {
			v += count[b-1]
		}
		if v >= bestVotes && v > 0 {
			bestBin, bestVotes = b, v
		}
	}
	if bestVotes == 0 {
		return 0, 0
	}
	s := sum[bestBin] + sum[bestBin+1]
	if bestBin > 0 {
		s += sum[bestBin-1]
	}
	return s / float64(bestVotes), bestVotes
}

// refitCircle refines a circle by repeated least-squares fits to the radial
// edge pixels near it.
func refitCircle(e *imaging.EdgeMap, center r2.Point, radius float64) (r2.Point, float64) {
	for _, band := range refitBands {
		pts := ringPoints(e, center, radius, math.Max(2, band*radius))
		c, r, ok := fitCircle(pts, center)
		if !ok || c.Sub(center).Norm() > radius/2 {
			break
		}
		center, radius = c, r
	}
	return center, radius
}

// ringPoints returns the edge pixels within tol of the circle whose gradient
// is roughly radial to its center.
func ringPoints(e *imaging.EdgeMap, center r2.Point, radius, tol float64) []r2.Point {
	reach := radius + tol + 1
	x0 := int(math.Max(0, math.Floor(center.X-reach)))
	x1 := int(math.Min(float64(e.Width-1), math.Ceil(center.X+reach)))
	y0 := int(math.Max(0, math.Floor(center.Y-reach)))
	y1 := int(math.Min(float64(e.Height-1), math.Ceil(center.Y+reach)))

	var pts []r2.Point
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			i := y*e.Width + x
			if !e.Edge[i] {
				continue
			}
			p := r2.Point{X: float64(x), Y: float64(y)}
			d := p.Sub(center)
			dist := d.Norm()
			if math.Abs(dist-radius) > tol {
				continue
			}
			gx, gy := e.GX[i], e.GY[i]
			mag := math.Hypot(gx, gy)
			if mag == 0 || math.Abs(gx*d.X+gy*d.Y) < radialCos*mag*dist {
				continue
			}
			pts = append(pts, p)
		}
	}
	return pts
}

// fitCircle is the algebraic (Kåsa) least-squares circle fit: it solves
// x² + y² + Dx + Ey + F = 0 for D, E and F. Coordinates are taken relative
// to origin for conditioning.
func fitCircle(pts []r2.Point, origin r2.Point) (r2.Point, float64, bool) {
	if len(pts) < 3 {
		return r2.Point{}, 0, false
	}
	a := mat.NewDense(len(pts), 3, nil)
	b := mat.NewVecDense(len(pts), nil)
	for i, p := range pts {
		d := p.Sub(origin)
		a.Set(i, 0, d.X)
		a.Set(i, 1, d.Y)
		a.Set(i, 2, 1)
		b.SetVec(i, -(d.X*d.X + d.Y*d.Y))
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return r2.Point{}, 0, false
	}
	cx, cy := -sol.AtVec(0)/2, -sol.AtVec(1)/2
	rr := cx*cx + cy*cy - sol.AtVec(2)
	if rr <= 0 || math.IsNaN(rr) {
		return r2.Point{}, 0, false
	}
	return origin.Add(r2.Point{X: cx, Y: cy}), math.Sqrt(rr), true
}
