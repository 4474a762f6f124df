package detection

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

func circlePoints(center r2.Point, radius float64, n int) []r2.Point {
	pts := make([]r2.Point, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r2.Point{X: center.X + radius*math.Cos(theta), Y: center.Y + radius*math.Sin(theta)}
	}
	return pts
}

func TestFitCircle(t *testing.T) {
	want := r2.Point{X: 40.3, Y: 57.8}

	tests := []struct {
		name   string
		pts    []r2.Point
		origin r2.Point
		wantOK bool
	}{
		{"origin at zero", circlePoints(want, 25, 36), r2.Point{}, true},
		{"origin near center", circlePoints(want, 25, 36), r2.Point{X: 40, Y: 58}, true},
		{"origin off the circle", circlePoints(want, 25, 36), r2.Point{X: 90, Y: 10}, true},
		{"arc only", circlePoints(want, 25, 36)[:9], r2.Point{X: 40, Y: 58}, true},
		{"too few points", circlePoints(want, 25, 2), r2.Point{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			center, radius, ok := fitCircle(tt.pts, tt.origin)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if d := center.Sub(want).Norm(); d > 1e-6 {
				t.Errorf("center: got %v, want %v", center, want)
			}
			if math.Abs(radius-25) > 1e-6 {
				t.Errorf("radius: got %f, want 25", radius)
			}
		})
	}
}

func TestRefitCircle_OffCenterStart(t *testing.T) {
	img := createDiskImage(320, 320, 160, 160, 130)
	cfg := DefaultConfig()
	edges := imaging.Canny(img, cfg.CannyLow, cfg.CannyHigh, cfg.Sigma)

	center, radius := refitCircle(edges, r2.Point{X: 155.5, Y: 157.5}, 126)

	if d := center.Sub(r2.Point{X: 160, Y: 160}).Norm(); d > 1 {
		t.Errorf("center: got (%.2f,%.2f), want (160,160)", center.X, center.Y)
	}
	if math.Abs(radius-130) > 1 {
		t.Errorf("radius: got %.2f, want 130", radius)
	}

	support := len(ringPoints(edges, center, radius, ringHalfWidth))
	if coverage := float64(support) / (2 * math.Pi * radius); coverage < cfg.MinHoughCoverage {
		t.Errorf("coverage after refit: got %.2f, want >= %.2f", coverage, cfg.MinHoughCoverage)
	}
}

func TestRingPoints_RadialOnly(t *testing.T) {
	// A vertical step edge is radial only to centers on its horizontal axis.
	img := createTestImage(100, 100, tableColor)
	for y := 0; y < 100; y++ {
		for x := 50; x < 100; x++ {
			img.Set(x, y, plateColor)
		}
	}
	cfg := DefaultConfig()
	edges := imaging.Canny(img, cfg.CannyLow, cfg.CannyHigh, cfg.Sigma)

	near := ringPoints(edges, r2.Point{X: 20, Y: 50}, 30, 2)
	if len(near) == 0 {
		t.Fatal("expected edge pixels facing the center")
	}
	for _, p := range near {
		if math.Abs(p.Y-50) > 20 {
			t.Errorf("pixel %v is too oblique to count", p)
		}
	}
}
