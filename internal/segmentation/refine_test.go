package segmentation

import (
	"math"
	"testing"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

func TestMaxFlow(t *testing.T) {
	// s=0, a=1, b=2, t=3
	g := newFlowGraph(4, 5)
	g.addEdge(0, 1, 3, 0)
	g.addEdge(0, 2, 2, 0)
	g.addEdge(1, 2, 1, 0)
	g.addEdge(1, 3, 2, 0)
	g.addEdge(2, 3, 3, 0)

	if got := g.maxFlow(0, 3); math.Abs(got-5) > 1e-9 {
		t.Fatalf("max flow: got %f, want 5", got)
	}
	side := g.sourceSide(0)
	if !side[0] || side[3] {
		t.Errorf("source side: got %v", side)
	}
}

func TestMaxFlow_MinCut(t *testing.T) {
	// A cheap edge into b puts b on the sink side.
	g := newFlowGraph(4, 4)
	g.addEdge(0, 1, 10, 0)
	g.addEdge(1, 2, 1, 0)
	g.addEdge(2, 3, 10, 0)
	g.addEdge(1, 3, 2, 0)

	if got := g.maxFlow(0, 3); math.Abs(got-3) > 1e-9 {
		t.Fatalf("max flow: got %f, want 3", got)
	}
	side := g.sourceSide(0)
	want := []bool{true, true, false, false}
	for i := range want {
		if side[i] != want[i] {
			t.Errorf("node %d: source side %v, want %v", i, side[i], want[i])
		}
	}
}

func TestFitMixture(t *testing.T) {
	var samples [][3]float64
	for i := 0; i < 200; i++ {
		jitter := float64(i%5) - 2
		samples = append(samples, [3]float64{95 + jitter, jitter, -jitter})
		samples = append(samples, [3]float64{50 + jitter, 60 - jitter, 45 + jitter})
	}

	m, ok := fitMixture(samples, 3, 1)
	if !ok {
		t.Fatal("fitMixture failed on 400 samples")
	}
	near := m.logLikelihood([3]float64{95, 0, 0})
	alsoNear := m.logLikelihood([3]float64{50, 60, 45})
	far := m.logLikelihood([3]float64{20, -40, -60})
	if near <= far || alsoNear <= far {
		t.Errorf("cluster centers should be likelier than a distant color: %f, %f vs %f", near, alsoNear, far)
	}
}

func TestFitMixture_TooFewSamples(t *testing.T) {
	samples := make([][3]float64, minComponentSamples-1)
	if _, ok := fitMixture(samples, 3, 1); ok {
		t.Error("fitMixture should fail below one component's worth of samples")
	}
}

func TestGrabCut_KeepsFixedLabels(t *testing.T) {
	lab, interior := labGrid(30, 30, 10, 10, 20, 20)
	interior.Set(0, 0, false)
	cfg := DefaultConfig()
	coarse := CoarseMask(lab, interior, labWhite, cfg.DeltaE)
	trimap := BuildTrimap(lab, interior, coarse, labWhite, cfg.DeltaE, cfg)

	// Start from a wrong labelling; fixed pixels must be restored.
	initial := imaging.NewMask(30, 30)
	initial.Set(0, 0, true)
	initial.Set(25, 25, true)

	food := GrabCut{Config: DefaultRefineConfig()}.Refine(lab, trimap, initial)

	for i, l := range trimap.Labels {
		switch l {
		case Foreground:
			if !food.Bits[i] {
				t.Errorf("foreground pixel %d lost", i)
			}
		case Background, Outside:
			if food.Bits[i] {
				t.Errorf("%s pixel %d became food", l, i)
			}
		}
	}
}

func TestGrabCut_ResolvesUnknown(t *testing.T) {
	lab, interior := labGrid(30, 30, 10, 10, 20, 20)
	// An isolated tinted pixel: coarse food, but not definite foreground.
	noisy := 4*30 + 4
	lab[noisy] = imaging.Lab{L: labWhite.L - 8, A: labWhite.A + 16, B: labWhite.B + 8}

	cfg := DefaultConfig()
	coarse := CoarseMask(lab, interior, labWhite, cfg.DeltaE)
	if !coarse.Bits[noisy] {
		t.Fatal("test setup: tinted pixel should be coarse food")
	}
	trimap := BuildTrimap(lab, interior, coarse, labWhite, cfg.DeltaE, cfg)
	if trimap.Labels[noisy] != Unknown || trimap.At(10, 10) != Unknown {
		t.Fatal("test setup: tinted pixel and block corners should be unknown")
	}

	food := GrabCut{Config: DefaultRefineConfig()}.Refine(lab, trimap, coarse)

	if food.Bits[noisy] {
		t.Error("isolated tinted pixel should be relabelled as background")
	}
	for _, p := range [][2]int{{10, 10}, {19, 10}, {10, 19}, {19, 19}} {
		if !food.At(p[0], p[1]) {
			t.Errorf("block corner %v should be food", p)
		}
	}
	if got := food.Count(); got != 100 {
		t.Errorf("food count: got %d, want the 100-pixel block", got)
	}
}

func TestGrabCut_NoUnknownIsIdentity(t *testing.T) {
	trimap := &Trimap{Width: 2, Height: 1, Labels: []Label{Foreground, Background}}
	lab := []imaging.Lab{labRed, labWhite}

	food := GrabCut{Config: DefaultRefineConfig()}.Refine(lab, trimap, imaging.NewMask(2, 1))
	if !food.At(0, 0) || food.At(1, 0) {
		t.Errorf("got %v, want [true false]", food.Bits)
	}
}

func TestContrastBeta(t *testing.T) {
	trimap := &Trimap{Width: 3, Height: 1, Labels: []Label{Background, Background, Outside}}
	lab := []imaging.Lab{{L: 0}, {L: 10}, {L: 90}}

	// One pair with ‖Δ‖² = 100; the Outside pixel is ignored.
	if got, want := contrastBeta(lab, trimap), 1.0/200; math.Abs(got-want) > 1e-12 {
		t.Errorf("beta: got %g, want %g", got, want)
	}

	flat := &Trimap{Width: 2, Height: 1, Labels: []Label{Background, Background}}
	if got := contrastBeta([]imaging.Lab{{L: 5}, {L: 5}}, flat); got != 0 {
		t.Errorf("flat beta: got %g, want 0", got)
	}
}
