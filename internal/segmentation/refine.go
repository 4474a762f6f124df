package segmentation

import (
	"math"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// Refiner improves a food mask given the trimap. Implementations may only
// change Unknown pixels; Foreground stays food and Background and Outside
// stay empty.
type Refiner interface {
	Refine(lab []imaging.Lab, trimap *Trimap, initial *imaging.Mask) *imaging.Mask
}

// RefineConfig tunes the GrabCut refiner.
type RefineConfig struct {
	Enabled bool `yaml:"enabled"`

	// Iterations is the maximum number of fit/cut rounds.
	Iterations int `yaml:"iterations"`

	// Components is the number of Gaussians per mixture.
	Components int `yaml:"components"`

	// Lambda weighs the smoothness term against the color term.
	Lambda float64 `yaml:"lambda"`

	// MaxDataCost truncates the per-pixel negative log likelihood.
	MaxDataCost float64 `yaml:"max_data_cost"`

	// Regularization is added to each covariance diagonal (Lab units²).
	Regularization float64 `yaml:"regularization"`

	// MinSamples is the fewest pixels per side needed to fit a mixture.
	MinSamples int `yaml:"min_samples"`
}

// DefaultRefineConfig returns the refinement defaults.
func DefaultRefineConfig() RefineConfig {
	return RefineConfig{
		Enabled:        true,
		Iterations:     3,
		Components:     3,
		Lambda:         50,
		MaxDataCost:    40,
		Regularization: 1,
		MinSamples:     30,
	}
}

// GrabCut refines the mask by alternating Gaussian-mixture color models with
// a graph cut over the Unknown pixels.
//
// Each round fits foreground and background mixtures on the current
// labelling, sets per-pixel data costs from their truncated negative log
// likelihoods, links 4-neighbours with the contrast-sensitive weight
// Lambda·exp(-β‖ΔLab‖²), and relabels Unknown pixels from the minimum cut.
// Rounds stop early once no pixel changes.
type GrabCut struct {
	Config RefineConfig
}

// Refine implements Refiner.
func (g GrabCut) Refine(lab []imaging.Lab, trimap *Trimap, initial *imaging.Mask) *imaging.Mask {
	w, h := trimap.Width, trimap.Height
	current := initial.Clone()
	for i, l := range trimap.Labels {
		switch l {
		case Foreground:
			current.Bits[i] = true
		case Background, Outside:
			current.Bits[i] = false
		}
	}

	// Dense node ids for Unknown pixels; the source and sink follow.
	nodeOf := make([]int, w*h)
	var unknown []int
	for i, l := range trimap.Labels {
		nodeOf[i] = -1
		if l == Unknown {
			nodeOf[i] = len(unknown)
			unknown = append(unknown, i)
		}
	}
	if len(unknown) == 0 {
		return current
	}

	beta := contrastBeta(lab, trimap)
	for round := 0; round < g.Config.Iterations; round++ {
		fg, bg := g.models(lab, trimap, current)
		if fg == nil || bg == nil {
			break
		}

		src, sink := len(unknown), len(unknown)+1
		graph := newFlowGraph(len(unknown)+2, 4*len(unknown))
		for n, i := range unknown {
			x := labVec(lab[i])
			costFg := g.dataCost(fg, x)
			costBg := g.dataCost(bg, x)
			graph.addEdge(src, n, costBg, 0)
			graph.addEdge(n, sink, costFg, 0)
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if x+1 < w {
					g.link(graph, lab, trimap, nodeOf, beta, i, i+1, src, sink)
				}
				if y+1 < h {
					g.link(graph, lab, trimap, nodeOf, beta, i, i+w, src, sink)
				}
			}
		}

		graph.maxFlow(src, sink)
		side := graph.sourceSide(src)

		changed := false
		for n, i := range unknown {
			if current.Bits[i] != side[n] {
				current.Bits[i] = side[n]
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return current
}

// models fits the foreground and background mixtures; either is nil when
// its side has too few pixels.
func (g GrabCut) models(lab []imaging.Lab, trimap *Trimap, current *imaging.Mask) (*mixture, *mixture) {
	var fgSamples, bgSamples [][3]float64
	for i, l := range trimap.Labels {
		if l == Outside {
			continue
		}
		if current.Bits[i] {
			fgSamples = append(fgSamples, labVec(lab[i]))
		} else {
			bgSamples = append(bgSamples, labVec(lab[i]))
		}
	}
	if len(fgSamples) < g.Config.MinSamples || len(bgSamples) < g.Config.MinSamples {
		return nil, nil
	}
	fg, okF := fitMixture(fgSamples, g.Config.Components, g.Config.Regularization)
	bg, okB := fitMixture(bgSamples, g.Config.Components, g.Config.Regularization)
	if !okF || !okB {
		return nil, nil
	}
	return fg, bg
}

// dataCost is the truncated, non-negative cost of giving x to model m.
func (g GrabCut) dataCost(m *mixture, x [3]float64) float64 {
	c := -m.logLikelihood(x)
	if math.IsNaN(c) || c > g.Config.MaxDataCost {
		c = g.Config.MaxDataCost
	}
	return math.Max(c, 0)
}

// link adds the smoothness term between pixels i and j. When only one of
// them is Unknown the term folds into that pixel's terminal edge.
func (g GrabCut) link(graph *flowGraph, lab []imaging.Lab, trimap *Trimap, nodeOf []int, beta float64, i, j, src, sink int) {
	li, lj := trimap.Labels[i], trimap.Labels[j]
	if li == Outside || lj == Outside || (li != Unknown && lj != Unknown) {
		return
	}
	d := lab[i].DeltaE(lab[j])
	weight := g.Config.Lambda * math.Exp(-beta*d*d)

	switch {
	case li == Unknown && lj == Unknown:
		graph.addEdge(nodeOf[i], nodeOf[j], weight, weight)
	case li == Unknown:
		foldPairwise(graph, nodeOf[i], lj, weight, src, sink)
	default:
		foldPairwise(graph, nodeOf[j], li, weight, src, sink)
	}
}

// foldPairwise charges weight for disagreeing with a fixed neighbour.
func foldPairwise(graph *flowGraph, node int, fixed Label, weight float64, src, sink int) {
	if fixed == Foreground {
		graph.addEdge(src, node, weight, 0)
	} else {
		graph.addEdge(node, sink, weight, 0)
	}
}

// contrastBeta is 1 / (2·mean ‖ΔLab‖²) over interior 4-neighbour pairs.
func contrastBeta(lab []imaging.Lab, trimap *Trimap) float64 {
	w, h := trimap.Width, trimap.Height
	var sum float64
	var n int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if trimap.Labels[i] == Outside {
				continue
			}
			if x+1 < w && trimap.Labels[i+1] != Outside {
				d := lab[i].DeltaE(lab[i+1])
				sum += d * d
				n++
			}
			if y+1 < h && trimap.Labels[i+w] != Outside {
				d := lab[i].DeltaE(lab[i+w])
				sum += d * d
				n++
			}
		}
	}
	if n == 0 || sum == 0 {
		return 0
	}
	return 1 / (2 * sum / float64(n))
}
