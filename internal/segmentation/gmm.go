package segmentation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

const (
	// maxFitSamples caps how many pixels a mixture is fitted on. Larger sets
	// are subsampled with a fixed stride.
	maxFitSamples = 20000

	// minComponentSamples is the smallest cluster that gets its own component.
	minComponentSamples = 8

	// assignRounds is the number of hard-assignment refits after seeding.
	assignRounds = 3
)

var log2Pi = math.Log(2 * math.Pi)

// gaussian is one mixture component with its inverse covariance cached.
type gaussian struct {
	mean    [3]float64
	inv     [3][3]float64
	logNorm float64 // log(weight) - (3·log 2π + log|Σ|)/2
}

func (g *gaussian) logDensity(x [3]float64) float64 {
	d := [3]float64{x[0] - g.mean[0], x[1] - g.mean[1], x[2] - g.mean[2]}
	var maha float64
	for i := 0; i < 3; i++ {
		var row float64
		for j := 0; j < 3; j++ {
			row += g.inv[i][j] * d[j]
		}
		maha += d[i] * row
	}
	return g.logNorm - maha/2
}

// mixture is a Gaussian mixture model over Lab colors.
type mixture struct {
	components []gaussian
}

// logLikelihood returns log p(x) under the mixture.
func (m *mixture) logLikelihood(x [3]float64) float64 {
	best := math.Inf(-1)
	vals := make([]float64, len(m.components))
	for k := range m.components {
		vals[k] = m.components[k].logDensity(x)
		if vals[k] > best {
			best = vals[k]
		}
	}
	if math.IsInf(best, -1) {
		return best
	}
	var sum float64
	for _, v := range vals {
		sum += math.Exp(v - best)
	}
	return best + math.Log(sum)
}

func (m *mixture) nearest(x [3]float64) int {
	best, arg := math.Inf(-1), 0
	for k := range m.components {
		if v := m.components[k].logDensity(x); v > best {
			best, arg = v, k
		}
	}
	return arg
}

func labVec(c imaging.Lab) [3]float64 {
	return [3]float64{c.L, c.A, c.B}
}

// fitMixture fits up to k components to samples. Clusters are seeded by
// lightness quantiles and refined by hard reassignment, as GrabCut does.
// reg is added to each covariance diagonal so flat synthetic regions stay
// invertible. It returns false when there are too few samples.
func fitMixture(samples [][3]float64, k int, reg float64) (*mixture, bool) {
	if len(samples) > maxFitSamples {
		stride := (len(samples) + maxFitSamples - 1) / maxFitSamples
		sub := make([][3]float64, 0, maxFitSamples)
		for i := 0; i < len(samples); i += stride {
			sub = append(sub, samples[i])
		}
		samples = sub
	}
	if k > len(samples)/minComponentSamples {
		k = len(samples) / minComponentSamples
	}
	if k < 1 {
		return nil, false
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return samples[order[a]][0] < samples[order[b]][0] })
	assign := make([]int, len(samples))
	for rank, idx := range order {
		assign[idx] = rank * k / len(samples)
	}

	var m *mixture
	for round := 0; round <= assignRounds; round++ {
		next, ok := fitAssigned(samples, assign, k, reg)
		if !ok {
			break
		}
		m = next
		if round == assignRounds {
			break
		}
		changed := false
		for i, s := range samples {
			if c := m.nearest(s); c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return m, m != nil
}

// fitAssigned fits one component per non-trivial cluster.
func fitAssigned(samples [][3]float64, assign []int, k int, reg float64) (*mixture, bool) {
	clusters := make([][]float64, k)
	for i, s := range samples {
		c := assign[i]
		if c < 0 || c >= k {
			continue
		}
		clusters[c] = append(clusters[c], s[0], s[1], s[2])
	}

	m := &mixture{}
	total := float64(len(samples))
	for _, flat := range clusters {
		n := len(flat) / 3
		if n < minComponentSamples {
			continue
		}
		g, ok := fitGaussian(mat.NewDense(n, 3, flat), float64(n)/total, reg)
		if !ok {
			continue
		}
		m.components = append(m.components, g)
	}
	return m, len(m.components) > 0
}

func fitGaussian(data *mat.Dense, weight, reg float64) (gaussian, bool) {
	var g gaussian
	for j := 0; j < 3; j++ {
		g.mean[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	for i := 0; i < 3; i++ {
		cov.SetSym(i, i, cov.At(i, i)+reg)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&cov); !ok {
		return g, false
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return g, false
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			g.inv[i][j] = inv.At(i, j)
		}
	}
	g.logNorm = math.Log(weight) - (3*log2Pi+chol.LogDet())/2
	return g, true
}
