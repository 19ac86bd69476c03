package malib

import (
	"math"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/apexrl/malib/internal/f64"
	"github.com/apexrl/malib/tensor"
)

const (
	// DefaultAlphaRankPopulation is the finite population size of the
	// evolutionary model when AlphaRank.PopulationSize is unset.
	DefaultAlphaRankPopulation = 50

	defaultInitialIntensity = 1e-2
	defaultIntensityFactor  = 10.0
	defaultMaxIntensity     = 1e5
	defaultSweepTol         = 1e-4

	// negativeProbTolerance bounds the negative probability mass attributed
	// to numerical precision. Anything beyond it means the solve itself is
	// unreliable.
	negativeProbTolerance = 1e-9

	maxPowerIterations = 100000
	powerIterationTol  = 1e-12
)

// AlphaRank ranks the joint pure-strategy profiles of a K-player game by the
// stationary distribution of a response-graph Markov chain, then
// marginalizes the joint mass per agent.
//
// Transitions follow a finite-population moran model: from a profile, one
// (player, mutant strategy) pair is drawn uniformly and the mutant fixates
// with the classical fixation probability at ranking intensity alpha. The
// intensity is swept upward geometrically until the stationary distribution
// stabilizes, selecting the high-intensity ranking the method is built
// around while avoiding the degenerate chains of a fixed large alpha.
type AlphaRank struct {
	// PopulationSize is the moran-model population size m.
	// If zero, DefaultAlphaRankPopulation is used.
	PopulationSize int
	// InitialIntensity is the first ranking intensity of the sweep.
	InitialIntensity float64
	// IntensityFactor is the geometric step between sweep points.
	IntensityFactor float64
	// MaxIntensity caps the sweep.
	MaxIntensity float64
	// SweepTol is the max-norm distance below which two consecutive
	// stationary distributions are considered converged.
	SweepTol float64
}

// Solve implements Solver for K >= 1 players.
func (ar *AlphaRank) Solve(payoffs []*tensor.Dense) ([][]float64, error) {
	numPlayers := len(payoffs)
	if numPlayers == 0 {
		return nil, errors.New("no payoff tensors given")
	}

	shape := payoffs[0].Shape()
	if len(shape) != numPlayers {
		return nil, errors.Errorf("payoff tensor rank %d does not match %d players", len(shape), numPlayers)
	}
	for k, p := range payoffs {
		s := p.Shape()
		if len(s) != len(shape) {
			return nil, errors.Errorf("payoff tensor %d has rank %d, want %d", k, len(s), len(shape))
		}
		for axis := range s {
			if s[axis] != shape[axis] {
				return nil, errors.Errorf("payoff tensor %d has shape %v, want %v", k, s, shape)
			}
		}
	}
	for axis, n := range shape {
		if n == 0 {
			return nil, errors.Errorf("empty strategy population on axis %d", axis)
		}
	}

	popSize := ar.PopulationSize
	if popSize == 0 {
		popSize = DefaultAlphaRankPopulation
	}
	alpha := ar.InitialIntensity
	if alpha == 0 {
		alpha = defaultInitialIntensity
	}
	factor := ar.IntensityFactor
	if factor == 0 {
		factor = defaultIntensityFactor
	}
	maxAlpha := ar.MaxIntensity
	if maxAlpha == 0 {
		maxAlpha = defaultMaxIntensity
	}
	sweepTol := ar.SweepTol
	if sweepTol == 0 {
		sweepTol = defaultSweepTol
	}

	var pi, prev []float64
	for {
		transitions := responseGraph(payoffs, shape, alpha, popSize)
		pi = stationaryDistribution(transitions)
		glog.V(2).Infof("Alpha-rank sweep: alpha=%g, %d profiles", alpha, len(pi))

		if prev != nil && maxAbsDiff(pi, prev) < sweepTol {
			break
		}
		if alpha >= maxAlpha {
			break
		}
		prev = pi
		alpha *= factor
	}

	pi, err := removeNegativeProbs(pi)
	if err != nil {
		return nil, err
	}

	return marginalize(pi, shape), nil
}

// responseGraph builds the transition matrix of the markov chain over joint
// pure-strategy profiles. Profiles are numbered in row-major order over the
// strategy axes.
func responseGraph(payoffs []*tensor.Dense, shape []int, alpha float64, popSize int) [][]float64 {
	numPlayers := len(shape)
	numProfiles := 1
	numMutations := 0
	for _, n := range shape {
		numProfiles *= n
		numMutations += n - 1
	}

	transitions := make([][]float64, numProfiles)
	if numMutations == 0 {
		for s := range transitions {
			transitions[s] = make([]float64, numProfiles)
			transitions[s][s] = 1.0
		}
		return transitions
	}

	// Uniform chance of each possible (player, mutant strategy) pair.
	eta := 1.0 / float64(numMutations)

	profile := make([]int, numPlayers)
	mutant := make([]int, numPlayers)
	for s := 0; s < numProfiles; s++ {
		row := make([]float64, numProfiles)
		unravel(s, shape, profile)
		copy(mutant, profile)

		selfMass := 1.0
		for k := 0; k < numPlayers; k++ {
			incumbent := payoffs[k].At(profile)
			for alt := 0; alt < shape[k]; alt++ {
				if alt == profile[k] {
					continue
				}

				mutant[k] = alt
				p := eta * fixationProb(alpha, float64(popSize), payoffs[k].At(mutant)-incumbent)
				row[ravel(mutant, shape)] = p
				selfMass -= p
			}
			mutant[k] = profile[k]
		}

		row[s] = selfMass
		transitions[s] = row
	}
	return transitions
}

// fixationProb is the probability that a single mutant with payoff advantage
// df fixates in a finite population of the given size under selection
// intensity alpha.
func fixationProb(alpha, popSize, df float64) float64 {
	x := alpha * df
	if math.Abs(x) < 1e-14 {
		// Neutral drift.
		return 1.0 / popSize
	}
	if x > 0 {
		return (1 - math.Exp(-x)) / (1 - math.Exp(-popSize*x))
	}

	// Rescaled by exp(popSize*x) to avoid overflow for strongly
	// disadvantaged mutants.
	emx := math.Exp(popSize * x)
	return (emx - math.Exp((popSize-1)*x)) / (emx - 1)
}

// stationaryDistribution finds the stationary distribution of the given
// row-stochastic matrix by iterating the lazy walk (I+T)/2, which shares
// T's stationary vector but cannot be periodic.
func stationaryDistribution(transitions [][]float64) []float64 {
	n := len(transitions)
	pi := make([]float64, n)
	f64.AddConst(1.0/float64(n), pi)

	next := make([]float64, n)
	for iter := 0; iter < maxPowerIterations; iter++ {
		for j := range next {
			next[j] = 0
		}
		for i, p := range pi {
			if p != 0 {
				f64.AxpyUnitary(p, transitions[i], next)
			}
		}
		for j := range next {
			next[j] = 0.5*next[j] + 0.5*pi[j]
		}

		diff := maxAbsDiff(pi, next)
		copy(pi, next)
		if diff < powerIterationTol {
			break
		}
	}

	f64.ScalUnitary(1.0/f64.Sum(pi), pi)
	return pi
}

// removeNegativeProbs clears negative probabilities that occur due to
// precision errors and renormalizes. Negative mass beyond the tolerance is
// fatal: it indicates the solve itself is unreliable.
func removeNegativeProbs(probs []float64) ([]float64, error) {
	clipped := false
	for _, p := range probs {
		if p < 0 {
			if p < -negativeProbTolerance {
				return nil, errors.Errorf("negative probability %g beyond tolerance %g", p, negativeProbTolerance)
			}
			clipped = true
		}
	}
	if !clipped {
		return probs, nil
	}

	out := make([]float64, len(probs))
	for i, p := range probs {
		if p > 0 {
			out[i] = p
		}
	}
	f64.ScalUnitary(1.0/f64.Sum(out), out)
	return out, nil
}

// marginalize folds the joint stationary distribution into per-player
// strategy masses.
func marginalize(pi []float64, shape []int) [][]float64 {
	if len(shape) == 1 {
		return [][]float64{pi}
	}

	marginals := make([][]float64, len(shape))
	for k, n := range shape {
		marginals[k] = make([]float64, n)
	}

	profile := make([]int, len(shape))
	for s, mass := range pi {
		unravel(s, shape, profile)
		for k, strat := range profile {
			marginals[k][strat] += mass
		}
	}
	return marginals
}

func unravel(flat int, shape, idx []int) {
	for axis := len(shape) - 1; axis >= 0; axis-- {
		idx[axis] = flat % shape[axis]
		flat /= shape[axis]
	}
}

func ravel(idx, shape []int) int {
	flat := 0
	for axis, i := range idx {
		flat = flat*shape[axis] + i
	}
	return flat
}

func maxAbsDiff(a, b []float64) float64 {
	var max float64
	for i, v := range a {
		d := math.Abs(v - b[i])
		if d > max {
			max = d
		}
	}
	return max
}
