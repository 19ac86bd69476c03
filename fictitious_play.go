package malib

import (
	"github.com/pkg/errors"

	"github.com/apexrl/malib/internal/f64"
	"github.com/apexrl/malib/tensor"
)

// DefaultFictitiousPlayIterations is the number of best-response rounds
// played when FictitiousPlay.Iterations is unset.
const DefaultFictitiousPlayIterations = 10000

// FictitiousPlay approximates a Nash equilibrium of a 2-player game by
// iterated best response: each round, both players best-respond to the
// opponent's empirical play counts, and the time-averaged counts are
// returned as the mixed strategies.
//
// Argmax ties resolve to the lowest index, so the result is deterministic
// for given payoff matrices.
type FictitiousPlay struct {
	// Iterations is the number of best-response rounds.
	// If zero, DefaultFictitiousPlayIterations is used.
	Iterations int
}

// Solve implements Solver. It requires exactly two payoff matrices: the
// first holds the row player's payoffs and the second the column player's,
// both indexed [row][column].
func (fp *FictitiousPlay) Solve(payoffs []*tensor.Dense) ([][]float64, error) {
	if len(payoffs) != 2 {
		return nil, errors.Errorf("fictitious play supports exactly 2 players, got %d", len(payoffs))
	}

	rowPayoff, colPayoff := payoffs[0], payoffs[1]
	shape := rowPayoff.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("fictitious play requires 2-D payoff matrices, got shape %v", shape)
	}
	if s := colPayoff.Shape(); len(s) != 2 || s[0] != shape[0] || s[1] != shape[1] {
		return nil, errors.Errorf("payoff matrix shapes differ: %v vs %v", shape, s)
	}

	nRows, nCols := shape[0], shape[1]
	if nRows == 0 || nCols == 0 {
		return nil, errors.New("payoff matrices must be non-empty")
	}

	iters := fp.Iterations
	if iters == 0 {
		iters = DefaultFictitiousPlayIterations
	}

	rowCounts := make([]float64, nRows)
	colCounts := make([]float64, nCols)
	for t := 0; t < iters; t++ {
		// Both players respond to the counts from before this round.
		br := bestRow(rowPayoff, colCounts)
		bc := bestCol(colPayoff, rowCounts)
		rowCounts[br]++
		colCounts[bc]++
	}

	f64.ScalUnitary(1.0/f64.Sum(rowCounts), rowCounts)
	f64.ScalUnitary(1.0/f64.Sum(colCounts), colCounts)
	return [][]float64{rowCounts, colCounts}, nil
}

// bestRow returns the row maximizing expected payoff against the column
// player's play counts.
func bestRow(payoff *tensor.Dense, colCounts []float64) int {
	shape := payoff.Shape()
	best, bestValue := 0, 0.0
	for i := 0; i < shape[0]; i++ {
		var v float64
		for j, c := range colCounts {
			v += payoff.At([]int{i, j}) * c
		}
		if i == 0 || v > bestValue {
			best, bestValue = i, v
		}
	}
	return best
}

// bestCol returns the column maximizing expected payoff against the row
// player's play counts.
func bestCol(payoff *tensor.Dense, rowCounts []float64) int {
	shape := payoff.Shape()
	best, bestValue := 0, 0.0
	for j := 0; j < shape[1]; j++ {
		var v float64
		for i, c := range rowCounts {
			v += payoff.At([]int{i, j}) * c
		}
		if j == 0 || v > bestValue {
			best, bestValue = j, v
		}
	}
	return best
}
