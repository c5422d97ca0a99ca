package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RowSumTolerance is the maximum deviation from 1 allowed for a stochastic row.
const RowSumTolerance = 1e-6

// NeighborWeightTolerance is the maximum deviation from 1 allowed for neighbor weights.
const NeighborWeightTolerance = 1e-2

var (
	// ErrNotRowStochastic is returned for matrices with NaNs, negative
	// entries, or rows that do not sum to 1.
	ErrNotRowStochastic = errors.New("matrix is not row-stochastic")
	// ErrInvalidNeighbors is returned for malformed neighbor records.
	ErrInvalidNeighbors = errors.New("invalid neighbor record")
	// ErrUnknownZone is returned when a record references a zone the store does not hold.
	ErrUnknownZone = errors.New("unknown zone")
)

// ValidateRowStochastic checks that every row of m is a probability distribution.
func ValidateRowStochastic(m mat.Matrix) error {
	r, c := m.Dims()
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, m)
		if floats.HasNaN(row) {
			return fmt.Errorf("%w: row %d contains NaN", ErrNotRowStochastic, i)
		}
		if floats.Min(row) < 0 {
			return fmt.Errorf("%w: row %d has a negative entry", ErrNotRowStochastic, i)
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > RowSumTolerance {
			return fmt.Errorf("%w: row %d sums to %.9f", ErrNotRowStochastic, i, sum)
		}
	}
	return nil
}

// Dense3 converts a fixed 3×3 array into a gonum matrix.
func Dense3(m [3][3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// NormalizeRows rescales each row of m to sum to 1. Rows with no mass
// become uniform.
func NormalizeRows(m [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := range m {
		row := m[i][:]
		for j, v := range row {
			if v < 0 || math.IsNaN(v) {
				row[j] = 0
			}
		}
		sum := floats.Sum(row)
		for j := range row {
			if sum <= 0 {
				out[i][j] = 1.0 / 3.0
			} else {
				out[i][j] = row[j] / sum
			}
		}
	}
	return out
}

func validateNeighbors(self string, n Neighbors) error {
	seen := make(map[string]bool, NeighborCount)
	for _, id := range n.IDs {
		if id == "" {
			return fmt.Errorf("%w: zone %s has an empty neighbor id", ErrInvalidNeighbors, self)
		}
		if string(id) == self {
			return fmt.Errorf("%w: zone %s lists itself as a neighbor", ErrInvalidNeighbors, self)
		}
		if seen[string(id)] {
			return fmt.Errorf("%w: zone %s lists neighbor %s twice", ErrInvalidNeighbors, self, id)
		}
		seen[string(id)] = true
	}
	w := n.Weights[:]
	if floats.HasNaN(w) || floats.Min(w) < 0 {
		return fmt.Errorf("%w: zone %s has negative or NaN weights", ErrInvalidNeighbors, self)
	}
	if sum := floats.Sum(w); math.Abs(sum-1) > NeighborWeightTolerance {
		return fmt.Errorf("%w: zone %s weights sum to %.4f", ErrInvalidNeighbors, self, sum)
	}
	if n.Threshold < 0 || math.IsNaN(n.Threshold) {
		return fmt.Errorf("%w: zone %s has threshold %v", ErrInvalidNeighbors, self, n.Threshold)
	}
	return nil
}
