package intensity

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
	"github.com/urban-sim/incident-sim/sim/stats"
)

// CrossSeverity gives, for yesterday's dominant severity (row), the
// probability of each severity (column) for today's incidents.
type CrossSeverity [incident.NumSeverities][incident.NumSeverities]float64

// DefaultCrossSeverity is the near-diagonal default distribution.
var DefaultCrossSeverity = CrossSeverity{
	{0.80, 0.15, 0.05},
	{0.25, 0.60, 0.15},
	{0.15, 0.25, 0.60},
}

// zeroInflationBase is the zero-inflation probability of a Stable zone at
// intensity 0; it shrinks as intensity grows.
const zeroInflationBase = 0.30

// maxZeroInflation bounds the structural-zero probability.
const maxZeroInflation = 0.95

// ZeroInflation returns the probability that a zone reports no incident of a
// family regardless of the Poisson draw. Higher regimes lower it.
func ZeroInflation(lambda float64, r incident.Regime) float64 {
	if lambda < 0 || math.IsNaN(lambda) {
		lambda = 0
	}
	var regimeScale float64
	switch r {
	case incident.Deteriorating:
		regimeScale = 0.7
	case incident.Crisis:
		regimeScale = 0.4
	default:
		regimeScale = 1.0
	}
	return math.Min(maxZeroInflation, zeroInflationBase*regimeScale/(1+lambda))
}

// Generator samples incident vectors.
type Generator struct {
	crossSeverity CrossSeverity
}

// NewGenerator creates a generator; rows of cs are forcibly normalized.
func NewGenerator(cs CrossSeverity) (*Generator, error) {
	norm := CrossSeverity(matrix.NormalizeRows(cs))
	if err := matrix.ValidateRowStochastic(matrix.Dense3(norm)); err != nil {
		return nil, fmt.Errorf("cross-severity matrix: %w", err)
	}
	return &Generator{crossSeverity: norm}, nil
}

// CrossSeverity returns the normalized cross-severity matrix.
func (g *Generator) CrossSeverity() CrossSeverity { return g.crossSeverity }

// Sample draws a zero-inflated Poisson total and splits it across severities
// with the cross-severity row of yesterday's dominant severity. Intensity 0
// always yields the null vector and consumes no randomness.
func (g *Generator) Sample(rng *rand.Rand, lambda float64, r incident.Regime, yesterday incident.Severity) incident.Vector {
	if lambda <= 0 || math.IsNaN(lambda) {
		return incident.Vector{}
	}
	if rng.Float64() < ZeroInflation(lambda, r) {
		return incident.Vector{}
	}
	n := stats.Poisson(rng, lambda)
	if n == 0 {
		return incident.Vector{}
	}
	if yesterday < incident.Minor || yesterday > incident.Grave {
		yesterday = incident.Minor
	}
	split := stats.Multinomial(rng, n, g.crossSeverity[yesterday][:])
	return incident.FromCounts([incident.NumSeverities]int{split[0], split[1], split[2]})
}
