// Package regime maintains the hidden Stable/Deteriorating/Crisis state of
// each zone and advances it once per simulated day.
package regime

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
)

// Probabilities is a distribution over regimes, indexed by incident.Regime.
type Probabilities [incident.NumRegimes]float64

// DefaultInitialProbabilities is used for zones with neutral static risk.
var DefaultInitialProbabilities = Probabilities{0.80, 0.15, 0.05}

// DefaultTransitionMatrix is the calibrated day-to-day regime chain.
var DefaultTransitionMatrix = [3][3]float64{
	{0.90, 0.08, 0.02},
	{0.20, 0.70, 0.10},
	{0.10, 0.30, 0.60},
}

// InitialProbabilities biases the initial distribution by a zone's static
// risk factor: high-risk zones start with more Crisis weight, low-risk zones
// with more Stable weight.
func InitialProbabilities(risk float64) Probabilities {
	switch {
	case risk > 1.5:
		return Probabilities{0.60, 0.25, 0.15}
	case risk < 0.7:
		return Probabilities{0.90, 0.08, 0.02}
	default:
		return DefaultInitialProbabilities
	}
}

// Modulators reweight a transition row with external signals.
type Modulators struct {
	// Wealth is the zone's wealth ratio; values below 1 push mass toward
	// worse regimes. Zero means "not provided".
	Wealth float64
	// CrisisProbability is mixed into the Crisis column.
	CrisisProbability float64
}

// Manager advances regimes with a validated row-stochastic transition matrix.
type Manager struct {
	transition *mat.Dense
}

// NewManager validates the transition matrix. Rows must sum to 1 within
// 1e-6 and contain no NaNs.
func NewManager(transition [3][3]float64) (*Manager, error) {
	m := matrix.Dense3(transition)
	if err := matrix.ValidateRowStochastic(m); err != nil {
		return nil, fmt.Errorf("regime transition matrix: %w", err)
	}
	return &Manager{transition: m}, nil
}

// Initialize draws a zone's initial regime. A nil probs uses the defaults.
func (m *Manager) Initialize(zone incident.ZoneID, rng *rand.Rand, probs *Probabilities) incident.Regime {
	p := DefaultInitialProbabilities
	if probs != nil {
		p = *probs
	}
	r := sample(p, rng)
	logrus.Debugf("zone %s initial regime %s", zone, r)
	return r
}

// Transition draws the next regime from the row of the current regime.
func (m *Manager) Transition(current incident.Regime, rng *rand.Rand) incident.Regime {
	return sample(m.row(current), rng)
}

// TransitionModulated draws the next regime after reweighting the current row.
func (m *Manager) TransitionModulated(current incident.Regime, rng *rand.Rand, mod Modulators) incident.Regime {
	return sample(Reweight(m.row(current), mod), rng)
}

func (m *Manager) row(current incident.Regime) Probabilities {
	var p Probabilities
	if current < incident.Stable || current > incident.Crisis {
		current = incident.Stable
	}
	for j := range p {
		p[j] = m.transition.At(int(current), j)
	}
	return p
}

// Reweight applies the wealth and crisis modulators to a transition row and
// renormalizes it.
func Reweight(row Probabilities, mod Modulators) Probabilities {
	if w := mod.Wealth; w > 0 && !math.IsNaN(w) {
		k := math.Min(2, math.Max(0.5, 1/w))
		row[incident.Deteriorating] *= k
		row[incident.Crisis] *= k
	}
	if c := mod.CrisisProbability; c > 0 && !math.IsNaN(c) {
		c = math.Min(c, 1)
		for j := range row {
			row[j] *= 1 - c
		}
		row[incident.Crisis] += c
	}
	sum := row[0] + row[1] + row[2]
	if sum <= 0 {
		return DefaultInitialProbabilities
	}
	for j := range row {
		row[j] /= sum
	}
	return row
}

// sample draws one regime with a single uniform draw.
func sample(p Probabilities, rng *rand.Rand) incident.Regime {
	u := rng.Float64()
	acc := 0.0
	for _, r := range incident.Regimes {
		acc += p[r]
		if u < acc {
			return r
		}
	}
	// Rounding: fall back to the last regime with mass.
	for j := incident.NumRegimes - 1; j >= 0; j-- {
		if p[j] > 0 {
			return incident.Regime(j)
		}
	}
	return incident.Stable
}
