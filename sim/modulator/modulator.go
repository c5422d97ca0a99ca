// Package modulator computes the multiplicative calibration factors applied
// to a zone's base intensity: three matrix factors (severity history,
// cross-type, spatial neighbors) attenuated toward 1.0, and the dynamic
// multipliers driven by events, regimes and recurrence patterns.
//
// All factors read only completed days (day-1 and earlier) from the vector
// store, so zones of the same day can be modulated in any order.
package modulator

import (
	"fmt"
	"math"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
)

const (
	// HistoryDays is the severity-history lookback.
	HistoryDays = 7
	// HistoryDecay is the per-day exponential decay of the lookback.
	HistoryDecay = 0.85
	// ConformityPerIncident scales the cross-type factor per own-type incident yesterday.
	ConformityPerIncident = 0.10
	// NeighborEffect is the flat boost once neighbor activity exceeds the threshold.
	NeighborEffect = 0.10
)

// severityWeights combine a severity-transition row into a scalar.
var severityWeights = [incident.NumSeverities]float64{0.5, 1.0, 1.5}

// neighborWeights score neighbor incidents per severity.
var neighborWeights = [incident.NumSeverities]float64{0.2, 0.5, 1.0}

// Variability is the "local variability" knob scaling the neighbor effect.
type Variability string

const (
	VariabilityLow  Variability = "low"
	VariabilityMid  Variability = "mid"
	VariabilityHigh Variability = "high"
)

// Scale returns the multiplier of the variability level (mid when unset).
func (v Variability) Scale() float64 {
	switch v {
	case VariabilityLow:
		return 0.3
	case VariabilityHigh:
		return 0.7
	default:
		return 0.5
	}
}

// ValidVariabilities lists accepted variability names.
var ValidVariabilities = map[Variability]bool{"": true, VariabilityLow: true, VariabilityMid: true, VariabilityHigh: true}

// Config holds the attenuation knobs.
type Config struct {
	// BaseReduction is the fraction of each matrix factor's deviation from
	// 1.0 that is removed (0.80 keeps 20%).
	BaseReduction float64 `yaml:"base_reduction"`
	// PatternEffectReduction is the fraction of the pattern augmentation removed.
	PatternEffectReduction float64     `yaml:"pattern_effect_reduction"`
	Variability            Variability `yaml:"variability"`
}

// DefaultConfig returns the calibrated attenuation knobs.
func DefaultConfig() Config {
	return Config{BaseReduction: 0.80, PatternEffectReduction: 0.80, Variability: VariabilityMid}
}

// Validate checks that reductions are fractions and the variability is known.
func (c Config) Validate() error {
	if c.BaseReduction < 0 || c.BaseReduction > 1 || math.IsNaN(c.BaseReduction) {
		return fmt.Errorf("base reduction must be in [0, 1], got %v", c.BaseReduction)
	}
	if c.PatternEffectReduction < 0 || c.PatternEffectReduction > 1 || math.IsNaN(c.PatternEffectReduction) {
		return fmt.Errorf("pattern effect reduction must be in [0, 1], got %v", c.PatternEffectReduction)
	}
	if !ValidVariabilities[c.Variability] {
		return fmt.Errorf("unknown variability %q", c.Variability)
	}
	return nil
}

// Factors are the three calibrated matrix factors of a (zone, type, day).
type Factors struct {
	SeverityHistory float64
	CrossType       float64
	Neighbor        float64
}

// Product returns the product of the three factors.
func (f Factors) Product() float64 {
	return f.SeverityHistory * f.CrossType * f.Neighbor
}

// Modulator computes calibration factors from static matrices and the
// completed days of the vector store.
type Modulator struct {
	cfg      Config
	store    *matrix.Store
	vectors  *incident.VectorStore
	schedule *Schedule
}

// New creates a Modulator. A nil schedule disables re-randomization.
func New(cfg Config, store *matrix.Store, vectors *incident.VectorStore, schedule *Schedule) (*Modulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("modulator config: %w", err)
	}
	if schedule == nil {
		schedule = NewSchedule(nil)
	}
	return &Modulator{cfg: cfg, store: store, vectors: vectors, schedule: schedule}, nil
}

// Schedule returns the re-randomization schedule.
func (m *Modulator) Schedule() *Schedule { return m.schedule }

// Attenuate pulls a factor toward 1.0, keeping a fraction of its deviation.
func Attenuate(f, keep float64) float64 {
	return 1 + (f-1)*keep
}

// Calibrated returns the three matrix factors after base decorrelation and,
// when a re-randomization window is active in the borough, the window's
// dampening.
func (m *Modulator) Calibrated(zone incident.ZoneID, borough incident.Borough, t incident.Type, day int) Factors {
	keep := 1 - m.cfg.BaseReduction
	damp := m.schedule.Dampening(borough, day)
	apply := func(raw float64) float64 {
		return math.Max(0, Attenuate(Attenuate(raw, keep), damp))
	}
	return Factors{
		SeverityHistory: apply(m.SeverityHistory(zone, t, day)),
		CrossType:       apply(m.CrossType(zone, t, day)),
		Neighbor:        apply(m.Neighbor(zone, t, day)),
	}
}

// WeightedHistory returns the exponentially decayed severity counts of the
// last HistoryDays days before day.
func (m *Modulator) WeightedHistory(zone incident.ZoneID, t incident.Type, day int) [incident.NumSeverities]float64 {
	var acc [incident.NumSeverities]float64
	w := 1.0
	for _, v := range m.vectors.History(zone, t, day, HistoryDays) {
		for _, s := range incident.Severities {
			acc[s] += w * float64(v.At(s))
		}
		w *= HistoryDecay
	}
	return acc
}

// SeverityHistory returns the raw severity-history factor: the row of the
// dominant recent severity, combined with the per-severity weights.
// Without a matrix or without history the factor is 1.0.
func (m *Modulator) SeverityHistory(zone incident.ZoneID, t incident.Type, day int) float64 {
	sm, ok := m.store.SeverityMatrix(zone, t)
	if !ok {
		return 1.0
	}
	hist := m.WeightedHistory(zone, t, day)
	if hist[0]+hist[1]+hist[2] == 0 {
		return 1.0
	}
	dominant := incident.Minor
	for _, s := range incident.Severities[1:] {
		if hist[s] > hist[dominant] {
			dominant = s
		}
	}
	f := 0.0
	for _, s := range incident.Severities {
		f += sm[dominant][s] * severityWeights[s]
	}
	return f
}

// CrossType returns the raw cross-type factor: 1.0 plus the severity-weighted
// influence of yesterday's other-type incidents, scaled by a conformity term
// growing 10% per own-type incident yesterday.
func (m *Modulator) CrossType(zone incident.ZoneID, t incident.Type, day int) float64 {
	f := 1.0
	for _, src := range incident.Types {
		if src == t {
			continue
		}
		v := m.vectors.Get(zone, src, day-1)
		if v.IsZero() {
			continue
		}
		cv, ok := m.store.CrossType(zone, t, src)
		if !ok {
			continue
		}
		f += v.Weighted(cv)
	}
	own := m.vectors.Get(zone, t, day-1).Total()
	return f * (1 + ConformityPerIncident*float64(own))
}

// NeighborActivity returns the weighted severity score of yesterday's
// incidents of type t across the zone's neighbors.
func (m *Modulator) NeighborActivity(zone incident.ZoneID, t incident.Type, day int) (float64, bool) {
	n, ok := m.store.Neighbors(zone)
	if !ok {
		return 0, false
	}
	sum := 0.0
	for i, id := range n.IDs {
		sum += n.Weights[i] * m.vectors.Get(id, t, day-1).Weighted(neighborWeights)
	}
	return sum, true
}

// Neighbor returns the raw neighbor factor: a flat +10% scaled by the
// variability knob once neighbor activity exceeds the zone's threshold.
func (m *Modulator) Neighbor(zone incident.ZoneID, t incident.Type, day int) float64 {
	activity, ok := m.NeighborActivity(zone, t, day)
	if !ok {
		return 1.0
	}
	n, _ := m.store.Neighbors(zone)
	if activity > n.Threshold {
		return 1 + NeighborEffect*m.cfg.Variability.Scale()
	}
	return 1.0
}
