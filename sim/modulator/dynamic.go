package modulator

import (
	"math"

	"github.com/urban-sim/incident-sim/sim/events"
	"github.com/urban-sim/incident-sim/sim/incident"
)

// bimonthlyDays is the lookback of the long recurrence pattern.
const bimonthlyDays = 60

// Dynamic are the multipliers that do not come from the static matrices.
type Dynamic struct {
	Event   float64
	Regime  float64
	Pattern float64
}

// Product returns the product of the dynamic multipliers.
func (d Dynamic) Product() float64 { return d.Event * d.Regime * d.Pattern }

// EventFactor multiplies (1+effect) for every active vector-boost grave event
// and (1-reduction) for every active positive event of the borough.
func EventFactor(active []events.Event) float64 {
	f := 1.0
	for _, e := range active {
		switch e.Kind {
		case events.KindGrave:
			if c := e.Grave.Characteristics; c.VectorBoost {
				f *= 1 + c.BoostEffect
			}
		case events.KindPositive:
			f *= 1 - e.Positive.ImpactReduction
		}
	}
	return math.Max(0, f)
}

// ActivePatterns returns how many of the 7-day and 60-day recurrence
// patterns of (zone, type) are active on day.
func (m *Modulator) ActivePatterns(zone incident.ZoneID, t incident.Type, day int) int {
	pv := m.store.Patterns()
	rule := m.store.Augmentation()

	weekly := 0.0
	for _, v := range m.vectors.History(zone, t, day, HistoryDays) {
		weekly += v.Weighted(pv.Weekly[t])
	}
	bimonthly := 0.0
	for _, v := range m.vectors.History(zone, t, day, bimonthlyDays) {
		bimonthly += v.Weighted(pv.Bimonthly[t])
	}
	// The long pattern is scored per week so both share the threshold.
	bimonthly *= float64(HistoryDays) / bimonthlyDays

	n := 0
	if weekly >= rule.Threshold {
		n++
	}
	if bimonthly >= rule.Threshold {
		n++
	}
	return n
}

// PatternFactor returns 1 + delta per active pattern (capped at the rule's
// max), with the augmentation reduced by the pattern-effect knob.
func (m *Modulator) PatternFactor(zone incident.ZoneID, t incident.Type, day int) float64 {
	rule := m.store.Augmentation()
	raw := math.Min(rule.Delta*float64(m.ActivePatterns(zone, t, day)), rule.Max)
	return 1 + raw*(1-m.cfg.PatternEffectReduction)
}

// Dynamic returns the event, regime and pattern multipliers of a (zone, type, day).
func (m *Modulator) Dynamic(zone incident.ZoneID, t incident.Type, day int, regime incident.Regime, active []events.Event) Dynamic {
	return Dynamic{
		Event:   EventFactor(active),
		Regime:  regime.Multiplier(),
		Pattern: m.PatternFactor(zone, t, day),
	}
}
