// Package congestion computes the per-zone daily traffic congestion
// multiplier from the day's incidents, active events, season and recent
// congestion history, and applies same-day real-time slowdowns.
package congestion

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/urban-sim/incident-sim/sim/events"
	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
	"github.com/urban-sim/incident-sim/sim/stats"
)

const (
	stochasticWeight          = 0.20
	importantStochasticWeight = 0.70

	accidentEffectPerIncident = 0.05
	maxAccidentEffect         = 0.30

	fireTriggerEffect    = 1.2
	fireAftermathEffect  = 0.8
	fireAftermathDays    = 2
	assaultTriggerEffect = 1.5
	assaultAftermath     = 0.7
	assaultAftermathDays = 3

	neighborEffect       = 1.10
	neighborThreshold    = 0.5
	recurrenceEffect     = 1.05
	recurrenceThreshold  = 0.6
	recurrenceWindowDays = 7

	intersaisonFactor = 1.2
	offSeasonFactor   = 0.9

	nightDivisor       = 3.0
	summerNightDivisor = 2.2
	nightJitter        = 0.20

	graveEventStep     = 0.10
	maxGraveEventBoost = 0.50
	positiveEventStep  = 0.10
	maxPositiveRelief  = 0.20

	// importantAccidentModerates is the moderate-accident count marking an important event.
	importantAccidentModerates = 3

	// HaloFraction is the share of a traffic slowdown applied to bordering zones.
	HaloFraction = 0.5
)

// nightShares is the probability that an incident of a family happens at night.
var nightShares = [incident.NumTypes]float64{
	incident.Accident: 0.30,
	incident.Fire:     0.40,
	incident.Assault:  0.55,
}

// Result describes one zone's congestion computation.
type Result struct {
	Value          float64
	Important      bool
	Deterministic  float64
	Stochastic     float64
	NightFactor    float64
	NightIncidents [incident.NumTypes]int
}

// Calculator computes daily congestion and writes it to a Table.
type Calculator struct {
	store   *matrix.Store
	vectors *incident.VectorStore
	table   *Table
}

// NewCalculator creates a calculator writing to table.
func NewCalculator(store *matrix.Store, vectors *incident.VectorStore, table *Table) *Calculator {
	return &Calculator{store: store, vectors: vectors, table: table}
}

// Table returns the congestion table.
func (c *Calculator) Table() *Table { return c.table }

// ImportantEvent reports a severe fire, a severe assault, or an accident day
// with at least three moderate incidents.
func ImportantEvent(zv incident.ZoneVectors) bool {
	return zv[incident.Fire].Grave() > 0 ||
		zv[incident.Assault].Grave() > 0 ||
		zv[incident.Accident].Moderate() >= importantAccidentModerates
}

// SeasonFactor is 1.2 in intersaison and 0.9 in winter and summer.
func SeasonFactor(s incident.Season) float64 {
	if s == incident.Intersaison {
		return intersaisonFactor
	}
	return offSeasonFactor
}

// Compute calculates and records the congestion of every zone for day.
// Today's vectors must already be in the vector store. Zones are processed
// in store order so draws are reproducible.
func (c *Calculator) Compute(day int, log *events.Log, rng *rand.Rand) (map[incident.ZoneID]Result, error) {
	out := make(map[incident.ZoneID]Result, len(c.store.Zones()))
	for _, z := range c.store.Zones() {
		r := c.zone(z, day, log, rng)
		if err := c.table.Set(z.ID, day, r.Value); err != nil {
			return out, err
		}
		out[z.ID] = r
	}
	return out, nil
}

func (c *Calculator) zone(z matrix.Zone, day int, log *events.Log, rng *rand.Rand) Result {
	zv, _ := c.vectors.Zone(z.ID, day)
	var r Result
	r.Important = ImportantEvent(zv)

	sw := stochasticWeight
	if r.Important {
		sw = importantStochasticWeight
	}
	r.Stochastic = rng.Float64() * sw
	r.Deterministic = c.deterministic(z, zv, day)

	baseline := z.BaselineCongestion
	if baseline <= 0 || math.IsNaN(baseline) {
		baseline = 1.0
	}
	value := baseline * (r.Deterministic*(1-sw) + r.Stochastic)

	r.NightFactor = 1.0
	nightTotal := 0
	for _, t := range incident.Types {
		r.NightIncidents[t] = stats.Binomial(rng, zv[t].Total(), nightShares[t])
		nightTotal += r.NightIncidents[t]
	}
	if nightTotal > 0 {
		divisor := nightDivisor
		if incident.SeasonOf(day) == incident.Summer {
			divisor = summerNightDivisor
		}
		r.NightFactor = (1 / divisor) * (1 + stats.Uniform(rng, -nightJitter, nightJitter))
		value *= r.NightFactor
	}

	grave, positive := log.Counts(day, z.Borough)
	value *= 1 + math.Min(graveEventStep*float64(grave), maxGraveEventBoost)
	value *= 1 - math.Min(positiveEventStep*float64(positive), maxPositiveRelief)

	r.Value = Clamp(value)
	return r
}

// deterministic is the product of the incident, neighbor, recurrence and
// season effects of a zone-day.
func (c *Calculator) deterministic(z matrix.Zone, zv incident.ZoneVectors, day int) float64 {
	f := 1 + math.Min(accidentEffectPerIncident*float64(zv[incident.Accident].Total()), maxAccidentEffect)

	switch {
	case zv[incident.Fire].Grave() > 0:
		f *= fireTriggerEffect
	case c.recentGrave(z.ID, incident.Fire, day, fireAftermathDays):
		f *= fireAftermathEffect
	}
	switch {
	case zv[incident.Assault].Grave() > 0:
		f *= assaultTriggerEffect
	case c.recentGrave(z.ID, incident.Assault, day, assaultAftermathDays):
		f *= assaultAftermath
	}

	if ids := c.store.NeighborIDs(z.ID); len(ids) > 0 {
		if avg, ok := c.table.Mean(ids, day-1, day-1); ok && avg > neighborThreshold {
			f *= neighborEffect
		}
	}
	if avg, ok := c.table.Mean([]incident.ZoneID{z.ID}, day-recurrenceWindowDays, day-1); ok && avg > recurrenceThreshold {
		f *= recurrenceEffect
	}
	return f * SeasonFactor(incident.SeasonOf(day))
}

func (c *Calculator) recentGrave(zone incident.ZoneID, t incident.Type, day, lookback int) bool {
	for d := day - 1; d >= day-lookback; d-- {
		if c.vectors.Get(zone, t, d).Grave() > 0 {
			return true
		}
	}
	return false
}

// ApplySlowdown rewrites the day's congestion of every zone of the borough
// by (1+effect), and of bordering zones by (1+effect·HaloFraction).
func (c *Calculator) ApplySlowdown(day int, borough incident.Borough, effect float64) {
	if effect <= 0 || math.IsNaN(effect) {
		return
	}
	for _, id := range c.store.ZonesInBorough(borough) {
		c.table.Adjust(id, day, 1+effect)
	}
	for _, id := range c.store.BorderingZones(borough) {
		c.table.Adjust(id, day, 1+effect*HaloFraction)
	}
	logrus.Debugf("day %d: traffic slowdown +%.0f%% in %s", day, effect*100, borough)
}
