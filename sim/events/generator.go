package events

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/stats"
)

// Grave event constants.
const (
	MinGraveDuration = 3
	MaxGraveDuration = 10

	TrafficSlowdownProbability = 0.70
	CancellationsProbability   = 0.30
	VectorBoostProbability     = 0.50
	ResponderDeathProbability  = 0.05

	minTrafficEffect, maxTrafficEffect = 0.10, 0.40
	minBoostEffect, maxBoostEffect     = 0.05, 0.20
)

// PositiveEventRate is the daily mean number of positive events city-wide.
const PositiveEventRate = 1.0 / 60.0

type positiveSpec struct {
	kind      PositiveKind
	weight    float64
	reduction float64
}

var positiveSpecs = []positiveSpec{
	{InfrastructureCompletion, 0.40, 0.10},
	{NewStation, 0.35, 0.15},
	{EquipmentUpgrade, 0.25, 0.05},
}

// Generator spawns grave and positive events and appends them to a log.
// Event ids are name-based UUIDs derived from the run seed and the event's
// position in the log, so replays produce identical ids.
type Generator struct {
	namespace uuid.UUID
}

// NewGenerator creates a generator whose ids are scoped to a run seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("incident-sim/run/%d", seed)))}
}

func (g *Generator) nextID(log *Log, kind Kind, day int) string {
	return uuid.NewSHA1(g.namespace, []byte(fmt.Sprintf("%s/%d/%d", kind, day, log.Len()))).String()
}

// GenerateGrave instantiates one grave event per severe unit of v. Each
// event carries base casualties equal to the severe count of the incident.
func (g *Generator) GenerateGrave(log *Log, day int, zone incident.ZoneID, borough incident.Borough,
	t incident.Type, v incident.Vector, rng *rand.Rand) ([]Event, error) {
	n := v.Grave()
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		grave := &Grave{
			Type:           t,
			Zone:           zone,
			Duration:       stats.UniformInt(rng, MinGraveDuration, MaxGraveDuration),
			BaseCasualties: n,
		}
		c := &grave.Characteristics
		if stats.Bernoulli(rng, TrafficSlowdownProbability) {
			c.TrafficSlowdown = true
			c.TrafficEffect = stats.Uniform(rng, minTrafficEffect, maxTrafficEffect)
		}
		c.Cancellations = stats.Bernoulli(rng, CancellationsProbability)
		if stats.Bernoulli(rng, VectorBoostProbability) {
			c.VectorBoost = true
			c.BoostEffect = stats.Uniform(rng, minBoostEffect, maxBoostEffect)
		}
		c.ResponderDeath = stats.Bernoulli(rng, ResponderDeathProbability)

		e := Event{ID: g.nextID(log, KindGrave, day), Kind: KindGrave, Day: day, Borough: borough, Grave: grave}
		if err := log.Append(e); err != nil {
			return out, err
		}
		logrus.Debugf("day %d: grave %s event %s in %s (duration %d)", day, t, e.ID, zone, grave.Duration)
		out = append(out, e)
	}
	return out, nil
}

// GeneratePositive draws the day's positive events: a Poisson count with
// mean 1/60, each assigned a random borough and kind.
func (g *Generator) GeneratePositive(log *Log, day int, boroughs []incident.Borough, rng *rand.Rand) ([]Event, error) {
	n := stats.Poisson(rng, PositiveEventRate)
	if n == 0 || len(boroughs) == 0 {
		return nil, nil
	}
	weights := make([]float64, len(positiveSpecs))
	for i, s := range positiveSpecs {
		weights[i] = s.weight
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		b := boroughs[rng.Intn(len(boroughs))]
		spec := positiveSpecs[stats.Categorical(rng, weights)]
		e := Event{
			ID:       g.nextID(log, KindPositive, day),
			Kind:     KindPositive,
			Day:      day,
			Borough:  b,
			Positive: &Positive{Kind: spec.kind, ImpactReduction: spec.reduction},
		}
		if err := log.Append(e); err != nil {
			return out, err
		}
		logrus.Infof("day %d: positive event %s in %s (-%.0f%%)", day, spec.kind, b, spec.reduction*100)
		out = append(out, e)
	}
	return out, nil
}
