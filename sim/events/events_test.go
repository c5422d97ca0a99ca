package events

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-sim/incident-sim/sim/incident"
)

func TestGraveEvent_ActiveWindow(t *testing.T) {
	// GIVEN a grave event with duration 4 starting day 10
	e := Event{ID: "g", Kind: KindGrave, Day: 10, Grave: &Grave{Duration: 4}}

	// THEN it is active on days 10-13 inclusive and inactive on day 14
	assert.False(t, e.IsActive(9))
	for day := 10; day <= 13; day++ {
		assert.True(t, e.IsActive(day), "day %d", day)
	}
	assert.False(t, e.IsActive(14))
}

func TestPositiveEvent_ActiveOnlyNextDay(t *testing.T) {
	e := Event{ID: "p", Kind: KindPositive, Day: 5, Positive: &Positive{Kind: NewStation, ImpactReduction: 0.15}}
	assert.False(t, e.IsActive(5))
	assert.True(t, e.IsActive(6))
	assert.False(t, e.IsActive(7))
}

func TestLog_RejectsMismatchedVariant(t *testing.T) {
	l := NewLog()
	err := l.Append(Event{ID: "x", Kind: KindGrave, Positive: &Positive{}})
	assert.Error(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestGenerateGrave_OnePerSevereUnit(t *testing.T) {
	// GIVEN a vector with 3 grave incidents
	g := NewGenerator(42)
	l := NewLog()
	rng := rand.New(rand.NewSource(1))

	// WHEN grave events are generated
	evs, err := g.GenerateGrave(l, 7, "z1", "north", incident.Fire, incident.NewVector(3, 1, 0), rng)
	require.NoError(t, err)

	// THEN one event per severe unit exists, each carrying base casualties 3
	require.Len(t, evs, 3)
	assert.Equal(t, 3, l.Len())
	ids := map[string]bool{}
	for _, e := range evs {
		assert.Equal(t, KindGrave, e.Kind)
		assert.Equal(t, 3, e.Grave.BaseCasualties)
		assert.GreaterOrEqual(t, e.Grave.Duration, MinGraveDuration)
		assert.LessOrEqual(t, e.Grave.Duration, MaxGraveDuration)
		assert.False(t, ids[e.ID], "ids must be unique")
		ids[e.ID] = true
	}
}

func TestGenerateGrave_CharacteristicFrequencies(t *testing.T) {
	g := NewGenerator(1)
	l := NewLog()
	rng := rand.New(rand.NewSource(99))

	const days = 4000
	for day := 1; day <= days; day++ {
		_, err := g.GenerateGrave(l, day, "z", "b", incident.Accident, incident.NewVector(1, 0, 0), rng)
		require.NoError(t, err)
	}
	var traffic, cancel, boost int
	for _, e := range l.All() {
		c := e.Grave.Characteristics
		if c.TrafficSlowdown {
			traffic++
			assert.Greater(t, c.TrafficEffect, 0.0)
		}
		if c.Cancellations {
			cancel++
		}
		if c.VectorBoost {
			boost++
		}
	}
	assert.InDelta(t, TrafficSlowdownProbability, float64(traffic)/days, 0.03)
	assert.InDelta(t, CancellationsProbability, float64(cancel)/days, 0.03)
	assert.InDelta(t, VectorBoostProbability, float64(boost)/days, 0.03)
}

func TestGenerator_DeterministicIDs(t *testing.T) {
	run := func() []Event {
		g := NewGenerator(42)
		l := NewLog()
		rng := rand.New(rand.NewSource(3))
		evs, err := g.GenerateGrave(l, 2, "z", "b", incident.Assault, incident.NewVector(2, 0, 0), rng)
		require.NoError(t, err)
		return evs
	}
	a, b := run(), run()
	require.Len(t, a, 2)
	assert.Equal(t, a, b)
}

func TestGeneratePositive_RateAndReductions(t *testing.T) {
	g := NewGenerator(7)
	l := NewLog()
	rng := rand.New(rand.NewSource(11))
	boroughs := []incident.Borough{"a", "b", "c"}

	const days = 60000
	for day := 1; day <= days; day++ {
		_, err := g.GeneratePositive(l, day, boroughs, rng)
		require.NoError(t, err)
	}
	// Expected count is days/60 = 1000.
	assert.InDelta(t, 1000, l.Len(), 120)
	for _, e := range l.All() {
		switch e.Positive.Kind {
		case InfrastructureCompletion:
			assert.Equal(t, 0.10, e.Positive.ImpactReduction)
		case NewStation:
			assert.Equal(t, 0.15, e.Positive.ImpactReduction)
		case EquipmentUpgrade:
			assert.Equal(t, 0.05, e.Positive.ImpactReduction)
		default:
			t.Fatalf("unexpected kind %q", e.Positive.Kind)
		}
	}
}

func TestLog_ActiveInBorough(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Append(Event{ID: "1", Kind: KindGrave, Day: 1, Borough: "a", Grave: &Grave{Duration: 3}}))
	require.NoError(t, l.Append(Event{ID: "2", Kind: KindPositive, Day: 1, Borough: "a", Positive: &Positive{}}))
	require.NoError(t, l.Append(Event{ID: "3", Kind: KindGrave, Day: 2, Borough: "b", Grave: &Grave{Duration: 3}}))

	grave, positive := l.Counts(2, "a")
	assert.Equal(t, 1, grave)
	assert.Equal(t, 1, positive)
	assert.Len(t, l.Active(2), 3)
	assert.Len(t, l.ForDay(1), 2)
}
