package response

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
	"github.com/urban-sim/incident-sim/sim/trace"
)

func TestWithdraw_TwiceFromFullStation_SecondFails(t *testing.T) {
	// GIVEN a station with 30 responders
	s := NewStation("s", "z", matrix.Point{}, 30)

	// WHEN 30 are withdrawn twice without return
	first := s.Withdraw(30, 1, 1)
	second := s.Withdraw(30, 1, 1)

	// THEN the second call fails without mutation
	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, 0, s.Available())
	assert.Equal(t, 1, s.OpenInterventions())
}

func TestStation_AvailabilityInvariant_RandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	s := NewStation("s", "z", matrix.Point{}, 12)
	for day := 1; day <= 500; day++ {
		for k := 0; k < 3; k++ {
			before := s.Available()
			count := rng.Intn(8) + 1
			ok := s.Withdraw(count, day, rng.Intn(3))
			if !ok {
				require.Equal(t, before, s.Available(), "rejected withdrawal mutated the station")
			}
			require.GreaterOrEqual(t, s.Available(), 0)
			require.LessOrEqual(t, s.Available(), s.Total())
		}
		s.ReturnDue(day)
		require.GreaterOrEqual(t, s.Available(), 0)
		require.LessOrEqual(t, s.Available(), s.Total())
	}
}

func TestReturnDue_StrictlyAfterDelay(t *testing.T) {
	s := NewStation("s", "z", matrix.Point{}, 10)
	require.True(t, s.Withdraw(4, 5, 1))

	assert.Equal(t, 0, s.ReturnDue(6), "day 6 is not > 5+1")
	assert.Equal(t, 6, s.Available())
	assert.InDelta(t, 0.4, s.Stress(), 1e-12)

	assert.Equal(t, 4, s.ReturnDue(7))
	assert.Equal(t, 10, s.Available())
	assert.Equal(t, 0.0, s.Stress())
}

func TestNearestAvailable(t *testing.T) {
	near := NewStation("near", "a", matrix.Point{X: 1}, 4)
	far := NewStation("far", "b", matrix.Point{X: 5}, 8)
	empty := NewStation("empty", "c", matrix.Point{X: 0.5}, 0)
	m, err := NewManager([]*Station{near, far, empty})
	require.NoError(t, err)
	dist := m.Distances(matrix.Point{})

	// GIVEN every station staffed, THEN the nearest staffed one wins
	s, d, ok := m.NearestAvailable(dist, 4)
	require.True(t, ok)
	assert.Equal(t, "near", s.ID)
	assert.InDelta(t, 1.0, d, 1e-12)

	// GIVEN near drained, THEN far qualifies
	require.True(t, near.Withdraw(4, 1, 1))
	s, _, _ = m.NearestAvailable(dist, 4)
	assert.Equal(t, "far", s.ID)

	// GIVEN both short, THEN the nearest staffed station is returned regardless
	require.True(t, far.Withdraw(6, 1, 1))
	s, _, ok = m.NearestAvailable(dist, 4)
	require.True(t, ok)
	assert.Equal(t, "near", s.ID)
}

func TestNewManager_RejectsDuplicates(t *testing.T) {
	_, err := NewManager([]*Station{NewStation("a", "z", matrix.Point{}, 1), NewStation("a", "y", matrix.Point{}, 1)})
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero speed", func(c *Config) { c.SpeedKmh = 0 }},
		{"negative treatment", func(c *Config) { c.TreatmentMinutes = -1 }},
		{"zero responders", func(c *Config) { c.Responders = 0 }},
		{"probabilities above one", func(c *Config) { c.MortalityOver, c.SevereInjuryOver = 0.9, 0.2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// newLineCalculator places the incident zone at the origin, one station at
// (x, 0) and a hospital at the origin.
func newLineCalculator(t *testing.T, x float64, total int, cong CongestionFunc) *Calculator {
	t.Helper()
	m, err := NewManager([]*Station{NewStation("s", "far", matrix.Point{X: x}, total)})
	require.NoError(t, err)
	c, err := NewCalculator(DefaultConfig(), m, []Hospital{{ID: "h", Zone: "z", Location: matrix.Point{}}}, cong)
	require.NoError(t, err)
	return c
}

func TestResolve_SixtyOneMinutes_OverThresholdProbabilities(t *testing.T) {
	// GIVEN a station whose leg takes 46 minutes at 20 km/h, plus 15 minutes on scene
	c := newLineCalculator(t, 46.0/3.0, 8, nil)

	// WHEN resolved
	out := c.Resolve(Request{Day: 1, Zone: "z", Type: incident.Fire}, rand.New(rand.NewSource(1)))

	// THEN total is 61 minutes and the over-threshold probabilities apply
	assert.InDelta(t, 61.0, float64(out.Total), 1e-9)
	assert.Equal(t, 0.01, out.MortalityProbability)
	assert.Equal(t, 0.15, out.SevereInjuryProbability)
	assert.Equal(t, "h", out.HospitalID)
	assert.False(t, out.Understaffed)
}

func TestVerdict_EmpiricalRates(t *testing.T) {
	cfg := DefaultConfig()
	pm, ps := cfg.Probabilities(61)
	rng := rand.New(rand.NewSource(99))
	const n = 200000
	var mort, severe int
	for i := 0; i < n; i++ {
		switch Verdict(rng.Float64(), pm, ps) {
		case trace.VerdictMortality:
			mort++
		case trace.VerdictSevereInjury:
			severe++
		}
	}
	assert.InDelta(t, 0.01, float64(mort)/n, 0.002)
	assert.InDelta(t, 0.15, float64(severe)/n, 0.005)

	pm, ps = cfg.Probabilities(60)
	assert.Equal(t, 0.0, pm, "exactly 60 minutes is within the golden hour")
	assert.Equal(t, 0.03, ps)
}

func TestResolve_CongestionStressAndIntoxication(t *testing.T) {
	cong := func(z incident.ZoneID, day int) (float64, bool) { return 2, z == "z" }
	c := newLineCalculator(t, 10, 20, cong)
	rng := rand.New(rand.NewSource(2))

	// First dispatch: no stress, 30 min × 2 congestion; hospital at 0 km.
	out := c.Resolve(Request{Day: 1, Zone: "z"}, rng)
	assert.InDelta(t, 60.0, float64(out.StationLeg), 1e-9)
	assert.InDelta(t, 75.0, float64(out.Total), 1e-9)

	// Second dispatch: one open intervention, stress 0.4 inflates by 4%.
	out = c.Resolve(Request{Day: 1, Zone: "z", Intoxicated: true}, rng)
	assert.InDelta(t, 0.4, out.Stress, 1e-12)
	assert.InDelta(t, 60*1.04+5, float64(out.StationLeg), 1e-9)
	assert.InDelta(t, 5.0, float64(out.HospitalLeg), 1e-9)
}

func TestResolve_PrecomputedTravelTime(t *testing.T) {
	c := newLineCalculator(t, 10, 8, nil)
	c.SetTravelTime("s", "z", 7)
	out := c.Resolve(Request{Day: 1, Zone: "z"}, rand.New(rand.NewSource(3)))
	assert.InDelta(t, 7.0, float64(out.StationLeg), 1e-9)
}

func TestResolve_NoStaffedStation_AutomaticFatality(t *testing.T) {
	// GIVEN only an unstaffed station
	c := newLineCalculator(t, 1, 0, nil)
	rng := rand.New(rand.NewSource(4))
	probe := rand.New(rand.NewSource(4))

	// WHEN resolved
	out := c.Resolve(Request{Day: 2, Zone: "z", Type: incident.Assault}, rng)

	// THEN it is an automatic fatality with infinite time and no draw consumed
	assert.True(t, out.Automatic)
	assert.True(t, out.Total.IsInf())
	assert.Equal(t, trace.VerdictMortality, out.Verdict)
	assert.Equal(t, probe.Float64(), rng.Float64())
}

func TestResolve_NearestRegardless_FlagsUnderstaffed(t *testing.T) {
	c := newLineCalculator(t, 1, 3, nil)
	out := c.Resolve(Request{Day: 1, Zone: "z"}, rand.New(rand.NewSource(6)))
	assert.Equal(t, "s", out.StationID)
	assert.True(t, out.Understaffed)
	assert.False(t, out.Automatic)
	st, _ := c.stations.Station("s")
	assert.Equal(t, 3, st.Available(), "failed withdrawal leaves the station untouched")
}
