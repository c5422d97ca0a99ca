package snapshot

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-sim/incident-sim/sim/events"
	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/modulator"
	"github.com/urban-sim/incident-sim/sim/response"
	"github.com/urban-sim/incident-sim/sim/trace"
)

func sampleState() *State {
	return &State{
		Version: Version,
		Seed:    42,
		Day:     2,
		Regimes: map[incident.ZoneID]incident.Regime{"a": incident.Crisis, "b": incident.Stable},
		Vectors: []VectorEntry{
			{Day: 1, Zone: "a", Vectors: incident.ZoneVectors{incident.Fire: incident.NewVector(1, 2, 3)}},
			{Day: 1, Zone: "b", Vectors: incident.ZoneVectors{}},
			{Day: 2, Zone: "a", Vectors: incident.ZoneVectors{incident.Assault: incident.NewVector(0, 1, 0)}},
			{Day: 2, Zone: "b", Vectors: incident.ZoneVectors{incident.Accident: incident.NewVector(0, 0, 4)}},
		},
		Events: []events.Event{
			{ID: "e1", Kind: events.KindGrave, Day: 1, Borough: "n", Grave: &events.Grave{
				Type: incident.Fire, Zone: "a", Duration: 4, BaseCasualties: 1,
				Characteristics: events.Characteristics{TrafficSlowdown: true, TrafficEffect: 0.2},
			}},
			{ID: "e2", Kind: events.KindPositive, Day: 2, Borough: "s", Positive: &events.Positive{Kind: events.NewStation, ImpactReduction: 0.15}},
		},
		Congestion: []CongestionEntry{
			{Day: 1, Zone: "a", Value: 1.5}, {Day: 1, Zone: "b", Value: 0.5},
			{Day: 2, Zone: "a", Value: 2.0}, {Day: 2, Zone: "b", Value: 1.0},
		},
		Casualties: map[int]int{1: 1},
		Outcomes: []trace.Outcome{
			{Day: 1, Zone: "a", Type: incident.Fire, Total: trace.Minutes(math.Inf(1)), Threshold: 60, Verdict: trace.VerdictMortality, Automatic: true},
		},
		Stations: []response.StationState{{ID: "s1", Available: 4, Interventions: []response.Intervention{{Count: 4, Day: 2, ReturnDelay: 1, Open: true}}}},
		Windows:  []modulator.Window{{Borough: "n", Start: 10, Duration: 20, Rate: 0.7, Rise: 0.2, Fall: 0.2, Dip: 0.3}},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	// GIVEN a populated state
	st := sampleState()

	// WHEN encoded and decoded
	data, err := Encode(st)
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)

	// THEN every component is reproduced
	assert.Equal(t, st, back)
	assert.True(t, back.Outcomes[0].Total.IsInf())
}

func TestDecode_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", `{`},
		{"wrong version", `{"version": 99, "day": 1}`},
		{"negative vector", `{"version": 1, "day": 1, "vectors": [{"day": 1, "zone": "a", "vectors": [[0,-1,0],[0,0,0],[0,0,0]]}]}`},
		{"vector after last day", `{"version": 1, "day": 1, "vectors": [{"day": 2, "zone": "a", "vectors": [[0,0,0],[0,0,0],[0,0,0]]}]}`},
		{"bad regime", `{"version": 1, "day": 1, "regimes": {"a": 7}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestSummaries(t *testing.T) {
	days := Summaries(sampleState())
	require.Len(t, days, 2)
	assert.Equal(t, DaySummary{Day: 1, Incidents: 6, Grave: 1, Events: 1, Casualties: 1, MeanCongestion: 1.0}, days[0])
	assert.Equal(t, DaySummary{Day: 2, Incidents: 5, Grave: 0, Events: 1, Casualties: 0, MeanCongestion: 1.5}, days[1])
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveLoad_Idempotent(t *testing.T) {
	// GIVEN a saved run
	s := openStore(t)
	ctx := context.Background()
	st := sampleState()
	require.NoError(t, s.Save(ctx, "run-1", st))

	// WHEN loaded back
	back, err := s.Load(ctx, "run-1")
	require.NoError(t, err)

	// THEN the state is identical and summaries are queryable
	assert.Equal(t, st, back)
	days, err := s.Days(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, Summaries(st), days)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RunInfo{{RunID: "run-1", Seed: 42, LastDay: 2, Version: Version}}, runs)
}

func TestStore_SaveReplacesPreviousSave(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	st := sampleState()
	require.NoError(t, s.Save(ctx, "r", st))

	st.Day = 1
	st.Vectors = st.Vectors[:2]
	require.NoError(t, s.Save(ctx, "r", st))

	days, err := s.Days(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestStore_LoadMissing_ErrNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Load(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Days(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
