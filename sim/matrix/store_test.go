package matrix

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/urban-sim/incident-sim/sim/incident"
)

func gridZones(n int) []Zone {
	zones := make([]Zone, 0, n*n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			zones = append(zones, Zone{
				ID:       incident.ZoneID(fmt.Sprintf("z%d_%d", x, y)),
				Borough:  incident.Borough(fmt.Sprintf("b%d", x/2)),
				Centroid: Point{X: float64(x), Y: float64(y)},
				Risk:     1,
				Wealth:   1,
			})
		}
	}
	return zones
}

func TestValidateRowStochastic(t *testing.T) {
	tests := []struct {
		name    string
		m       [3][3]float64
		wantErr bool
	}{
		{"identity", [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, false},
		{"within tolerance", [3][3]float64{{0.5, 0.5 + 5e-7, 0}, {0.2, 0.3, 0.5}, {0, 0, 1}}, false},
		{"row sums above 1", [3][3]float64{{0.6, 0.6, 0}, {0, 1, 0}, {0, 0, 1}}, true},
		{"row sums below 1", [3][3]float64{{0.3, 0.3, 0.3}, {0, 1, 0}, {0, 0, 1}}, true},
		{"NaN entry", [3][3]float64{{math.NaN(), 1, 0}, {0, 1, 0}, {0, 0, 1}}, true},
		{"negative entry", [3][3]float64{{-0.5, 1.5, 0}, {0, 1, 0}, {0, 0, 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRowStochastic(Dense3(tt.m))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNotRowStochastic), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeRows_ForcesRowStochastic(t *testing.T) {
	m := NormalizeRows([3][3]float64{{2, 1, 1}, {0, 0, 0}, {1, -1, 1}})
	require.NoError(t, ValidateRowStochastic(Dense3(m)))
	assert.InDelta(t, 0.5, m[0][0], 1e-12)
	assert.InDelta(t, 1.0/3.0, m[1][2], 1e-12, "empty rows become uniform")
	assert.Equal(t, 0.0, m[2][1], "negative entries are dropped")
}

func TestStore_SetSeverityMatrix_RejectsInvalid(t *testing.T) {
	s, err := NewStore(gridZones(3))
	require.NoError(t, err)

	err = s.SetSeverityMatrix("z0_0", incident.Fire, SeverityMatrix{{0.9, 0.2, 0}, {0, 1, 0}, {0, 0, 1}})
	assert.ErrorIs(t, err, ErrNotRowStochastic)

	_, ok := s.SeverityMatrix("z0_0", incident.Fire)
	assert.False(t, ok, "rejected matrix must not be stored")
}

func TestStore_MissingEntries_ReportNotFound(t *testing.T) {
	s, err := NewStore(gridZones(3))
	require.NoError(t, err)

	_, ok := s.SeverityMatrix("z0_0", incident.Accident)
	assert.False(t, ok)
	_, ok = s.CrossType("z0_0", incident.Accident, incident.Fire)
	assert.False(t, ok)
	_, ok = s.Neighbors("unknown")
	assert.False(t, ok)
	assert.Equal(t, 1.0, s.SeasonalFactor("unknown", incident.Winter))
}

func TestNewStore_DuplicateZone(t *testing.T) {
	_, err := NewStore([]Zone{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
}

func TestDeriveNeighbors_EightNormalizedNeighbors(t *testing.T) {
	// GIVEN a 4×4 grid of zones
	s, err := NewStore(gridZones(4))
	require.NoError(t, err)

	// WHEN neighbors are derived
	require.NoError(t, s.DeriveNeighbors(0.5))

	// THEN every zone has exactly 8 distinct neighbors whose weights sum to 1
	for _, z := range s.Zones() {
		n, ok := s.Neighbors(z.ID)
		require.True(t, ok, "zone %s", z.ID)
		assert.Len(t, n.IDs, NeighborCount)
		assert.InDelta(t, 1.0, floats.Sum(n.Weights[:]), NeighborWeightTolerance)
		seen := map[incident.ZoneID]bool{}
		for _, id := range n.IDs {
			assert.NotEqual(t, z.ID, id)
			assert.False(t, seen[id])
			seen[id] = true
		}
	}
}

func TestSetNeighbors_Validation(t *testing.T) {
	s, err := NewStore(gridZones(3))
	require.NoError(t, err)
	ids := [NeighborCount]incident.ZoneID{"z0_1", "z0_2", "z1_0", "z1_1", "z1_2", "z2_0", "z2_1", "z2_2"}
	even := [NeighborCount]float64{0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125}

	assert.NoError(t, s.SetNeighbors("z0_0", Neighbors{IDs: ids, Weights: even, Threshold: 1}))

	bad := even
	bad[0] = 0.5
	assert.ErrorIs(t, s.SetNeighbors("z0_0", Neighbors{IDs: ids, Weights: bad}), ErrInvalidNeighbors)

	self := ids
	self[0] = "z0_0"
	assert.ErrorIs(t, s.SetNeighbors("z0_0", Neighbors{IDs: self, Weights: even}), ErrInvalidNeighbors)

	unknown := ids
	unknown[0] = "nowhere"
	assert.ErrorIs(t, s.SetNeighbors("z0_0", Neighbors{IDs: unknown, Weights: even}), ErrUnknownZone)
}

func TestBorderingZones(t *testing.T) {
	s, err := NewStore(gridZones(4))
	require.NoError(t, err)
	require.NoError(t, s.DeriveNeighbors(0.5))

	border := s.BorderingZones("b0")
	require.NotEmpty(t, border)
	for _, id := range border {
		z, ok := s.Zone(id)
		require.True(t, ok)
		assert.NotEqual(t, incident.Borough("b0"), z.Borough)
	}
}
