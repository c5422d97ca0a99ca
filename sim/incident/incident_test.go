package incident

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVector_NegativeComponents_ClampedToZero(t *testing.T) {
	v := NewVector(-1, 2, -5)
	assert.Equal(t, 0, v.Grave())
	assert.Equal(t, 2, v.Moderate())
	assert.Equal(t, 0, v.Minor())
	assert.Equal(t, 2, v.Total())
}

func TestVector_Dominant(t *testing.T) {
	tests := []struct {
		name string
		v    Vector
		want Severity
	}{
		{"null vector", NewVector(0, 0, 0), Minor},
		{"grave wins", NewVector(3, 1, 2), Grave},
		{"tie resolves to lower severity", NewVector(2, 2, 0), Moderate},
		{"minor wins", NewVector(0, 1, 4), Minor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Dominant())
		})
	}
}

func TestVector_JSON_RejectsNegative(t *testing.T) {
	var v Vector
	err := json.Unmarshal([]byte(`[1,-2,3]`), &v)
	assert.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`[1,2,3]`), &v))
	assert.Equal(t, NewVector(1, 2, 3), v)
}

func TestSeasonOf_DayRanges(t *testing.T) {
	assert.Equal(t, Winter, SeasonOf(1))
	assert.Equal(t, Winter, SeasonOf(80))
	assert.Equal(t, Summer, SeasonOf(81))
	assert.Equal(t, Summer, SeasonOf(260))
	assert.Equal(t, Intersaison, SeasonOf(261))
	assert.Equal(t, Intersaison, SeasonOf(365))
	// Cycle wraps after a year.
	assert.Equal(t, Winter, SeasonOf(366))
}

func TestRegime_Multiplier(t *testing.T) {
	assert.Equal(t, 1.0, Stable.Multiplier())
	assert.Equal(t, 1.3, Deteriorating.Multiplier())
	assert.Equal(t, 2.0, Crisis.Multiplier())
}

func TestVectorStore_WriteOnce(t *testing.T) {
	// GIVEN a store with one recorded day
	s := NewVectorStore()
	zv := ZoneVectors{Accident: NewVector(1, 0, 2)}
	require.NoError(t, s.Put(3, "z1", zv))

	// WHEN the same (day, zone) is written again
	err := s.Put(3, "z1", ZoneVectors{})

	// THEN the write is rejected and the original survives
	assert.Error(t, err)
	assert.Equal(t, NewVector(1, 0, 2), s.Get("z1", Accident, 3))
}

func TestVectorStore_History_MostRecentFirst(t *testing.T) {
	s := NewVectorStore()
	require.NoError(t, s.Put(1, "z1", ZoneVectors{Fire: NewVector(0, 0, 1)}))
	require.NoError(t, s.Put(2, "z1", ZoneVectors{Fire: NewVector(0, 0, 2)}))

	h := s.History("z1", Fire, 3, 3)
	require.Len(t, h, 3)
	assert.Equal(t, 2, h[0].Minor())
	assert.Equal(t, 1, h[1].Minor())
	assert.True(t, h[2].IsZero(), "missing days read as the null vector")
}
