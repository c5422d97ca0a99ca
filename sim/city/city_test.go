package city

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
)

func TestGenerate_SmallCity_Shape(t *testing.T) {
	// GIVEN the small 4×4 config
	cfg := SmallConfig()

	// WHEN generated
	c, err := Generate(cfg, 7)
	require.NoError(t, err)

	// THEN every zone exists with neighbors, matrices and sane attributes
	zones := c.Store.Zones()
	require.Len(t, zones, 16)
	assert.Equal(t, []incident.Borough{"b0", "b1"}, c.Store.Boroughs())
	for _, z := range zones {
		n, ok := c.Store.Neighbors(z.ID)
		require.True(t, ok, "zone %s has no neighbors", z.ID)
		sum := 0.0
		for _, w := range n.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, matrix.NeighborWeightTolerance)

		assert.GreaterOrEqual(t, z.Risk, 0.5)
		assert.LessOrEqual(t, z.Risk, 2.0)
		assert.Greater(t, z.BaselineCongestion, 0.0)
		for _, tp := range incident.Types {
			_, ok := c.Store.SeverityMatrix(z.ID, tp)
			assert.True(t, ok)
			assert.GreaterOrEqual(t, z.BaseIntensity[tp], 0.0)
		}
	}
	assert.Len(t, c.Stations, 2)
	assert.Len(t, c.Hospitals, 1)
	for _, s := range c.Stations {
		assert.Equal(t, cfg.StationResponders, s.Available())
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(DefaultConfig(), 3)
	require.NoError(t, err)
	b, err := Generate(DefaultConfig(), 3)
	require.NoError(t, err)
	assert.Equal(t, a.Store.Zones(), b.Store.Zones())

	other, err := Generate(DefaultConfig(), 4)
	require.NoError(t, err)
	assert.NotEqual(t, a.Store.Zones(), other.Store.Zones())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"too few zones", func(c *Config) { c.Width, c.Height = 3, 3 }},
		{"zero zone size", func(c *Config) { c.ZoneSizeKm = 0 }},
		{"more boroughs than columns", func(c *Config) { c.BoroughsX = 20 }},
		{"negative intensity", func(c *Config) { c.BaseIntensity[1] = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Generate(cfg, 1)
			assert.Error(t, err)
		})
	}
}

func TestBoroughOf(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, incident.Borough("b0"), cfg.BoroughOf(0, 0))
	assert.Equal(t, incident.Borough("b1"), cfg.BoroughOf(11, 0))
	assert.Equal(t, incident.Borough("b2"), cfg.BoroughOf(0, 11))
	assert.Equal(t, incident.Borough("b3"), cfg.BoroughOf(6, 6))
}
