// Package testutil provides shared test infrastructure for the simulator:
// a small deterministic city fixture and float assertion helpers used
// across sim/ and cmd/ test packages.
package testutil

import (
	"math"
	"testing"

	"github.com/urban-sim/incident-sim/sim/city"
)

// FixtureSeed is the seed of the shared city fixture.
const FixtureSeed = 2024

// SmallCity generates the 4×4 two-borough fixture city. Each call returns
// fresh stations so tests never share mutable counters.
func SmallCity(t *testing.T) *city.City {
	t.Helper()
	c, err := city.Generate(city.SmallConfig(), FixtureSeed)
	if err != nil {
		t.Fatalf("generating fixture city: %v", err)
	}
	return c
}

// BusyCity is SmallCity with base intensities scaled up so that severe
// incidents, events and responses occur within a few days.
func BusyCity(t *testing.T) *city.City {
	t.Helper()
	cfg := city.SmallConfig()
	for i := range cfg.BaseIntensity {
		cfg.BaseIntensity[i] *= 4
	}
	c, err := city.Generate(cfg, FixtureSeed)
	if err != nil {
		t.Fatalf("generating busy fixture city: %v", err)
	}
	return c
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
