// Package intensity turns a base intensity and its calibration factors into
// a capped Poisson intensity, and samples the day's incident vector from a
// zero-inflated Poisson split across severities.
package intensity

import (
	"math"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/modulator"
)

// Intensity caps, relative to the base intensity.
const (
	MinCapRatio = 0.1
	MaxCapRatio = 3.0
)

// Wealth modulation bounds for assault intensity.
const (
	minWealthRatio = 0.5
	maxWealthRatio = 2.0
)

// Breakdown records every multiplier that produced a final intensity.
type Breakdown struct {
	Base     float64
	Seasonal float64
	Matrix   modulator.Factors
	Dynamic  modulator.Dynamic
	Wealth   float64
	Raw      float64 // product before capping
	Final    float64
}

// WealthModulation returns the wealth multiplier of a family. Assaults are
// divided by the zone's wealth ratio (bounded to [0.5, 2]); other families
// are unaffected. A missing ratio (<= 0) is neutral.
func WealthModulation(t incident.Type, wealth float64) float64 {
	if t != incident.Assault || wealth <= 0 || math.IsNaN(wealth) {
		return 1.0
	}
	return 1 / math.Min(maxWealthRatio, math.Max(minWealthRatio, wealth))
}

// validBase reports whether a base intensity can produce incidents.
func validBase(base float64) bool {
	return base > 0 && !math.IsNaN(base) && !math.IsInf(base, 0)
}

// Calculate combines the base intensity with every factor and caps the
// result to [0.1×base, 3.0×base]. A missing or invalid base yields 0.
func Calculate(base, seasonal float64, f modulator.Factors, d modulator.Dynamic, wealth float64) Breakdown {
	b := Breakdown{Base: base, Seasonal: seasonal, Matrix: f, Dynamic: d, Wealth: wealth}
	if !validBase(base) {
		b.Base = 0
		return b
	}
	b.Raw = base * seasonal * f.Product() * d.Product() * wealth
	if math.IsNaN(b.Raw) {
		b.Raw = base
	}
	b.Final = Cap(b.Raw, base)
	return b
}

// Cap clamps an intensity to [0.1×base, 3.0×base].
func Cap(v, base float64) float64 {
	return math.Min(MaxCapRatio*base, math.Max(MinCapRatio*base, v))
}
