package sim

import (
	"fmt"
	"math"

	"github.com/urban-sim/incident-sim/sim/intensity"
	"github.com/urban-sim/incident-sim/sim/matrix"
	"github.com/urban-sim/incident-sim/sim/modulator"
	"github.com/urban-sim/incident-sim/sim/regime"
	"github.com/urban-sim/incident-sim/sim/response"
	"github.com/urban-sim/incident-sim/sim/trace"
)

// RegimeConfig groups the hidden regime chain parameters.
type RegimeConfig struct {
	Transition [3][3]float64 `yaml:"transition"` // row-stochastic, indexed [from][to]
	// CasualtyFeedback is the Crisis probability mixed into a zone's
	// transition per casualty it suffered the previous day.
	CasualtyFeedback float64 `yaml:"casualty_feedback"`
	MaxFeedback      float64 `yaml:"max_feedback"`
}

// NightConfig groups night-time response parameters.
type NightConfig struct {
	// IntoxicationProbability applies to night-time assaults only.
	IntoxicationProbability float64 `yaml:"intoxication_probability"`
}

// Config groups every engine parameter. Static city data (zones, matrices,
// stations, hospitals) is passed to NewEngine separately.
type Config struct {
	Seed          int64                   `yaml:"seed"`
	Horizon       int                     `yaml:"horizon"` // days covered by the re-randomization schedule
	Modulator     modulator.Config        `yaml:"modulator"`
	Regime        RegimeConfig            `yaml:"regime"`
	CrossSeverity intensity.CrossSeverity `yaml:"cross_severity"`
	Response      response.Config         `yaml:"response"`
	Night         NightConfig             `yaml:"night"`
	Trace         trace.Level             `yaml:"trace"`
}

// DefaultConfig returns the calibrated defaults for a run of horizon days.
func DefaultConfig(seed int64, horizon int) Config {
	return Config{
		Seed:      seed,
		Horizon:   horizon,
		Modulator: modulator.DefaultConfig(),
		Regime: RegimeConfig{
			Transition:       regime.DefaultTransitionMatrix,
			CasualtyFeedback: 0.05,
			MaxFeedback:      0.30,
		},
		CrossSeverity: intensity.DefaultCrossSeverity,
		Response:      response.DefaultConfig(),
		Night:         NightConfig{IntoxicationProbability: 0.4},
		Trace:         trace.LevelOutcomes,
	}
}

// Validate checks every sub-config. Errors here abort before day 1.
func (c Config) Validate() error {
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be >= 0, got %d", c.Horizon)
	}
	if err := c.Modulator.Validate(); err != nil {
		return fmt.Errorf("modulator: %w", err)
	}
	if err := matrix.ValidateRowStochastic(matrix.Dense3(c.Regime.Transition)); err != nil {
		return fmt.Errorf("regime transition matrix: %w", err)
	}
	if c.Regime.CasualtyFeedback < 0 || c.Regime.MaxFeedback < 0 || c.Regime.MaxFeedback > 1 {
		return fmt.Errorf("regime feedback must be >= 0 with max in [0, 1], got %v and %v",
			c.Regime.CasualtyFeedback, c.Regime.MaxFeedback)
	}
	if err := c.Response.Validate(); err != nil {
		return fmt.Errorf("response: %w", err)
	}
	if p := c.Night.IntoxicationProbability; p < 0 || p > 1 || math.IsNaN(p) {
		return fmt.Errorf("intoxication probability must be in [0, 1], got %v", p)
	}
	if !trace.IsValidLevel(string(c.Trace)) {
		return fmt.Errorf("unknown trace level %q", c.Trace)
	}
	return nil
}
