package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/urban-sim/incident-sim/sim"
	"github.com/urban-sim/incident-sim/sim/city"
)

// Scenario is the full scenario file structure. Omitted sections keep
// their defaults; unknown keys are rejected.
type Scenario struct {
	Days int         `yaml:"days"`
	City city.Config `yaml:"city"`
	Sim  sim.Config  `yaml:"sim"`
}

// DefaultScenario returns a one-year run over the default city.
func DefaultScenario() Scenario {
	return Scenario{
		Days: 365,
		City: city.DefaultConfig(),
		Sim:  sim.DefaultConfig(42, 365),
	}
}

// LoadScenario reads a scenario file over the defaults. An empty path
// returns the defaults.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	if path == "" {
		return sc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML with strict field checking: typos must cause errors.
func ParseScenario(data []byte) (Scenario, error) {
	sc := DefaultScenario()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return sc, fmt.Errorf("parse scenario: %w", err)
	}
	return sc, sc.normalize()
}

// normalize covers the whole run with the re-randomization schedule
// unless a longer horizon was asked for.
func (s *Scenario) normalize() error {
	if s.Days <= 0 {
		return fmt.Errorf("days must be > 0, got %d", s.Days)
	}
	if s.Sim.Horizon < s.Days {
		s.Sim.Horizon = s.Days
	}
	if err := s.City.Validate(); err != nil {
		return fmt.Errorf("city: %w", err)
	}
	return s.Sim.Validate()
}

// Build generates the scenario's city and an engine positioned before day 1.
func (s Scenario) Build() (*sim.Engine, error) {
	c, err := city.Generate(s.City, s.Sim.Seed)
	if err != nil {
		return nil, err
	}
	return sim.NewEngine(s.Sim, c.Store, c.Stations, c.Hospitals)
}
