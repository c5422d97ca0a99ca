package response

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
	"github.com/urban-sim/incident-sim/sim/trace"
)

// Config holds the golden-hour parameters.
type Config struct {
	SpeedKmh            float64 `yaml:"speed_kmh"`
	TreatmentMinutes    float64 `yaml:"treatment_minutes"`
	IntoxicationMinutes float64 `yaml:"intoxication_minutes"` // added per leg
	ThresholdMinutes    float64 `yaml:"threshold_minutes"`
	StressPenalty       float64 `yaml:"stress_penalty"` // travel inflation per unit of stress
	Responders          int     `yaml:"responders"`     // required per dispatch
	ReturnDelay         int     `yaml:"return_delay"`   // days

	MortalityOver    float64 `yaml:"mortality_over"`
	SevereInjuryOver float64 `yaml:"severe_injury_over"`
	MortalityUnder   float64 `yaml:"mortality_under"`
	SevereUnder      float64 `yaml:"severe_injury_under"`
}

// DefaultConfig returns the golden-hour defaults.
func DefaultConfig() Config {
	return Config{
		SpeedKmh:            20,
		TreatmentMinutes:    15,
		IntoxicationMinutes: 5,
		ThresholdMinutes:    60,
		StressPenalty:       0.1,
		Responders:          4,
		ReturnDelay:         1,
		MortalityOver:       0.01,
		SevereInjuryOver:    0.15,
		MortalityUnder:      0,
		SevereUnder:         0.03,
	}
}

// Validate rejects parameters that would make travel times or verdicts meaningless.
func (c Config) Validate() error {
	if c.SpeedKmh <= 0 || math.IsNaN(c.SpeedKmh) {
		return fmt.Errorf("response speed must be > 0, got %v", c.SpeedKmh)
	}
	if c.TreatmentMinutes < 0 || c.IntoxicationMinutes < 0 || c.ThresholdMinutes <= 0 {
		return errors.New("response minutes must be non-negative and threshold > 0")
	}
	if c.StressPenalty < 0 {
		return fmt.Errorf("stress penalty must be >= 0, got %v", c.StressPenalty)
	}
	if c.Responders <= 0 || c.ReturnDelay < 0 {
		return fmt.Errorf("responders must be > 0 and return delay >= 0, got %d and %d", c.Responders, c.ReturnDelay)
	}
	for _, p := range [][2]float64{{c.MortalityOver, c.SevereInjuryOver}, {c.MortalityUnder, c.SevereUnder}} {
		if p[0] < 0 || p[1] < 0 || p[0]+p[1] > 1 {
			return fmt.Errorf("verdict probabilities %v must be non-negative and sum to at most 1", p)
		}
	}
	return nil
}

// Probabilities returns the mortality and severe-injury probabilities for a total time.
func (c Config) Probabilities(total float64) (mortality, severe float64) {
	if total > c.ThresholdMinutes {
		return c.MortalityOver, c.SevereInjuryOver
	}
	return c.MortalityUnder, c.SevereUnder
}

// CongestionFunc reads the congestion of a zone on a day.
type CongestionFunc func(zone incident.ZoneID, day int) (float64, bool)

// Request describes one severe incident to resolve.
type Request struct {
	Day         int
	Zone        incident.ZoneID
	Location    matrix.Point
	Type        incident.Type
	Night       bool
	Intoxicated bool
	// Path lists the zones traversed by the station leg; empty means the
	// destination zone only.
	Path []incident.ZoneID
}

// Calculator resolves severe incidents.
type Calculator struct {
	cfg        Config
	stations   *Manager
	hospitals  []Hospital
	congestion CongestionFunc
	travel     map[string]map[incident.ZoneID]float64 // station → zone → minutes
}

// NewCalculator validates cfg and builds a calculator.
func NewCalculator(cfg Config, stations *Manager, hospitals []Hospital, congestion CongestionFunc) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stations == nil {
		return nil, errors.New("response calculator requires a station manager")
	}
	if congestion == nil {
		congestion = func(incident.ZoneID, int) (float64, bool) { return 1, false }
	}
	return &Calculator{
		cfg:        cfg,
		stations:   stations,
		hospitals:  hospitals,
		congestion: congestion,
		travel:     make(map[string]map[incident.ZoneID]float64),
	}, nil
}

// Config returns the calculator's parameters.
func (c *Calculator) Config() Config { return c.cfg }

// SetTravelTime registers a precomputed uncongested station→zone time.
func (c *Calculator) SetTravelTime(station string, zone incident.ZoneID, minutes float64) {
	byZone, ok := c.travel[station]
	if !ok {
		byZone = make(map[incident.ZoneID]float64)
		c.travel[station] = byZone
	}
	byZone[zone] = minutes
}

// minutesFor converts a distance to minutes at the configured road speed.
func (c *Calculator) minutesFor(km float64) float64 {
	return km / c.cfg.SpeedKmh * 60
}

// PathCongestion is the product of the congestion of every zone on the
// path. Missing entries count as 1.
func (c *Calculator) PathCongestion(path []incident.ZoneID, day int) float64 {
	f := 1.0
	for _, z := range path {
		if v, ok := c.congestion(z, day); ok {
			f *= v
		}
	}
	return f
}

// Resolve dispatches the nearest available station to a severe incident,
// computes the response legs and draws the verdict with one uniform draw.
// When no station has responders at all the incident is an automatic
// fatality with an infinite total time and no draw is consumed.
func (c *Calculator) Resolve(req Request, rng *rand.Rand) trace.Outcome {
	out := trace.Outcome{
		Day:         req.Day,
		Zone:        req.Zone,
		Type:        req.Type,
		Threshold:   trace.Minutes(c.cfg.ThresholdMinutes),
		Treatment:   trace.Minutes(c.cfg.TreatmentMinutes),
		Night:       req.Night,
		Intoxicated: req.Intoxicated,
	}

	st, dist, ok := c.stations.NearestAvailable(c.stations.Distances(req.Location), c.cfg.Responders)
	if !ok {
		logrus.Warnf("day %d: no reachable station for %s in %s, automatic fatality", req.Day, req.Type, req.Zone)
		inf := trace.Minutes(math.Inf(1))
		out.StationLeg, out.Total = inf, inf
		out.MortalityProbability = 1
		out.Verdict = trace.VerdictMortality
		out.Automatic = true
		return out
	}
	out.StationID = st.ID
	out.DistanceKm = dist
	out.Stress = st.Stress()

	base, precomputed := c.travel[st.ID][req.Zone]
	if !precomputed {
		base = c.minutesFor(dist)
	}
	path := req.Path
	if len(path) == 0 {
		path = []incident.ZoneID{req.Zone}
	}
	out.Congestion = c.PathCongestion(path, req.Day)
	stationLeg := base * out.Congestion * (1 + out.Stress*c.cfg.StressPenalty)

	hospitalLeg := 0.0
	if h, hd, found := NearestHospital(req.Location, c.hospitals); found {
		out.HospitalID = h.ID
		hospitalLeg = c.minutesFor(hd) * c.PathCongestion([]incident.ZoneID{req.Zone}, req.Day)
	} else {
		logrus.Warnf("day %d: no hospital configured, hospital leg skipped", req.Day)
	}
	if req.Intoxicated {
		stationLeg += c.cfg.IntoxicationMinutes
		hospitalLeg += c.cfg.IntoxicationMinutes
	}
	out.StationLeg = trace.Minutes(stationLeg)
	out.HospitalLeg = trace.Minutes(hospitalLeg)
	out.Total = trace.Minutes(stationLeg + c.cfg.TreatmentMinutes + hospitalLeg)

	if !st.Withdraw(c.cfg.Responders, req.Day, c.cfg.ReturnDelay) {
		out.Understaffed = true
		logrus.Debugf("day %d: station %s dispatched understaffed to %s", req.Day, st.ID, req.Zone)
	}

	out.MortalityProbability, out.SevereInjuryProbability = c.cfg.Probabilities(float64(out.Total))
	out.Draw = rng.Float64()
	out.Verdict = Verdict(out.Draw, out.MortalityProbability, out.SevereInjuryProbability)
	return out
}

// Verdict maps one uniform draw to a verdict: mortality first, then severe
// injury, then none.
func Verdict(u, mortality, severe float64) trace.Verdict {
	switch {
	case u < mortality:
		return trace.VerdictMortality
	case u < mortality+severe:
		return trace.VerdictSevereInjury
	default:
		return trace.VerdictNone
	}
}
