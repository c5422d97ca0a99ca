// Package city generates a synthetic city: a grid of zones grouped into
// boroughs, with spatially coherent risk, wealth and congestion fields,
// valid static matrices, stations and hospitals.
package city

import (
	"errors"
	"fmt"
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/sirupsen/logrus"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
	"github.com/urban-sim/incident-sim/sim/response"
)

// Config controls city generation.
type Config struct {
	Width              int        `yaml:"width"`  // zones along x
	Height             int        `yaml:"height"` // zones along y
	ZoneSizeKm         float64    `yaml:"zone_size_km"`
	BoroughsX          int        `yaml:"boroughs_x"`
	BoroughsY          int        `yaml:"boroughs_y"`
	StationsPerBorough int        `yaml:"stations_per_borough"`
	StationResponders  int        `yaml:"station_responders"`
	Hospitals          int        `yaml:"hospitals"`
	BaseIntensity      [3]float64 `yaml:"base_intensity"` // accident, fire, assault
	NeighborThreshold  float64    `yaml:"neighbor_threshold"`
}

// DefaultConfig returns a 12×12 city in four boroughs.
func DefaultConfig() Config {
	return Config{
		Width:              12,
		Height:             12,
		ZoneSizeKm:         1.5,
		BoroughsX:          2,
		BoroughsY:          2,
		StationsPerBorough: 2,
		StationResponders:  16,
		Hospitals:          3,
		BaseIntensity:      [3]float64{0.9, 0.25, 0.5},
		NeighborThreshold:  0.5,
	}
}

// SmallConfig returns a 4×4 city in two boroughs, for tests.
func SmallConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 4, 4
	cfg.BoroughsX, cfg.BoroughsY = 2, 1
	cfg.StationsPerBorough = 1
	cfg.StationResponders = 8
	cfg.Hospitals = 1
	return cfg
}

// Validate checks the generation parameters.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("city grid must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Width*c.Height <= matrix.NeighborCount {
		return fmt.Errorf("city needs more than %d zones, got %d", matrix.NeighborCount, c.Width*c.Height)
	}
	if c.ZoneSizeKm <= 0 {
		return fmt.Errorf("zone size must be > 0, got %v", c.ZoneSizeKm)
	}
	if c.BoroughsX <= 0 || c.BoroughsY <= 0 || c.BoroughsX > c.Width || c.BoroughsY > c.Height {
		return fmt.Errorf("borough split %dx%d does not fit a %dx%d grid", c.BoroughsX, c.BoroughsY, c.Width, c.Height)
	}
	if c.StationsPerBorough < 0 || c.StationResponders < 0 || c.Hospitals < 0 {
		return errors.New("station and hospital counts must be non-negative")
	}
	for i, b := range c.BaseIntensity {
		if b < 0 || math.IsNaN(b) {
			return fmt.Errorf("base intensity %d must be >= 0, got %v", i, b)
		}
	}
	return nil
}

// City is a generated city ready to feed an engine.
type City struct {
	Store     *matrix.Store
	Stations  []*response.Station
	Hospitals []response.Hospital
}

// fields holds one opensimplex field per zone attribute.
type fields struct {
	risk, wealth, congestion, severity opensimplex.Noise
}

func newFields(seed int64) fields {
	return fields{
		risk:       opensimplex.NewNormalized(seed),
		wealth:     opensimplex.NewNormalized(seed + 1),
		congestion: opensimplex.NewNormalized(seed + 2),
		severity:   opensimplex.NewNormalized(seed + 3),
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

// ZoneID names the zone at grid cell (x, y).
func ZoneID(x, y int) incident.ZoneID {
	return incident.ZoneID(fmt.Sprintf("z%02d-%02d", x, y))
}

// BoroughOf names the borough containing grid cell (x, y).
func (c Config) BoroughOf(x, y int) incident.Borough {
	bx := x * c.BoroughsX / c.Width
	by := y * c.BoroughsY / c.Height
	return incident.Borough(fmt.Sprintf("b%d", by*c.BoroughsX+bx))
}

// Generate builds a city. The same config and seed always produce the same city.
func Generate(cfg Config, seed int64) (*City, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := newFields(seed)
	cx, cy := float64(cfg.Width-1)/2, float64(cfg.Height-1)/2
	maxR := math.Hypot(cx, cy) + 1

	zones := make([]matrix.Zone, 0, cfg.Width*cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)
			risk := 0.5 + 1.5*octaveNoise(f.risk, fx, fy, 3, 0.15, 0.5)
			wealth := 0.5 + 1.5*octaveNoise(f.wealth, fx, fy, 3, 0.12, 0.5)
			// Centres are busier than the outskirts.
			centrality := 1 - math.Hypot(fx-cx, fy-cy)/maxR
			congestion := 0.6 + 0.5*centrality + 0.4*octaveNoise(f.congestion, fx, fy, 2, 0.2, 0.5)

			z := matrix.Zone{
				ID:                 ZoneID(x, y),
				Borough:            cfg.BoroughOf(x, y),
				Centroid:           matrix.Point{X: fx * cfg.ZoneSizeKm, Y: fy * cfg.ZoneSizeKm},
				Risk:               risk,
				Wealth:             wealth,
				BaselineCongestion: congestion,
			}
			z.BaseIntensity[incident.Accident] = cfg.BaseIntensity[incident.Accident] * congestion
			z.BaseIntensity[incident.Fire] = cfg.BaseIntensity[incident.Fire] * (0.5 + 0.5*risk)
			z.BaseIntensity[incident.Assault] = cfg.BaseIntensity[incident.Assault] * risk
			zones = append(zones, z)
		}
	}

	store, err := matrix.NewStore(zones)
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		if err := populateMatrices(store, z, f); err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.ID, err)
		}
	}
	if err := store.DeriveNeighbors(cfg.NeighborThreshold); err != nil {
		return nil, err
	}

	c := &City{Store: store}
	c.Stations = placeStations(cfg, store)
	c.Hospitals = placeHospitals(cfg, store)
	logrus.Infof("generated city: %d zones, %d boroughs, %d stations, %d hospitals",
		len(zones), len(store.Boroughs()), len(c.Stations), len(c.Hospitals))
	return c, nil
}

// populateMatrices writes near-diagonal severity matrices, cross-type
// vectors and seasonal factors for one zone.
func populateMatrices(store *matrix.Store, z matrix.Zone, f fields) error {
	x, y := z.Centroid.X, z.Centroid.Y
	for _, t := range incident.Types {
		// persistence in [0.5, 0.8]: how strongly a dominant severity repeats
		p := 0.5 + 0.3*octaveNoise(f.severity, x+float64(t)*17, y, 2, 0.3, 0.5)
		rest := (1 - p) / 2
		var sm matrix.SeverityMatrix
		for _, from := range incident.Severities {
			for _, to := range incident.Severities {
				if from == to {
					sm[from][to] = p
				} else {
					sm[from][to] = rest
				}
			}
		}
		if err := store.SetSeverityMatrix(z.ID, t, matrix.SeverityMatrix(matrix.NormalizeRows(sm))); err != nil {
			return err
		}
		for _, src := range incident.Types {
			if src == t {
				continue
			}
			scale := 0.5 + 0.5*z.Risk
			cv := matrix.CrossVector{
				incident.Minor:    0.01 * scale,
				incident.Moderate: 0.03 * scale,
				incident.Grave:    0.06 * scale,
			}
			if err := store.SetCrossType(z.ID, t, src, cv); err != nil {
				return err
			}
		}
	}
	for _, s := range []incident.Season{incident.Winter, incident.Summer, incident.Intersaison} {
		jitter := 0.1 * (octaveNoise(f.congestion, x+float64(s)*31, y+7, 1, 0.2, 0.5) - 0.5)
		if err := store.SetSeasonalFactor(z.ID, s, 1+jitter); err != nil {
			return err
		}
	}
	return nil
}

// placeStations puts each borough's stations in its highest-risk zones.
func placeStations(cfg Config, store *matrix.Store) []*response.Station {
	var out []*response.Station
	for _, b := range store.Boroughs() {
		ids := store.ZonesInBorough(b)
		sort.SliceStable(ids, func(i, j int) bool {
			zi, _ := store.Zone(ids[i])
			zj, _ := store.Zone(ids[j])
			return zi.Risk > zj.Risk
		})
		for k := 0; k < cfg.StationsPerBorough && k < len(ids); k++ {
			z, _ := store.Zone(ids[k])
			id := fmt.Sprintf("st-%s-%d", b, k+1)
			out = append(out, response.NewStation(id, z.ID, z.Centroid, cfg.StationResponders))
		}
	}
	return out
}

// placeHospitals spreads hospitals along the grid diagonal.
func placeHospitals(cfg Config, store *matrix.Store) []response.Hospital {
	out := make([]response.Hospital, 0, cfg.Hospitals)
	for k := 0; k < cfg.Hospitals; k++ {
		frac := (float64(k) + 0.5) / float64(cfg.Hospitals)
		x := int(frac * float64(cfg.Width))
		y := int(frac * float64(cfg.Height))
		z, ok := store.Zone(ZoneID(x, y))
		if !ok {
			continue
		}
		out = append(out, response.Hospital{ID: fmt.Sprintf("h%d", k+1), Zone: z.ID, Location: z.Centroid})
	}
	return out
}
