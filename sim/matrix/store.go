// Package matrix is the read-only store of static per-zone calibration data:
// severity-transition matrices, cross-type influence vectors, neighbor
// records, seasonal factors and the 7-day/60-day pattern vectors.
//
// Entries are kept in fixed-size tables indexed by zone position and the
// small integer enums of the incident package. Lookups of missing entries
// report ok=false so callers can fall back to neutral values.
package matrix

import (
	"fmt"
	"math"
	"sort"

	"github.com/urban-sim/incident-sim/sim/incident"
)

// NeighborCount is the fixed size of a neighbor record.
const NeighborCount = 8

// Point is a planar position in kilometres.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceKm returns the straight-line distance between two points.
func (p Point) DistanceKm(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Zone carries the static attributes of one zone.
type Zone struct {
	ID       incident.ZoneID
	Borough  incident.Borough
	Centroid Point
	// Risk biases initial regime probabilities (1.0 is neutral).
	Risk float64
	// Wealth is the local price/wealth ratio (1.0 is the city median).
	Wealth float64
	// BaselineCongestion is the static congestion level of the zone.
	BaselineCongestion float64
	// BaseIntensity is the expected daily incident count per family.
	BaseIntensity [incident.NumTypes]float64
}

// SeverityMatrix is a 3×3 row-stochastic matrix indexed [from][to] by Severity.
type SeverityMatrix [incident.NumSeverities][incident.NumSeverities]float64

// CrossVector holds severity-weighted cross influence, indexed by Severity.
type CrossVector [incident.NumSeverities]float64

// Neighbors is a zone's fixed neighbor record.
type Neighbors struct {
	IDs       [NeighborCount]incident.ZoneID
	Weights   [NeighborCount]float64
	Threshold float64
}

// PatternVectors weight each severity when scoring recent activity for the
// 7-day and 60-day recurrence patterns, per incident family.
type PatternVectors struct {
	Weekly    [incident.NumTypes][incident.NumSeverities]float64
	Bimonthly [incident.NumTypes][incident.NumSeverities]float64
}

// DefaultPatternVectors returns the calibrated pattern weights.
func DefaultPatternVectors() PatternVectors {
	var pv PatternVectors
	for _, t := range incident.Types {
		pv.Weekly[t] = [incident.NumSeverities]float64{0.2, 0.5, 1.0}
		pv.Bimonthly[t] = [incident.NumSeverities]float64{0.1, 0.3, 0.6}
	}
	return pv
}

// AugmentationRule bounds the pattern augmentation: a pattern activates when
// its score reaches Threshold, and each active pattern adds Delta, up to Max.
type AugmentationRule struct {
	Threshold float64
	Delta     float64
	Max       float64
}

// DefaultAugmentationRule returns threshold=5, delta=0.1, max=0.2.
func DefaultAugmentationRule() AugmentationRule {
	return AugmentationRule{Threshold: 5, Delta: 0.1, Max: 0.2}
}

type zoneTables struct {
	severity    [incident.NumTypes]SeverityMatrix
	hasSeverity [incident.NumTypes]bool
	cross       [incident.NumTypes][incident.NumTypes]CrossVector
	hasCross    [incident.NumTypes][incident.NumTypes]bool
	neighbors   Neighbors
	hasNeighbor bool
	seasonal    [3]float64
}

// Store holds every static matrix of a run.
type Store struct {
	zones        []Zone
	index        map[incident.ZoneID]int
	tables       []zoneTables
	patterns     PatternVectors
	augmentation AugmentationRule
}

// NewStore creates a store for the given zones. Zone ids must be unique and
// non-empty.
func NewStore(zones []Zone) (*Store, error) {
	s := &Store{
		zones:        make([]Zone, len(zones)),
		index:        make(map[incident.ZoneID]int, len(zones)),
		tables:       make([]zoneTables, len(zones)),
		patterns:     DefaultPatternVectors(),
		augmentation: DefaultAugmentationRule(),
	}
	for i, z := range zones {
		if z.ID == "" {
			return nil, fmt.Errorf("zone %d has an empty id", i)
		}
		if _, dup := s.index[z.ID]; dup {
			return nil, fmt.Errorf("duplicate zone id %s", z.ID)
		}
		s.zones[i] = z
		s.index[z.ID] = i
		s.tables[i].seasonal = [3]float64{1, 1, 1}
	}
	return s, nil
}

func (s *Store) lookup(zone incident.ZoneID) (int, error) {
	i, ok := s.index[zone]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownZone, zone)
	}
	return i, nil
}

// SetSeverityMatrix installs a validated severity-transition matrix.
func (s *Store) SetSeverityMatrix(zone incident.ZoneID, t incident.Type, m SeverityMatrix) error {
	i, err := s.lookup(zone)
	if err != nil {
		return err
	}
	if err := ValidateRowStochastic(Dense3(m)); err != nil {
		return fmt.Errorf("severity matrix %s/%s: %w", zone, t, err)
	}
	s.tables[i].severity[t] = m
	s.tables[i].hasSeverity[t] = true
	return nil
}

// SetCrossType installs the influence of source-type incidents on target-type intensity.
func (s *Store) SetCrossType(zone incident.ZoneID, target, source incident.Type, v CrossVector) error {
	i, err := s.lookup(zone)
	if err != nil {
		return err
	}
	for _, x := range v {
		if x < 0 || math.IsNaN(x) {
			return fmt.Errorf("cross-type vector %s/%s<-%s must be non-negative, got %v", zone, target, source, v)
		}
	}
	s.tables[i].cross[target][source] = v
	s.tables[i].hasCross[target][source] = true
	return nil
}

// SetNeighbors installs a validated neighbor record. Every neighbor id must
// be a zone of the store.
func (s *Store) SetNeighbors(zone incident.ZoneID, n Neighbors) error {
	i, err := s.lookup(zone)
	if err != nil {
		return err
	}
	if err := validateNeighbors(string(zone), n); err != nil {
		return err
	}
	for _, id := range n.IDs {
		if _, ok := s.index[id]; !ok {
			return fmt.Errorf("%w: neighbor %s of zone %s: %w", ErrInvalidNeighbors, id, zone, ErrUnknownZone)
		}
	}
	s.tables[i].neighbors = n
	s.tables[i].hasNeighbor = true
	return nil
}

// SetSeasonalFactor sets the zone-local seasonal factor.
func (s *Store) SetSeasonalFactor(zone incident.ZoneID, season incident.Season, f float64) error {
	i, err := s.lookup(zone)
	if err != nil {
		return err
	}
	if f < 0 || math.IsNaN(f) {
		return fmt.Errorf("seasonal factor for %s/%s must be non-negative, got %v", zone, season, f)
	}
	s.tables[i].seasonal[season] = f
	return nil
}

// SetPatterns replaces the pattern vectors.
func (s *Store) SetPatterns(pv PatternVectors) { s.patterns = pv }

// SetAugmentationRule replaces the augmentation constants.
func (s *Store) SetAugmentationRule(r AugmentationRule) { s.augmentation = r }

// Zones returns the zones in construction order.
func (s *Store) Zones() []Zone { return s.zones }

// Zone returns the static attributes of a zone.
func (s *Store) Zone(id incident.ZoneID) (Zone, bool) {
	i, ok := s.index[id]
	if !ok {
		return Zone{}, false
	}
	return s.zones[i], true
}

// SeverityMatrix returns the severity-transition matrix of (zone, type).
func (s *Store) SeverityMatrix(zone incident.ZoneID, t incident.Type) (SeverityMatrix, bool) {
	i, ok := s.index[zone]
	if !ok || !t.Valid() || !s.tables[i].hasSeverity[t] {
		return SeverityMatrix{}, false
	}
	return s.tables[i].severity[t], true
}

// CrossType returns the influence vector of source on target in zone.
func (s *Store) CrossType(zone incident.ZoneID, target, source incident.Type) (CrossVector, bool) {
	i, ok := s.index[zone]
	if !ok || !target.Valid() || !source.Valid() || !s.tables[i].hasCross[target][source] {
		return CrossVector{}, false
	}
	return s.tables[i].cross[target][source], true
}

// Neighbors returns the neighbor record of a zone.
func (s *Store) Neighbors(zone incident.ZoneID) (Neighbors, bool) {
	i, ok := s.index[zone]
	if !ok || !s.tables[i].hasNeighbor {
		return Neighbors{}, false
	}
	return s.tables[i].neighbors, true
}

// SeasonalFactor returns the zone-local seasonal factor, 1.0 when unknown.
func (s *Store) SeasonalFactor(zone incident.ZoneID, season incident.Season) float64 {
	i, ok := s.index[zone]
	if !ok || season < incident.Winter || season > incident.Intersaison {
		return 1.0
	}
	return s.tables[i].seasonal[season]
}

// Patterns returns the 7-day/60-day pattern vectors.
func (s *Store) Patterns() PatternVectors { return s.patterns }

// Augmentation returns the augmentation rule.
func (s *Store) Augmentation() AugmentationRule { return s.augmentation }

// Boroughs returns the distinct boroughs in sorted order.
func (s *Store) Boroughs() []incident.Borough {
	seen := make(map[incident.Borough]bool)
	var out []incident.Borough
	for _, z := range s.zones {
		if !seen[z.Borough] {
			seen[z.Borough] = true
			out = append(out, z.Borough)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ZonesInBorough returns the zone ids of a borough in construction order.
func (s *Store) ZonesInBorough(b incident.Borough) []incident.ZoneID {
	var out []incident.ZoneID
	for _, z := range s.zones {
		if z.Borough == b {
			out = append(out, z.ID)
		}
	}
	return out
}

// BorderingZones returns zones outside borough b that are neighbors of a
// zone inside it, in construction order.
func (s *Store) BorderingZones(b incident.Borough) []incident.ZoneID {
	border := make(map[incident.ZoneID]bool)
	for i, z := range s.zones {
		if z.Borough != b || !s.tables[i].hasNeighbor {
			continue
		}
		for _, id := range s.tables[i].neighbors.IDs {
			if nz, ok := s.Zone(id); ok && nz.Borough != b {
				border[id] = true
			}
		}
	}
	var out []incident.ZoneID
	for _, z := range s.zones {
		if border[z.ID] {
			out = append(out, z.ID)
		}
	}
	return out
}
