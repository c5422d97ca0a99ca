package matrix

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/urban-sim/incident-sim/sim/incident"
)

// DeriveNeighbors fills every zone without a neighbor record with its eight
// nearest zones, weighted by inverse distance and normalized to sum to 1.
// Stores with fewer than nine zones are left without neighbor records.
func (s *Store) DeriveNeighbors(threshold float64) error {
	if len(s.zones) <= NeighborCount {
		logrus.Warnf("only %d zones; neighbor records not derived", len(s.zones))
		return nil
	}
	type candidate struct {
		idx  int
		dist float64
	}
	for i, z := range s.zones {
		if s.tables[i].hasNeighbor {
			continue
		}
		cands := make([]candidate, 0, len(s.zones)-1)
		for j, other := range s.zones {
			if j == i {
				continue
			}
			cands = append(cands, candidate{idx: j, dist: z.Centroid.DistanceKm(other.Centroid)})
		}
		sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })

		var n Neighbors
		for k := 0; k < NeighborCount; k++ {
			n.IDs[k] = s.zones[cands[k].idx].ID
			n.Weights[k] = 1.0 / (cands[k].dist + 0.1)
		}
		floats.Scale(1/floats.Sum(n.Weights[:]), n.Weights[:])
		n.Threshold = threshold
		if err := s.SetNeighbors(z.ID, n); err != nil {
			return fmt.Errorf("deriving neighbors of %s: %w", z.ID, err)
		}
	}
	return nil
}

// NeighborIDs returns the neighbor ids of a zone, empty when the zone has no record.
func (s *Store) NeighborIDs(zone incident.ZoneID) []incident.ZoneID {
	n, ok := s.Neighbors(zone)
	if !ok {
		return nil
	}
	return n.IDs[:]
}
