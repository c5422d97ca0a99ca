package incident

import (
	"fmt"
	"sort"
)

// ZoneVectors holds one day's vectors for a zone, indexed by Type.
type ZoneVectors [NumTypes]Vector

// Total returns the number of incidents across all families.
func (zv ZoneVectors) Total() int {
	n := 0
	for _, v := range zv {
		n += v.Total()
	}
	return n
}

// VectorStore is the per-day vector store. Each (day, zone) entry is written
// exactly once; later days get new entries instead of mutations.
type VectorStore struct {
	days map[int]map[ZoneID]ZoneVectors
}

// NewVectorStore creates an empty store.
func NewVectorStore() *VectorStore {
	return &VectorStore{days: make(map[int]map[ZoneID]ZoneVectors)}
}

// Put records the vectors of a zone for a day. Writing the same (day, zone)
// twice is an error.
func (s *VectorStore) Put(day int, zone ZoneID, vectors ZoneVectors) error {
	byZone, ok := s.days[day]
	if !ok {
		byZone = make(map[ZoneID]ZoneVectors)
		s.days[day] = byZone
	}
	if _, exists := byZone[zone]; exists {
		return fmt.Errorf("vectors for zone %s day %d already recorded", zone, day)
	}
	byZone[zone] = vectors
	return nil
}

// Get returns the vector of a (zone, type, day); missing entries are the null vector.
func (s *VectorStore) Get(zone ZoneID, t Type, day int) Vector {
	if !t.Valid() {
		return Vector{}
	}
	return s.days[day][zone][t]
}

// Zone returns all vectors of a zone for a day and whether they were recorded.
func (s *VectorStore) Zone(zone ZoneID, day int) (ZoneVectors, bool) {
	zv, ok := s.days[day][zone]
	return zv, ok
}

// ForDay returns a copy of every zone's vectors for a day.
func (s *VectorStore) ForDay(day int) map[ZoneID]ZoneVectors {
	out := make(map[ZoneID]ZoneVectors, len(s.days[day]))
	for z, zv := range s.days[day] {
		out[z] = zv
	}
	return out
}

// History returns the n vectors preceding day for (zone, type), most recent
// first: index 0 is day-1.
func (s *VectorStore) History(zone ZoneID, t Type, day, n int) []Vector {
	out := make([]Vector, n)
	for k := 0; k < n; k++ {
		out[k] = s.Get(zone, t, day-1-k)
	}
	return out
}

// Days returns the recorded days in ascending order.
func (s *VectorStore) Days() []int {
	days := make([]int, 0, len(s.days))
	for d := range s.days {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
