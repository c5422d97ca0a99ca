// Package response models emergency stations and hospitals and resolves
// severe incidents against the golden-hour threshold.
package response

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/matrix"
)

// StressPerIntervention is the stress added by each open intervention.
const StressPerIntervention = 0.4

// Intervention is one dispatch of responders from a station.
type Intervention struct {
	Count       int  `json:"count"`
	Day         int  `json:"day"`
	ReturnDelay int  `json:"return_delay"`
	Open        bool `json:"open"`
}

// Station is a pool of responders at a fixed location. Withdraw and return
// are serialized per station.
type Station struct {
	ID       string
	Zone     incident.ZoneID
	Location matrix.Point

	mu            sync.Mutex
	total         int
	available     int
	interventions []Intervention
}

// NewStation creates a fully staffed station.
func NewStation(id string, zone incident.ZoneID, loc matrix.Point, total int) *Station {
	if total < 0 {
		total = 0
	}
	return &Station{ID: id, Zone: zone, Location: loc, total: total, available: total}
}

// Total returns the station's responder headcount.
func (s *Station) Total() int { return s.total }

// Available returns the responders currently at the station.
func (s *Station) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// OpenInterventions returns the number of dispatches not yet returned.
func (s *Station) OpenInterventions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Station) openLocked() int {
	n := 0
	for _, iv := range s.interventions {
		if iv.Open {
			n++
		}
	}
	return n
}

// Stress is 0.4 per open intervention.
func (s *Station) Stress() float64 {
	return StressPerIntervention * float64(s.OpenInterventions())
}

// Withdraw dispatches count responders on day. It fails without mutation
// when fewer than count are available.
func (s *Station) Withdraw(count, day, returnDelay int) bool {
	if count <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available < count {
		return false
	}
	s.available -= count
	s.interventions = append(s.interventions, Intervention{Count: count, Day: day, ReturnDelay: returnDelay, Open: true})
	return true
}

// ReturnDue closes every open intervention with day > dispatch day + delay
// and restores its responders, capped at the total. It returns the number
// of responders restored.
func (s *Station) ReturnDue(day int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	restored := 0
	for i := range s.interventions {
		iv := &s.interventions[i]
		if !iv.Open || day <= iv.Day+iv.ReturnDelay {
			continue
		}
		iv.Open = false
		back := min(iv.Count, s.total-s.available)
		s.available += back
		restored += back
	}
	s.compactLocked()
	return restored
}

// compactLocked drops closed interventions.
func (s *Station) compactLocked() {
	kept := s.interventions[:0]
	for _, iv := range s.interventions {
		if iv.Open {
			kept = append(kept, iv)
		}
	}
	s.interventions = kept
}

// StationState is the persisted form of a station's mutable counters.
type StationState struct {
	ID            string         `json:"id"`
	Available     int            `json:"available"`
	Interventions []Intervention `json:"interventions,omitempty"`
}

// State captures the station's counters.
func (s *Station) State() StationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ivs := make([]Intervention, len(s.interventions))
	copy(ivs, s.interventions)
	return StationState{ID: s.ID, Available: s.available, Interventions: ivs}
}

// Restore overwrites the station's counters.
func (s *Station) Restore(st StationState) error {
	if st.Available < 0 || st.Available > s.total {
		return fmt.Errorf("station %s: available %d outside [0, %d]", s.ID, st.Available, s.total)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = st.Available
	s.interventions = append([]Intervention(nil), st.Interventions...)
	return nil
}

// Hospital is a fixed destination for severe casualties.
type Hospital struct {
	ID       string
	Zone     incident.ZoneID
	Location matrix.Point
}

// NearestHospital returns the hospital closest to p, ties broken by id.
func NearestHospital(p matrix.Point, hospitals []Hospital) (Hospital, float64, bool) {
	best, bestDist, found := Hospital{}, math.Inf(1), false
	for _, h := range hospitals {
		d := p.DistanceKm(h.Location)
		if d < bestDist || (d == bestDist && h.ID < best.ID) {
			best, bestDist, found = h, d, true
		}
	}
	return best, bestDist, found
}

// Manager owns the city's stations.
type Manager struct {
	stations []*Station
	byID     map[string]*Station
}

// NewManager validates station ids and indexes them.
func NewManager(stations []*Station) (*Manager, error) {
	m := &Manager{byID: make(map[string]*Station, len(stations))}
	for _, s := range stations {
		if s == nil || s.ID == "" {
			return nil, errors.New("station with empty id")
		}
		if _, dup := m.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate station %q", s.ID)
		}
		m.byID[s.ID] = s
		m.stations = append(m.stations, s)
	}
	return m, nil
}

// Stations returns the stations in construction order.
func (m *Manager) Stations() []*Station { return m.stations }

// Station looks up a station by id.
func (m *Manager) Station(id string) (*Station, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// Withdraw dispatches from the named station.
func (m *Manager) Withdraw(id string, count, day, returnDelay int) bool {
	s, ok := m.byID[id]
	if !ok {
		return false
	}
	return s.Withdraw(count, day, returnDelay)
}

// ReturnDue returns due responders at every station.
func (m *Manager) ReturnDue(day int) int {
	n := 0
	for _, s := range m.stations {
		n += s.ReturnDue(day)
	}
	return n
}

// Distances returns the distance in km from p to every station.
func (m *Manager) Distances(p matrix.Point) map[string]float64 {
	out := make(map[string]float64, len(m.stations))
	for _, s := range m.stations {
		out[s.ID] = p.DistanceKm(s.Location)
	}
	return out
}

// NearestAvailable sorts the stations listed in distances by distance and
// returns the first with at least required available responders. When none
// qualifies it returns the nearest staffed station regardless of
// availability. Stations with no responders at all are never candidates;
// ok is false when no candidate remains.
func (m *Manager) NearestAvailable(distances map[string]float64, required int) (s *Station, dist float64, ok bool) {
	type cand struct {
		s *Station
		d float64
	}
	var cands []cand
	for id, d := range distances {
		st, known := m.byID[id]
		if !known || st.Total() == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		cands = append(cands, cand{st, d})
	}
	if len(cands) == 0 {
		return nil, 0, false
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].d != cands[j].d {
			return cands[i].d < cands[j].d
		}
		return cands[i].s.ID < cands[j].s.ID
	})
	for _, c := range cands {
		if c.s.Available() >= required {
			return c.s, c.d, true
		}
	}
	return cands[0].s, cands[0].d, true
}

// States captures every station's counters.
func (m *Manager) States() []StationState {
	out := make([]StationState, 0, len(m.stations))
	for _, s := range m.stations {
		out = append(out, s.State())
	}
	return out
}

// Restore overwrites station counters; unknown ids are an error.
func (m *Manager) Restore(states []StationState) error {
	for _, st := range states {
		s, ok := m.byID[st.ID]
		if !ok {
			return fmt.Errorf("restoring unknown station %q", st.ID)
		}
		if err := s.Restore(st); err != nil {
			return err
		}
	}
	return nil
}
