// Package snapshot persists and restores the mutable state of a run: daily
// vectors, the event log, regimes, congestion, casualties, outcomes,
// station counters and the re-randomization schedule.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/urban-sim/incident-sim/sim/events"
	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/modulator"
	"github.com/urban-sim/incident-sim/sim/response"
	"github.com/urban-sim/incident-sim/sim/trace"
)

// Version is the current encoding version.
const Version = 1

// ErrNotFound is returned when a requested run has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// VectorEntry is one zone's vectors on one day.
type VectorEntry struct {
	Day     int                  `json:"day"`
	Zone    incident.ZoneID      `json:"zone"`
	Vectors incident.ZoneVectors `json:"vectors"`
}

// CongestionEntry is one zone's congestion on one day.
type CongestionEntry struct {
	Day   int             `json:"day"`
	Zone  incident.ZoneID `json:"zone"`
	Value float64         `json:"value"`
}

// State is the complete resumable state of a run after Day.
type State struct {
	Version    int                                 `json:"version"`
	Seed       int64                               `json:"seed"`
	Day        int                                 `json:"day"` // last completed day
	Regimes    map[incident.ZoneID]incident.Regime `json:"regimes"`
	Vectors    []VectorEntry                       `json:"vectors"`
	Events     []events.Event                      `json:"events"`
	Congestion []CongestionEntry                   `json:"congestion"`
	Casualties map[int]int                         `json:"casualties"`
	Outcomes   []trace.Outcome                     `json:"outcomes"`
	Stations   []response.StationState             `json:"stations"`
	Windows    []modulator.Window                  `json:"windows"`
}

// Sort orders every slice by (day, zone) so encodings are stable.
func (s *State) Sort() {
	sort.SliceStable(s.Vectors, func(i, j int) bool {
		if s.Vectors[i].Day != s.Vectors[j].Day {
			return s.Vectors[i].Day < s.Vectors[j].Day
		}
		return s.Vectors[i].Zone < s.Vectors[j].Zone
	})
	sort.SliceStable(s.Congestion, func(i, j int) bool {
		if s.Congestion[i].Day != s.Congestion[j].Day {
			return s.Congestion[i].Day < s.Congestion[j].Day
		}
		return s.Congestion[i].Zone < s.Congestion[j].Zone
	})
}

// Validate checks structural consistency of a decoded state.
func (s *State) Validate() error {
	if s.Version != Version {
		return fmt.Errorf("unsupported snapshot version %d (want %d)", s.Version, Version)
	}
	if s.Day < 0 {
		return fmt.Errorf("negative snapshot day %d", s.Day)
	}
	for _, v := range s.Vectors {
		if v.Day < 1 || v.Day > s.Day {
			return fmt.Errorf("vector entry for zone %s on day %d outside [1, %d]", v.Zone, v.Day, s.Day)
		}
	}
	for _, e := range s.Events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for z, r := range s.Regimes {
		if r < incident.Stable || r > incident.Crisis {
			return fmt.Errorf("zone %s: invalid regime %d", z, int(r))
		}
	}
	return nil
}

// Encode serializes a state.
func Encode(s *State) ([]byte, error) {
	if s.Version == 0 {
		s.Version = Version
	}
	s.Sort()
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a serialized state.
func Decode(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

// DaySummary aggregates one simulated day.
type DaySummary struct {
	Day            int     `db:"day" json:"day"`
	Incidents      int     `db:"incidents" json:"incidents"`
	Grave          int     `db:"grave" json:"grave"`
	Events         int     `db:"events" json:"events"`
	Casualties     int     `db:"casualties" json:"casualties"`
	MeanCongestion float64 `db:"mean_congestion" json:"mean_congestion"`
}

// Summaries computes one DaySummary per day in [1, s.Day].
func Summaries(s *State) []DaySummary {
	if s.Day <= 0 {
		return nil
	}
	out := make([]DaySummary, s.Day)
	for i := range out {
		out[i].Day = i + 1
	}
	at := func(day int) *DaySummary {
		if day < 1 || day > s.Day {
			return nil
		}
		return &out[day-1]
	}
	for _, v := range s.Vectors {
		if d := at(v.Day); d != nil {
			d.Incidents += v.Vectors.Total()
			for _, vec := range v.Vectors {
				d.Grave += vec.Grave()
			}
		}
	}
	for _, e := range s.Events {
		if d := at(e.Day); d != nil {
			d.Events++
		}
	}
	counts := make([]int, s.Day)
	for _, c := range s.Congestion {
		if d := at(c.Day); d != nil {
			d.MeanCongestion += c.Value
			counts[c.Day-1]++
		}
	}
	for i := range out {
		out[i].Casualties = s.Casualties[i+1]
		if counts[i] > 0 {
			out[i].MeanCongestion /= float64(counts[i])
		}
	}
	return out
}
