package congestion

import (
	"fmt"
	"math"
	"sort"

	"github.com/urban-sim/incident-sim/sim/incident"
)

// Congestion bounds.
const (
	MinCongestion = 0.1
	MaxCongestion = 5.0
)

// Clamp bounds a congestion multiplier to [0.1, 5.0]; NaN maps to 1.0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 1.0
	}
	return math.Min(MaxCongestion, math.Max(MinCongestion, v))
}

// Table stores one congestion multiplier per (zone, day). Entries are
// written once by the calculator; same-day real-time adjustments rewrite
// them in place.
type Table struct {
	days map[int]map[incident.ZoneID]float64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{days: make(map[int]map[incident.ZoneID]float64)}
}

// Set writes the day's value of a zone. Each (zone, day) is written once.
func (t *Table) Set(zone incident.ZoneID, day int, v float64) error {
	byZone, ok := t.days[day]
	if !ok {
		byZone = make(map[incident.ZoneID]float64)
		t.days[day] = byZone
	}
	if _, exists := byZone[zone]; exists {
		return fmt.Errorf("congestion for zone %s day %d already written", zone, day)
	}
	byZone[zone] = Clamp(v)
	return nil
}

// Get returns the congestion of a zone on a day.
func (t *Table) Get(zone incident.ZoneID, day int) (float64, bool) {
	v, ok := t.days[day][zone]
	return v, ok
}

// Adjust multiplies an existing same-day entry in place, re-clamping it.
// Missing entries are left untouched and reported as false.
func (t *Table) Adjust(zone incident.ZoneID, day int, factor float64) bool {
	v, ok := t.days[day][zone]
	if !ok {
		return false
	}
	t.days[day][zone] = Clamp(v * factor)
	return true
}

// ForDay returns a copy of every zone's congestion on a day.
func (t *Table) ForDay(day int) map[incident.ZoneID]float64 {
	out := make(map[incident.ZoneID]float64, len(t.days[day]))
	for z, v := range t.days[day] {
		out[z] = v
	}
	return out
}

// Days returns the recorded days in ascending order.
func (t *Table) Days() []int {
	days := make([]int, 0, len(t.days))
	for d := range t.days {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// Mean returns the average congestion of the zones over days [from, to],
// ignoring missing entries, and whether any entry was found.
func (t *Table) Mean(zones []incident.ZoneID, from, to int) (float64, bool) {
	sum, n := 0.0, 0
	for d := from; d <= to; d++ {
		for _, z := range zones {
			if v, ok := t.Get(z, d); ok {
				sum += v
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
