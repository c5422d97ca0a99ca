package modulator

import (
	"math"
	"math/rand"
	"sort"

	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/stats"
)

// Re-randomization window bounds.
const (
	MaxConcurrentWindows = 4
	MinReductionRate     = 0.60
	MaxReductionRate     = 0.85

	minWindowDays = 14
	maxWindowDays = 45
	// windowsPerDays is the mean spacing between window starts in a borough.
	windowsPerDays = 60
)

// Window is a borough-scoped re-randomization window active on
// [Start, Start+Duration). Its intensity α rises, dips in the middle and
// falls back to zero; the matrix factors are dampened by 1 - Rate·α.
type Window struct {
	Borough  incident.Borough `json:"borough"`
	Start    int              `json:"start"`
	Duration int              `json:"duration"`
	Rate     float64          `json:"rate"`
	Rise     float64          `json:"rise"` // fraction of the window spent ramping up
	Fall     float64          `json:"fall"` // fraction of the window spent ramping down
	Dip      float64          `json:"dip"`  // depth of the mid-window dip
}

// Active reports whether day lies inside the window.
func (w Window) Active(day int) bool {
	return day >= w.Start && day < w.Start+w.Duration
}

// Alpha returns the ramp intensity in [0, 1] for a day; 0 outside the window.
func (w Window) Alpha(day int) float64 {
	if !w.Active(day) || w.Duration <= 0 {
		return 0
	}
	t := (float64(day-w.Start) + 0.5) / float64(w.Duration)
	var a float64
	switch {
	case t < w.Rise:
		a = t / w.Rise
	case t > 1-w.Fall:
		a = (1 - t) / w.Fall
	default:
		mid := 1 - w.Rise - w.Fall
		if mid <= 0 {
			a = 1
		} else {
			a = 1 - w.Dip*math.Sin(math.Pi*(t-w.Rise)/mid)
		}
	}
	return math.Max(0, math.Min(1, a))
}

// Schedule holds every re-randomization window of a run, per borough.
// It is generated once and read-only afterwards.
type Schedule struct {
	byBorough map[incident.Borough][]Window
}

// NewSchedule wraps pre-built windows (e.g. restored from a snapshot).
func NewSchedule(windows []Window) *Schedule {
	s := &Schedule{byBorough: make(map[incident.Borough][]Window)}
	for _, w := range windows {
		s.byBorough[w.Borough] = append(s.byBorough[w.Borough], w)
	}
	return s
}

// GenerateSchedule draws the windows of every borough over [1, horizon].
// A candidate that would create more than MaxConcurrentWindows overlapping
// windows in its borough is discarded.
func GenerateSchedule(boroughs []incident.Borough, horizon int, rng *rand.Rand) *Schedule {
	s := &Schedule{byBorough: make(map[incident.Borough][]Window)}
	if horizon <= 0 {
		return s
	}
	for _, b := range boroughs {
		n := stats.Poisson(rng, math.Max(1, float64(horizon)/windowsPerDays))
		for i := 0; i < n; i++ {
			w := Window{
				Borough:  b,
				Start:    stats.UniformInt(rng, 1, horizon),
				Duration: stats.UniformInt(rng, minWindowDays, maxWindowDays),
				Rate:     stats.Uniform(rng, MinReductionRate, MaxReductionRate),
				Rise:     stats.Uniform(rng, 0.15, 0.30),
				Fall:     stats.Uniform(rng, 0.15, 0.30),
				Dip:      stats.Uniform(rng, 0.20, 0.40),
			}
			if s.maxOverlap(w)+1 > MaxConcurrentWindows {
				continue
			}
			s.byBorough[b] = append(s.byBorough[b], w)
		}
		sort.SliceStable(s.byBorough[b], func(i, j int) bool { return s.byBorough[b][i].Start < s.byBorough[b][j].Start })
	}
	return s
}

func (s *Schedule) maxOverlap(w Window) int {
	best := 0
	for day := w.Start; day < w.Start+w.Duration; day++ {
		if c := s.Concurrent(w.Borough, day); c > best {
			best = c
		}
	}
	return best
}

// Concurrent returns the number of windows of a borough active on a day.
func (s *Schedule) Concurrent(b incident.Borough, day int) int {
	n := 0
	for _, w := range s.byBorough[b] {
		if w.Active(day) {
			n++
		}
	}
	return n
}

// Dampening returns the multiplicative attenuation 1 - r·α(day) of the
// strongest active window in the borough, or 1 when none is active.
func (s *Schedule) Dampening(b incident.Borough, day int) float64 {
	strongest := 0.0
	for _, w := range s.byBorough[b] {
		if d := w.Rate * w.Alpha(day); d > strongest {
			strongest = d
		}
	}
	return 1 - strongest
}

// Windows returns every window, ordered by borough then start day.
func (s *Schedule) Windows() []Window {
	boroughs := make([]incident.Borough, 0, len(s.byBorough))
	for b := range s.byBorough {
		boroughs = append(boroughs, b)
	}
	sort.Slice(boroughs, func(i, j int) bool { return boroughs[i] < boroughs[j] })
	var out []Window
	for _, b := range boroughs {
		out = append(out, s.byBorough[b]...)
	}
	return out
}
