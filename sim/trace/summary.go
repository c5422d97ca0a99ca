package trace

// Summary aggregates statistics from a set of outcomes.
type Summary struct {
	Total             int
	Mortalities       int
	SevereInjuries    int
	Automatic         int
	Understaffed      int
	OverThreshold     int
	MeanTotalMinutes  float64 // over finite totals only
	MaxTotalMinutes   float64
	StationDispatches map[string]int // station ID → dispatch count
}

// Summarize computes aggregate statistics from outcomes.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(outcomes []Outcome) *Summary {
	s := &Summary{StationDispatches: make(map[string]int)}
	finite, sum := 0, 0.0
	for _, o := range outcomes {
		s.Total++
		switch o.Verdict {
		case VerdictMortality:
			s.Mortalities++
		case VerdictSevereInjury:
			s.SevereInjuries++
		}
		if o.Automatic {
			s.Automatic++
			continue
		}
		if o.Understaffed {
			s.Understaffed++
		}
		if o.Total > o.Threshold {
			s.OverThreshold++
		}
		if o.StationID != "" {
			s.StationDispatches[o.StationID]++
		}
		finite++
		sum += float64(o.Total)
		if float64(o.Total) > s.MaxTotalMinutes {
			s.MaxTotalMinutes = float64(o.Total)
		}
	}
	if finite > 0 {
		s.MeanTotalMinutes = sum / float64(finite)
	}
	return s
}
