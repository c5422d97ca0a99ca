package incident

// Season is one of the three fixed day-of-year ranges.
type Season int

const (
	Winter      Season = iota // days 1-80
	Summer                    // days 81-260
	Intersaison               // days 261-365
)

// DaysPerYear is the length of the seasonal cycle.
const DaysPerYear = 365

func (s Season) String() string {
	switch s {
	case Winter:
		return "winter"
	case Summer:
		return "summer"
	default:
		return "intersaison"
	}
}

// DayOfYear maps a 1-based simulation day onto the 1..365 cycle.
func DayOfYear(day int) int {
	if day < 1 {
		return 1
	}
	return ((day - 1) % DaysPerYear) + 1
}

// SeasonOf returns the season of a simulation day.
func SeasonOf(day int) Season {
	d := DayOfYear(day)
	switch {
	case d <= 80:
		return Winter
	case d <= 260:
		return Summer
	default:
		return Intersaison
	}
}

// seasonalMultipliers is fixed per incident family.
// Accidents peak on winter roads, fires in the heating season, assaults in summer.
var seasonalMultipliers = [NumTypes][3]float64{
	Accident: {1.20, 0.90, 1.00},
	Fire:     {1.30, 0.85, 1.00},
	Assault:  {0.85, 1.25, 1.00},
}

// SeasonalMultiplier returns the fixed per-family multiplier for a season.
func SeasonalMultiplier(t Type, s Season) float64 {
	if !t.Valid() || s < Winter || s > Intersaison {
		return 1.0
	}
	return seasonalMultipliers[t][s]
}
