// Package incident holds the fixed incident taxonomy shared by every engine
// component: three incident families, three severity levels, three hidden
// regimes and three seasons. It has no dependencies on other sim packages.
package incident

import "fmt"

// ZoneID identifies a zone (the smallest spatial unit of the simulation).
type ZoneID string

// Borough identifies an administrative grouping of zones.
type Borough string

// Type is one of the three incident families.
type Type int

const (
	Accident Type = iota
	Fire
	Assault
)

// NumTypes is the fixed number of incident families.
const NumTypes = 3

// Types lists every incident family in index order.
var Types = [NumTypes]Type{Accident, Fire, Assault}

func (t Type) String() string {
	switch t {
	case Accident:
		return "accident"
	case Fire:
		return "fire"
	case Assault:
		return "assault"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType maps a family name to its Type.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown incident type %q", s)
}

// Valid reports whether t is one of the three families.
func (t Type) Valid() bool { return t >= Accident && t <= Assault }

// Severity is one of minor, moderate or grave.
type Severity int

const (
	Minor Severity = iota
	Moderate
	Grave
)

// NumSeverities is the fixed number of severity levels.
const NumSeverities = 3

// Severities lists every severity in index order (least to most severe).
var Severities = [NumSeverities]Severity{Minor, Moderate, Grave}

func (s Severity) String() string {
	switch s {
	case Minor:
		return "minor"
	case Moderate:
		return "moderate"
	case Grave:
		return "grave"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Regime is the hidden Markov state biasing a zone's incident intensity.
type Regime int

const (
	Stable Regime = iota
	Deteriorating
	Crisis
)

// NumRegimes is the fixed number of hidden states.
const NumRegimes = 3

// Regimes lists every regime in index order.
var Regimes = [NumRegimes]Regime{Stable, Deteriorating, Crisis}

func (r Regime) String() string {
	switch r {
	case Stable:
		return "stable"
	case Deteriorating:
		return "deteriorating"
	case Crisis:
		return "crisis"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// Multiplier returns the intensity multiplier applied while a zone is in regime r.
func (r Regime) Multiplier() float64 {
	switch r {
	case Deteriorating:
		return 1.3
	case Crisis:
		return 2.0
	default:
		return 1.0
	}
}
