package incident

import (
	"encoding/json"
	"fmt"
)

// Vector is the immutable (grave, moderate, minor) incident count for one
// (zone, type, day). All components are non-negative.
type Vector struct {
	grave, moderate, minor int
}

// NewVector builds a Vector, clamping negative components to zero.
func NewVector(grave, moderate, minor int) Vector {
	return Vector{grave: nonNegative(grave), moderate: nonNegative(moderate), minor: nonNegative(minor)}
}

// FromCounts builds a Vector from counts indexed by Severity.
func FromCounts(counts [NumSeverities]int) Vector {
	return NewVector(counts[Grave], counts[Moderate], counts[Minor])
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func (v Vector) Grave() int    { return v.grave }
func (v Vector) Moderate() int { return v.moderate }
func (v Vector) Minor() int    { return v.minor }

// At returns the count for a severity.
func (v Vector) At(s Severity) int {
	switch s {
	case Grave:
		return v.grave
	case Moderate:
		return v.moderate
	case Minor:
		return v.minor
	}
	return 0
}

// Counts returns the components indexed by Severity.
func (v Vector) Counts() [NumSeverities]int {
	return [NumSeverities]int{Minor: v.minor, Moderate: v.moderate, Grave: v.grave}
}

// Total returns the number of incidents across severities.
func (v Vector) Total() int { return v.grave + v.moderate + v.minor }

// IsZero reports whether the vector is the null vector.
func (v Vector) IsZero() bool { return v.Total() == 0 }

// Dominant returns the most frequent severity. Ties resolve toward the
// lower severity; the null vector reports Minor.
func (v Vector) Dominant() Severity {
	best := Minor
	for _, s := range Severities[1:] {
		if v.At(s) > v.At(best) {
			best = s
		}
	}
	return best
}

// Weighted returns the dot product of the counts with per-severity weights.
func (v Vector) Weighted(w [NumSeverities]float64) float64 {
	return float64(v.minor)*w[Minor] + float64(v.moderate)*w[Moderate] + float64(v.grave)*w[Grave]
}

func (v Vector) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.grave, v.moderate, v.minor)
}

// MarshalJSON encodes the vector as [grave, moderate, minor].
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{v.grave, v.moderate, v.minor})
}

// UnmarshalJSON decodes [grave, moderate, minor], rejecting negative counts.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw [3]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding incident vector: %w", err)
	}
	for _, c := range raw {
		if c < 0 {
			return fmt.Errorf("incident vector component must be non-negative, got %v", raw)
		}
	}
	*v = NewVector(raw[0], raw[1], raw[2])
	return nil
}
