// Package trace provides response-outcome recording for audit and display.
// This package has no dependencies on sim/ or its subsystems beyond the
// shared taxonomy: it stores pure data types.
package trace

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/urban-sim/incident-sim/sim/incident"
)

// Verdict is the resolved consequence of a severe incident.
type Verdict string

const (
	VerdictNone         Verdict = "none"
	VerdictSevereInjury Verdict = "severe_injury"
	VerdictMortality    Verdict = "mortality"
)

// Minutes is a duration in minutes. Infinite durations (unreachable
// incidents) encode as the JSON string "inf".
type Minutes float64

// IsInf reports whether the duration is unbounded.
func (m Minutes) IsInf() bool { return math.IsInf(float64(m), 1) }

func (m Minutes) MarshalJSON() ([]byte, error) {
	if m.IsInf() {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(m))
}

func (m *Minutes) UnmarshalJSON(data []byte) error {
	if string(data) == `"inf"` {
		*m = Minutes(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("minutes: %w", err)
	}
	*m = Minutes(f)
	return nil
}

// Outcome captures the resolution of one severe incident: who responded,
// how long each leg took, and the verdict drawn against the threshold.
type Outcome struct {
	Day        int             `json:"day"`
	Zone       incident.ZoneID `json:"zone"`
	Type       incident.Type   `json:"type"`
	StationID  string          `json:"station_id,omitempty"`
	HospitalID string          `json:"hospital_id,omitempty"`
	DistanceKm float64         `json:"distance_km"`

	StationLeg  Minutes `json:"station_leg"`
	Treatment   Minutes `json:"treatment"`
	HospitalLeg Minutes `json:"hospital_leg"`
	Total       Minutes `json:"total"`
	Threshold   Minutes `json:"threshold"`

	Congestion float64 `json:"congestion"` // product along the path
	Stress     float64 `json:"stress"`

	MortalityProbability    float64 `json:"mortality_probability"`
	SevereInjuryProbability float64 `json:"severe_injury_probability"`
	Draw                    float64 `json:"draw"`
	Verdict                 Verdict `json:"verdict"`

	Night        bool `json:"night,omitempty"`
	Intoxicated  bool `json:"intoxicated,omitempty"`
	Understaffed bool `json:"understaffed,omitempty"` // nearest station lacked the required responders
	Automatic    bool `json:"automatic,omitempty"`    // no reachable station: fatality without a draw
}

// Casualty reports whether the outcome counts toward the day's casualties.
func (o Outcome) Casualty() bool { return o.Verdict == VerdictMortality }
