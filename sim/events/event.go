// Package events models the secondary events spawned by the incident
// process: grave events derived from severe incidents, and rare positive
// events that dampen future intensity.
package events

import (
	"fmt"

	"github.com/urban-sim/incident-sim/sim/incident"
)

// Kind tags the variant carried by an Event.
type Kind int

const (
	KindGrave Kind = iota
	KindPositive
)

func (k Kind) String() string {
	switch k {
	case KindGrave:
		return "grave"
	case KindPositive:
		return "positive"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Characteristics are the independently drawn side effects of a grave event.
type Characteristics struct {
	TrafficSlowdown bool    `json:"traffic_slowdown"`
	TrafficEffect   float64 `json:"traffic_effect,omitempty"` // congestion increase fraction
	Cancellations   bool    `json:"cancellations"`
	VectorBoost     bool    `json:"vector_boost"`
	BoostEffect     float64 `json:"boost_effect,omitempty"` // intensity increase fraction
	ResponderDeath  bool    `json:"responder_death"`
}

// Grave is the payload of a grave event.
type Grave struct {
	Type            incident.Type   `json:"type"`
	Zone            incident.ZoneID `json:"zone"`
	Duration        int             `json:"duration"`
	BaseCasualties  int             `json:"base_casualties"`
	Characteristics Characteristics `json:"characteristics"`
}

// PositiveKind is the nature of a positive event.
type PositiveKind string

const (
	InfrastructureCompletion PositiveKind = "infrastructure_completion"
	NewStation               PositiveKind = "new_station"
	EquipmentUpgrade         PositiveKind = "equipment_upgrade"
)

// Positive is the payload of a positive event.
type Positive struct {
	Kind            PositiveKind `json:"kind"`
	ImpactReduction float64      `json:"impact_reduction"`
}

// Event is a tagged variant: exactly one of Grave or Positive is set,
// matching Kind. Events are never mutated after creation.
type Event struct {
	ID       string           `json:"id"`
	Kind     Kind             `json:"kind"`
	Day      int              `json:"day"`
	Borough  incident.Borough `json:"borough"`
	Grave    *Grave           `json:"grave,omitempty"`
	Positive *Positive        `json:"positive,omitempty"`
}

// IsActive reports whether the event influences the given day. Grave events
// are active on [Day, Day+Duration); positive events only on Day+1.
func (e Event) IsActive(day int) bool {
	switch e.Kind {
	case KindGrave:
		if e.Grave == nil {
			return false
		}
		return day >= e.Day && day < e.Day+e.Grave.Duration
	case KindPositive:
		return day == e.Day+1
	default:
		return false
	}
}

// Validate checks that the variant payload matches the tag.
func (e Event) Validate() error {
	switch e.Kind {
	case KindGrave:
		if e.Grave == nil || e.Positive != nil {
			return fmt.Errorf("event %s: grave kind requires only a grave payload", e.ID)
		}
		if e.Grave.Duration <= 0 {
			return fmt.Errorf("event %s: duration must be positive, got %d", e.ID, e.Grave.Duration)
		}
	case KindPositive:
		if e.Positive == nil || e.Grave != nil {
			return fmt.Errorf("event %s: positive kind requires only a positive payload", e.ID)
		}
	default:
		return fmt.Errorf("event %s: unknown kind %d", e.ID, int(e.Kind))
	}
	return nil
}
