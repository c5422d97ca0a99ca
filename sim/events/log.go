package events

import (
	"fmt"

	"github.com/urban-sim/incident-sim/sim/incident"
)

// Log is the append-only per-run event log.
type Log struct {
	events []Event
	byDay  map[int][]int
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{byDay: make(map[int][]int)}
}

// Append records an event. Malformed variants are rejected.
func (l *Log) Append(e Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	l.byDay[e.Day] = append(l.byDay[e.Day], len(l.events))
	l.events = append(l.events, e)
	return nil
}

// Len returns the number of recorded events.
func (l *Log) Len() int { return len(l.events) }

// All returns every event in creation order.
func (l *Log) All() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// ForDay returns the events created on a day.
func (l *Log) ForDay(day int) []Event {
	idx := l.byDay[day]
	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.events[i])
	}
	return out
}

// Active returns every event active on a day, in creation order.
func (l *Log) Active(day int) []Event {
	var out []Event
	for _, e := range l.events {
		if e.IsActive(day) {
			out = append(out, e)
		}
	}
	return out
}

// ActiveInBorough returns the events active on a day in one borough.
func (l *Log) ActiveInBorough(day int, b incident.Borough) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Borough == b && e.IsActive(day) {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the number of active grave and positive events of a borough on a day.
func (l *Log) Counts(day int, b incident.Borough) (grave, positive int) {
	for _, e := range l.ActiveInBorough(day, b) {
		switch e.Kind {
		case KindGrave:
			grave++
		case KindPositive:
			positive++
		}
	}
	return grave, positive
}
