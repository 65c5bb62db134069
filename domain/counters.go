package domain

import (
	"encoding/json"

	"github.com/c360/linewatch/pkg/timestamp"
)

// Counters are the pipeline's running totals. State counts describe the
// current alarm-state table; event counts only ever grow, and keep growing
// past event-history eviction so they always equal the number of events
// published on the bus.
type Counters struct {
	StatesTotal  int `json:"alarm_states_total"`
	StatesActive int `json:"alarm_states_active"`
	EventsTotal  int `json:"alarm_events_total"`

	StatesBySeverity   map[string]int `json:"state_counts_by_severity"`
	StatesByType       map[string]int `json:"state_counts_by_type"`
	EventsByTransition map[string]int `json:"event_counts_by_transition"`
	EventsBySeverity   map[string]int `json:"event_counts_by_severity"`
	EventsByType       map[string]int `json:"event_counts_by_type"`
}

// NewCounters returns zeroed counters with all breakdown maps allocated.
func NewCounters() Counters {
	return Counters{
		StatesBySeverity:   make(map[string]int),
		StatesByType:       make(map[string]int),
		EventsByTransition: make(map[string]int),
		EventsBySeverity:   make(map[string]int),
		EventsByType:       make(map[string]int),
	}
}

// Clone returns an independent copy, safe to hand outside the store's lock.
func (c Counters) Clone() Counters {
	out := c
	out.StatesBySeverity = cloneCounts(c.StatesBySeverity)
	out.StatesByType = cloneCounts(c.StatesByType)
	out.EventsByTransition = cloneCounts(c.EventsByTransition)
	out.EventsBySeverity = cloneCounts(c.EventsBySeverity)
	out.EventsByType = cloneCounts(c.EventsByType)
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Snapshot is a point-in-time consistent copy of the alarm-state table and
// counters, captured under one lock acquisition. Consumers own it outright.
type Snapshot struct {
	States   []AlarmState
	Counters Counters
	TakenAt  int64 // Unix milliseconds
}

type snapshotWire struct {
	States   []AlarmState `json:"states"`
	Counters Counters     `json:"counters"`
	TakenAt  string       `json:"taken_at"`
}

// MarshalJSON renders the API form.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	states := s.States
	if states == nil {
		states = []AlarmState{}
	}
	return json.Marshal(snapshotWire{
		States:   states,
		Counters: s.Counters,
		TakenAt:  timestamp.Format(s.TakenAt),
	})
}
