package domain

import (
	"encoding/json"

	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/pkg/timestamp"
)

// AlarmState is one row of the alarm-state table. A key is created on its
// first decision and retained with Active=false after CLEARED so operators
// can audit past alarms.
type AlarmState struct {
	Key       AlarmKey
	Severity  Severity
	Active    bool
	FirstSeen int64 // Unix milliseconds
	LastSeen  int64 // Unix milliseconds
	Message   string
	Value     *float64
	Details   string
}

type alarmStateWire struct {
	Source    string   `json:"source"`
	Type      string   `json:"alarm_type"`
	Severity  Severity `json:"severity"`
	Active    bool     `json:"active"`
	FirstSeen string   `json:"first_seen"`
	LastSeen  string   `json:"last_seen"`
	Message   string   `json:"message"`
	Value     *float64 `json:"value,omitempty"`
	Details   string   `json:"details,omitempty"`
}

// MarshalJSON renders the API form with RFC3339 UTC timestamps.
func (a AlarmState) MarshalJSON() ([]byte, error) {
	return json.Marshal(alarmStateWire{
		Source:    a.Key.Source,
		Type:      a.Key.Type,
		Severity:  a.Severity,
		Active:    a.Active,
		FirstSeen: timestamp.Format(a.FirstSeen),
		LastSeen:  timestamp.Format(a.LastSeen),
		Message:   a.Message,
		Value:     a.Value,
		Details:   a.Details,
	})
}

// UnmarshalJSON parses the API form.
func (a *AlarmState) UnmarshalJSON(data []byte) error {
	var w alarmStateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.WrapInvalid(err, "AlarmState", "UnmarshalJSON", "state parsing")
	}
	a.Key = AlarmKey{Source: w.Source, Type: w.Type}
	a.Severity = w.Severity
	a.Active = w.Active
	a.FirstSeen = timestamp.Parse(w.FirstSeen)
	a.LastSeen = timestamp.Parse(w.LastSeen)
	a.Message = w.Message
	a.Value = w.Value
	a.Details = w.Details
	return nil
}

// Decision is a criterion's verdict for one alarm key on one tick: the state
// the alarm should be in, given the latest store contents. Decisions are
// ephemeral; the engine turns them into transitions.
type Decision struct {
	Key            AlarmKey
	Rule           string
	ShouldBeActive bool
	Severity       Severity
	Message        string
	Value          *float64
	Details        string
}

// AlarmEvent is an immutable record of one lifecycle transition. Its
// timestamp is the evaluation-tick time, not the reading time: an event
// records when the engine observed the condition.
type AlarmEvent struct {
	ID         string
	Key        AlarmKey
	Transition Transition
	Severity   Severity
	TS         int64 // Unix milliseconds
	Message    string
	Value      *float64
	Details    string
}

type alarmEventWire struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Type       string     `json:"alarm_type"`
	Severity   Severity   `json:"severity"`
	Transition Transition `json:"transition"`
	Timestamp  string     `json:"timestamp"`
	Message    string     `json:"message"`
	Value      *float64   `json:"value,omitempty"`
	Details    string     `json:"details,omitempty"`
}

// MarshalJSON renders the wire form carried in webhook payloads, the NATS
// bridge and the websocket stream.
func (e AlarmEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(alarmEventWire{
		ID:         e.ID,
		Source:     e.Key.Source,
		Type:       e.Key.Type,
		Severity:   e.Severity,
		Transition: e.Transition,
		Timestamp:  timestamp.Format(e.TS),
		Message:    e.Message,
		Value:      e.Value,
		Details:    e.Details,
	})
}

// UnmarshalJSON parses the wire form.
func (e *AlarmEvent) UnmarshalJSON(data []byte) error {
	var w alarmEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.WrapInvalid(err, "AlarmEvent", "UnmarshalJSON", "event parsing")
	}
	e.ID = w.ID
	e.Key = AlarmKey{Source: w.Source, Type: w.Type}
	e.Transition = w.Transition
	e.Severity = w.Severity
	e.TS = timestamp.Parse(w.Timestamp)
	e.Message = w.Message
	e.Value = w.Value
	e.Details = w.Details
	return nil
}

// Float64 returns a pointer to v, for optional numeric fields on decisions
// and events.
func Float64(v float64) *float64 {
	return &v
}
