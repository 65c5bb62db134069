package notify

import (
	"encoding/json"

	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/errors"
)

// payloadType is the discriminator receivers key on.
const payloadType = "alarm_event"

// Payload is one webhook delivery: an alarm event joined with the counters
// captured at publish time, so the receiver sees the totals as they were when
// the event fired rather than when delivery finally succeeded.
type Payload struct {
	Event  domain.AlarmEvent
	Totals domain.Counters

	// Attempts counts failed delivery rounds for requeue mode. Not serialized.
	Attempts int
}

type payloadWire struct {
	Type   string            `json:"type"`
	Event  domain.AlarmEvent `json:"event"`
	Totals domain.Counters   `json:"totals"`
}

// MarshalJSON renders the webhook body.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(payloadWire{
		Type:   payloadType,
		Event:  p.Event,
		Totals: p.Totals,
	})
}

// UnmarshalJSON parses a webhook body, rejecting foreign payload types.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var w payloadWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.WrapInvalid(err, "Payload", "UnmarshalJSON", "payload parsing")
	}
	if w.Type != payloadType {
		return errors.WrapInvalid(errors.ErrUnknownType, "Payload", "UnmarshalJSON", "type check")
	}
	p.Event = w.Event
	p.Totals = w.Totals
	p.Attempts = 0
	return nil
}
