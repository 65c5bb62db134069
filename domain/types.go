package domain

import (
	"fmt"

	"github.com/c360/linewatch/errors"
)

// Status reports whether a sensor considered its own measurement valid.
// Criteria treat non-OK readings as "no reading".
type Status string

// Known reading statuses.
const (
	StatusOK     Status = "OK"
	StatusFaulty Status = "FAULTY"
)

// OK reports whether the status marks a usable measurement. An empty status
// means the feed omitted the field and defaults to OK.
func (s Status) OK() bool {
	return s == StatusOK || s == ""
}

// Severity classifies how urgent an alarm is.
type Severity string

// Alarm severities in ascending order of urgency.
const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity validates a severity string from configuration or a wire
// payload. The empty string defaults to WARNING.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return Severity(s), nil
	case "":
		return SeverityWarning, nil
	default:
		return "", errors.WrapInvalid(fmt.Errorf("unknown severity %q", s),
			"domain", "ParseSeverity", "severity validation")
	}
}

// Transition is one step in an alarm's lifecycle. For any key the sequence
// of transitions is a valid string in (RAISED (UPDATED)* CLEARED)*.
type Transition string

// Alarm lifecycle transitions.
const (
	TransitionRaised  Transition = "RAISED"
	TransitionUpdated Transition = "UPDATED"
	TransitionCleared Transition = "CLEARED"
)

// Alarm type strings produced by the reference criteria.
const (
	AlarmTypeLowLimit  = "LOW_LIMIT"
	AlarmTypeHighLimit = "HIGH_LIMIT"
	AlarmTypeTempDiff  = "TEMP_DIFF"
	AlarmTypePeakShift = "PEAK_SHIFT"
)

// AlarmKey uniquely identifies one alarm as the pair of the source it fires
// for and the kind of condition. It is comparable and used as a map key.
type AlarmKey struct {
	Source string `json:"source"`
	Type   string `json:"alarm_type"`
}

// String renders the key for log attributes and details strings.
func (k AlarmKey) String() string {
	return k.Source + "/" + k.Type
}
