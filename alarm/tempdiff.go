package alarm

import (
	"fmt"
	"math"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/state"
)

// TempDiff compares the latest readings of a configured sensor pair and
// alarms when their absolute difference exceeds a threshold. The alarm key's
// source is the pair joined as "A|B" so the alarm belongs to the pair, not to
// either sensor.
type TempDiff struct {
	a, b     string
	delta    float64
	severity domain.Severity
}

// NewTempDiff creates the differential criterion from its config section.
func NewTempDiff(cfg config.TempDiffConfig) (*TempDiff, error) {
	sev, err := domain.ParseSeverity(cfg.Severity)
	if err != nil {
		return nil, err
	}
	return &TempDiff{a: cfg.Pair[0], b: cfg.Pair[1], delta: cfg.Delta, severity: sev}, nil
}

// Name identifies the rule.
func (c *TempDiff) Name() string { return RuleTempDiff }

// Evaluate produces one decision when both pair members have usable readings.
// If either side is missing or unusable there is no decision: an active
// differential alarm holds until both readings are back.
func (c *TempDiff) Evaluate(v state.View, now int64) []domain.Decision {
	ra, okA := v.Scalar(c.a)
	rb, okB := v.Scalar(c.b)
	if !okA || !okB || !ra.Usable() || !rb.Usable() {
		return nil
	}

	d := math.Abs(ra.Value - rb.Value)
	dec := domain.Decision{
		Key:      domain.AlarmKey{Source: c.a + "|" + c.b, Type: domain.AlarmTypeTempDiff},
		Rule:     RuleTempDiff,
		Severity: c.severity,
		Value:    domain.Float64(d),
	}
	if d > c.delta {
		dec.ShouldBeActive = true
		dec.Message = fmt.Sprintf("Temp diff %s/%s = %.3f C > %g C", c.a, c.b, d, c.delta)
	} else {
		dec.Message = fmt.Sprintf("Temp diff OK: %.3f C", d)
	}
	return []domain.Decision{dec}
}
