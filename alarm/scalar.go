package alarm

import (
	"fmt"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/state"
)

// Rule names carried in decision details so operators can tell which rule
// produced an event.
const (
	RuleScalarLow     = "scalar_low_limit"
	RuleScalarHigh    = "scalar_high_limit"
	RuleTempDiff      = "temp_diff"
	RuleFTIRPeakShift = "ftir_peak_shift"
)

// ScalarLimits checks every configured scalar sensor against its low and high
// limits, producing two decisions per sensor with a usable reading. Limits
// are strict: a value exactly on the limit is in range.
type ScalarLimits struct {
	sensors []config.ScalarSensorConfig
}

// NewScalarLimits creates the limit criterion over the given sensor set.
func NewScalarLimits(sensors []config.ScalarSensorConfig) *ScalarLimits {
	return &ScalarLimits{sensors: sensors}
}

// Name identifies the rule family.
func (c *ScalarLimits) Name() string { return "scalar_limits" }

// Evaluate produces a LOW_LIMIT and a HIGH_LIMIT decision for each sensor
// with a usable reading. Sensors with no reading, or a faulty or non-finite
// one, get no decision and keep their current alarm state.
func (c *ScalarLimits) Evaluate(v state.View, now int64) []domain.Decision {
	out := make([]domain.Decision, 0, 2*len(c.sensors))
	for _, sc := range c.sensors {
		r, ok := v.Scalar(sc.Name)
		if !ok || !r.Usable() {
			continue
		}

		low := domain.Decision{
			Key:      domain.AlarmKey{Source: sc.Name, Type: domain.AlarmTypeLowLimit},
			Rule:     RuleScalarLow,
			Severity: domain.SeverityWarning,
			Value:    domain.Float64(r.Value),
		}
		if r.Value < sc.LowLimit {
			low.ShouldBeActive = true
			low.Message = fmt.Sprintf("%s LOW: %.3f < %g %s", sc.Name, r.Value, sc.LowLimit, sc.Units)
		} else {
			low.Message = fmt.Sprintf("%s back above low limit", sc.Name)
		}
		out = append(out, low)

		high := domain.Decision{
			Key:      domain.AlarmKey{Source: sc.Name, Type: domain.AlarmTypeHighLimit},
			Rule:     RuleScalarHigh,
			Severity: domain.SeverityWarning,
			Value:    domain.Float64(r.Value),
		}
		if r.Value > sc.HighLimit {
			high.ShouldBeActive = true
			high.Message = fmt.Sprintf("%s HIGH: %.3f > %g %s", sc.Name, r.Value, sc.HighLimit, sc.Units)
		} else {
			high.Message = fmt.Sprintf("%s back below high limit", sc.Name)
		}
		out = append(out, high)
	}
	return out
}
