package alarm

import (
	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/state"
)

// Criterion is one stateless alarm rule. Evaluate reads a captured view and
// returns a decision per alarm key it governs; a key with no decision this
// tick keeps its current state (missing never auto-clears).
type Criterion interface {
	// Name identifies the rule in decision details and logs.
	Name() string

	// Evaluate inspects the view and returns zero or more decisions.
	// now is the evaluation-tick time in Unix milliseconds.
	Evaluate(v state.View, now int64) []domain.Decision
}

// Registry holds the enabled criteria in evaluation order. Order is fixed at
// construction so the per-tick decision sequence, and therefore the event
// order, is deterministic.
type Registry struct {
	criteria []Criterion
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a criterion to the evaluation order.
func (r *Registry) Register(c Criterion) {
	r.criteria = append(r.criteria, c)
}

// Criteria returns the registered criteria in evaluation order.
func (r *Registry) Criteria() []Criterion {
	return r.criteria
}

// EvaluateAll runs every criterion in order against one view and concatenates
// their decisions.
func (r *Registry) EvaluateAll(v state.View, now int64) []domain.Decision {
	var out []domain.Decision
	for _, c := range r.criteria {
		out = append(out, c.Evaluate(v, now)...)
	}
	return out
}

// BuildRegistry assembles the criteria set the configuration enables, in the
// fixed order scalar limits, temperature differential, FTIR peak shift.
func BuildRegistry(sensors config.SensorsConfig, alarms config.AlarmsConfig) (*Registry, error) {
	r := NewRegistry()

	if alarms.EnableScalarLimits {
		r.Register(NewScalarLimits(sensors.ScalarConfigs))
	}
	if alarms.TempDiff.Enabled {
		c, err := NewTempDiff(alarms.TempDiff)
		if err != nil {
			return nil, err
		}
		r.Register(c)
	}
	if alarms.FTIRPeakShift.Enabled {
		c, err := NewPeakShift(alarms.FTIRPeakShift, sensors)
		if err != nil {
			return nil, err
		}
		r.Register(c)
	}
	return r, nil
}
