package alarm

import (
	"fmt"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/state"
)

// PeakShift watches one spectral channel's dominant peak. The expected peak
// bin comes from configuration when reference_peak_index is pinned, otherwise
// from the argmax of a captured reference spectrum. Without either there is
// nothing to compare against and the criterion stays silent.
type PeakShift struct {
	channel   string
	tolerance int
	severity  domain.Severity
	refIndex  *int
}

// NewPeakShift creates the peak-shift criterion from its config section and
// the channel declaration.
func NewPeakShift(cfg config.PeakShiftConfig, sensors config.SensorsConfig) (*PeakShift, error) {
	sev, err := domain.ParseSeverity(cfg.Severity)
	if err != nil {
		return nil, err
	}
	c := &PeakShift{
		channel:   cfg.Channel,
		tolerance: cfg.ToleranceBins,
		severity:  sev,
	}
	if sc, ok := sensors.Spectral(cfg.Channel); ok && sc.ReferencePeakIndex != nil {
		idx := *sc.ReferencePeakIndex
		c.refIndex = &idx
	}
	return c, nil
}

// Name identifies the rule.
func (c *PeakShift) Name() string { return RuleFTIRPeakShift }

// referenceBin resolves the expected peak bin. The pinned configuration index
// wins over a captured reference spectrum.
func (c *PeakShift) referenceBin(v state.View) (int, bool) {
	if c.refIndex != nil {
		return *c.refIndex, true
	}
	ref, ok := v.Reference(c.channel)
	if !ok || !ref.Usable() {
		return 0, false
	}
	idx := ref.ArgMax()
	return idx, idx >= 0
}

// Evaluate produces one decision when the channel has a usable spectrum and a
// reference bin is resolvable.
func (c *PeakShift) Evaluate(v state.View, now int64) []domain.Decision {
	sp, ok := v.Spectrum(c.channel)
	if !ok || !sp.Usable() {
		return nil
	}
	ref, ok := c.referenceBin(v)
	if !ok {
		return nil
	}

	peak := sp.ArgMax()
	shift := peak - ref
	if shift < 0 {
		shift = -shift
	}

	dec := domain.Decision{
		Key:      domain.AlarmKey{Source: c.channel, Type: domain.AlarmTypePeakShift},
		Rule:     RuleFTIRPeakShift,
		Severity: c.severity,
		Value:    domain.Float64(float64(shift)),
	}
	if shift > c.tolerance {
		dec.ShouldBeActive = true
		dec.Message = fmt.Sprintf("%s peak shifted %d bins (peak %d, reference %d, tolerance %d)",
			c.channel, shift, peak, ref, c.tolerance)
	} else {
		dec.Message = fmt.Sprintf("%s peak within tolerance (peak %d, reference %d)",
			c.channel, peak, ref)
	}
	return []domain.Decision{dec}
}
