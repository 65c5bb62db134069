package state

import "github.com/c360/linewatch/domain"

// View is an immutable per-tick capture of the store's read side. Criteria
// evaluate against a View so the whole criteria pass observes one consistent
// state without holding the store's lock; the engine then promotes its
// write-backs through the store.
type View struct {
	scalars    map[string]domain.Reading
	spectra    map[string]domain.Spectrum
	references map[string]domain.Spectrum
	alarms     map[domain.AlarmKey]domain.AlarmState
}

// Scalar returns the latest reading for a sensor at capture time.
func (v View) Scalar(name string) (domain.Reading, bool) {
	r, ok := v.scalars[name]
	return r, ok
}

// Spectrum returns the latest spectrum for a channel at capture time.
func (v View) Spectrum(name string) (domain.Spectrum, bool) {
	sp, ok := v.spectra[name]
	return sp, ok
}

// Reference returns the captured reference spectrum for a channel.
func (v View) Reference(name string) (domain.Spectrum, bool) {
	sp, ok := v.references[name]
	return sp, ok
}

// AlarmState returns the alarm state for a key at capture time.
func (v View) AlarmState(key domain.AlarmKey) (domain.AlarmState, bool) {
	st, ok := v.alarms[key]
	return st, ok
}

// ActiveAlarms returns the keys of alarms that were active at capture time.
// The staleness sweep walks these.
func (v View) ActiveAlarms() []domain.AlarmState {
	out := make([]domain.AlarmState, 0, len(v.alarms))
	for _, st := range v.alarms {
		if st.Active {
			out = append(out, st)
		}
	}
	return out
}
