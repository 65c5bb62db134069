package state

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/pkg/timestamp"
)

// DefaultHistoryCapacity bounds the event history when Deps leaves it unset.
const DefaultHistoryCapacity = 1024

// Deps holds construction parameters for the store.
type Deps struct {
	// SpectralLengths declares the expected bin count per spectral channel.
	// Spectra for declared channels are re-checked on upsert.
	SpectralLengths map[string]int

	// HistoryCapacity bounds the in-memory event history ring.
	HistoryCapacity int

	// Metrics, if set, keeps the active-alarm gauge current.
	Metrics *metric.Metrics

	Logger *slog.Logger
}

// Store is the shared in-memory model. The zero value is not usable; use New.
type Store struct {
	mu sync.Mutex

	scalars    map[string]domain.Reading
	spectra    map[string]domain.Spectrum
	references map[string]domain.Spectrum
	lengths    map[string]int

	alarms map[domain.AlarmKey]domain.AlarmState

	history    []domain.AlarmEvent
	historyCap int

	// Event counters keep growing past history eviction so they always
	// equal the number of events published on the bus.
	eventsTotal        int
	eventsByTransition map[string]int
	eventsBySeverity   map[string]int
	eventsByType       map[string]int

	metrics *metric.Metrics
	logger  *slog.Logger
}

// New creates an empty store.
func New(deps Deps) *Store {
	historyCap := deps.HistoryCapacity
	if historyCap <= 0 {
		historyCap = DefaultHistoryCapacity
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lengths := make(map[string]int, len(deps.SpectralLengths))
	for name, n := range deps.SpectralLengths {
		lengths[name] = n
	}
	return &Store{
		scalars:            make(map[string]domain.Reading),
		spectra:            make(map[string]domain.Spectrum),
		references:         make(map[string]domain.Spectrum),
		lengths:            lengths,
		alarms:             make(map[domain.AlarmKey]domain.AlarmState),
		historyCap:         historyCap,
		eventsByTransition: make(map[string]int),
		eventsBySeverity:   make(map[string]int),
		eventsByType:       make(map[string]int),
		metrics:            deps.Metrics,
		logger:             logger.With("component", "state-store"),
	}
}

// UpsertScalar records the latest reading for a sensor. Non-finite values
// are accepted; criteria treat them as "no reading".
func (s *Store) UpsertScalar(r domain.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars[r.Sensor] = r
}

// UpsertSpectrum records the latest spectrum for a channel, re-checking the
// declared bin count for channels the configuration knows.
func (s *Store) UpsertSpectrum(sp domain.Spectrum) error {
	if err := sp.Validate(s.lengths[sp.Sensor]); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spectra[sp.Sensor] = sp
	return nil
}

// Scalar returns the latest reading for a sensor.
func (s *Store) Scalar(name string) (domain.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.scalars[name]
	return r, ok
}

// Spectrum returns the latest spectrum for a channel. The returned value
// shares its bin slice with the store; callers must not mutate it.
func (s *Store) Spectrum(name string) (domain.Spectrum, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spectra[name]
	return sp, ok
}

// SetReference captures the reference spectrum for a channel, used by the
// peak-shift criterion when configuration does not pin a reference bin.
func (s *Store) SetReference(channel string, sp domain.Spectrum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.references[channel] = sp
}

// Reference returns the captured reference spectrum for a channel.
func (s *Store) Reference(channel string) (domain.Spectrum, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.references[channel]
	return sp, ok
}

// AlarmState returns the current state for a key.
func (s *Store) AlarmState(key domain.AlarmKey) (domain.AlarmState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.alarms[key]
	return st, ok
}

// SetAlarmState writes one row of the alarm-state table. The engine is the
// sole caller; it computes the transition before writing.
func (s *Store) SetAlarmState(st domain.AlarmState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms[st.Key] = st
	s.updateActiveGaugeLocked()
}

// States returns every alarm state, active and retained-inactive, ordered by
// key for deterministic output.
func (s *Store) States() []domain.AlarmState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statesLocked()
}

// ActiveStates returns only the currently active alarm states, ordered by key.
func (s *Store) ActiveStates() []domain.AlarmState {
	all := s.States()
	out := all[:0]
	for _, st := range all {
		if st.Active {
			out = append(out, st)
		}
	}
	return out
}

func (s *Store) statesLocked() []domain.AlarmState {
	out := make([]domain.AlarmState, 0, len(s.alarms))
	for _, st := range s.alarms {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Source != out[j].Key.Source {
			return out[i].Key.Source < out[j].Key.Source
		}
		return out[i].Key.Type < out[j].Key.Type
	})
	return out
}

// AppendEvent records a published event in the bounded history and advances
// the event counters. Totals keep counting past history eviction.
func (s *Store) AppendEvent(ev domain.AlarmEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, ev)
	if len(s.history) > s.historyCap {
		s.history = s.history[len(s.history)-s.historyCap:]
	}

	s.eventsTotal++
	s.eventsByTransition[string(ev.Transition)]++
	s.eventsBySeverity[string(ev.Severity)]++
	s.eventsByType[ev.Key.Type]++
}

// Events returns the retained event history, oldest first.
func (s *Store) Events() []domain.AlarmEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AlarmEvent, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory drops the event history and the retained inactive states,
// keeping active alarms so their lifecycle sequences stay valid. This backs
// the UI's "clear log" action. Event totals are not reset.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	for key, st := range s.alarms {
		if !st.Active {
			delete(s.alarms, key)
		}
	}
	s.updateActiveGaugeLocked()
}

// Counters returns the current totals.
func (s *Store) Counters() domain.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countersLocked()
}

// countersLocked derives state counts from the table and copies the event
// counters, all inside the caller's critical section.
func (s *Store) countersLocked() domain.Counters {
	c := domain.NewCounters()
	c.StatesTotal = len(s.alarms)
	c.EventsTotal = s.eventsTotal
	for _, st := range s.alarms {
		if !st.Active {
			continue
		}
		c.StatesActive++
		c.StatesBySeverity[string(st.Severity)]++
		c.StatesByType[st.Key.Type]++
	}
	for k, v := range s.eventsByTransition {
		c.EventsByTransition[k] = v
	}
	for k, v := range s.eventsBySeverity {
		c.EventsBySeverity[k] = v
	}
	for k, v := range s.eventsByType {
		c.EventsByType[k] = v
	}
	return c
}

// Snapshot captures states and counters under one lock acquisition.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{
		States:   s.statesLocked(),
		Counters: s.countersLocked(),
		TakenAt:  timestamp.Now(),
	}
}

// View captures the per-tick read view criteria evaluate against: sensor
// latest maps, references and alarm states, all copied under one lock
// acquisition.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		scalars:    make(map[string]domain.Reading, len(s.scalars)),
		spectra:    make(map[string]domain.Spectrum, len(s.spectra)),
		references: make(map[string]domain.Spectrum, len(s.references)),
		alarms:     make(map[domain.AlarmKey]domain.AlarmState, len(s.alarms)),
	}
	for k, r := range s.scalars {
		v.scalars[k] = r
	}
	for k, sp := range s.spectra {
		v.spectra[k] = sp
	}
	for k, sp := range s.references {
		v.references[k] = sp
	}
	for k, st := range s.alarms {
		v.alarms[k] = st
	}
	return v
}

func (s *Store) updateActiveGaugeLocked() {
	if s.metrics == nil {
		return
	}
	active := 0
	for _, st := range s.alarms {
		if st.Active {
			active++
		}
	}
	s.metrics.SetActiveAlarms(active)
}
