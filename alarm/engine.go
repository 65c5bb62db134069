package alarm

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/pkg/timestamp"
	"github.com/c360/linewatch/state"
)

// EngineDeps holds construction parameters for the engine.
type EngineDeps struct {
	Store *state.Store

	// ValueEps suppresses UPDATED events whose value moved by less than this
	// amount while severity and details held still. Zero means any value
	// change emits an event.
	ValueEps float64

	// StaleTimeout, when positive, auto-clears active alarms not refreshed by
	// a decision within the window. Zero disables the sweep.
	StaleTimeout time.Duration

	Metrics *metric.Metrics
	Logger  *slog.Logger
}

// Engine owns the alarm-state table's transitions. It is the only writer of
// alarm states, so for any key the event sequence it emits is a valid string
// in (RAISED (UPDATED)* CLEARED)*. Not safe for concurrent use; the worker
// serializes calls.
type Engine struct {
	store      *state.Store
	valueEps   float64
	staleAfter time.Duration
	metrics    *metric.Metrics
	logger     *slog.Logger
}

// NewEngine creates an engine over the given store.
func NewEngine(deps EngineDeps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      deps.Store,
		valueEps:   deps.ValueEps,
		staleAfter: deps.StaleTimeout,
		metrics:    deps.Metrics,
		logger:     logger.With("component", "alarm-engine"),
	}
}

// Ingest applies one tick's decisions to the alarm-state table and returns
// the events to publish, in decision order. Keys without a decision are left
// untouched: a silent criterion never clears its alarm.
func (e *Engine) Ingest(decisions []domain.Decision, now int64) []domain.AlarmEvent {
	var events []domain.AlarmEvent
	for _, d := range decisions {
		if ev, ok := e.apply(d, now); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (e *Engine) apply(d domain.Decision, now int64) (domain.AlarmEvent, bool) {
	details := d.Details
	if details == "" && d.Rule != "" {
		details = "rule=" + d.Rule
	}

	prior, known := e.store.AlarmState(d.Key)

	switch {
	case d.ShouldBeActive && (!known || !prior.Active):
		// FirstSeen marks the start of the current episode: a re-raise after
		// CLEARED starts a new one.
		e.store.SetAlarmState(domain.AlarmState{
			Key:       d.Key,
			Severity:  d.Severity,
			Active:    true,
			FirstSeen: now,
			LastSeen:  now,
			Message:   d.Message,
			Value:     d.Value,
			Details:   details,
		})
		return e.emit(d.Key, domain.TransitionRaised, d.Severity, now, d.Message, d.Value, details), true

	case d.ShouldBeActive:
		// Message text derives from the value, so it is not compared
		// separately; severity, details and the eps-banded value decide.
		if prior.Severity == d.Severity && prior.Details == details &&
			valueUnchanged(prior.Value, d.Value, e.valueEps) {
			// Same condition, still firing: refresh recency and the stored
			// reading, emit nothing.
			prior.LastSeen = now
			prior.Message = d.Message
			prior.Value = d.Value
			e.store.SetAlarmState(prior)
			return domain.AlarmEvent{}, false
		}
		prior.Severity = d.Severity
		prior.Message = d.Message
		prior.Value = d.Value
		prior.Details = details
		prior.LastSeen = now
		e.store.SetAlarmState(prior)
		return e.emit(d.Key, domain.TransitionUpdated, d.Severity, now, d.Message, d.Value, details), true

	case known && prior.Active:
		// CLEARED keeps the severity the alarm was raised or last updated at.
		severity := prior.Severity
		prior.Active = false
		prior.Message = d.Message
		prior.Value = d.Value
		prior.LastSeen = now
		e.store.SetAlarmState(prior)
		return e.emit(d.Key, domain.TransitionCleared, severity, now, d.Message, d.Value, details), true

	case !known:
		// First decision for this key is already in range: record the row so
		// the key is auditable, but there is nothing to clear and no event.
		e.store.SetAlarmState(domain.AlarmState{
			Key:       d.Key,
			Severity:  d.Severity,
			Active:    false,
			FirstSeen: now,
			LastSeen:  now,
			Message:   d.Message,
			Value:     d.Value,
			Details:   details,
		})
		return domain.AlarmEvent{}, false

	default:
		prior.LastSeen = now
		prior.Value = d.Value
		e.store.SetAlarmState(prior)
		return domain.AlarmEvent{}, false
	}
}

// SweepStale clears active alarms whose last decision is older than the stale
// window, returning the CLEARED events to publish. Returns nil when the sweep
// is disabled.
func (e *Engine) SweepStale(now int64) []domain.AlarmEvent {
	if e.staleAfter <= 0 {
		return nil
	}
	cutoff := now - e.staleAfter.Milliseconds()

	var events []domain.AlarmEvent
	for _, st := range e.store.ActiveStates() {
		if st.LastSeen > cutoff {
			continue
		}
		age := timestamp.Between(st.LastSeen, now).Round(time.Second)
		msg := fmt.Sprintf("%s auto-cleared: no evaluation for %s", st.Key.String(), age)

		severity := st.Severity
		st.Active = false
		st.Message = msg
		st.LastSeen = now
		e.store.SetAlarmState(st)

		e.logger.Warn("stale alarm auto-cleared", "alarm", st.Key.String(), "age", age)
		events = append(events, e.emit(st.Key, domain.TransitionCleared, severity, now, msg, st.Value, st.Details))
	}
	return events
}

// emit builds an event, records it in the store history and counts the
// transition. The caller publishes it on the bus.
func (e *Engine) emit(key domain.AlarmKey, tr domain.Transition, sev domain.Severity,
	now int64, msg string, value *float64, details string) domain.AlarmEvent {

	ev := domain.AlarmEvent{
		ID:         uuid.NewString(),
		Key:        key,
		Transition: tr,
		Severity:   sev,
		TS:         now,
		Message:    msg,
		Value:      value,
		Details:    details,
	}
	e.store.AppendEvent(ev)
	if e.metrics != nil {
		e.metrics.RecordAlarmTransition(string(tr))
	}
	e.logger.Info("alarm transition",
		"alarm", key.String(),
		"transition", string(tr),
		"severity", string(sev),
		"message", msg)
	return ev
}

// valueUnchanged reports whether two decision values are close enough to
// suppress an UPDATED event. Identical values never emit; with a positive
// eps, moves strictly smaller than eps are absorbed too.
func valueUnchanged(a, b *float64, eps float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	d := math.Abs(*a - *b)
	return d == 0 || d < eps
}
