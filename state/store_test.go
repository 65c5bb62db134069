package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/linewatch/domain"
)

func newTestStore() *Store {
	return New(Deps{
		SpectralLengths: map[string]int{"FTIR": 4},
		HistoryCapacity: 8,
	})
}

func TestScalarUpsertKeepsLatest(t *testing.T) {
	s := newTestStore()

	s.UpsertScalar(domain.Reading{Sensor: "Pressure", Value: 1.5, TS: 1000})
	s.UpsertScalar(domain.Reading{Sensor: "Pressure", Value: 2.3, TS: 2000})

	r, ok := s.Scalar("Pressure")
	require.True(t, ok)
	assert.Equal(t, 2.3, r.Value)
	assert.Equal(t, int64(2000), r.TS)

	_, ok = s.Scalar("Unknown")
	assert.False(t, ok)
}

func TestSpectrumUpsertChecksLength(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.UpsertSpectrum(domain.Spectrum{Sensor: "FTIR", Values: []float64{1, 2, 3, 4}, TS: 1000}))
	assert.Error(t, s.UpsertSpectrum(domain.Spectrum{Sensor: "FTIR", Values: []float64{1, 2}, TS: 2000}))

	// Rejected spectrum did not replace the accepted one.
	sp, ok := s.Spectrum("FTIR")
	require.True(t, ok)
	assert.Equal(t, int64(1000), sp.TS)

	// Undeclared channels skip the length check.
	require.NoError(t, s.UpsertSpectrum(domain.Spectrum{Sensor: "Raman", Values: []float64{1}, TS: 1}))
}

func TestAlarmStateTable(t *testing.T) {
	s := newTestStore()
	key := domain.AlarmKey{Source: "Pressure", Type: domain.AlarmTypeHighLimit}

	_, ok := s.AlarmState(key)
	require.False(t, ok)

	s.SetAlarmState(domain.AlarmState{
		Key: key, Severity: domain.SeverityWarning, Active: true, FirstSeen: 10, LastSeen: 10,
	})

	st, ok := s.AlarmState(key)
	require.True(t, ok)
	assert.True(t, st.Active)

	c := s.Counters()
	assert.Equal(t, 1, c.StatesTotal)
	assert.Equal(t, 1, c.StatesActive)
	assert.Equal(t, 1, c.StatesBySeverity["WARNING"])

	// CLEARED retains the key with active=false.
	st.Active = false
	st.LastSeen = 20
	s.SetAlarmState(st)

	c = s.Counters()
	assert.Equal(t, 1, c.StatesTotal)
	assert.Zero(t, c.StatesActive)
	assert.Empty(t, c.StatesBySeverity)
}

func TestStatesSortedByKey(t *testing.T) {
	s := newTestStore()
	s.SetAlarmState(domain.AlarmState{Key: domain.AlarmKey{Source: "B", Type: "HIGH_LIMIT"}})
	s.SetAlarmState(domain.AlarmState{Key: domain.AlarmKey{Source: "A", Type: "LOW_LIMIT"}})
	s.SetAlarmState(domain.AlarmState{Key: domain.AlarmKey{Source: "A", Type: "HIGH_LIMIT"}})

	states := s.States()
	require.Len(t, states, 3)
	assert.Equal(t, domain.AlarmKey{Source: "A", Type: "HIGH_LIMIT"}, states[0].Key)
	assert.Equal(t, domain.AlarmKey{Source: "A", Type: "LOW_LIMIT"}, states[1].Key)
	assert.Equal(t, domain.AlarmKey{Source: "B", Type: "HIGH_LIMIT"}, states[2].Key)
}

func TestEventHistoryRing(t *testing.T) {
	s := newTestStore() // capacity 8

	for i := 0; i < 12; i++ {
		s.AppendEvent(domain.AlarmEvent{
			ID:         fmt.Sprintf("ev-%d", i),
			Key:        domain.AlarmKey{Source: "Pressure", Type: domain.AlarmTypeHighLimit},
			Transition: domain.TransitionUpdated,
			Severity:   domain.SeverityWarning,
		})
	}

	events := s.Events()
	require.Len(t, events, 8)
	assert.Equal(t, "ev-4", events[0].ID)
	assert.Equal(t, "ev-11", events[7].ID)

	// Totals keep counting past eviction.
	c := s.Counters()
	assert.Equal(t, 12, c.EventsTotal)
	assert.Equal(t, 12, c.EventsByTransition["UPDATED"])
}

func TestClearHistoryKeepsActiveStates(t *testing.T) {
	s := newTestStore()
	active := domain.AlarmKey{Source: "Pressure", Type: domain.AlarmTypeHighLimit}
	cleared := domain.AlarmKey{Source: "Vibration", Type: domain.AlarmTypeHighLimit}

	s.SetAlarmState(domain.AlarmState{Key: active, Active: true})
	s.SetAlarmState(domain.AlarmState{Key: cleared, Active: false})
	s.AppendEvent(domain.AlarmEvent{ID: "ev-1", Key: active, Transition: domain.TransitionRaised})

	s.ClearHistory()

	assert.Empty(t, s.Events())
	_, ok := s.AlarmState(active)
	assert.True(t, ok)
	_, ok = s.AlarmState(cleared)
	assert.False(t, ok)

	// Event totals survive a clear.
	assert.Equal(t, 1, s.Counters().EventsTotal)
}

func TestViewIsConsistentCopy(t *testing.T) {
	s := newTestStore()
	s.UpsertScalar(domain.Reading{Sensor: "Pressure", Value: 1.5, TS: 1000})
	key := domain.AlarmKey{Source: "Pressure", Type: domain.AlarmTypeHighLimit}
	s.SetAlarmState(domain.AlarmState{Key: key, Active: true})

	v := s.View()

	// Later writes do not show through the captured view.
	s.UpsertScalar(domain.Reading{Sensor: "Pressure", Value: 9.9, TS: 2000})
	s.SetAlarmState(domain.AlarmState{Key: key, Active: false})

	r, ok := v.Scalar("Pressure")
	require.True(t, ok)
	assert.Equal(t, 1.5, r.Value)

	st, ok := v.AlarmState(key)
	require.True(t, ok)
	assert.True(t, st.Active)
	assert.Len(t, v.ActiveAlarms(), 1)
}

func TestSnapshotInvariants(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 5; i++ {
		s.SetAlarmState(domain.AlarmState{
			Key:    domain.AlarmKey{Source: fmt.Sprintf("S%d", i), Type: domain.AlarmTypeHighLimit},
			Active: i%2 == 0,
		})
	}

	snap := s.Snapshot()
	assert.Len(t, snap.States, 5)
	assert.LessOrEqual(t, snap.Counters.StatesActive, snap.Counters.StatesTotal)
	assert.NotZero(t, snap.TakenAt)
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStore()
	var wg sync.WaitGroup

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.UpsertScalar(domain.Reading{Sensor: "Pressure", Value: float64(i), TS: int64(i)})
				s.SetAlarmState(domain.AlarmState{
					Key:    domain.AlarmKey{Source: "Pressure", Type: domain.AlarmTypeHighLimit},
					Active: i%2 == 0,
				})
				_ = s.Snapshot()
				_ = s.View()
			}
		}(g)
	}
	wg.Wait()

	c := s.Counters()
	assert.LessOrEqual(t, c.StatesActive, c.StatesTotal)
}
