package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/linewatch/bus"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/pkg/buffer"
	"github.com/c360/linewatch/pkg/timestamp"
	"github.com/c360/linewatch/state"
)

// popWait bounds how long the loop sits idle before re-checking shutdown and
// the staleness sweep.
const popWait = 25 * time.Millisecond

// sweepInterval paces the staleness sweep so it runs even when the feed goes
// quiet.
const sweepInterval = time.Second

// WorkerDeps holds runtime dependencies for the alarm worker.
type WorkerDeps struct {
	Store    *state.Store
	Criteria *Registry
	Engine   *Engine
	Bus      *bus.Bus

	// Readings is the decoder's output queue. The worker is its only reader.
	Readings buffer.Buffer[domain.Measurement]

	// CaptureReference names the spectral channels whose reference spectrum
	// is not pinned by configuration; their first usable spectrum becomes the
	// reference.
	CaptureReference map[string]bool

	// DrainLimit caps how many queued readings are still processed at
	// shutdown. Zero disables the drain.
	DrainLimit int

	Metrics *metric.Metrics
	Logger  *slog.Logger
}

// Worker drives the evaluation loop: pop one measurement, apply it to the
// store, capture a view, run the criteria, ingest the decisions and publish
// the resulting events. One tick per reading keeps event ordering total.
type Worker struct {
	store      *state.Store
	criteria   *Registry
	engine     *Engine
	bus        *bus.Bus
	readings   buffer.Buffer[domain.Measurement]
	drainLimit int
	captureRef map[string]bool
	metrics    *metric.Metrics
	logger     *slog.Logger

	shutdown chan struct{}
	done     chan struct{}
	running  atomic.Bool
	mu       sync.Mutex
	wg       sync.WaitGroup

	ticks     atomic.Int64
	lastSweep atomic.Int64
}

// NewWorker creates the worker.
func NewWorker(deps WorkerDeps) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:      deps.Store,
		criteria:   deps.Criteria,
		engine:     deps.Engine,
		bus:        deps.Bus,
		readings:   deps.Readings,
		drainLimit: deps.DrainLimit,
		captureRef: deps.CaptureReference,
		metrics:    deps.Metrics,
		logger:     logger.With("component", "alarm-worker"),
	}
}

// Initialize validates the wiring before the loop starts.
func (w *Worker) Initialize() error {
	if w.store == nil || w.criteria == nil || w.engine == nil || w.bus == nil || w.readings == nil {
		return errors.WrapInvalid(fmt.Errorf("missing dependency"),
			"alarm-worker", "Initialize", "dependency check")
	}
	return nil
}

// Start launches the evaluation loop. Idempotent.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return nil
	}

	w.shutdown = make(chan struct{})
	w.done = make(chan struct{})
	w.running.Store(true)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.done)
		w.loop(ctx)
	}()
	return nil
}

// Stop drains up to the configured limit of queued readings, then stops the
// loop. No CLEARED events are synthesized at shutdown: active alarms stay in
// the table.
func (w *Worker) Stop(timeout time.Duration) error {
	if !w.running.Load() {
		return nil
	}
	w.running.Store(false)

	w.mu.Lock()
	if w.shutdown != nil {
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
	}
	done := w.done
	w.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"alarm-worker", "Stop", "graceful shutdown")
	}
}

// Healthy reports whether the loop is running.
func (w *Worker) Healthy() bool {
	return w.running.Load()
}

// Ticks returns the number of completed evaluation ticks.
func (w *Worker) Ticks() int64 {
	return w.ticks.Load()
}

func (w *Worker) loop(ctx context.Context) {
	w.logger.Info("alarm worker started", "drain_limit", w.drainLimit)

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case <-w.shutdown:
			w.drain()
			return
		default:
		}

		m, ok := w.readings.Read()
		if !ok {
			w.maybeSweep()
			select {
			case <-ctx.Done():
				w.drain()
				return
			case <-w.shutdown:
				w.drain()
				return
			case <-time.After(popWait):
			}
			continue
		}

		w.tick(m)
		w.maybeSweep()
	}
}

// tick applies one measurement and runs a full evaluation pass.
func (w *Worker) tick(m domain.Measurement) {
	start := time.Now()

	switch r := m.(type) {
	case domain.Reading:
		w.store.UpsertScalar(r)
	case domain.Spectrum:
		if err := w.store.UpsertSpectrum(r); err != nil {
			w.logger.Warn("spectrum rejected at store", "sensor", r.Sensor, "error", err)
			if w.metrics != nil {
				w.metrics.RecordReadingRejected("spectrum_length")
			}
			return
		}
		// Channels without a pinned reference bin baseline on their first
		// usable spectrum.
		if w.captureRef[r.Sensor] && r.Usable() {
			if _, ok := w.store.Reference(r.Sensor); !ok {
				w.store.SetReference(r.Sensor, r)
				w.logger.Info("reference spectrum captured", "sensor", r.Sensor, "peak", r.ArgMax())
			}
		}
	default:
		w.logger.Warn("unknown measurement kind", "sensor", m.SensorName())
		return
	}

	now := timestamp.Now()
	view := w.store.View()
	decisions := w.criteria.EvaluateAll(view, now)
	events := w.engine.Ingest(decisions, now)
	for _, ev := range events {
		w.bus.Publish(ev)
	}

	w.ticks.Add(1)
	if w.metrics != nil {
		w.metrics.RecordProcessingDuration("alarm-worker", "tick", time.Since(start))
	}
}

// maybeSweep runs the staleness sweep at most once per sweepInterval.
func (w *Worker) maybeSweep() {
	now := timestamp.Now()
	last := w.lastSweep.Load()
	if now-last < sweepInterval.Milliseconds() {
		return
	}
	if !w.lastSweep.CompareAndSwap(last, now) {
		return
	}
	for _, ev := range w.engine.SweepStale(now) {
		w.bus.Publish(ev)
	}
}

// drain processes up to drainLimit queued readings so a shutdown does not
// silently discard measurements already accepted from the feed.
func (w *Worker) drain() {
	drained := 0
	for drained < w.drainLimit {
		m, ok := w.readings.Read()
		if !ok {
			break
		}
		w.tick(m)
		drained++
	}
	if drained > 0 {
		w.logger.Info("drained queued readings at shutdown", "count", drained)
	}
	w.logger.Info("alarm worker stopped", "ticks", w.ticks.Load())
}
