package notify

import (
	"log/slog"

	"github.com/c360/linewatch/bus"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/pkg/buffer"
	"github.com/c360/linewatch/state"
)

// AdapterDeps holds construction parameters for the adapter.
type AdapterDeps struct {
	Store *state.Store

	// Queue is the bounded pending-delivery buffer shared with the worker.
	Queue buffer.Buffer[Payload]

	Metrics *metric.Metrics
	Logger  *slog.Logger
}

// Adapter bridges the bus to the delivery queue. Its handler runs on the
// publisher's goroutine, so all it does is capture counters and enqueue;
// blocking I/O lives in the worker.
type Adapter struct {
	store   *state.Store
	queue   buffer.Buffer[Payload]
	metrics *metric.Metrics
	logger  *slog.Logger
}

// NewAdapter creates the adapter.
func NewAdapter(deps AdapterDeps) *Adapter {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		store:   deps.Store,
		queue:   deps.Queue,
		metrics: deps.Metrics,
		logger:  logger.With("component", "notify-adapter"),
	}
}

// Attach subscribes the adapter to the bus. The returned function detaches it.
func (a *Adapter) Attach(b *bus.Bus) func() {
	return b.Subscribe("notify-adapter", a.HandleEvent)
}

// HandleEvent joins one event with current totals and enqueues the payload.
// Overflow drops the oldest pending payload via the queue's policy.
func (a *Adapter) HandleEvent(ev domain.AlarmEvent) {
	p := Payload{
		Event:  ev,
		Totals: a.store.Counters(),
	}
	if err := a.queue.Write(p); err != nil {
		a.logger.Warn("notification enqueue failed", "alarm", ev.Key.String(), "error", err)
		if a.metrics != nil {
			a.metrics.RecordNotificationDropped()
		}
	}
}
