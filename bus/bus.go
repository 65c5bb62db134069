// Package bus provides the in-process publish/subscribe fan-out for alarm
// events. Dispatch is synchronous from the publisher's goroutine; handlers
// are expected to enqueue and return, never block. The subscriber-list lock
// is held only to copy the list, never during dispatch.
package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/metric"
)

// Handler receives one published event. It must not block: downstream
// consumers own their own bounded queues and drop on overflow.
type Handler func(domain.AlarmEvent)

type subscriber struct {
	id      int
	name    string
	handler Handler
}

// Bus fans alarm events out to every current subscriber.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber

	published atomic.Int64

	metrics *metric.Metrics
	logger  *slog.Logger
}

// New creates a bus. Metrics may be nil.
func New(metrics *metric.Metrics, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		metrics: metrics,
		logger:  logger.With("component", "event-bus"),
	}
}

// Subscribe registers a handler under a name used in logs. The returned
// function removes the subscription; calling it more than once is harmless.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, name: name, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.subs {
				if sub.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish dispatches an event to every subscriber registered at call time.
// A panicking handler is logged and isolated; remaining subscribers still
// receive the event.
func (b *Bus) Publish(ev domain.AlarmEvent) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		b.dispatch(sub, ev)
	}

	b.published.Add(1)
	if b.metrics != nil {
		b.metrics.RecordEventPublished()
	}
}

func (b *Bus) dispatch(sub subscriber, ev domain.AlarmEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked during dispatch",
				"subscriber", sub.name,
				"alarm", ev.Key.String(),
				"panic", r)
		}
	}()
	sub.handler(ev)
}

// Published returns the total number of events ever published. Tests check
// it against the store's event counter.
func (b *Bus) Published() int64 {
	return b.published.Load()
}
