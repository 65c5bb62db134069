// Package buffer provides thread-safe circular buffers with configurable overflow policies,
// built-in statistics tracking, and optional Prometheus metrics integration.
//
// # Overview
//
// The buffer package implements the bounded queues that decouple linewatch's pipeline
// stages: the TCP feed writes readings faster than the alarm evaluator drains them,
// and the event bus enqueues alarm events faster than the webhook worker can deliver
// them. Buffers are generic, thread-safe, and observable through always-on statistics
// plus optional Prometheus metrics.
//
// # Quick Start
//
// Basic buffer creation:
//
//	buf, err := buffer.NewCircularBuffer[domain.Reading](1024)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Write data
//	err = buf.Write(reading)
//
//	// Read data
//	reading, ok := buf.Read()
//
// With overflow policy and metrics:
//
//	buf, err := buffer.NewCircularBuffer[domain.Reading](1024,
//		buffer.WithOverflowPolicy[domain.Reading](buffer.DropOldest),
//		buffer.WithMetrics[domain.Reading](registry, "readings"),
//	)
//
// # Overflow Policies
//
// The buffer supports three overflow behaviors when capacity is reached:
//
//   - DropOldest: Remove oldest item to make room (default). Used for the readings
//     queue and the notification queue, where the freshest data matters most.
//   - DropNewest: Reject new items when full.
//   - Block: Write operations wait for available space.
//
// Example with blocking policy:
//
//	buf, _ := buffer.NewCircularBuffer[*domain.AlarmEvent](100,
//		buffer.WithOverflowPolicy[*domain.AlarmEvent](buffer.Block),
//	)
//
//	// Write with timeout when using Block policy
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	err := buf.WriteWithContext(ctx, event)
//
// # Observability
//
// Statistics are always collected via atomic counters and available from buf.Stats():
// writes, reads, overflows, drops, plus computed rates (throughput, drop rate,
// utilization). They work without any external dependency, which keeps them usable
// in tests and minimal deployments.
//
// Prometheus metrics are optional and enabled with WithMetrics(). They export the
// same operations as counters and gauges labeled by component, for dashboards and
// alerting. Both trackers record independently: reading statistics back out of
// Prometheus would make basic stats depend on the metrics stack and is roughly an
// order of magnitude slower than an atomic load. The dual bookkeeping costs a few
// nanoseconds per operation.
//
// # Thread Safety
//
// All buffer operations are safe for concurrent use:
//   - Multiple producers can write concurrently
//   - Multiple consumers can read concurrently
//   - Statistics use atomic operations (lock-free)
//   - Internal state protected by sync.RWMutex
//   - Block policy uses sync.Cond for waiting
//
// # Common Use Cases
//
// Readings queue between the TCP decoder and the alarm evaluator:
//
//	readings := buffer.NewCircularBuffer[domain.Reading](1024,
//		buffer.WithOverflowPolicy[domain.Reading](buffer.DropOldest),
//		buffer.WithMetrics[domain.Reading](registry, "tcp_input"),
//	)
//
// Notification queue feeding the webhook delivery worker, with drop visibility:
//
//	pending := buffer.NewCircularBuffer[notify.Payload](512,
//		buffer.WithOverflowPolicy[notify.Payload](buffer.DropOldest),
//		buffer.WithDropCallback[notify.Payload](func(p notify.Payload) {
//			logger.Warn("notification dropped", "event_id", p.Event.EventID)
//		}),
//	)
//
// # Performance Characteristics
//
// Write, Read, and Peek are O(1); ReadBatch is O(n) in the batch size. The backing
// array is pre-allocated at construction, so steady-state operation performs no
// allocations beyond what the element type itself requires.
package buffer
