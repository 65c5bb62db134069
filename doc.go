// Package linewatch is the real-time alarm processing core of an industrial
// production-line sensor monitoring system.
//
// # Pipeline
//
// Linewatch ingests a TCP NDJSON stream of sensor readings, evaluates a set
// of configured alarm criteria against each reading, maintains the lifecycle
// state of every alarm, and fans lifecycle transition events out to
// downstream consumers:
//
//	┌────────────┐   readings    ┌──────────────┐   events   ┌──────────┐
//	│  input/tcp │──────────────►│ alarm.Worker │───────────►│ bus.Bus  │
//	│  (decoder) │  (buffer)     │ store+engine │            │ (fan-out)│
//	└────────────┘               └──────┬───────┘            └────┬─────┘
//	                                    │                         │
//	                             ┌──────▼──────┐      ┌───────────┼───────────┐
//	                             │ state.Store │      ▼           ▼           ▼
//	                             │  (shared)   │  notify      notify       api ws
//	                             └─────────────┘  webhook     NATS bridge  stream
//
// One goroutine owns each pipeline stage. The state store is the only shared
// mutable structure; every queue is a bounded buffer with drop-oldest
// overflow so the pipeline never blocks upstream.
//
// # Packages
//
// Domain and state:
//   - domain: readings, spectra, alarm keys/states/events, counters, codecs
//   - state: the authoritative in-memory store with consistent snapshots
//
// Pipeline stages:
//   - input/tcp: reconnecting NDJSON frame decoder
//   - alarm: criteria, transition engine, worker loop
//   - bus: in-process event fan-out
//   - notify: webhook delivery pipeline and optional NATS bridge
//   - api: HTTP snapshot/alarm/event endpoints, /metrics, websocket stream
//
// Infrastructure:
//   - config: layered JSON configuration with validation
//   - runtime: pipeline wiring and lifecycle supervision
//   - metric: Prometheus registry and platform metrics
//   - errors: classified error handling
//   - pkg/buffer, pkg/retry, pkg/timestamp: shared utilities
//
// # Guarantees
//
// Per sensor, readings are applied to the store in observation order (the
// worker is the queue's single consumer). Per alarm key, transition events
// form a valid RAISED (UPDATED)* CLEARED sequence (the engine is the single
// writer). Delivery to the webhook is best effort: retries with backoff,
// then drop.
package linewatch
