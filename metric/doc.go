// Package metric provides Prometheus-based metrics collection for linewatch
// monitoring and observability.
//
// The package offers a centralized metrics registry managing both core platform
// metrics (component status, reading throughput, alarm transitions, feed health,
// notification delivery) and custom component-specific metrics. The HTTP API
// server exposes the registry in Prometheus format at /metrics.
//
// # Architecture
//
// The package follows a two-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Component Registry: Extensible registration for component-specific metrics
//     (MetricsRegistrar interface)
//
// This separates infrastructure concerns (core metrics) from component concerns
// (component-specific metrics) while producing a single scrape endpoint.
//
// # Basic Usage
//
// Setting up metrics collection:
//
//	registry := metric.NewMetricsRegistry()
//
//	// Record core platform metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordComponentStatus("tcp-input", 2)
//	coreMetrics.RecordReadingReceived("TempLowerMSP", "scalar")
//	coreMetrics.RecordAlarmTransition("RAISED")
//	coreMetrics.RecordFeedStatus(true)
//
// The API server serves the registry's Prometheus output; see the api package.
//
// # Core Metrics
//
// The package automatically registers core platform metrics tracking:
//
//   - Component lifecycle: component_status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)
//   - Reading throughput: readings_received_total, readings_rejected_total
//   - Alarm pipeline: alarms_transitions_total, alarms_active, events_published_total
//   - Feed connectivity: feed_connected, feed_reconnects_total
//   - Notification delivery: notifications_delivered_total, notifications_failed_total,
//     notifications_dropped_total
//   - Processing performance: processing_duration_seconds
//   - Error tracking: errors_total
//
// # Component-Specific Metrics
//
// Components register custom metrics through the registry:
//
//	attempts := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "linewatch",
//	    Subsystem: "webhook",
//	    Name:      "attempts_total",
//	    Help:      "Total webhook delivery attempts including retries",
//	})
//	err := registry.RegisterCounter("webhook-worker", "attempts_total", attempts)
//
// Vector variants (RegisterCounterVec, RegisterGaugeVec, RegisterHistogramVec)
// support labeled metrics. Registration fails on duplicate names, both at the
// registry's own bookkeeping level and at the Prometheus level.
//
// # Buffer Integration
//
// The buffer package exports its statistics as Prometheus metrics when handed a
// registry:
//
//	buf, err := buffer.NewCircularBuffer[domain.Reading](1024,
//	    buffer.WithMetrics[domain.Reading](registry, "readings"),
//	)
//
// This yields linewatch_buffer_* series labeled with the component name.
//
// # Thread Safety
//
// The registry serializes registration and unregistration with an internal mutex.
// Recording values on already-registered metrics is lock-free and safe from any
// goroutine, per the Prometheus client guarantees.
package metric
