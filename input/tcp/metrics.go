package tcp

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/linewatch/metric"
)

// Metrics holds feed-specific Prometheus metrics, registered per instance.
type Metrics struct {
	framesReceived        prometheus.Counter
	bytesReceived         prometheus.Counter
	decodeErrors          prometheus.Counter
	oversizedFrames       prometheus.Counter
	synthesizedTimestamps prometheus.Counter
	lastActivity          prometheus.Gauge
}

// newMetrics creates and registers feed metrics. Returns nil when no registry
// is provided.
func newMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linewatch",
			Subsystem: "feed",
			Name:      "frames_received_total",
			Help:      "Total NDJSON frames read from the sensor feed",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linewatch",
			Subsystem: "feed",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from the sensor feed",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linewatch",
			Subsystem: "feed",
			Name:      "decode_errors_total",
			Help:      "Frames that failed decoding or validation",
		}),
		oversizedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linewatch",
			Subsystem: "feed",
			Name:      "oversized_frames_total",
			Help:      "Frames discarded for exceeding the max line length",
		}),
		synthesizedTimestamps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linewatch",
			Subsystem: "feed",
			Name:      "synthesized_timestamps_total",
			Help:      "Measurements stamped with the wall clock because the frame carried no timestamp",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "linewatch",
			Subsystem: "feed",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of the last decoded frame",
		}),
	}

	const serviceName = "tcp_feed"
	_ = registry.RegisterCounter(serviceName, "frames_received", m.framesReceived)
	_ = registry.RegisterCounter(serviceName, "bytes_received", m.bytesReceived)
	_ = registry.RegisterCounter(serviceName, "decode_errors", m.decodeErrors)
	_ = registry.RegisterCounter(serviceName, "oversized_frames", m.oversizedFrames)
	_ = registry.RegisterCounter(serviceName, "synthesized_timestamps", m.synthesizedTimestamps)
	_ = registry.RegisterGauge(serviceName, "last_activity", m.lastActivity)

	return m
}
