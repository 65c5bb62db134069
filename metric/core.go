package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Component metrics
	ComponentStatus    *prometheus.GaugeVec
	ReadingsReceived   *prometheus.CounterVec
	ReadingsRejected   *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	HealthCheckStatus  *prometheus.GaugeVec

	// Alarm pipeline metrics
	AlarmTransitions *prometheus.CounterVec
	ActiveAlarms     prometheus.Gauge
	EventsPublished  prometheus.Counter

	// Feed metrics
	FeedConnected  prometheus.Gauge
	FeedReconnects prometheus.Counter

	// Notification metrics
	NotificationsDelivered prometheus.Counter
	NotificationsFailed    prometheus.Counter
	NotificationsDropped   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Component metrics
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "linewatch",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"component"},
		),

		ReadingsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "readings",
				Name:      "received_total",
				Help:      "Total number of readings decoded from the sensor feed",
			},
			[]string{"source", "type"},
		),

		ReadingsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "readings",
				Name:      "rejected_total",
				Help:      "Total number of feed lines rejected before reaching the pipeline",
			},
			[]string{"reason"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "linewatch",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Pipeline stage processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "linewatch",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		// Alarm pipeline metrics
		AlarmTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "alarms",
				Name:      "transitions_total",
				Help:      "Total number of alarm state transitions by kind",
			},
			[]string{"transition"},
		),

		ActiveAlarms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "linewatch",
				Subsystem: "alarms",
				Name:      "active",
				Help:      "Number of currently active alarms",
			},
		),

		EventsPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of alarm events published on the bus",
			},
		),

		// Feed metrics
		FeedConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "linewatch",
				Subsystem: "feed",
				Name:      "connected",
				Help:      "Sensor feed connection status (0=disconnected, 1=connected)",
			},
		),

		FeedReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "feed",
				Name:      "reconnects_total",
				Help:      "Total number of sensor feed reconnections",
			},
		),

		// Notification metrics
		NotificationsDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "notifications",
				Name:      "delivered_total",
				Help:      "Total number of webhook notifications delivered",
			},
		),

		NotificationsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "notifications",
				Name:      "failed_total",
				Help:      "Total number of webhook notifications that exhausted delivery attempts",
			},
		),

		NotificationsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "linewatch",
				Subsystem: "notifications",
				Name:      "dropped_total",
				Help:      "Total number of notifications dropped from the pending queue",
			},
		),
	}
}

// RecordComponentStatus updates component status metric
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordReadingReceived increments the decoded readings counter
func (c *Metrics) RecordReadingReceived(source, readingType string) {
	c.ReadingsReceived.WithLabelValues(source, readingType).Inc()
}

// RecordReadingRejected increments the rejected line counter
func (c *Metrics) RecordReadingRejected(reason string) {
	c.ReadingsRejected.WithLabelValues(reason).Inc()
}

// RecordProcessingDuration records processing time
func (c *Metrics) RecordProcessingDuration(component, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordAlarmTransition increments the transition counter for RAISED, UPDATED or CLEARED
func (c *Metrics) RecordAlarmTransition(transition string) {
	c.AlarmTransitions.WithLabelValues(transition).Inc()
}

// SetActiveAlarms updates the active alarm gauge
func (c *Metrics) SetActiveAlarms(n int) {
	c.ActiveAlarms.Set(float64(n))
}

// RecordEventPublished increments the published event counter
func (c *Metrics) RecordEventPublished() {
	c.EventsPublished.Inc()
}

// RecordFeedStatus updates sensor feed connection status
func (c *Metrics) RecordFeedStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.FeedConnected.Set(value)
}

// RecordFeedReconnect increments the reconnection counter
func (c *Metrics) RecordFeedReconnect() {
	c.FeedReconnects.Inc()
}

// RecordNotificationDelivered increments the delivered notification counter
func (c *Metrics) RecordNotificationDelivered() {
	c.NotificationsDelivered.Inc()
}

// RecordNotificationFailed increments the failed notification counter
func (c *Metrics) RecordNotificationFailed() {
	c.NotificationsFailed.Inc()
}

// RecordNotificationDropped increments the dropped notification counter
func (c *Metrics) RecordNotificationDropped() {
	c.NotificationsDropped.Inc()
}
