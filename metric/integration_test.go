package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockComponent simulates a pipeline component that registers its own metrics,
// the way the TCP input and the webhook worker do.
type mockComponent struct {
	name    string
	metrics struct {
		itemsProcessed prometheus.Counter
		queueDepth     prometheus.Gauge
	}
}

func newMockComponent(name string) *mockComponent {
	return &mockComponent{name: name}
}

// RegisterMetrics registers component-specific metrics
func (m *mockComponent) RegisterMetrics(registrar MetricsRegistrar) error {
	m.metrics.itemsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "linewatch",
		Subsystem: "mock_component",
		Name:      "items_processed_total",
		Help:      "Total number of items processed",
	})

	err := registrar.RegisterCounter(m.name, "items_processed_total", m.metrics.itemsProcessed)
	if err != nil {
		return err
	}

	m.metrics.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "linewatch",
		Subsystem: "mock_component",
		Name:      "queue_depth",
		Help:      "Current depth of the component's work queue",
	})

	return registrar.RegisterGauge(m.name, "queue_depth", m.metrics.queueDepth)
}

// Process simulates work and updates metrics
func (m *mockComponent) Process(items int, queueDepth int) {
	m.metrics.itemsProcessed.Add(float64(items))
	m.metrics.queueDepth.Set(float64(queueDepth))
}

func TestMetricsIntegration_ComponentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	comp := newMockComponent("webhook-worker")

	err := comp.RegisterMetrics(registry)
	require.NoError(t, err)

	comp.Process(10, 5)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	assert.True(t, foundMetrics["linewatch_mock_component_items_processed_total"],
		"Custom items_processed metric should be registered")
	assert.True(t, foundMetrics["linewatch_mock_component_queue_depth"],
		"Custom queue_depth metric should be registered")
}

func TestMetricsIntegration_NoDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	// Two components with the same name (this shouldn't happen in real usage)
	comp1 := newMockComponent("duplicate-component")
	comp2 := newMockComponent("duplicate-component")

	err := comp1.RegisterMetrics(registry)
	require.NoError(t, err)

	err = comp2.RegisterMetrics(registry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestMetricsIntegration_CoreAndComponentMetricsSeparate(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	comp := newMockComponent("separation-test")
	err := comp.RegisterMetrics(registry)
	require.NoError(t, err)

	// Use core metrics
	coreMetrics.RecordComponentStatus("separation-test", 2)
	coreMetrics.RecordReadingReceived("TempUpperMSP", "scalar")

	// Use component-specific metrics
	comp.Process(5, 3)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	// Verify core metrics
	assert.True(t, foundMetrics["linewatch_component_status"],
		"core component status metric should be present")
	assert.True(t, foundMetrics["linewatch_readings_received_total"],
		"core readings received metric should be present")

	// Verify component-specific metrics
	assert.True(t, foundMetrics["linewatch_mock_component_items_processed_total"],
		"Component-specific processed metric should be present")
	assert.True(t, foundMetrics["linewatch_mock_component_queue_depth"],
		"Component-specific queue depth metric should be present")
}

func TestMetricsIntegration_MetricsUnregistration(t *testing.T) {
	registry := NewMetricsRegistry()

	comp := newMockComponent("unregister-test")

	err := comp.RegisterMetrics(registry)
	require.NoError(t, err)

	comp.Process(1, 1)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundBefore := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundBefore[mf.GetName()] = true
	}

	assert.True(t, foundBefore["linewatch_mock_component_items_processed_total"],
		"Metric should be present before unregistration")

	success := registry.Unregister("unregister-test", "items_processed_total")
	assert.True(t, success, "Unregistration should succeed")

	metricFamilies, err = registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundAfter := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundAfter[mf.GetName()] = true
	}

	assert.False(t, foundAfter["linewatch_mock_component_items_processed_total"],
		"Metric should be absent after unregistration")
	assert.True(t, foundAfter["linewatch_mock_component_queue_depth"],
		"Other component metrics should remain")
}

func TestMetricsIntegration_PrometheusNameConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	// Different registry keys but identical Prometheus metric names
	comp1 := newMockComponent("tcp-input")
	comp2 := newMockComponent("alarm-engine")

	err := comp1.RegisterMetrics(registry)
	require.NoError(t, err)

	// The second component fails because it tries to register the same
	// Prometheus metric names, even though the registry key differs
	err = comp2.RegisterMetrics(registry)
	assert.Error(t, err, "Second component should fail due to Prometheus metric name conflict")
	assert.Contains(t, err.Error(), "prometheus conflict")
}
