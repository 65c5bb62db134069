package runtime

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Transport.TCPClient.Host = "127.0.0.1"
	cfg.Transport.TCPClient.Port = 1 // replaced per test when a feed is needed
	cfg.API.Enabled = false
	return cfg
}

func componentNames(s *Supervisor) []string {
	names := make([]string, 0, len(s.components))
	for _, nc := range s.components {
		names = append(names, nc.name)
	}
	return names
}

func TestNewWiresCorePipeline(t *testing.T) {
	s, err := New(testConfig(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"alarm-worker", "tcp-input"}, componentNames(s))
	assert.NotNil(t, s.Store())
	assert.NotNil(t, s.Bus())
}

func TestNewWiresOptionalComponents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notifications.Webhook.URL = "https://hooks.example.com/alarms"
	cfg.Bridge.NATS.URL = "nats://127.0.0.1:4222"
	cfg.API.Enabled = true
	cfg.API.Addr = ":0"

	s, err := New(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"alarm-worker", "tcp-input", "notify-worker", "nats-bridge", "api-server"},
		componentNames(s))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transport.TCPClient.Host = ""

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestCaptureChannels(t *testing.T) {
	pinned := 100
	sensors := config.SensorsConfig{
		SpectralConfigs: []config.SpectralSensorConfig{
			{Name: "FTIR", Length: 256, ReferencePeakIndex: &pinned},
			{Name: "Raman", Length: 128},
		},
	}

	got := captureChannels(sensors)
	assert.Equal(t, map[string]bool{"Raman": true}, got)
}

func TestHealthCoversEveryComponent(t *testing.T) {
	s, err := New(testConfig(t), nil)
	require.NoError(t, err)

	health := s.Health()
	assert.Contains(t, health, "alarm-worker")
	assert.Contains(t, health, "tcp-input")
	// Nothing started yet.
	for name, ok := range health {
		assert.False(t, ok, name)
	}
}

// TestRunEndToEnd drives one over-limit reading through the full pipeline:
// feed listener, decoder, store, criteria, engine, bus.
func TestRunEndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		fmt.Fprintf(conn, `{"type":"sensor_reading","sensor":"Pressure","value":2.5,"timestamp":"2026-08-26T10:00:00Z"}`+"\n")
		// Hold the connection open so the input does not reconnect-loop.
		time.Sleep(5 * time.Second)
	}()

	cfg := testConfig(t)
	cfg.Transport.TCPClient.Port = ln.Addr().(*net.TCPAddr).Port

	s, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := s.Store().AlarmState(domain.AlarmKey{
			Source: "Pressure",
			Type:   domain.AlarmTypeHighLimit,
		})
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	st, _ := s.Store().AlarmState(domain.AlarmKey{
		Source: "Pressure",
		Type:   domain.AlarmTypeHighLimit,
	})
	assert.True(t, st.Active)
	assert.Equal(t, 1, s.Store().Counters().EventsTotal)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s, err := New(testConfig(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.Health()["alarm-worker"]
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}
