package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/c360/linewatch/config"
)

func TestNATSBridgeInitializeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.NATSBridgeConfig
		wantErr bool
	}{
		{"disabled", config.NATSBridgeConfig{}, true},
		{"missing subject", config.NATSBridgeConfig{URL: "nats://127.0.0.1:4222"}, true},
		{"valid", config.NATSBridgeConfig{URL: "nats://127.0.0.1:4222", Subject: "linewatch.alarms"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewNATSBridge(NATSBridgeDeps{Config: tt.cfg})
			err := b.Initialize()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNATSBridgeWithoutConnection(t *testing.T) {
	b := NewNATSBridge(NATSBridgeDeps{
		Config: config.NATSBridgeConfig{URL: "nats://127.0.0.1:4222", Subject: "linewatch.alarms"},
	})

	// Events before Start are dropped silently; the bridge never blocks the bus.
	b.HandleEvent(raisedEvent("ev-1"))
	assert.Zero(t, b.Published())
	assert.False(t, b.Healthy())
	assert.NoError(t, b.Stop(time.Second))
}
