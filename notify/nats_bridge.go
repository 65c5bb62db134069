package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/linewatch/bus"
	"github.com/c360/linewatch/config"
	"github.com/c360/linewatch/domain"
	"github.com/c360/linewatch/errors"
)

// NATSBridgeDeps holds construction parameters for the bridge.
type NATSBridgeDeps struct {
	Config config.NATSBridgeConfig
	Logger *slog.Logger
}

// NATSBridge republishes every alarm event to a NATS subject for downstream
// consumers outside the process. Publishing is fire-and-forget: the bridge
// carries no delivery guarantee and a NATS outage costs only bridge messages.
type NATSBridge struct {
	cfg    config.NATSBridgeConfig
	logger *slog.Logger

	conn      atomic.Pointer[nats.Conn]
	published atomic.Int64
}

// NewNATSBridge creates the bridge.
func NewNATSBridge(deps NATSBridgeDeps) *NATSBridge {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSBridge{
		cfg:    deps.Config,
		logger: logger.With("component", "nats-bridge"),
	}
}

// Initialize validates the bridge configuration.
func (b *NATSBridge) Initialize() error {
	if !b.cfg.Enabled() {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"nats-bridge", "Initialize", "url check")
	}
	if b.cfg.Subject == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"nats-bridge", "Initialize", "subject check")
	}
	return nil
}

// Start connects to NATS with an infinitely reconnecting client. Connection
// state changes are logged, never fatal.
func (b *NATSBridge) Start(ctx context.Context) error {
	if b.conn.Load() != nil {
		return nil
	}

	nc, err := nats.Connect(b.cfg.URL,
		nats.Name("linewatch-bridge"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			b.logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return errors.WrapTransient(err, "nats-bridge", "Start", "nats connect")
	}

	b.conn.Store(nc)
	b.logger.Info("nats bridge connected", "url", b.cfg.URL, "subject", b.cfg.Subject)
	return nil
}

// Stop drains and closes the connection.
func (b *NATSBridge) Stop(timeout time.Duration) error {
	nc := b.conn.Swap(nil)
	if nc == nil {
		return nil
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		_ = nc.Drain()
	}()

	select {
	case <-drained:
	case <-time.After(timeout):
		nc.Close()
		return errors.WrapTransient(fmt.Errorf("drain timeout after %v", timeout),
			"nats-bridge", "Stop", "nats drain")
	}
	return nil
}

// Healthy reports whether the bridge holds a live connection.
func (b *NATSBridge) Healthy() bool {
	nc := b.conn.Load()
	return nc != nil && nc.IsConnected()
}

// Published returns the number of events handed to NATS.
func (b *NATSBridge) Published() int64 {
	return b.published.Load()
}

// Attach subscribes the bridge to the bus. The returned function detaches it.
func (b *NATSBridge) Attach(eventBus *bus.Bus) func() {
	return eventBus.Subscribe("nats-bridge", b.HandleEvent)
}

// HandleEvent publishes one event as JSON. Failures are logged and dropped;
// the bus handler must never block or propagate errors.
func (b *NATSBridge) HandleEvent(ev domain.AlarmEvent) {
	nc := b.conn.Load()
	if nc == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("event encoding failed", "alarm", ev.Key.String(), "error", err)
		return
	}
	if err := nc.Publish(b.cfg.Subject, data); err != nil {
		b.logger.Warn("nats publish failed", "alarm", ev.Key.String(), "error", err)
		return
	}
	b.published.Add(1)
}
